// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"fmt"
	"net"
	"time"
)

// DialTCP connects to a raw TCP serial bridge such as ser2net.
func DialTCP(addr string, timeout time.Duration) (*Stream, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return NewStream(conn), nil
}
