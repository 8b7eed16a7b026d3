// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lolmon

import (
	"io"
	"time"
)

// Transport is the byte link to the monitor.
//
// ReadN returns once n bytes are available or timeout elapses, whichever is
// first; a short result without an error means the timeout expired.
// ReadAvailable returns every byte currently buffered without waiting and may
// return an empty slice.
type Transport interface {
	io.Writer
	ReadN(n int, timeout time.Duration) ([]byte, error)
	ReadAvailable() ([]byte, error)
}
