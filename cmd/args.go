// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Thermoquad/lolmon/pkg/lolmon"
	"github.com/spf13/cobra"
)

// parseUint32 parses a number in Go literal syntax (0x10, 0o20, 0b1, 16, 1_000).
func parseUint32(name, s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return uint32(v), nil
}

// parseCount parses a positive element or byte count.
func parseCount(name, s string) (int, error) {
	v, err := strconv.ParseUint(s, 0, 31)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return int(v), nil
}

func parseValues(args []string) ([]uint32, error) {
	values := make([]uint32, len(args))
	for i, a := range args {
		v, err := parseUint32("value", a)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// parseBit parses "0"/"1" style set-or-clear arguments.
func parseBit(s string) (bool, error) {
	switch s {
	case "1", "set", "on":
		return true, nil
	case "0", "clr", "clear", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid bit state %q (use 0 or 1)", s)
}

// withMonitor runs fn with an open monitor, closing it afterwards.
func withMonitor(cmd *cobra.Command, fn func(ctx context.Context, m *monitor) error) error {
	m, err := openMonitor()
	if err != nil {
		return err
	}
	defer m.Close()

	return fn(cmd.Context(), m)
}

// widthAddr parses the common "<width> <addr>" leading arguments.
func widthAddr(args []string) (lolmon.Width, uint32, error) {
	w, err := lolmon.ParseWidth(args[0])
	if err != nil {
		return 0, 0, err
	}
	addr, err := parseUint32("address", args[1])
	if err != nil {
		return 0, 0, err
	}
	return w, addr, nil
}
