// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"

	"github.com/Thermoquad/lolmon/pkg/lolmon"
	"github.com/spf13/cobra"
)

var riuCmd = &cobra.Command{
	Use:   "riu",
	Short: "Access registers by RIU offset",
	Long: `Access the register interface unit by offset instead of physical address.

RIU offsets count bytes in a space where every 16-bit register occupies a
32-bit slot; offset o lives at 0xbf000000 + (o/2)*4 + (o&1). 32-bit accesses
are split into two 16-bit accesses, low half first.`,
}

var riuReadCmd = &cobra.Command{
	Use:   "read <width> <offset>",
	Short: "Read a register by RIU offset",
	Args:  cobra.ExactArgs(2),
	RunE:  runRIURead,
}

var riuWriteCmd = &cobra.Command{
	Use:   "write <width> <offset> <value>",
	Short: "Write a register by RIU offset",
	Args:  cobra.ExactArgs(3),
	RunE:  runRIUWrite,
}

func init() {
	riuCmd.AddCommand(riuReadCmd)
	riuCmd.AddCommand(riuWriteCmd)
	rootCmd.AddCommand(riuCmd)
}

func runRIURead(cmd *cobra.Command, args []string) error {
	w, offset, err := widthAddr(args)
	if err != nil {
		return err
	}
	addr, err := lolmon.RIUAddr(offset)
	if err != nil {
		return err
	}

	return withMonitor(cmd, func(ctx context.Context, m *monitor) error {
		v, err := lolmon.NewRIU(m).Read(ctx, w, offset)
		if err != nil {
			return err
		}
		fmt.Printf("riu %#06x (%08x): 0x%0*x\n", offset, addr, w.Bytes()*2, v)
		return nil
	})
}

func runRIUWrite(cmd *cobra.Command, args []string) error {
	w, offset, err := widthAddr(args)
	if err != nil {
		return err
	}
	value, err := parseUint32("value", args[2])
	if err != nil {
		return err
	}
	if _, err := lolmon.RIUAddr(offset); err != nil {
		return err
	}

	return withMonitor(cmd, func(ctx context.Context, m *monitor) error {
		return lolmon.NewRIU(m).Write(ctx, w, offset, value)
	})
}
