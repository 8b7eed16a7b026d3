// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"slices"

	"github.com/Thermoquad/lolmon/pkg/devices"
	"github.com/Thermoquad/lolmon/pkg/lolmon"
	"github.com/spf13/cobra"
)

var blockRIU bool

var blockCmd = &cobra.Command{
	Use:   "block",
	Short: "Access named register blocks",
	Long: `Access register blocks by name and offset.

The built-in map covers pinmux, uart0, emac and ephy. More blocks, or other
bases for the built-in ones, come from [[block]] tables in the config file:

  [[block]]
  name = "gpio"
  base = 0xbf207800

With --riu, offsets are RIU offsets from the block's RIU base rather than
byte offsets from its physical base.`,
}

var blockListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known register blocks",
	Args:  cobra.NoArgs,
	RunE:  runBlockList,
}

var blockDumpCmd = &cobra.Command{
	Use:   "dump <block>",
	Short: "Dump a register block",
	Args:  cobra.ExactArgs(1),
	RunE:  runBlockDump,
}

var blockReadCmd = &cobra.Command{
	Use:   "read <block> <width> <offset>",
	Short: "Read a register in a block",
	Args:  cobra.ExactArgs(3),
	RunE:  runBlockRead,
}

var blockWriteCmd = &cobra.Command{
	Use:   "write <block> <width> <offset> <value>",
	Short: "Write a register in a block",
	Args:  cobra.ExactArgs(4),
	RunE:  runBlockWrite,
}

func init() {
	blockCmd.PersistentFlags().BoolVar(&blockRIU, "riu", false, "Offsets are RIU offsets")

	blockCmd.AddCommand(blockListCmd)
	blockCmd.AddCommand(blockDumpCmd)
	blockCmd.AddCommand(blockReadCmd)
	blockCmd.AddCommand(blockWriteCmd)
	rootCmd.AddCommand(blockCmd)
}

// blockSpecs is the built-in map with config file blocks on top
func blockSpecs() map[string]devices.BlockSpec {
	specs := make(map[string]devices.BlockSpec)
	for _, list := range [][]devices.BlockSpec{devices.DefaultBlocks, opts.Blocks} {
		for _, s := range list {
			specs[s.Name] = s
		}
	}
	return specs
}

// lookupBlock binds the named block to t.
func lookupBlock(t lolmon.Target, name string) (*lolmon.Block, error) {
	b, ok := devices.Blocks(t, devices.DefaultBlocks, opts.Blocks)[name]
	if !ok {
		return nil, fmt.Errorf("unknown block %q (see \"lolmon block list\")", name)
	}
	return b, nil
}

func runBlockList(cmd *cobra.Command, args []string) error {
	specs := blockSpecs()
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		s := specs[name]
		riu := "-"
		if off, ok := lolmon.RIUOffset(s.Base); ok {
			riu = fmt.Sprintf("%#x", off)
		}
		fmt.Printf("%-10s %08x  riu %s\n", name, s.Base, riu)
	}
	return nil
}

func runBlockDump(cmd *cobra.Command, args []string) error {
	return withMonitor(cmd, func(ctx context.Context, m *monitor) error {
		b, err := lookupBlock(m, args[0])
		if err != nil {
			return err
		}

		var out string
		switch b.Name {
		case "pinmux":
			out, err = (&devices.Pinmux{Block: b}).Dump(ctx)
		case "ephy":
			out, err = devices.NewEPHY(b).Dump(ctx)
		default:
			out, err = b.Dump(ctx)
		}
		if err != nil {
			printPartial(err)
			return err
		}

		fmt.Printf("%s\n%s\n", b, out)
		return nil
	})
}

func runBlockRead(cmd *cobra.Command, args []string) error {
	w, offset, err := widthAddr(args[1:])
	if err != nil {
		return err
	}

	return withMonitor(cmd, func(ctx context.Context, m *monitor) error {
		b, err := lookupBlock(m, args[0])
		if err != nil {
			return err
		}

		var v uint32
		if blockRIU {
			v, err = b.RIURead(ctx, w, offset)
		} else {
			v, err = b.Read(ctx, w, offset)
		}
		if err != nil {
			return err
		}

		fmt.Printf("%s+%#x: 0x%0*x\n", b.Name, offset, w.Bytes()*2, v)
		return nil
	})
}

func runBlockWrite(cmd *cobra.Command, args []string) error {
	w, offset, err := widthAddr(args[1:3])
	if err != nil {
		return err
	}
	value, err := parseUint32("value", args[3])
	if err != nil {
		return err
	}

	return withMonitor(cmd, func(ctx context.Context, m *monitor) error {
		b, err := lookupBlock(m, args[0])
		if err != nil {
			return err
		}
		if blockRIU {
			return b.RIUWrite(ctx, w, offset, value)
		}
		return b.Write(ctx, w, offset, lolmon.Scalar(value))
	})
}
