// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"

	"github.com/Thermoquad/lolmon/pkg/lolmon"
	"github.com/spf13/cobra"
)

var readHexdump bool

var readCmd = &cobra.Command{
	Use:   "read <width> <addr> [count]",
	Short: "Read memory",
	Long: `Read count elements (default 1) of 8, 16 or 32 bits starting at addr.

Widths are 8, 16, 32 or the monitor suffixes b, h, w. Numbers use Go literal
syntax, so addresses are usually given as 0x....`,
	Example: `  lolmon -p /dev/ttyUSB0 read w 0x80000000 16
  lolmon -p /dev/ttyUSB0 read 8 0x80000180 256 --hexdump`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runRead,
}

var writeCmd = &cobra.Command{
	Use:   "write <width> <addr> <value...>",
	Short: "Write memory",
	Long: `Write one or more consecutive elements starting at addr. Long sequences are
split over several monitor commands.`,
	Args: cobra.MinimumNArgs(3),
	RunE: runWrite,
}

var copyCmd = &cobra.Command{
	Use:   "copy <width> <dest> <src> <count>",
	Short: "Copy memory on the target",
	Args:  cobra.ExactArgs(4),
	RunE:  runCopy,
}

var memsetCmd = &cobra.Command{
	Use:   "memset <addr> <value> <size>",
	Short: "Fill size bytes at addr with a byte value",
	Long: `Fill size bytes at addr with value. Bytes up to the first 4-byte boundary
and after the last one are written singly, everything between as words.`,
	Args: cobra.ExactArgs(3),
	RunE: runMemset,
}

var setclrCmd = &cobra.Command{
	Use:   "setclr <width> <addr> <bit> <0|1>",
	Short: "Set or clear a single bit",
	Long: `Read the element at addr, set or clear one bit and write it back. The read
and write are separate monitor commands and not atomic.`,
	Args: cobra.ExactArgs(4),
	RunE: runSetClr,
}

var dumpCmd = &cobra.Command{
	Use:   "dump <width> <addr> <count>",
	Short: "Print the monitor's own memory listing",
	Args:  cobra.ExactArgs(3),
	RunE:  runDump,
}

var flashCmd = &cobra.Command{
	Use:   "flash <mem> <flash> <size>",
	Short: "Program flash from a RAM buffer",
	Args:  cobra.ExactArgs(3),
	RunE:  runFlash,
}

var callCmd = &cobra.Command{
	Use:   "call <addr> [a [b [c [d]]]]",
	Short: "Jump to code at addr with up to four arguments",
	Long: `Jump to addr with up to four arguments. The called code may never return
to the monitor, so no response is waited for.`,
	Args: cobra.RangeArgs(1, 5),
	RunE: runCall,
}

func init() {
	readCmd.Flags().BoolVar(&readHexdump, "hexdump", false, "Print as a hexdump with ASCII column")

	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(copyCmd)
	rootCmd.AddCommand(memsetCmd)
	rootCmd.AddCommand(setclrCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(flashCmd)
	rootCmd.AddCommand(callCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	w, addr, err := widthAddr(args)
	if err != nil {
		return err
	}
	count := 1
	if len(args) == 3 {
		if count, err = parseCount("count", args[2]); err != nil {
			return err
		}
	}

	return withMonitor(cmd, func(ctx context.Context, m *monitor) error {
		values, err := m.Read(ctx, w, addr, count)
		if err != nil {
			printPartial(err)
			return err
		}

		if readHexdump {
			fmt.Print(lolmon.FormatHexdump(valuesToBytes(values, w), addr))
		} else {
			fmt.Print(lolmon.FormatValues(values, w, addr))
		}
		return nil
	})
}

// valuesToBytes lays elements out as they sit in target memory.
func valuesToBytes(values []uint32, w lolmon.Width) []byte {
	data := make([]byte, 0, len(values)*w.Bytes())
	for _, v := range values {
		for i := 0; i < w.Bytes(); i++ {
			data = append(data, byte(v>>(8*i)))
		}
	}
	return data
}

func runWrite(cmd *cobra.Command, args []string) error {
	w, addr, err := widthAddr(args)
	if err != nil {
		return err
	}
	values, err := parseValues(args[2:])
	if err != nil {
		return err
	}
	for _, v := range values {
		if v&^w.Mask() != 0 {
			return fmt.Errorf("value 0x%x does not fit in %s bits", v, w)
		}
	}

	v := lolmon.Scalar(values[0])
	if len(values) > 1 {
		v = lolmon.Sequence(values...)
	}

	return withMonitor(cmd, func(ctx context.Context, m *monitor) error {
		return m.Write(ctx, w, addr, v)
	})
}

func runCopy(cmd *cobra.Command, args []string) error {
	w, err := lolmon.ParseWidth(args[0])
	if err != nil {
		return err
	}
	dest, err := parseUint32("destination", args[1])
	if err != nil {
		return err
	}
	src, err := parseUint32("source", args[2])
	if err != nil {
		return err
	}
	count, err := parseCount("count", args[3])
	if err != nil {
		return err
	}

	return withMonitor(cmd, func(ctx context.Context, m *monitor) error {
		return m.Copy(ctx, w, dest, src, count)
	})
}

func runMemset(cmd *cobra.Command, args []string) error {
	addr, err := parseUint32("address", args[0])
	if err != nil {
		return err
	}
	value, err := parseUint32("value", args[1])
	if err != nil {
		return err
	}
	if value > 0xff {
		return fmt.Errorf("memset value 0x%x is not a byte", value)
	}
	size, err := parseCount("size", args[2])
	if err != nil {
		return err
	}

	return withMonitor(cmd, func(ctx context.Context, m *monitor) error {
		return m.Memset(ctx, addr, byte(value), size)
	})
}

func runSetClr(cmd *cobra.Command, args []string) error {
	w, addr, err := widthAddr(args)
	if err != nil {
		return err
	}
	bit, err := parseUint32("bit", args[2])
	if err != nil {
		return err
	}
	set, err := parseBit(args[3])
	if err != nil {
		return err
	}

	return withMonitor(cmd, func(ctx context.Context, m *monitor) error {
		return m.SetClr(ctx, w, addr, uint(bit), set)
	})
}

func runDump(cmd *cobra.Command, args []string) error {
	w, addr, err := widthAddr(args)
	if err != nil {
		return err
	}
	count, err := parseCount("count", args[2])
	if err != nil {
		return err
	}

	return withMonitor(cmd, func(ctx context.Context, m *monitor) error {
		out, err := m.Dump(ctx, w, addr, count)
		if err != nil {
			printPartial(err)
			return err
		}
		fmt.Println(out)
		return nil
	})
}

func runFlash(cmd *cobra.Command, args []string) error {
	mem, err := parseUint32("memory address", args[0])
	if err != nil {
		return err
	}
	flash, err := parseUint32("flash address", args[1])
	if err != nil {
		return err
	}
	size, err := parseUint32("size", args[2])
	if err != nil {
		return err
	}

	return withMonitor(cmd, func(ctx context.Context, m *monitor) error {
		return m.Flash(ctx, mem, flash, size)
	})
}

func runCall(cmd *cobra.Command, args []string) error {
	addr, err := parseUint32("address", args[0])
	if err != nil {
		return err
	}
	callArgs, err := parseValues(args[1:])
	if err != nil {
		return err
	}

	return withMonitor(cmd, func(ctx context.Context, m *monitor) error {
		return m.Call(ctx, addr, callArgs...)
	})
}
