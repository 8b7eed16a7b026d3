// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/Thermoquad/lolmon/pkg/firmware"
	"github.com/Thermoquad/lolmon/pkg/lolmon"
	"github.com/Thermoquad/lolmon/pkg/snapshot"
	"github.com/spf13/cobra"
)

const defaultBlockSize = 0x400

var (
	loadBlockSize int
	saveBlockSize int
)

var loadCmd = &cobra.Command{
	Use:   "load <addr> <file>",
	Short: "Write a file into target memory",
	Long: `Write a file into target memory at addr.

Files ending in .lsnap are snapshots saved by "lolmon save"; their data is
written at addr, which may differ from the address they were captured at.
Any other file is written as raw bytes.`,
	Args: cobra.ExactArgs(2),
	RunE: runLoad,
}

var saveCmd = &cobra.Command{
	Use:   "save <addr> <size> <file>",
	Short: "Read target memory into a file",
	Long: `Read size bytes starting at addr into a file. A .lsnap extension stores a
snapshot that records the address and capture time; anything else is raw.`,
	Args: cobra.ExactArgs(3),
	RunE: runSave,
}

func init() {
	loadCmd.Flags().IntVar(&loadBlockSize, "block-size", defaultBlockSize, "Bytes per progress step")
	saveCmd.Flags().IntVar(&saveBlockSize, "block-size", defaultBlockSize, "Bytes per read command")

	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(saveCmd)
}

// blocks splits [addr, addr+size) into steps of at most blockSize bytes.
func blocks(addr uint32, size, blockSize int, fn func(addr uint32, off, n int) error) error {
	if blockSize < 1 {
		return fmt.Errorf("invalid block size %d", blockSize)
	}
	for off := 0; off < size; off += blockSize {
		n := min(blockSize, size-off)
		if err := fn(addr+uint32(off), off, n); err != nil {
			return err
		}
	}
	return nil
}

func progress(verb string, done, total int) {
	fmt.Fprintf(os.Stderr, "\r%s %s / %s", verb, firmware.HumanSize(done), firmware.HumanSize(total))
	if done == total {
		fmt.Fprintln(os.Stderr)
	}
}

// aligned reports whether a block can move as 32-bit words.
func aligned(addr uint32, n int) bool {
	return addr%4 == 0 && n%4 == 0
}

func runLoad(cmd *cobra.Command, args []string) error {
	addr, err := parseUint32("address", args[0])
	if err != nil {
		return err
	}
	img, err := snapshot.LoadFile(args[1], addr)
	if err != nil {
		return err
	}
	if img.Base != addr {
		logger.Warn().
			Str("captured", fmt.Sprintf("%08x", img.Base)).
			Str("target", fmt.Sprintf("%08x", addr)).
			Msg("loading snapshot at a different address")
	}
	if len(img.Data) == 0 {
		return fmt.Errorf("%s is empty", args[1])
	}

	return withMonitor(cmd, func(ctx context.Context, m *monitor) error {
		total := len(img.Data)
		err := blocks(addr, total, loadBlockSize, func(a uint32, off, n int) error {
			if err := writeBlock(ctx, m.Session, a, img.Data[off:off+n]); err != nil {
				return err
			}
			progress("loaded", off+n, total)
			return nil
		})
		if err != nil {
			return err
		}

		logger.Info().Str("file", args[1]).Str("addr", fmt.Sprintf("%08x", addr)).Int("bytes", total).Msg("load complete")
		return nil
	})
}

func writeBlock(ctx context.Context, s *lolmon.Session, addr uint32, data []byte) error {
	if !aligned(addr, len(data)) {
		return s.WriteBytes(ctx, addr, data)
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = lolmon.FromLE32(data[4*i:])
	}
	return s.Write(ctx, lolmon.Width32, addr, lolmon.Sequence(words...))
}

func readBlock(ctx context.Context, s *lolmon.Session, addr uint32, n int) ([]byte, error) {
	if !aligned(addr, n) {
		return s.ReadBytes(ctx, addr, n)
	}
	words, err := s.Read(ctx, lolmon.Width32, addr, n/4)
	if err != nil {
		return nil, err
	}
	return valuesToBytes(words, lolmon.Width32), nil
}

func runSave(cmd *cobra.Command, args []string) error {
	addr, err := parseUint32("address", args[0])
	if err != nil {
		return err
	}
	size, err := parseCount("size", args[1])
	if err != nil {
		return err
	}
	path := args[2]

	return withMonitor(cmd, func(ctx context.Context, m *monitor) error {
		data := make([]byte, 0, size)
		err := blocks(addr, size, saveBlockSize, func(a uint32, off, n int) error {
			chunk, err := readBlock(ctx, m.Session, a, n)
			if err != nil {
				return err
			}
			data = append(data, chunk...)
			progress("saved", off+n, size)
			return nil
		})
		if err != nil {
			printPartial(err)
			return err
		}

		if err := snapshot.New(addr, data, m.info).SaveFile(path); err != nil {
			return err
		}
		logger.Info().Str("file", path).Str("addr", fmt.Sprintf("%08x", addr)).Int("bytes", size).Msg("save complete")
		return nil
	})
}
