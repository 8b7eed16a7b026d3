// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	captureOutput   string
	captureDuration time.Duration
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Record raw output from the target line",
	Long: `Record everything the target sends, without talking to the monitor.

Useful for catching boot logs, or a hexdump printed by the vendor firmware
for later use with "lolmon firmware decode-hexdump". Runs until Ctrl+C, the
--duration elapses, or the connection closes.`,
	Args: cobra.NoArgs,
	RunE: runCapture,
}

func init() {
	captureCmd.Flags().StringVarP(&captureOutput, "output", "o", "", "Output file (default stdout)")
	captureCmd.Flags().DurationVar(&captureDuration, "duration", 0, "Stop after this long (0 = until interrupted)")
	rootCmd.AddCommand(captureCmd)
}

func runCapture(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	var out io.Writer = os.Stdout
	if captureOutput != "" {
		f, err := os.Create(captureOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	ctx := cmd.Context()
	var deadline <-chan time.Time
	if captureDuration > 0 {
		timer := time.NewTimer(captureDuration)
		defer timer.Stop()
		deadline = timer.C
	}

	logger.Info().Str("connection", connInfo).Msg("capturing, press Ctrl+C to stop")

	total := 0
	defer func() {
		logger.Info().Int("bytes", total).Msg("capture finished")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			return nil
		default:
		}

		data, err := conn.ReadN(4096, opts.PollInterval)
		if len(data) > 0 {
			if _, werr := out.Write(data); werr != nil {
				return fmt.Errorf("write capture: %w", werr)
			}
			total += len(data)
		}
		if err != nil {
			// The link going away ends the capture
			logger.Info().Err(err).Msg("connection closed")
			return nil
		}
	}
}
