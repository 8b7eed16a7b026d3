// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Thermoquad/lolmon/pkg/lolmon"
	"github.com/Thermoquad/lolmon/pkg/transport"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that the monitor answers on the connection",
	Long: `Send a bare newline and look for the monitor's line acknowledgement and
prompt.

Exit codes:
  0 - Monitor responding
  1 - No prompt (target busy, crashed or running something else)
  2 - Connection error`,
	Args: cobra.NoArgs,
	RunE: runProbe,
}

var sendCmd = &cobra.Command{
	Use:   "send <command...>",
	Short: "Send a raw command line and print the response",
	Long: `Enter a raw monitor command with echo verification and print what the
monitor answers before its next prompt.

Arguments are joined with single spaces. An empty command is allowed and
simply waits for a fresh prompt.`,
	Example: `  lolmon -p /dev/ttyUSB0 send rw 80000000 4
  lolmon -p /dev/ttyUSB0 send help`,
	RunE: runSend,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports present on this host",
	Args:  cobra.NoArgs,
	RunE:  runPorts,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(portsCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	m, err := openMonitor()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Connection: %s\n", m.info)

	ok, err := m.ConnectionTest(cmd.Context())
	m.Close()

	if err != nil {
		fmt.Printf("PROBE FAILED: %v\n", err)
		os.Exit(2)
	}
	if !ok {
		fmt.Printf("No prompt from monitor\n")
		os.Exit(1)
	}

	fmt.Printf("Monitor responding\n")
	return nil
}

func runSend(cmd *cobra.Command, args []string) error {
	return withMonitor(cmd, func(ctx context.Context, m *monitor) error {
		resp, err := m.Send(ctx, strings.Join(args, " "))
		if err != nil {
			printPartial(err)
			return err
		}
		fmt.Print(string(resp))
		return nil
	})
}

// printPartial shows whatever output arrived before a command failed.
func printPartial(err error) {
	var ce *lolmon.CommandError
	if errors.As(err, &ce) && len(ce.Partial) > 0 {
		fmt.Fprintf(os.Stderr, "Partial response:\n%s\n", ce.Partial)
	}
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := transport.ListSerialPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Printf("No serial ports found\n")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}
