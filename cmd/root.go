// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const version = "0.3.0"

var (
	// Flag and config file values
	opts = defaultOptions()

	// Config file path
	configPath string

	// logger is configured once flags and config are known
	logger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "lolmon",
	Short: "Host client for the lolmon serial debug monitor",
	Long: `lolmon - A CLI tool for driving the lolmon debug monitor on a target's UART.

Provides commands for reading and writing target memory and registers,
moving files in and out of RAM, executing code, bringing up on-chip
peripherals and an interactive console. Every command is entered with
echo verification, so a noisy line is detected and the command re-sent.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]
  TCP:       --tcp host:port (ser2net and similar bridges)

For WebSocket authentication, the password is read from the LOLMON_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.

Settings may also come from a TOML file (--config or LOLMON_CONFIG). Flags
given on the command line take precedence over the file.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentPreRunE = setup
	rootCmd.PersistentPostRun = teardown

	flags := rootCmd.PersistentFlags()

	// Serial connection flags
	flags.StringVarP(&opts.Port, "port", "p", opts.Port, "Serial port device")
	flags.IntVarP(&opts.Baud, "baud", "b", opts.Baud, "Baud rate (serial only)")

	// WebSocket connection flags
	flags.StringVarP(&opts.URL, "url", "u", opts.URL, "WebSocket URL (ws:// or wss://)")
	flags.StringVar(&opts.Username, "username", opts.Username, "Username for HTTP Basic auth")
	flags.BoolVar(&opts.NoSSLVerify, "no-ssl-verify", opts.NoSSLVerify, "Skip TLS certificate verification (wss:// only)")

	// TCP bridge
	flags.StringVar(&opts.TCP, "tcp", opts.TCP, "TCP serial bridge address (host:port)")

	// Session tuning
	flags.IntVar(&opts.ChunkSize, "chunk-size", opts.ChunkSize, "Bytes written before waiting for the echo")
	flags.IntVar(&opts.EchoAttempts, "echo-attempts", opts.EchoAttempts, "Attempts per command after echo mismatches")
	flags.DurationVar(&opts.ResponseTimeout, "timeout", opts.ResponseTimeout, "Idle time allowed while waiting for the prompt")

	flags.StringVarP(&configPath, "config", "c", os.Getenv(EnvConfig), "TOML config file")
	flags.CountVarP(&opts.Debug, "debug", "d", "Debug output (repeat for raw traffic)")
	flags.StringVar(&opts.MetricsAddr, "metrics-addr", opts.MetricsAddr, "Serve /metrics, /stats and /health on this address")
}

// setup loads the config file, configures logging and starts the status
// server before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		changed := func(name string) bool {
			f := cmd.Flags().Lookup(name)
			return f != nil && f.Changed
		}
		if err := opts.applyFile(configPath, changed); err != nil {
			return err
		}
	}

	logger = newLogger(opts.Debug)

	if opts.MetricsAddr != "" {
		startStatusServer(opts.MetricsAddr)
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) {
	stopStatusServer()
}

// Execute runs the root command. An interrupt cancels the command's
// context, which makes an in-flight monitor command resynchronize the line
// before returning.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}
