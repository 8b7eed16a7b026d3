// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// consoleLogFile receives session logs while the console owns the terminal
const consoleLogFile = "lolmon-console.log"

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive monitor console",
	Long: `Interactive terminal UI for typing monitor commands.

Every line is entered with echo verification, like all other commands; the
response appears in the scrollback once the monitor prompt returns.

Keys:
  Enter      send the command line
  Esc        cancel the command in flight and resynchronize the monitor
  Up/Down    command history
  PgUp/PgDn  scroll the output
  Ctrl+C     quit

A status bar shows command and error counts for the session.`,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

// redirectLog points the logger at consoleLogFile when debugging and
// silences it otherwise.
func redirectLog() (func(), error) {
	if opts.Debug == 0 {
		logger = logger.Level(zerolog.Disabled)
		return func() {}, nil
	}

	f, err := os.OpenFile(consoleLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	logger = logger.Output(zerolog.ConsoleWriter{Out: f, NoColor: true, TimeFormat: time.TimeOnly})
	return func() { f.Close() }, nil
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(cmd *cobra.Command, args []string) error {
	console := logger
	closeLog, err := redirectLog()
	if err != nil {
		return err
	}
	defer closeLog()

	m, err := openMonitor()
	if err != nil {
		return err
	}
	defer m.Close()

	// Probe first so a dead link shows up before the screen is taken over
	if ok, err := m.ConnectionTest(cmd.Context()); err != nil {
		return err
	} else if !ok {
		console.Warn().Str("connection", m.info).Msg("no prompt from monitor; commands will likely time out")
	}

	model := initialConsoleModel(cmd.Context(), m.Session, m.info)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}
