// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Thermoquad/lolmon/pkg/lolmon"
	"github.com/Thermoquad/lolmon/pkg/transport"
	"golang.org/x/term"
)

const (
	// EnvPassword holds the WebSocket password
	EnvPassword = "LOLMON_PASSWORD"

	tcpDialTimeout = 10 * time.Second
)

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv(EnvPassword); pw != "" {
		return pw, nil
	}

	// Prompt user for password (hide input)
	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr) // newline after password
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr) // newline after password
	return string(passwordBytes), nil
}

// OpenConnection opens a WebSocket, TCP or serial connection based on flags
func OpenConnection() (*transport.Stream, string, error) {
	if opts.URL != "" {
		password := ""
		if opts.Username != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := transport.OpenWebSocket(opts.URL, opts.Username, password, opts.NoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("WebSocket: %s", opts.URL), nil
	}

	if opts.TCP != "" {
		conn, err := transport.DialTCP(opts.TCP, tcpDialTimeout)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("TCP: %s", opts.TCP), nil
	}

	if opts.Port != "" {
		conn, err := transport.OpenSerial(opts.Port, opts.Baud)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("Serial: %s @ %d baud", opts.Port, opts.Baud), nil
	}

	return nil, "", fmt.Errorf("one of --port, --url or --tcp must be specified")
}

// monitor is an open session and the connection under it
type monitor struct {
	*lolmon.Session
	conn *transport.Stream
	info string
}

// openMonitor connects and starts a session on the connection.
func openMonitor() (*monitor, error) {
	conn, info, err := OpenConnection()
	if err != nil {
		return nil, err
	}

	s := lolmon.NewSession(conn, opts.sessionOptions()...)
	activeSession.Store(s)
	logger.Debug().Str("connection", info).Msg("connected")

	return &monitor{Session: s, conn: conn, info: info}, nil
}

// Close ends the session and closes the connection.
func (m *monitor) Close() error {
	activeSession.CompareAndSwap(m.Session, nil)

	stats := m.Stats()
	logger.Debug().
		Uint64("commands", stats.TotalCommands).
		Uint64("errors", stats.Errors()).
		Uint64("echo_mismatches", stats.EchoMismatches).
		Msg("session closed")

	return m.conn.Close()
}
