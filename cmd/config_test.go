// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/lolmon/pkg/lolmon"
	"github.com/Thermoquad/lolmon/pkg/transport"
)

// ============================================================
// Helpers
// ============================================================

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lolmon.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func noneChanged(string) bool { return false }

// ============================================================
// Config File Tests
// ============================================================

func TestApplyFile(t *testing.T) {
	path := writeConfig(t, `
port = "/dev/ttyS1"
baud = 57600
prompt = "mon> "
chunk_size = 16
response_timeout = "3s"
read_timeout = "50ms"
response_limit = "30s"
metrics_addr = " :9102 "

[[block]]
name = "gpio"
base = 0xbf207800
`)

	o := defaultOptions()
	if err := o.applyFile(path, noneChanged); err != nil {
		t.Fatalf("applyFile: %v", err)
	}

	if o.Port != "/dev/ttyS1" {
		t.Errorf("Port = %q", o.Port)
	}
	if o.Baud != 57600 {
		t.Errorf("Baud = %d, want 57600", o.Baud)
	}
	if o.Prompt != "mon> " {
		t.Errorf("Prompt = %q", o.Prompt)
	}
	if o.ChunkSize != 16 {
		t.Errorf("ChunkSize = %d, want 16", o.ChunkSize)
	}
	if o.ResponseTimeout != 3*time.Second {
		t.Errorf("ResponseTimeout = %v, want 3s", o.ResponseTimeout)
	}
	if o.ReadTimeout != 50*time.Millisecond {
		t.Errorf("ReadTimeout = %v, want 50ms", o.ReadTimeout)
	}
	if o.ResponseLimit != 30*time.Second {
		t.Errorf("ResponseLimit = %v, want 30s", o.ResponseLimit)
	}
	if o.MetricsAddr != ":9102" {
		t.Errorf("MetricsAddr = %q, want trimmed", o.MetricsAddr)
	}

	// Keys absent from the file keep their defaults
	if o.EchoAttempts != lolmon.DefaultEchoAttempts {
		t.Errorf("EchoAttempts = %d, want default %d", o.EchoAttempts, lolmon.DefaultEchoAttempts)
	}
	if o.PollInterval != lolmon.DefaultPollInterval {
		t.Errorf("PollInterval = %v, want default", o.PollInterval)
	}

	if len(o.Blocks) != 1 || o.Blocks[0].Name != "gpio" || o.Blocks[0].Base != 0xbf207800 {
		t.Errorf("Blocks = %+v", o.Blocks)
	}
}

func TestApplyFile_FlagsWin(t *testing.T) {
	path := writeConfig(t, `
baud = 57600
port = "/dev/ttyS1"
response_timeout = "3s"
`)

	o := defaultOptions()
	o.Port = "/dev/ttyUSB0"
	changed := func(flag string) bool { return flag == "port" || flag == "timeout" }

	if err := o.applyFile(path, changed); err != nil {
		t.Fatalf("applyFile: %v", err)
	}

	if o.Port != "/dev/ttyUSB0" {
		t.Errorf("Port = %q, flag value should win", o.Port)
	}
	if o.ResponseTimeout != lolmon.DefaultResponseTimeout {
		t.Errorf("ResponseTimeout = %v, flag value should win", o.ResponseTimeout)
	}
	if o.Baud != 57600 {
		t.Errorf("Baud = %d, file value should apply", o.Baud)
	}
}

func TestApplyFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad duration", `response_timeout = "soon"`, "parse response_timeout"},
		{"empty prompt", `prompt = ""`, "parse prompt"},
		{"block without name", "[[block]]\nbase = 0xbf000000", "parse block"},
		{"bad toml", `port = `, "load config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := defaultOptions()
			err := o.applyFile(writeConfig(t, tt.body), noneChanged)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestApplyFile_Missing(t *testing.T) {
	o := defaultOptions()
	err := o.applyFile(filepath.Join(t.TempDir(), "absent.toml"), noneChanged)
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Errorf("error = %v, want load config failure", err)
	}
}

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	if o.Baud != transport.DefaultBaudRate {
		t.Errorf("Baud = %d, want %d", o.Baud, transport.DefaultBaudRate)
	}
	if o.Prompt != lolmon.DefaultPrompt {
		t.Errorf("Prompt = %q", o.Prompt)
	}
	if o.ChunkSize != lolmon.DefaultChunkSize {
		t.Errorf("ChunkSize = %d", o.ChunkSize)
	}
	if got := len(o.sessionOptions()); got != 9 {
		t.Errorf("sessionOptions() returned %d options, want 9", got)
	}
}
