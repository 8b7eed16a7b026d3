// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"testing"
)

func TestRootCommand(t *testing.T) {
	if rootCmd.Version != version {
		t.Errorf("Version = %q, want %q", rootCmd.Version, version)
	}
	if rootCmd.PersistentPreRunE == nil || rootCmd.PersistentPostRun == nil {
		t.Error("setup and teardown hooks not installed")
	}

	want := []string{
		"probe", "send", "ports", "capture", "console",
		"read", "write", "copy", "memset", "setclr", "dump", "flash", "call",
		"riu", "block", "emac", "ephy", "load", "save", "firmware",
	}
	for _, name := range want {
		c, _, err := rootCmd.Find([]string{name})
		if err != nil || c == rootCmd {
			t.Errorf("command %q not registered", name)
		}
	}
}
