// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// lolmon - host client for the lolmon serial debug monitor
//
// Drives the on-target monitor over serial, WebSocket or TCP: memory and
// register access, bulk transfers, Ethernet bring-up, and offline firmware
// image tools.

package main

import (
	"os"

	"github.com/Thermoquad/lolmon/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
