// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package lolmon is a host-side client for the lolmon firmware debug monitor.
//
// The monitor is a line-oriented command interpreter reached over a byte
// serial link. Every typed character is echoed back, a trailing newline
// executes the line, and output ends with the prompt "> ". This package drives
// that channel (chunked, echo-verified transmission, prompt-framed response
// collection, resynchronization) and layers a width-typed memory access API
// on top of it.
package lolmon

import "time"

// Size units
const (
	KiB = 1 << 10
	MiB = 1 << 20
	GiB = 1 << 30
)

// Protocol bytes
const (
	// CancelByte clears the monitor's current input line (Ctrl-U).
	CancelByte = 0x15
	Newline    = '\n'
)

// DefaultPrompt is emitted by the monitor when it is ready for input.
const DefaultPrompt = "> "

// lineAck is the monitor's echo of a submitted newline.
var lineAck = []byte("\r\n")

// Session defaults
const (
	DefaultChunkSize       = 0x38
	DefaultEchoAttempts    = 3
	DefaultReadTimeout     = 200 * time.Millisecond
	DefaultResponseTimeout = time.Second
	DefaultPollInterval    = 50 * time.Millisecond

	// ResponseLimitFactor scales ResponseTimeout into the default overall
	// response limit.
	ResponseLimitFactor = 10

	// probeSettle is how long ConnectionTest waits for the prompt.
	probeSettle = 200 * time.Millisecond
	// clearSettle follows a CancelByte before draining.
	clearSettle = 10 * time.Millisecond
	// cancelSettle lets in-flight bytes arrive before a resync flush.
	cancelSettle = 100 * time.Millisecond
)

// Write batching limits imposed by the monitor's line parser
const (
	MaxWriteElements = 14
	MaxLineLength    = 128
)

// BIT returns a value with bit x set.
func BIT(x uint) uint32 {
	return 1 << x
}

// MASK returns a value with the low x bits set.
func MASK(x uint) uint32 {
	return BIT(x) - 1
}
