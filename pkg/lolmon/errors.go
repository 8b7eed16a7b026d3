// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lolmon

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCommand  = errors.New("lolmon: command contains a newline")
	ErrEchoMismatch    = errors.New("lolmon: echo mismatch")
	ErrCommandFailed   = errors.New("lolmon: command failed")
	ErrLineAck         = errors.New("lolmon: line not acknowledged")
	ErrResponseTimeout = errors.New("lolmon: no prompt before timeout")
	ErrParse           = errors.New("lolmon: unparseable response")
	ErrCancelled       = errors.New("lolmon: cancelled by caller")
	ErrRIUOffset       = errors.New("lolmon: RIU offset out of range")
)

// EchoError reports a chunk whose echo did not match what was written.
type EchoError struct {
	Chunk []byte
	Echo  []byte
}

func (e *EchoError) Error() string {
	return fmt.Sprintf("echo mismatch: sent %q, got %q", e.Chunk, e.Echo)
}

// Is lets errors.Is match ErrEchoMismatch.
func (e *EchoError) Is(target error) bool {
	return target == ErrEchoMismatch
}

// CommandError carries the command text and whatever response bytes arrived
// before the failure.
type CommandError struct {
	Command string
	Partial []byte
	Err     error
}

func (e *CommandError) Error() string {
	if len(e.Partial) > 0 {
		return fmt.Sprintf("command %q: %v (partial response %q)", e.Command, e.Err, e.Partial)
	}
	return fmt.Sprintf("command %q: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// IsCommandError returns true if err wraps a CommandError.
func IsCommandError(err error) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr)
}
