// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lolmon

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks command outcomes and link health for a session
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalCommands   uint64
	Succeeded       uint64
	EchoMismatches  uint64
	FailedCommands  uint64
	LineAckFailures uint64
	Timeouts        uint64
	ParseErrors     uint64
	Cancelled       uint64
	OtherErrors     uint64
	BytesSent       uint64
	BytesReceived   uint64

	// Rates (calculated)
	CommandRate float64 // commands/sec
	ErrorRate   float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update counts one finished command by its outcome
func (s *Statistics) Update(err error) {
	s.TotalCommands++
	s.LastUpdateTime = time.Now()

	switch {
	case err == nil:
		s.Succeeded++
	case errors.Is(err, ErrCancelled):
		s.Cancelled++
	case errors.Is(err, ErrCommandFailed):
		s.FailedCommands++
	case errors.Is(err, ErrLineAck):
		s.LineAckFailures++
	case errors.Is(err, ErrResponseTimeout):
		s.Timeouts++
	case errors.Is(err, ErrParse):
		s.ParseErrors++
	default:
		s.OtherErrors++
	}
}

// Errors returns the number of commands that did not succeed
func (s *Statistics) Errors() uint64 {
	return s.FailedCommands + s.LineAckFailures + s.Timeouts + s.ParseErrors + s.Cancelled + s.OtherErrors
}

// CalculateRates calculates command and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.CommandRate = float64(s.TotalCommands) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var okPercent float64
	if s.TotalCommands > 0 {
		okPercent = float64(s.Succeeded) * 100.0 / float64(s.TotalCommands)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Commands:        %8d\n", s.TotalCommands)
	result += fmt.Sprintf("Succeeded:       %8d (%.1f%%)\n", s.Succeeded, okPercent)

	if s.EchoMismatches > 0 {
		result += fmt.Sprintf("Echo Mismatches: %8d\n", s.EchoMismatches)
	}
	if s.FailedCommands > 0 {
		result += fmt.Sprintf("Failed:          %8d\n", s.FailedCommands)
	}
	if s.LineAckFailures > 0 {
		result += fmt.Sprintf("Line Ack Lost:   %8d\n", s.LineAckFailures)
	}
	if s.Timeouts > 0 {
		result += fmt.Sprintf("Timeouts:        %8d\n", s.Timeouts)
	}
	if s.ParseErrors > 0 {
		result += fmt.Sprintf("Parse Errors:    %8d\n", s.ParseErrors)
	}
	if s.Cancelled > 0 {
		result += fmt.Sprintf("Cancelled:       %8d\n", s.Cancelled)
	}
	if s.OtherErrors > 0 {
		result += fmt.Sprintf("Other Errors:    %8d\n", s.OtherErrors)
	}

	result += fmt.Sprintf("Bytes Out/In:    %8d / %d\n", s.BytesSent, s.BytesReceived)
	result += fmt.Sprintf("Command Rate:    %8.1f cmds/sec\n", s.CommandRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
