// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lolmon

import (
	"time"

	"github.com/rs/zerolog"
)

// Config holds the session configuration.
type Config struct {
	// Prompt marks the end of every response
	Prompt []byte

	// ChunkSize is the largest burst written before waiting for its echo.
	// Default is 56 bytes.
	ChunkSize int

	// EchoAttempts bounds how often a command is re-entered after an echo
	// mismatch
	EchoAttempts int

	// ReadTimeout bounds each echo and line acknowledgement read
	ReadTimeout time.Duration

	// ResponseTimeout is the idle budget while waiting for the prompt
	ResponseTimeout time.Duration

	// ResponseLimit caps the whole wait for the prompt, including time spent
	// receiving. Zero means ResponseLimitFactor times ResponseTimeout.
	ResponseLimit time.Duration

	// PollInterval is the sleep between empty polls
	PollInterval time.Duration

	// Debug is the verbosity: 1 logs commands, 2 also logs raw bytes
	Debug int

	// Logger receives session diagnostics
	Logger zerolog.Logger
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Prompt:          []byte(DefaultPrompt),
		ChunkSize:       DefaultChunkSize,
		EchoAttempts:    DefaultEchoAttempts,
		ReadTimeout:     DefaultReadTimeout,
		ResponseTimeout: DefaultResponseTimeout,
		PollInterval:    DefaultPollInterval,
		Logger:          zerolog.Nop(),
	}
}

// Option is a functional option for configuring the Session.
type Option func(*Config)

// WithPrompt overrides the prompt sentinel.
//
// Example:
//
//	s := lolmon.NewSession(t, lolmon.WithPrompt("# "))
func WithPrompt(prompt string) Option {
	return func(c *Config) {
		if prompt != "" {
			c.Prompt = []byte(prompt)
		}
	}
}

// WithChunkSize sets the transmit chunk size. Values below 1 are ignored.
func WithChunkSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.ChunkSize = size
		}
	}
}

// WithEchoAttempts sets how many times a command is entered before giving up.
func WithEchoAttempts(attempts int) Option {
	return func(c *Config) {
		if attempts > 0 {
			c.EchoAttempts = attempts
		}
	}
}

// WithReadTimeout sets the per-read timeout for echoes.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.ReadTimeout = timeout
		}
	}
}

// WithResponseTimeout sets the idle budget for prompt collection.
//
// Example:
//
//	s := lolmon.NewSession(t, lolmon.WithResponseTimeout(5*time.Second))
func WithResponseTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.ResponseTimeout = timeout
		}
	}
}

// WithResponseLimit caps the total time spent collecting one response.
func WithResponseLimit(limit time.Duration) Option {
	return func(c *Config) {
		if limit > 0 {
			c.ResponseLimit = limit
		}
	}
}

// responseLimit resolves the overall response deadline.
func (c Config) responseLimit() time.Duration {
	if c.ResponseLimit > 0 {
		return c.ResponseLimit
	}
	return ResponseLimitFactor * c.ResponseTimeout
}

// WithPollInterval sets the sleep between empty polls.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Config) {
		if interval > 0 {
			c.PollInterval = interval
		}
	}
}

// WithDebug sets the debug verbosity.
func WithDebug(level int) Option {
	return func(c *Config) {
		c.Debug = level
	}
}

// WithLogger sets the logger used for session diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
