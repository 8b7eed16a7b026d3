// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel   = "LOLMON_LOG_LEVEL"
	EnvLogNoColor = "LOLMON_LOG_NOCOLOR"
)

// newLogger builds the console logger on stderr. A --debug count wins over
// LOLMON_LOG_LEVEL; without either, info and above are shown.
func newLogger(debug int) zerolog.Logger {
	level := zerolog.InfoLevel
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		level = lvl
	}
	switch {
	case debug >= 2:
		level = zerolog.TraceLevel
	case debug == 1:
		level = zerolog.DebugLevel
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.TimeOnly,
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		output.NoColor = v
	}

	l := zerolog.New(output).Level(level).With().Timestamp().Logger()
	log.Logger = l
	return l
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
