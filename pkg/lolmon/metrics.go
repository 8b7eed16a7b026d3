// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lolmon

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lolmon",
			Subsystem: "session",
			Name:      "commands_total",
			Help:      "Monitor commands by operation and outcome.",
		},
		[]string{"op", "result"},
	)
	echoRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lolmon",
			Subsystem: "session",
			Name:      "echo_retries_total",
			Help:      "Commands re-entered after an echo mismatch.",
		},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lolmon",
			Subsystem: "session",
			Name:      "command_duration_seconds",
			Help:      "Time from first byte written to prompt received.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"op"},
	)
	bytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lolmon",
			Subsystem: "session",
			Name:      "bytes_total",
			Help:      "Bytes moved over the monitor link.",
		},
		[]string{"direction"},
	)
)

// RegisterMetrics registers the session collectors with the default
// Prometheus registry. Safe to call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(commandsTotal, echoRetries, commandDuration, bytesTotal)
	})
}

func recordCommand(command string, err error, duration time.Duration) {
	op := commandOp(command)
	commandsTotal.WithLabelValues(op, resultLabel(err)).Inc()
	commandDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func recordEchoRetry() {
	echoRetries.Inc()
}

func recordBytes(direction string, n int) {
	if n > 0 {
		bytesTotal.WithLabelValues(direction).Add(float64(n))
	}
}

// knownOps are the commands issued by the memory layer. Anything else, such
// as raw console input, is labelled "other".
var knownOps = map[string]bool{
	"wb": true, "wh": true, "ww": true,
	"rb": true, "rh": true, "rw": true,
	"cb": true, "ch": true, "cw": true,
	"fl": true, "call": true,
}

// commandOp labels a command by its first word.
func commandOp(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "nop"
	}
	if !knownOps[fields[0]] {
		return "other"
	}
	return fields[0]
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidCommand):
		return "invalid"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrCommandFailed):
		return "echo"
	case errors.Is(err, ErrLineAck):
		return "line_ack"
	case errors.Is(err, ErrResponseTimeout):
		return "timeout"
	case errors.Is(err, ErrParse):
		return "parse"
	default:
		return "error"
	}
}
