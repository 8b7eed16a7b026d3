// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Thermoquad/lolmon/pkg/devices"
	"github.com/Thermoquad/lolmon/pkg/lolmon"
	"github.com/Thermoquad/lolmon/pkg/transport"
)

// EnvConfig names the default config file
const EnvConfig = "LOLMON_CONFIG"

// options are the settings shared by every command
type options struct {
	// Connection
	Port        string
	Baud        int
	URL         string
	Username    string
	NoSSLVerify bool
	TCP         string

	// Session
	Prompt          string
	ChunkSize       int
	EchoAttempts    int
	ReadTimeout     time.Duration
	ResponseTimeout time.Duration
	ResponseLimit   time.Duration
	PollInterval    time.Duration

	Debug       int
	MetricsAddr string

	// Extra register blocks on top of the defaults
	Blocks []devices.BlockSpec
}

func defaultOptions() options {
	return options{
		Baud:            transport.DefaultBaudRate,
		Prompt:          lolmon.DefaultPrompt,
		ChunkSize:       lolmon.DefaultChunkSize,
		EchoAttempts:    lolmon.DefaultEchoAttempts,
		ReadTimeout:     lolmon.DefaultReadTimeout,
		ResponseTimeout: lolmon.DefaultResponseTimeout,
		PollInterval:    lolmon.DefaultPollInterval,
	}
}

type fileConfig struct {
	Port            string              `toml:"port"`
	Baud            int                 `toml:"baud"`
	URL             string              `toml:"url"`
	Username        string              `toml:"username"`
	NoSSLVerify     bool                `toml:"no_ssl_verify"`
	TCP             string              `toml:"tcp"`
	Prompt          string              `toml:"prompt"`
	ChunkSize       int                 `toml:"chunk_size"`
	EchoAttempts    int                 `toml:"echo_attempts"`
	ReadTimeout     string              `toml:"read_timeout"`
	ResponseTimeout string              `toml:"response_timeout"`
	ResponseLimit   string              `toml:"response_limit"`
	PollInterval    string              `toml:"poll_interval"`
	Debug           int                 `toml:"debug"`
	MetricsAddr     string              `toml:"metrics_addr"`
	Blocks          []devices.BlockSpec `toml:"block"`
}

// applyFile overlays the TOML file at path. Keys whose flag was given on the
// command line (changed reports it by flag name) are left alone.
func (o *options) applyFile(path string, changed func(flag string) bool) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	use := func(key, flag string) bool {
		if !meta.IsDefined(key) {
			return false
		}
		return flag == "" || !changed(flag)
	}

	if use("port", "port") {
		o.Port = strings.TrimSpace(raw.Port)
	}
	if use("baud", "baud") {
		o.Baud = raw.Baud
	}
	if use("url", "url") {
		o.URL = strings.TrimSpace(raw.URL)
	}
	if use("username", "username") {
		o.Username = strings.TrimSpace(raw.Username)
	}
	if use("no_ssl_verify", "no-ssl-verify") {
		o.NoSSLVerify = raw.NoSSLVerify
	}
	if use("tcp", "tcp") {
		o.TCP = strings.TrimSpace(raw.TCP)
	}

	if use("prompt", "") {
		if raw.Prompt == "" {
			return fmt.Errorf("parse prompt: must not be empty")
		}
		o.Prompt = raw.Prompt
	}
	if use("chunk_size", "chunk-size") {
		o.ChunkSize = raw.ChunkSize
	}
	if use("echo_attempts", "echo-attempts") {
		o.EchoAttempts = raw.EchoAttempts
	}

	durations := []struct {
		key  string
		flag string
		raw  string
		dst  *time.Duration
	}{
		{"read_timeout", "", raw.ReadTimeout, &o.ReadTimeout},
		{"response_timeout", "timeout", raw.ResponseTimeout, &o.ResponseTimeout},
		{"response_limit", "", raw.ResponseLimit, &o.ResponseLimit},
		{"poll_interval", "", raw.PollInterval, &o.PollInterval},
	}
	for _, d := range durations {
		if !use(d.key, d.flag) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if use("debug", "debug") {
		o.Debug = raw.Debug
	}
	if use("metrics_addr", "metrics-addr") {
		o.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}

	if meta.IsDefined("block") {
		for _, b := range raw.Blocks {
			if b.Name == "" {
				return fmt.Errorf("parse block: missing name for base 0x%08x", b.Base)
			}
		}
		o.Blocks = raw.Blocks
	}

	return nil
}

// sessionOptions converts the settings into session options.
func (o *options) sessionOptions() []lolmon.Option {
	return []lolmon.Option{
		lolmon.WithPrompt(o.Prompt),
		lolmon.WithChunkSize(o.ChunkSize),
		lolmon.WithEchoAttempts(o.EchoAttempts),
		lolmon.WithReadTimeout(o.ReadTimeout),
		lolmon.WithResponseTimeout(o.ResponseTimeout),
		lolmon.WithResponseLimit(o.ResponseLimit),
		lolmon.WithPollInterval(o.PollInterval),
		lolmon.WithDebug(o.Debug),
		lolmon.WithLogger(logger),
	}
}
