// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lolmon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Session drives one monitor connection. All public methods are serialized,
// so at most one command is in flight at a time.
type Session struct {
	t   Transport
	cfg Config
	log zerolog.Logger

	mu sync.Mutex

	statsMu sync.Mutex
	stats   *Statistics
}

// NewSession creates a session on top of an open transport.
func NewSession(t Transport, opts ...Option) *Session {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Session{
		t:     t,
		cfg:   cfg,
		log:   cfg.Logger.With().Str("component", "lolmon").Logger(),
		stats: NewStatistics(),
	}
}

// Config returns a copy of the session configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// Stats returns a snapshot of the session statistics.
func (s *Session) Stats() Statistics {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return *s.stats
}

// ResetStats clears the session statistics.
func (s *Session) ResetStats() {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.stats.Reset()
}

// Send enters command at the monitor and returns its output, without the
// line acknowledgement and the trailing prompt.
//
// On failure the returned error is a *CommandError carrying any response
// bytes that arrived. If ctx is cancelled mid-command the session is
// resynchronized before Send returns an error matching both ErrCancelled and
// ctx.Err().
func (s *Session) Send(ctx context.Context, command string) ([]byte, error) {
	if strings.ContainsRune(command, Newline) {
		return nil, &CommandError{Command: command, Err: ErrInvalidCommand}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	resp, err := s.run(ctx, command)
	s.record(command, err, time.Since(start))
	return resp, err
}

// SendNoReturn enters command without waiting for a prompt. It is meant for
// commands such as call that may never hand control back to the monitor.
func (s *Session) SendNoReturn(ctx context.Context, command string) error {
	if strings.ContainsRune(command, Newline) {
		return &CommandError{Command: command, Err: ErrInvalidCommand}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	err := s.runNoReturn(ctx, command)
	s.record(command, err, time.Since(start))
	return err
}

// Flush discards everything the monitor has sent and then runs an empty
// command, leaving the monitor at a fresh prompt.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush(ctx)
}

// ConnectionTest reports whether a monitor prompt answers a bare newline.
func (s *Session) ConnectionTest(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write([]byte{Newline}); err != nil {
		return false, err
	}
	if err := sleep(ctx, probeSettle); err != nil {
		return false, err
	}
	answer, err := s.readAvailable("probe")
	if err != nil {
		return false, err
	}

	want := append(append([]byte{}, lineAck...), s.cfg.Prompt...)
	return bytes.Contains(answer, want), nil
}

func (s *Session) run(ctx context.Context, command string) ([]byte, error) {
	chunkSize := s.cfg.ChunkSize
	var lastEcho error

	for attempt := 1; attempt <= s.cfg.EchoAttempts; attempt++ {
		if s.cfg.Debug >= 1 {
			s.log.Debug().Int("attempt", attempt).Msgf(":> %s", command)
		}

		err := s.enter(ctx, []byte(command), chunkSize)
		if errors.Is(err, ErrEchoMismatch) {
			lastEcho = err
			s.noteEchoMismatch()
			s.log.Warn().Err(err).Int("attempt", attempt).Str("command", command).Msg("echo error")
			if err := s.clearLine(); err != nil {
				return nil, &CommandError{Command: command, Err: err}
			}
			chunkSize = 1
			continue
		}
		if err != nil {
			return nil, s.fail(ctx, command, nil, err)
		}

		if err := s.write([]byte{Newline}); err != nil {
			return nil, &CommandError{Command: command, Err: err}
		}
		ack, err := s.readN("line", len(lineAck))
		if err != nil {
			return nil, &CommandError{Command: command, Err: err}
		}
		if !bytes.Equal(ack, lineAck) {
			s.log.Warn().Str("command", command).Str("got", strconv.Quote(string(ack))).Msg("line not acknowledged")
			return nil, &CommandError{Command: command, Partial: ack, Err: ErrLineAck}
		}

		return s.collect(ctx, command)
	}

	return nil, &CommandError{
		Command: command,
		Err:     fmt.Errorf("%w after %d attempts: %w", ErrCommandFailed, s.cfg.EchoAttempts, lastEcho),
	}
}

func (s *Session) runNoReturn(ctx context.Context, command string) error {
	if s.cfg.Debug >= 1 {
		s.log.Debug().Msgf(":> %s", command)
	}

	if err := s.enter(ctx, []byte(command), s.cfg.ChunkSize); err != nil {
		if errors.Is(err, ErrEchoMismatch) {
			s.noteEchoMismatch()
			return &CommandError{Command: command, Err: fmt.Errorf("%w: %w", ErrCommandFailed, err)}
		}
		return s.fail(ctx, command, nil, err)
	}
	if err := s.write([]byte{Newline}); err != nil {
		return &CommandError{Command: command, Err: err}
	}

	// The target may already be running something else; whatever comes back
	// is not checked.
	_, err := s.readN("line", len(lineAck))
	if err != nil {
		return &CommandError{Command: command, Err: err}
	}
	return nil
}

// enter writes command in chunks and verifies the echo of each one.
func (s *Session) enter(ctx context.Context, command []byte, chunkSize int) error {
	for pos := 0; pos < len(command); {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(pos+chunkSize, len(command))
		chunk := command[pos:end]

		if err := s.write(chunk); err != nil {
			return err
		}
		echo, err := s.readN("echo", len(chunk))
		if err != nil {
			return err
		}
		if s.cfg.Debug >= 2 {
			s.log.Trace().
				Str("chunk", strconv.Quote(string(chunk))).
				Str("echo", strconv.Quote(string(echo))).
				Msg("input")
		}
		if !bytes.Equal(echo, chunk) {
			// Pull in whatever else arrived so the log shows the whole mess.
			rest, _ := s.readAvailable("echo")
			return &EchoError{Chunk: chunk, Echo: append(echo, rest...)}
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		pos = end
	}
	return nil
}

// collect reads until the prompt appears. Only idle polls count against the
// response budget; the response limit bounds the whole wait.
func (s *Session) collect(ctx context.Context, command string) ([]byte, error) {
	var answer []byte
	budget := s.cfg.ResponseTimeout
	deadline := time.Now().Add(s.cfg.responseLimit())

	for {
		data, err := s.readAvailable("until prompt")
		if err != nil {
			return nil, &CommandError{Command: command, Partial: answer, Err: err}
		}

		if len(data) > 0 {
			answer = append(answer, data...)
			if i := bytes.Index(answer, s.cfg.Prompt); i >= 0 {
				return answer[:i], nil
			}
			if err := ctx.Err(); err != nil {
				return nil, s.fail(ctx, command, answer, err)
			}
			// A line that never goes quiet still has to produce the prompt in time
			if time.Now().After(deadline) {
				return nil, s.timeout(command, answer)
			}
			continue
		}

		if budget <= 0 || time.Now().After(deadline) {
			return nil, s.timeout(command, answer)
		}
		if err := sleep(ctx, s.cfg.PollInterval); err != nil {
			return nil, s.fail(ctx, command, answer, err)
		}
		budget -= s.cfg.PollInterval
	}
}

func (s *Session) timeout(command string, answer []byte) error {
	s.log.Warn().
		Str("command", command).
		Int("received", len(answer)).
		Str("partial", strconv.Quote(string(tail(answer, 64)))).
		Msg("command timed out")
	return &CommandError{Command: command, Partial: answer, Err: ErrResponseTimeout}
}

// tail returns at most the last n bytes of b.
func tail(b []byte, n int) []byte {
	if len(b) > n {
		return b[len(b)-n:]
	}
	return b
}

// fail turns an error from the middle of a command into its CommandError. A
// cancelled context triggers a resync first.
func (s *Session) fail(ctx context.Context, command string, partial []byte, err error) error {
	if ctx.Err() == nil || !errors.Is(err, ctx.Err()) {
		return &CommandError{Command: command, Partial: partial, Err: err}
	}

	s.log.Info().Str("command", command).Msg("cancelled, resynchronizing")
	time.Sleep(cancelSettle)
	if ferr := s.flush(context.WithoutCancel(ctx)); ferr != nil {
		s.log.Warn().Err(ferr).Msg("resync failed")
	}

	return &CommandError{
		Command: command,
		Partial: partial,
		Err:     fmt.Errorf("%w: %w", ErrCancelled, err),
	}
}

// flush drains until the link is idle and then runs an empty command.
func (s *Session) flush(ctx context.Context) error {
	if err := s.drain("flush", s.cfg.PollInterval); err != nil {
		return err
	}

	// The empty command's output is whatever garbage the monitor had left.
	_, err := s.run(ctx, "")
	if err != nil && !errors.Is(err, ErrResponseTimeout) {
		return err
	}
	return nil
}

// clearLine cancels the partially typed line with Ctrl-U.
func (s *Session) clearLine() error {
	recordEchoRetry()
	if err := s.write([]byte{CancelByte}); err != nil {
		return err
	}
	time.Sleep(clearSettle)
	return s.drain("clear", clearSettle)
}

func (s *Session) drain(stage string, interval time.Duration) error {
	for {
		data, err := s.readAvailable(stage)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return nil
		}
		time.Sleep(interval)
	}
}

// ============================================================================
// Transport wrappers
// ============================================================================

func (s *Session) write(p []byte) error {
	n, err := s.t.Write(p)
	s.noteBytes(n, 0)
	recordBytes("tx", n)
	return err
}

func (s *Session) readN(stage string, n int) ([]byte, error) {
	data, err := s.t.ReadN(n, s.cfg.ReadTimeout)
	s.noteBytes(0, len(data))
	recordBytes("rx", len(data))
	if s.cfg.Debug >= 2 && len(data) > 0 && stage != "echo" {
		s.log.Trace().Str("stage", stage).Str("data", strconv.Quote(string(data))).Msg("read")
	}
	return data, err
}

func (s *Session) readAvailable(stage string) ([]byte, error) {
	data, err := s.t.ReadAvailable()
	s.noteBytes(0, len(data))
	recordBytes("rx", len(data))
	if s.cfg.Debug >= 2 && len(data) > 0 {
		s.log.Trace().Str("stage", stage).Str("data", strconv.Quote(string(data))).Msg("read")
	}
	return data, err
}

// ============================================================================
// Bookkeeping
// ============================================================================

func (s *Session) record(command string, err error, duration time.Duration) {
	recordCommand(command, err, duration)

	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.stats.Update(err)
}

func (s *Session) noteEchoMismatch() {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.stats.EchoMismatches++
}

func (s *Session) noteBytes(sent, received int) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.stats.BytesSent += uint64(sent)
	s.stats.BytesReceived += uint64(received)
}

// noteParseError reclassifies the last recorded command as a parse failure.
func (s *Session) noteParseError() {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	if s.stats.Succeeded > 0 {
		s.stats.Succeeded--
	}
	s.stats.ParseErrors++
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
