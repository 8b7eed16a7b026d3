// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport provides byte links to a lolmon monitor: serial ports,
// WebSocket bridges and raw TCP bridges.
package transport

import (
	"io"
	"sync"
	"time"

	"github.com/Thermoquad/lolmon/pkg/lolmon"
)

// readBufferSize is the largest single read from the underlying stream.
const readBufferSize = 4096

// Stream adapts any blocking io.ReadWriteCloser to lolmon.Transport. A pump
// goroutine moves incoming bytes into a buffer that ReadN and ReadAvailable
// consume.
type Stream struct {
	rwc io.ReadWriteCloser

	mu  sync.Mutex
	buf []byte
	err error

	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ lolmon.Transport = (*Stream)(nil)

// NewStream starts pumping rwc. The Stream owns rwc from here on.
func NewStream(rwc io.ReadWriteCloser) *Stream {
	s := &Stream{
		rwc:    rwc,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *Stream) pump() {
	defer close(s.done)

	buf := make([]byte, readBufferSize)
	for {
		n, err := s.rwc.Read(buf)

		s.mu.Lock()
		s.buf = append(s.buf, buf[:n]...)
		if err != nil {
			s.err = err
		}
		s.mu.Unlock()

		if n > 0 || err != nil {
			s.signal()
		}
		if err != nil {
			return
		}
	}
}

func (s *Stream) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Write sends p to the monitor.
func (s *Stream) Write(p []byte) (int, error) {
	return s.rwc.Write(p)
}

// ReadN returns n bytes, or fewer if timeout elapses first. Once the link
// has failed, buffered bytes are still returned before the error.
func (s *Stream) ReadN(n int, timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		s.mu.Lock()
		if len(s.buf) >= n {
			data := s.take(n)
			s.mu.Unlock()
			return data, nil
		}
		if s.err != nil {
			data := s.take(len(s.buf))
			err := s.err
			s.mu.Unlock()
			if len(data) > 0 {
				return data, nil
			}
			return nil, err
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-timer.C:
			s.mu.Lock()
			data := s.take(min(n, len(s.buf)))
			s.mu.Unlock()
			return data, nil
		}
	}
}

// ReadAvailable returns everything buffered without waiting.
func (s *Stream) ReadAvailable() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.buf) == 0 && s.err != nil {
		return nil, s.err
	}
	return s.take(len(s.buf)), nil
}

// take removes n bytes from the front of the buffer. Caller holds mu.
func (s *Stream) take(n int) []byte {
	data := make([]byte, n)
	copy(data, s.buf)
	s.buf = s.buf[n:]
	if len(s.buf) == 0 {
		s.buf = nil
	}
	return data
}

// Close closes the underlying stream and waits for the pump to stop.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.rwc.Close()
		<-s.done
	})
	return err
}
