// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lolmon

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// ============================================================
// Fake Monitor
// ============================================================

// fakeMonitor is an in-memory lolmon. It echoes input, acknowledges
// newlines and executes memory commands against a sparse byte map. Output
// is available to the host as soon as the write that caused it returns.
type fakeMonitor struct {
	mu sync.Mutex

	out  []byte
	line []byte
	mem  map[uint32]byte

	// writes records every Write call, commands every executed line
	writes   [][]byte
	commands []string
	flashes  []string
	calls    []string

	// corruptNext garbles the echo of the next N chunks
	corruptNext int
	// holdPrompt withholds the prompt for the next N commands
	holdPrompt int
	// badAck replaces the next line acknowledgement with a lone "\r"
	badAck bool
	// dead suppresses all output
	dead bool
	// responses overrides the output of specific commands
	responses map[string]string
}

func newFakeMonitor() *fakeMonitor {
	return &fakeMonitor{
		mem:       make(map[uint32]byte),
		responses: make(map[string]string),
	}
}

func (m *fakeMonitor) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writes = append(m.writes, append([]byte(nil), p...))
	if m.dead {
		return len(p), nil
	}

	switch {
	case len(p) == 1 && p[0] == CancelByte:
		m.line = m.line[:0]
	case len(p) == 1 && p[0] == Newline:
		m.enter()
	default:
		m.line = append(m.line, p...)
		echo := append([]byte(nil), p...)
		if m.corruptNext > 0 {
			m.corruptNext--
			echo[len(echo)-1] ^= 0x20
		}
		m.out = append(m.out, echo...)
	}
	return len(p), nil
}

func (m *fakeMonitor) ReadN(n int, timeout time.Duration) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n = min(n, len(m.out))
	data := append([]byte(nil), m.out[:n]...)
	m.out = m.out[n:]
	return data, nil
}

func (m *fakeMonitor) ReadAvailable() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data := m.out
	m.out = nil
	return data, nil
}

func (m *fakeMonitor) enter() {
	command := string(m.line)
	m.line = m.line[:0]
	m.commands = append(m.commands, command)

	if m.badAck {
		m.badAck = false
		m.out = append(m.out, '\r')
		return
	}
	m.out = append(m.out, "\r\n"...)

	if strings.HasPrefix(command, "call ") {
		m.calls = append(m.calls, command)
		return
	}

	if resp, ok := m.responses[command]; ok {
		m.out = append(m.out, resp...)
	} else {
		m.out = append(m.out, m.execute(command)...)
	}

	if m.holdPrompt > 0 {
		m.holdPrompt--
		return
	}
	m.out = append(m.out, DefaultPrompt...)
}

func (m *fakeMonitor) execute(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}

	width := map[byte]int{'b': 1, 'h': 2, 'w': 4}
	op := fields[0]
	if len(op) == 2 && strings.ContainsRune("wrc", rune(op[0])) {
		if w, ok := width[op[1]]; ok {
			switch op[0] {
			case 'w':
				return m.write(w, fields[1:])
			case 'r':
				return m.read(w, fields[1:])
			case 'c':
				return m.copy(w, fields[1:])
			}
		}
	}
	if op == "fl" {
		m.flashes = append(m.flashes, command)
		return ""
	}
	return fmt.Sprintf("unknown command: %s\r\n", op)
}

func (m *fakeMonitor) write(w int, args []string) string {
	if len(args) < 2 {
		return "usage\r\n"
	}
	addr := parseHex(args[0])
	for _, arg := range args[1:] {
		v, err := strconv.ParseUint(arg, 0, 32)
		if err != nil {
			return "bad value\r\n"
		}
		m.store(addr, w, uint32(v))
		addr += uint32(w)
	}
	return ""
}

func (m *fakeMonitor) read(w int, args []string) string {
	if len(args) < 2 {
		return "usage\r\n"
	}
	addr := parseHex(args[0])
	count, _ := strconv.Atoi(args[1])

	var sb strings.Builder
	perLine := 16 / w
	for i := 0; i < count; i++ {
		if i%perLine == 0 {
			if i > 0 {
				sb.WriteString("\r\n")
			}
			fmt.Fprintf(&sb, "%08x:", addr)
		}
		fmt.Fprintf(&sb, " %0*x", w*2, m.load(addr, w))
		addr += uint32(w)
	}
	if count > 0 {
		sb.WriteString("\r\n")
	}
	return sb.String()
}

func (m *fakeMonitor) copy(w int, args []string) string {
	if len(args) < 3 {
		return "usage\r\n"
	}
	src, dest := parseHex(args[0]), parseHex(args[1])
	count, _ := strconv.Atoi(args[2])
	for i := 0; i < count*w; i++ {
		m.mem[dest+uint32(i)] = m.mem[src+uint32(i)]
	}
	return ""
}

func (m *fakeMonitor) store(addr uint32, w int, v uint32) {
	for i := 0; i < w; i++ {
		m.mem[addr+uint32(i)] = byte(v >> (8 * i))
	}
}

func (m *fakeMonitor) load(addr uint32, w int) uint32 {
	var v uint32
	for i := 0; i < w; i++ {
		v |= uint32(m.mem[addr+uint32(i)]) << (8 * i)
	}
	return v
}

// setMem stores v little-endian with width w
func (m *fakeMonitor) setMem(addr uint32, w int, v uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store(addr, w, v)
}

func (m *fakeMonitor) getMem(addr uint32, w int) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(addr, w)
}

// executed returns the non-empty commands the monitor ran
func (m *fakeMonitor) executed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for _, c := range m.commands {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// chunks returns the writes of the last command, without its newline
func (m *fakeMonitor) chunks() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	var chunks [][]byte
	for i := len(m.writes) - 2; i >= 0; i-- {
		w := m.writes[i]
		if bytes.Equal(w, []byte{Newline}) || bytes.Equal(w, []byte{CancelByte}) {
			break
		}
		chunks = append([][]byte{w}, chunks...)
	}
	return chunks
}

func (m *fakeMonitor) countWrites(p []byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, w := range m.writes {
		if bytes.Equal(w, p) {
			n++
		}
	}
	return n
}

func parseHex(s string) uint32 {
	v, _ := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 32)
	return uint32(v)
}

// newTestSession returns a session with short timings on a fresh fake
func newTestSession(t *testing.T, opts ...Option) (*Session, *fakeMonitor) {
	t.Helper()
	m := newFakeMonitor()
	base := []Option{
		WithPollInterval(time.Millisecond),
		WithResponseTimeout(50 * time.Millisecond),
		WithReadTimeout(10 * time.Millisecond),
	}
	return NewSession(m, append(base, opts...)...), m
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
