// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Thermoquad/lolmon/pkg/lolmon"
	tea "github.com/charmbracelet/bubbletea"
)

// ============================================================
// Fake Sender
// ============================================================

type fakeSender struct {
	mu       sync.Mutex
	commands []string
	resp     []byte
	err      error
	// block makes Send wait for cancellation
	block bool
}

func (f *fakeSender) Send(ctx context.Context, command string) ([]byte, error) {
	f.mu.Lock()
	f.commands = append(f.commands, command)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, &lolmon.CommandError{
			Command: command,
			Partial: []byte("partial\r\n"),
			Err:     fmt.Errorf("%w: %w", lolmon.ErrCancelled, ctx.Err()),
		}
	}
	return f.resp, f.err
}

func (f *fakeSender) Stats() lolmon.Statistics {
	return *lolmon.NewStatistics()
}

// ============================================================
// Helpers
// ============================================================

func keyMsg(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func applyMsg(t *testing.T, m consoleModel, msg tea.Msg) (consoleModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	cm, ok := next.(consoleModel)
	if !ok {
		t.Fatalf("Update returned %T, want consoleModel", next)
	}
	return cm, cmd
}

// submitLine types line, presses Enter and feeds the response back.
func submitLine(t *testing.T, m consoleModel, line string) consoleModel {
	t.Helper()
	m.input.SetValue(line)
	m, cmd := applyMsg(t, m, keyMsg(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("Enter produced no command")
	}
	m, _ = applyMsg(t, m, cmd())
	return m
}

func scrollback(m consoleModel) string {
	return strings.Join(m.lines, "\n")
}

// ============================================================
// Console Tests
// ============================================================

func TestConsole_SendCommand(t *testing.T) {
	f := &fakeSender{resp: []byte("80000000: 12345678\r\n")}
	m := initialConsoleModel(context.Background(), f, "test")

	m.input.SetValue("rw 80000000 1")
	m, cmd := applyMsg(t, m, keyMsg(tea.KeyEnter))
	if !m.busy {
		t.Error("model should be busy while the command runs")
	}
	if m.input.Value() != "" {
		t.Errorf("input not cleared: %q", m.input.Value())
	}

	msg := cmd()
	resp, ok := msg.(responseMsg)
	if !ok {
		t.Fatalf("command produced %T, want responseMsg", msg)
	}
	if resp.command != "rw 80000000 1" {
		t.Errorf("command = %q", resp.command)
	}

	m, _ = applyMsg(t, m, resp)
	if m.busy {
		t.Error("model still busy after response")
	}
	if !strings.Contains(scrollback(m), "80000000: 12345678") {
		t.Errorf("response missing from scrollback:\n%s", scrollback(m))
	}
	if strings.Contains(scrollback(m), "\r") {
		t.Error("carriage returns should be stripped")
	}
}

func TestConsole_EnterWhileBusy(t *testing.T) {
	f := &fakeSender{}
	m := initialConsoleModel(context.Background(), f, "test")

	m.input.SetValue("first")
	m, _ = applyMsg(t, m, keyMsg(tea.KeyEnter))

	m.input.SetValue("second")
	m, cmd := applyMsg(t, m, keyMsg(tea.KeyEnter))
	if cmd != nil {
		t.Error("Enter while busy should not send")
	}
	if m.input.Value() != "second" {
		t.Errorf("input = %q, should be kept", m.input.Value())
	}
}

func TestConsole_Error(t *testing.T) {
	f := &fakeSender{err: &lolmon.CommandError{Command: "bogus", Err: lolmon.ErrCommandFailed}}
	m := initialConsoleModel(context.Background(), f, "test")

	m = submitLine(t, m, "bogus")
	if !strings.Contains(scrollback(m), "command failed") {
		t.Errorf("error missing from scrollback:\n%s", scrollback(m))
	}
}

func TestConsole_EscCancels(t *testing.T) {
	f := &fakeSender{block: true}
	m := initialConsoleModel(context.Background(), f, "test")

	m.input.SetValue("rw 0 100000")
	m, cmd := applyMsg(t, m, keyMsg(tea.KeyEnter))

	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	m, _ = applyMsg(t, m, keyMsg(tea.KeyEsc))

	var msg tea.Msg
	select {
	case msg = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Esc did not cancel the command")
	}

	resp := msg.(responseMsg)
	if !errors.Is(resp.err, lolmon.ErrCancelled) {
		t.Errorf("err = %v, want ErrCancelled", resp.err)
	}

	m, _ = applyMsg(t, m, resp)
	out := scrollback(m)
	if !strings.Contains(out, "partial") {
		t.Errorf("partial output missing:\n%s", out)
	}
	if !strings.Contains(out, "cancelled") {
		t.Errorf("cancel notice missing:\n%s", out)
	}
	if m.busy || m.cancel != nil {
		t.Error("model should be idle after the cancelled response")
	}
}

func TestConsole_EscIdle(t *testing.T) {
	m := initialConsoleModel(context.Background(), &fakeSender{}, "test")
	m, cmd := applyMsg(t, m, keyMsg(tea.KeyEsc))
	if cmd != nil || len(m.lines) != 0 {
		t.Error("Esc with nothing in flight should do nothing")
	}
}

func TestConsole_History(t *testing.T) {
	m := initialConsoleModel(context.Background(), &fakeSender{}, "test")
	m = submitLine(t, m, "a")
	m = submitLine(t, m, "b")
	m = submitLine(t, m, "b")
	m = submitLine(t, m, "")

	if len(m.history) != 2 {
		t.Fatalf("history = %q, want duplicates and blanks dropped", m.history)
	}

	m.input.SetValue("draft")
	steps := []struct {
		key  tea.KeyType
		want string
	}{
		{tea.KeyUp, "b"},
		{tea.KeyUp, "a"},
		{tea.KeyUp, "a"},
		{tea.KeyDown, "b"},
		{tea.KeyDown, "draft"},
		{tea.KeyDown, "draft"},
	}
	for i, s := range steps {
		m, _ = applyMsg(t, m, keyMsg(s.key))
		if got := m.input.Value(); got != s.want {
			t.Errorf("step %d: input = %q, want %q", i, got, s.want)
		}
	}
}

func TestConsole_Quit(t *testing.T) {
	f := &fakeSender{block: true}
	m := initialConsoleModel(context.Background(), f, "test")

	m.input.SetValue("rw 0 1")
	m, cmd := applyMsg(t, m, keyMsg(tea.KeyEnter))
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	m, cmd = applyMsg(t, m, keyMsg(tea.KeyCtrlC))
	if !m.quitting {
		t.Error("Ctrl+C should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Ctrl+C should return tea.Quit")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Ctrl+C did not cancel the command in flight")
	}
}

func TestConsole_View(t *testing.T) {
	m := initialConsoleModel(context.Background(), &fakeSender{}, "serial /dev/ttyUSB0")
	m, _ = applyMsg(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})

	if m.output.Height != 30-consoleChromeHeight {
		t.Errorf("viewport height = %d", m.output.Height)
	}

	v := m.View()
	for _, want := range []string{"LOLMON CONSOLE", "serial /dev/ttyUSB0", "Commands:"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestConsole_ScrollbackLimit(t *testing.T) {
	m := initialConsoleModel(context.Background(), &fakeSender{}, "test")
	for i := 0; i < maxConsoleLines+10; i++ {
		m.addLine(fmt.Sprintf("line %d", i))
	}
	if len(m.lines) != maxConsoleLines {
		t.Errorf("lines = %d, want %d", len(m.lines), maxConsoleLines)
	}
	if m.lines[0] != "line 10" {
		t.Errorf("oldest line = %q, want line 10", m.lines[0])
	}
}
