// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/lolmon/pkg/firmware"
	"github.com/Thermoquad/lolmon/pkg/lolmon"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	maxConsoleLines = 1000

	// title, spacer, box border, input line and status bar
	consoleChromeHeight = 6
)

//////////////////////////////////////////////////////////////
// Styles
//////////////////////////////////////////////////////////////

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	commandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// commandSender is the part of the session the console needs
type commandSender interface {
	Send(ctx context.Context, command string) ([]byte, error)
	Stats() lolmon.Statistics
}

// consoleModel is the Bubble Tea model for the console TUI
type consoleModel struct {
	parent   context.Context
	session  commandSender
	connInfo string

	// Scrollback
	output viewport.Model
	lines  []string

	// Input and history
	input   textinput.Model
	history []string
	histPos int
	draft   string

	// Command in flight
	busy    bool
	pending string
	cancel  context.CancelFunc

	stats lolmon.Statistics

	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type consoleTickMsg time.Time

type responseMsg struct {
	command string
	resp    []byte
	err     error
	elapsed time.Duration
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialConsoleModel(ctx context.Context, session commandSender, connInfo string) consoleModel {
	ti := textinput.New()
	ti.Prompt = lolmon.DefaultPrompt
	ti.Placeholder = "rw 80000000 4"
	ti.CharLimit = lolmon.MaxLineLength
	ti.Width = 60
	ti.Focus()

	vp := viewport.New(76, 18-consoleChromeHeight)

	return consoleModel{
		parent:   ctx,
		session:  session,
		connInfo: connInfo,
		output:   vp,
		lines:    make([]string, 0),
		input:    ti,
		history:  make([]string, 0),
		stats:    session.Stats(),
		width:    80,
		height:   24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m consoleModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, consoleTickCmd())
}

func consoleTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return consoleTickMsg(t)
	})
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case consoleTickMsg:
		m.refreshStats()
		return m, consoleTickCmd()

	case responseMsg:
		m.handleResponse(msg)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *consoleModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if m.cancel != nil {
			m.cancel()
		}
		m.quitting = true
		return *m, tea.Quit

	case "esc":
		if m.busy && m.cancel != nil {
			m.cancel()
			m.addLine(warningStyle.Render("cancelling..."))
		}
		return *m, nil

	case "enter":
		if m.busy {
			return *m, nil
		}
		return m.submit()

	case "up":
		m.historyPrev()
		return *m, nil

	case "down":
		m.historyNext()
		return *m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.output, cmd = m.output.Update(msg)
		return *m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return *m, cmd
}

// submit sends the input line to the monitor in the background.
func (m *consoleModel) submit() (tea.Model, tea.Cmd) {
	line := m.input.Value()
	m.input.Reset()
	m.pushHistory(line)

	m.addLine(commandStyle.Render(lolmon.DefaultPrompt + line))

	ctx, cancel := context.WithCancel(m.parent)
	m.busy = true
	m.pending = line
	m.cancel = cancel

	return *m, sendCommand(ctx, m.session, line)
}

func sendCommand(ctx context.Context, s commandSender, command string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		resp, err := s.Send(ctx, command)
		return responseMsg{command: command, resp: resp, err: err, elapsed: time.Since(start)}
	}
}

func (m *consoleModel) handleResponse(msg responseMsg) {
	if m.cancel != nil {
		m.cancel()
	}
	m.busy = false
	m.pending = ""
	m.cancel = nil

	if msg.err == nil {
		if text := responseText(msg.resp); text != "" {
			m.addLine(text)
		}
		m.refreshStats()
		return
	}

	var ce *lolmon.CommandError
	if errors.As(msg.err, &ce) && len(ce.Partial) > 0 {
		m.addLine(responseText(ce.Partial))
	}

	if errors.Is(msg.err, lolmon.ErrCancelled) {
		m.addLine(warningStyle.Render("cancelled, monitor resynchronized"))
	} else {
		m.addLine(errorStyle.Render(msg.err.Error()))
	}
	m.refreshStats()
}

// responseText normalizes monitor line endings for display.
func responseText(resp []byte) string {
	text := strings.ReplaceAll(string(resp), "\r\n", "\n")
	return strings.TrimRight(text, "\r\n")
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *consoleModel) addLine(text string) {
	m.lines = append(m.lines, strings.Split(text, "\n")...)
	if over := len(m.lines) - maxConsoleLines; over > 0 {
		m.lines = m.lines[over:]
	}
	m.output.SetContent(strings.Join(m.lines, "\n"))
	m.output.GotoBottom()
}

func (m *consoleModel) pushHistory(line string) {
	if line != "" && (len(m.history) == 0 || m.history[len(m.history)-1] != line) {
		m.history = append(m.history, line)
	}
	m.histPos = len(m.history)
	m.draft = ""
}

func (m *consoleModel) historyPrev() {
	if m.histPos == 0 {
		return
	}
	if m.histPos == len(m.history) {
		m.draft = m.input.Value()
	}
	m.histPos--
	m.input.SetValue(m.history[m.histPos])
	m.input.CursorEnd()
}

func (m *consoleModel) historyNext() {
	if m.histPos >= len(m.history) {
		return
	}
	m.histPos++
	if m.histPos == len(m.history) {
		m.input.SetValue(m.draft)
	} else {
		m.input.SetValue(m.history[m.histPos])
	}
	m.input.CursorEnd()
}

func (m *consoleModel) refreshStats() {
	m.stats = m.session.Stats()
	m.stats.CalculateRates()
}

func (m *consoleModel) resize() {
	m.output.Width = max(m.width-4, 10)
	m.output.Height = max(m.height-consoleChromeHeight, 3)
	m.input.Width = max(m.width-len(lolmon.DefaultPrompt)-2, 10)
	m.output.GotoBottom()
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

func (m consoleModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("LOLMON CONSOLE"))
	s.WriteString(" ")
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | Esc=cancel Ctrl+C=quit", m.connInfo)))
	s.WriteString("\n")

	s.WriteString(boxStyle.Width(max(m.width-2, 12)).Render(m.output.View()))
	s.WriteString("\n")

	if m.busy {
		s.WriteString(warningStyle.Render(fmt.Sprintf("running: %s (Esc to cancel)", m.pending)))
	} else {
		s.WriteString(m.input.View())
	}
	s.WriteString("\n")

	s.WriteString(m.renderStatusBar())
	return s.String()
}

func (m consoleModel) renderStatusBar() string {
	st := m.stats
	field := func(label, value string) string {
		return statsLabelStyle.Render(label) + " " + statsValueStyle.Render(value)
	}

	errs := fmt.Sprintf("%d", st.Errors())
	if st.Errors() > 0 {
		errs = errorStyle.Render(errs)
	} else {
		errs = statsValueStyle.Render(errs)
	}

	parts := []string{
		field("Commands:", fmt.Sprintf("%d", st.TotalCommands)),
		field("OK:", fmt.Sprintf("%d", st.Succeeded)),
		field("Echo:", fmt.Sprintf("%d", st.EchoMismatches)),
		statsLabelStyle.Render("Errors:") + " " + errs,
		field("Rate:", fmt.Sprintf("%.1f/s", st.CommandRate)),
		field("TX:", firmware.HumanSize(int(st.BytesSent))),
		field("RX:", firmware.HumanSize(int(st.BytesReceived))),
	}
	return strings.Join(parts, "  ")
}
