// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 The scpiterm Authors

package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/opticslab/scpiterm/pkg/scpi"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	maxTranscriptLines = 2000
	maxHistoryEntries  = 200
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// termModel is the Bubble Tea model for the interactive terminal
type termModel struct {
	adapter   *scpi.Adapter
	orderings *scpi.Orderings
	connInfo  string

	input      textinput.Model
	transcript viewport.Model
	lines      []string

	// Command history, newest last. histIdx == len(history) means "not
	// browsing".
	history []string
	histIdx int
	draft   string

	// Monitor state
	monitor    *scpi.Monitor
	monitoring bool
	samples    chan scpi.Sample

	// UI state
	width    int
	height   int
	pending  bool // an exchange is in flight; input is paused
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type exchangeMsg struct {
	ex scpi.Exchange
}

type probeMsg struct {
	results map[scpi.LineEnding]scpi.ProbeResult
}

type monitorStartedMsg struct {
	err error
}

type sampleMsg scpi.Sample

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialTermModel(adapter *scpi.Adapter, orderings *scpi.Orderings, connInfo string) termModel {
	ti := textinput.New()
	ti.Placeholder = "*IDN?"
	ti.Prompt = "> "
	ti.CharLimit = 256
	ti.Focus()

	vp := viewport.New(80, 20)

	samples := make(chan scpi.Sample, 64)
	m := termModel{
		adapter:    adapter,
		orderings:  orderings,
		connInfo:   connInfo,
		input:      ti,
		transcript: vp,
		samples:    samples,
		width:      80,
		height:     24,
	}
	m.monitor = scpi.NewMonitor(adapter, scpi.SampleSinkFunc(func(s scpi.Sample) {
		select {
		case samples <- s:
		default:
		}
	}))
	return m
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m termModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m termModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.transcript.Width = msg.Width - 2
		m.transcript.Height = msg.Height - 4
		m.refreshTranscript()

	case exchangeMsg:
		m.pending = false
		m.appendExchange(msg.ex)
		if msg.ex.Outcome == scpi.OutcomeIOError {
			m.appendLine(errorStyle.Render(fmt.Sprintf("session failed: %v", msg.ex.Err)))
		}

	case probeMsg:
		m.pending = false
		m.appendProbe(msg.results)

	case monitorStartedMsg:
		if msg.err != nil {
			m.monitoring = false
			m.appendLine(errorStyle.Render(fmt.Sprintf("monitor: %v", msg.err)))
			return m, nil
		}
		shg, thg := m.monitor.SetPoints()
		m.appendLine(infoStyle.Render(fmt.Sprintf("monitor started (set SHG %.3f, THG %.3f)", shg, thg)))
		return m, m.waitSample()

	case sampleMsg:
		if m.monitoring {
			m.appendSample(scpi.Sample(msg))
			return m, m.waitSample()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m termModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		if m.monitoring {
			m.monitor.Stop()
		}
		return m, tea.Quit

	case "enter":
		return m.submit()

	case "up":
		m.recallHistory(-1)
		return m, nil

	case "down":
		m.recallHistory(1)
		return m, nil

	case "ctrl+p":
		if m.pending || m.monitoring {
			return m, nil
		}
		m.pending = true
		m.appendLine(infoStyle.Render("probing line endings..."))
		return m, m.probeCmd()

	case "ctrl+t":
		return m.toggleMonitor()

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m termModel) View() string {
	if m.quitting {
		return "Closing session...\n"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("SCPI TERMINAL"))
	status := m.connInfo
	if m.monitoring {
		status += " | " + monStyle.Render("MONITOR")
	}
	if m.pending {
		status += " | busy"
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf(" | %s | eol=%s", status, m.adapter.LineEnding())))
	s.WriteString("\n")
	s.WriteString(m.transcript.View())
	s.WriteString("\n")
	s.WriteString(m.input.View())
	s.WriteString("\n")
	s.WriteString(headerStyle.Render("Enter=send Up/Down=history Ctrl+P=probe Ctrl+T=monitor Ctrl+C=quit"))
	return s.String()
}

//////////////////////////////////////////////////////////////
// Styles
//////////////////////////////////////////////////////////////

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	txStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	rxStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	monStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	fieldStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

func (m *termModel) submit() (tea.Model, tea.Cmd) {
	if m.pending {
		return m, nil
	}
	command := strings.TrimSpace(m.input.Value())
	if command == "" {
		return m, nil
	}

	m.pushHistory(command)
	m.input.SetValue("")
	m.pending = true
	m.appendLine(txStyle.Render("TX> ") + command)

	adapter := m.adapter
	return m, func() tea.Msg {
		return exchangeMsg{ex: adapter.Exchange(command)}
	}
}

func (m termModel) probeCmd() tea.Cmd {
	adapter := m.adapter
	return func() tea.Msg {
		return probeMsg{results: scpi.ProbeTerminators(adapter, "")}
	}
}

func (m *termModel) toggleMonitor() (tea.Model, tea.Cmd) {
	if m.monitoring {
		m.monitor.Stop()
		m.monitoring = false
		m.appendLine(infoStyle.Render("monitor stopped"))
		return m, nil
	}
	if m.pending {
		return m, nil
	}
	m.monitoring = true
	monitor := m.monitor
	return m, func() tea.Msg {
		return monitorStartedMsg{err: monitor.Start()}
	}
}

func (m termModel) waitSample() tea.Cmd {
	samples := m.samples
	return func() tea.Msg {
		return sampleMsg(<-samples)
	}
}

//////////////////////////////////////////////////////////////
// Transcript Helpers
//////////////////////////////////////////////////////////////

func (m *termModel) appendLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxTranscriptLines {
		m.lines = m.lines[len(m.lines)-maxTranscriptLines:]
	}
	m.refreshTranscript()
}

func (m *termModel) refreshTranscript() {
	m.transcript.SetContent(strings.Join(m.lines, "\n"))
	m.transcript.GotoBottom()
}

func (m *termModel) appendExchange(ex scpi.Exchange) {
	switch ex.Outcome {
	case scpi.OutcomeTimeout:
		m.appendLine(errorStyle.Render(fmt.Sprintf("RX> (timeout after %v)", ex.Elapsed.Round(time.Millisecond))))
		return
	case scpi.OutcomeIOError:
		m.appendLine(errorStyle.Render(fmt.Sprintf("RX> (error: %v)", ex.Err)))
		return
	}

	m.appendLine(rxStyle.Render("RX> ") + ex.Reply)
	if ex.HexHint() {
		m.appendLine(headerStyle.Render("    hex: " + hex.EncodeToString(ex.Raw)))
	}

	kind, ok := scpi.KindForCommand(ex.Command)
	if !ok {
		return
	}
	decoded := m.orderings.Decode(ex.Reply, kind)
	for _, f := range decoded.Fields {
		if f.Missing {
			m.appendLine(fieldStyle.Render(fmt.Sprintf("    %-24s", f.Name)) + headerStyle.Render("(missing)"))
			continue
		}
		m.appendLine(fieldStyle.Render(fmt.Sprintf("    %-24s", f.Name)) + f.Value)
	}
	for _, tok := range decoded.Overflow {
		m.appendLine(fieldStyle.Render(fmt.Sprintf("    %-24s", "(extra)")) + tok)
	}
}

func (m *termModel) appendProbe(results map[scpi.LineEnding]scpi.ProbeResult) {
	for _, candidate := range scpi.ProbeCandidates {
		r := results[candidate]
		line := fmt.Sprintf("    %-5s %s", candidate, r.Outcome)
		if r.Outcome == scpi.ProbeResponsive {
			m.appendLine(rxStyle.Render(line) + "  " + r.Reply)
		} else {
			m.appendLine(headerStyle.Render(line))
		}
	}
}

func (m *termModel) appendSample(s scpi.Sample) {
	m.appendLine(monStyle.Render("MON ") + fmt.Sprintf("%8.3fs  SHG %s (delta %s)  THG %s (delta %s)",
		s.Elapsed.Seconds(),
		readingOrDash(s.ActualSHG, "%.3f"), readingOrDash(s.DeltaSHG, "%+.3f"),
		readingOrDash(s.ActualTHG, "%.3f"), readingOrDash(s.DeltaTHG, "%+.3f")))
}

//////////////////////////////////////////////////////////////
// History
//////////////////////////////////////////////////////////////

func (m *termModel) pushHistory(command string) {
	if n := len(m.history); n > 0 && m.history[n-1] == command {
		m.histIdx = len(m.history)
		return
	}
	m.history = append(m.history, command)
	if len(m.history) > maxHistoryEntries {
		m.history = m.history[len(m.history)-maxHistoryEntries:]
	}
	m.histIdx = len(m.history)
}

func (m *termModel) recallHistory(delta int) {
	if len(m.history) == 0 {
		return
	}
	if m.histIdx == len(m.history) {
		m.draft = m.input.Value()
	}

	m.histIdx += delta
	if m.histIdx < 0 {
		m.histIdx = 0
	}
	if m.histIdx >= len(m.history) {
		m.histIdx = len(m.history)
		m.input.SetValue(m.draft)
		m.input.CursorEnd()
		return
	}
	m.input.SetValue(m.history[m.histIdx])
	m.input.CursorEnd()
}
