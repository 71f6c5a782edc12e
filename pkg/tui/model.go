/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package tui is the interactive terminal front end of the monitor.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/musyoka101/sliver-tui/pkg/logger"
	"github.com/musyoka101/sliver-tui/pkg/monitor"
	"github.com/musyoka101/sliver-tui/pkg/render"
)

const (
	statusLines   = 2
	clockInterval = time.Second
)

// Monitor is what the model needs from the tick loop.
type Monitor interface {
	Snapshot() *monitor.Snapshot
	LastError() error
	Refresh()
}

// ClipboardWriter copies text to the system clipboard.
type ClipboardWriter func(text string) error

type clockMsg time.Time

// Model is the bubbletea model. It only ever reads committed snapshots.
type Model struct {
	mon      Monitor
	renderer *render.Renderer
	logger   logger.Logger
	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	viewport viewport.Model
	ready    bool
	mode     render.Mode
	snap     *monitor.Snapshot
	lastErr  error
	message  string
	copy     ClipboardWriter
	now      func() time.Time
	styles   struct {
		status, errorText, message lipgloss.Style
	}
}

type Option func(*Model)

// WithClipboard replaces the system clipboard writer.
func WithClipboard(w ClipboardWriter) Option {
	return func(m *Model) { m.copy = w }
}

// WithNow sets the clock used for elapsed times.
func WithNow(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// WithMode sets the initial layout.
func WithMode(mode render.Mode) Option {
	return func(m *Model) { m.mode = mode }
}

func New(mon Monitor, renderer *render.Renderer, log logger.Logger, opts ...Option) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	m := &Model{
		mon:      mon,
		renderer: renderer,
		logger:   log,
		keys:     defaultKeyMap(),
		help:     help.New(),
		spinner:  s,
		mode:     render.ModeTree,
		snap:     mon.Snapshot(),
		lastErr:  mon.LastError(),
		copy:     clipboard.WriteAll,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.styles.status = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272a4"))
	m.styles.errorText = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5555")).Bold(true)
	m.styles.message = lipgloss.NewStyle().Foreground(lipgloss.Color("#50fa7b"))

	return m
}

func clockTick() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, clockTick())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case snapshotMsg:
		m.snap = msg.snap
		m.lastErr = nil
		m.refreshContent()
	case failureMsg:
		m.lastErr = msg.err
	case clockMsg:
		m.refreshContent()

		return m, clockTick()
	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}

	return m, cmd
}

func (m *Model) resize(width, height int) {
	h := height - statusLines
	if h < 1 {
		h = 1
	}

	if !m.ready {
		m.viewport = viewport.New(width, h)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = h
	}

	m.help.Width = width
	m.renderer.SetWidth(width)
	m.refreshContent()
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Refresh):
		m.mon.Refresh()
		m.message = "Refresh requested"
	case key.Matches(msg, m.keys.View):
		m.mode = m.mode.Next()
		m.message = "View: " + m.mode.String()
		m.refreshContent()
	case key.Matches(msg, m.keys.Theme):
		m.cycleTheme()
	case key.Matches(msg, m.keys.Lost):
		m.renderer.ToggleLost()
		m.refreshContent()
	case key.Matches(msg, m.keys.Copy):
		m.copyIDs()
	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
	default:
		var cmd tea.Cmd
		if m.ready {
			m.viewport, cmd = m.viewport.Update(msg)
		}

		return m, cmd
	}

	return m, nil
}

func (m *Model) cycleTheme() {
	next := render.NextTheme(m.renderer.Theme())
	if err := m.renderer.SetTheme(next); err != nil {
		m.logger.Warn().Err(err).Str("theme", next).Msg("Theme switch failed")
		return
	}

	m.message = "Theme: " + next
	m.refreshContent()
}

func (m *Model) copyIDs() {
	if m.snap == nil || len(m.snap.Forest) == 0 {
		m.message = "Nothing to copy"
		return
	}

	ids := m.snap.AgentIDs()

	if err := m.copy(strings.Join(ids, "\n")); err != nil {
		m.logger.Warn().Err(err).Msg("Clipboard write failed")
		m.message = "Failed to copy to clipboard"

		return
	}

	m.message = fmt.Sprintf("Copied %d agent IDs to clipboard", len(ids))
}

func (m *Model) content() string {
	v := render.Project(m.snap, m.now())

	return m.renderer.Render(&v, m.mode)
}

func (m *Model) refreshContent() {
	if !m.ready {
		return
	}

	m.viewport.SetContent(m.content())
}

func (m *Model) statusLine() string {
	switch {
	case m.lastErr != nil:
		return m.styles.errorText.Render("⚠ refresh failed: " + m.lastErr.Error())
	case m.snap == nil:
		return m.spinner.View() + m.styles.status.Render(" waiting for agents")
	case m.message != "":
		return m.styles.message.Render(m.message)
	default:
		return m.styles.status.Render(fmt.Sprintf("%3.f%%", m.viewport.ScrollPercent()*100))
	}
}

func (m *Model) View() string {
	if !m.ready {
		return m.spinner.View() + " Initializing..."
	}

	return m.viewport.View() + "\n" + m.statusLine() + "\n" + m.help.View(m.keys)
}
