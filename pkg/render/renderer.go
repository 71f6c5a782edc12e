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

package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/musyoka101/sliver-tui/pkg/alerts"
	"github.com/musyoka101/sliver-tui/pkg/classify"
	"github.com/musyoka101/sliver-tui/pkg/models"
)

// ErrUnknownTheme is returned when a theme name is not registered.
var ErrUnknownTheme = errors.New("unknown theme")

// Mode selects the layout.
type Mode int

const (
	ModeTree Mode = iota
	ModeDashboard
)

func (m Mode) String() string {
	if m == ModeDashboard {
		return "dashboard"
	}

	return "tree"
}

// Next toggles between the layouts.
func (m Mode) Next() Mode {
	if m == ModeTree {
		return ModeDashboard
	}

	return ModeTree
}

const (
	NoAgentsText = "No active hosts connected"

	defaultWidth    = 100
	sparklineWidth  = 36
	histogramWidth  = 24
	maxAlertLines   = 5
	maxSubnetLines  = 6
	iconSession     = "◆"
	iconBeacon      = "◇"
	connectorLast   = "╰─ "
	connectorMiddle = "├─ "
)

type styles struct {
	title, session, beacon, dead    lipgloss.Style
	privileged, normal              lipgloss.Style
	newBadge, privBadge             lipgloss.Style
	muted, stats, separator, border lipgloss.Style
	critical, warning               lipgloss.Style
	protocols                       map[classify.ProtocolClass]lipgloss.Style
}

// Renderer turns views into styled text. Colors degrade to plain text when
// the writer it was built for is not a terminal.
type Renderer struct {
	lg       *lipgloss.Renderer
	theme    string
	styles   styles
	hideLost bool
	width    int
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithHideLost suppresses the recently-lost section.
func WithHideLost(hide bool) Option {
	return func(r *Renderer) { r.hideLost = hide }
}

// WithWidth sets the line width used for separators.
func WithWidth(width int) Option {
	return func(r *Renderer) {
		if width > 0 {
			r.width = width
		}
	}
}

// NewRenderer builds a renderer for output written to w.
func NewRenderer(w io.Writer, theme string, opts ...Option) (*Renderer, error) {
	r := &Renderer{
		lg:    lipgloss.NewRenderer(w),
		width: defaultWidth,
	}

	for _, opt := range opts {
		opt(r)
	}

	if err := r.SetTheme(theme); err != nil {
		return nil, err
	}

	return r, nil
}

// Theme returns the active theme name.
func (r *Renderer) Theme() string {
	return r.theme
}

// SetTheme switches the palette.
func (r *Renderer) SetTheme(name string) error {
	p, ok := PaletteByName(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTheme, name)
	}

	r.theme = name
	r.styles = r.buildStyles(&p)

	return nil
}

// SetWidth updates the line width.
func (r *Renderer) SetWidth(width int) {
	if width > 0 {
		r.width = width
	}
}

// HideLost reports whether the lost section is suppressed.
func (r *Renderer) HideLost() bool {
	return r.hideLost
}

// ToggleLost flips lost-section visibility.
func (r *Renderer) ToggleLost() {
	r.hideLost = !r.hideLost
}

func (r *Renderer) buildStyles(p *Palette) styles {
	fg := func(c lipgloss.Color) lipgloss.Style {
		return r.lg.NewStyle().Foreground(c)
	}

	s := styles{
		title:      fg(p.Title).Bold(true),
		session:    fg(p.Session),
		beacon:     fg(p.Beacon),
		dead:       fg(p.Dead),
		privileged: fg(p.Privileged).Bold(true),
		normal:     fg(p.Normal),
		newBadge:   fg(p.NewBadge).Bold(true),
		privBadge:  fg(p.PrivBadge),
		muted:      fg(p.Muted),
		stats:      fg(p.Stats),
		separator:  fg(p.Separator),
		border: r.lg.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(0, 1),
		critical:  fg(p.Critical).Bold(true),
		warning:   fg(p.Warning),
		protocols: make(map[classify.ProtocolClass]lipgloss.Style, len(p.Protocols)),
	}

	for class, c := range p.Protocols {
		s.protocols[class] = fg(c)
	}

	return s
}

// Render draws v in the given layout.
func (r *Renderer) Render(v *View, mode Mode) string {
	var b strings.Builder

	b.WriteString(r.header(v))
	b.WriteString("\n")
	b.WriteString(r.rule())
	b.WriteString("\n")

	if mode == ModeDashboard {
		b.WriteString(r.dashboard(v))
	} else {
		b.WriteString(r.tree(v))
	}

	b.WriteString(r.rule())
	b.WriteString("\n")
	b.WriteString(r.styles.stats.Render(v.Footer.Text))
	b.WriteString("\n")

	if alertBlock := r.alerts(v.Alerts); alertBlock != "" {
		b.WriteString("\n")
		b.WriteString(alertBlock)
	}

	if !r.hideLost && len(v.Lost) > 0 {
		b.WriteString("\n")
		b.WriteString(r.lost(v.Lost))
	}

	return b.String()
}

func (r *Renderer) rule() string {
	return r.styles.separator.Render(strings.Repeat("─", r.width))
}

func (r *Renderer) header(v *View) string {
	title := r.styles.title.Render("🎯 " + v.Header.Title)

	if v.Header.Waiting {
		return title + "  " + r.styles.muted.Render("waiting for first refresh")
	}

	line := fmt.Sprintf("%s  %s", title,
		r.styles.muted.Render(fmt.Sprintf("#%d %s", v.Header.Sequence, v.Header.TickAt.Format("15:04:05"))))

	if v.Changes != "" {
		line += "  " + r.styles.newBadge.Render(v.Changes)
	}

	return line
}

func (r *Renderer) tree(v *View) string {
	if v.Empty() {
		return r.styles.muted.Render(NoAgentsText) + "\n"
	}

	var b strings.Builder

	for i := range v.Rows {
		b.WriteString(r.row(&v.Rows[i]))
		b.WriteString("\n")
	}

	return b.String()
}

func (r *Renderer) row(row *Row) string {
	var b strings.Builder

	if row.Depth > 0 {
		b.WriteString(strings.Repeat("   ", row.Depth-1))

		connector := connectorMiddle
		if row.Last {
			connector = connectorLast
		}

		b.WriteString(r.styles.separator.Render(connector))
	}

	b.WriteString(r.icon(row))
	b.WriteString(" ")
	b.WriteString(osIcon(row.OSFamily))
	b.WriteString(" ")

	if row.Privileged {
		b.WriteString(r.styles.privileged.Render(row.Label))
		b.WriteString(" " + r.styles.privBadge.Render("💎"))
	} else {
		b.WriteString(r.styles.normal.Render(row.Label))
	}

	b.WriteString(" " + r.styles.muted.Render("["+row.ShortID+"]"))

	protoStyle, ok := r.styles.protocols[row.Protocol]
	if !ok {
		protoStyle = r.styles.muted
	}

	b.WriteString(" " + protoStyle.Render(row.Transport))
	b.WriteString(" " + r.styles.muted.Render(row.RemoteAddress))

	if row.Domain != "" {
		b.WriteString(" " + r.styles.muted.Render("("+row.Domain+")"))
	}

	if row.Country != "" {
		b.WriteString(" " + r.styles.muted.Render(row.Country))
	}

	if row.TasksPending > 0 {
		b.WriteString(" " + r.styles.warning.Render(fmt.Sprintf("⏳%d", row.TasksPending)))
	}

	if row.Liveness == classify.Dead {
		b.WriteString(" " + r.styles.dead.Render("💀 DEAD"))
	}

	if row.New {
		b.WriteString(" " + r.styles.newBadge.Render("✨ NEW!"))
	}

	return b.String()
}

func (r *Renderer) icon(row *Row) string {
	switch {
	case row.Liveness == classify.Dead:
		return r.styles.dead.Render(iconBeacon)
	case row.Kind == models.KindSession:
		return r.styles.session.Render(iconSession)
	default:
		return r.styles.beacon.Render(iconBeacon)
	}
}

func osIcon(f classify.OSFamily) string {
	switch f {
	case classify.FamilyWindows:
		return "🖥️"
	case classify.FamilyLinux:
		return "🐧"
	default:
		return "💻"
	}
}

func (r *Renderer) dashboard(v *View) string {
	s := &v.Footer.Stats

	overview := strings.Join([]string{
		r.styles.title.Render("Overview"),
		fmt.Sprintf("Sessions    %d", s.Sessions),
		fmt.Sprintf("Beacons     %d", s.Beacons),
		fmt.Sprintf("Hosts       %d", s.UniqueHosts),
		fmt.Sprintf("Privileged  %d", s.Privileged),
		fmt.Sprintf("Dead        %d", s.DeadAgents),
		fmt.Sprintf("New         %d", s.NewAgents),
	}, "\n")

	panels := []string{
		r.styles.border.Render(overview),
		r.styles.border.Render(r.histogram("Protocols", v.Protocols, 0)),
		r.styles.border.Render(r.histogram("Subnets", v.Subnets, maxSubnetLines)),
	}

	activity := strings.Join([]string{
		r.styles.title.Render("Activity"),
		"Sessions   " + r.styles.session.Render(Sparkline(v.Activity, MetricSessions, sparklineWidth)),
		"Beacons    " + r.styles.beacon.Render(Sparkline(v.Activity, MetricBeacons, sparklineWidth)),
		"New        " + r.styles.newBadge.Render(Sparkline(v.Activity, MetricNew, sparklineWidth)),
		"Privileged " + r.styles.privileged.Render(Sparkline(v.Activity, MetricPrivileged, sparklineWidth)),
	}, "\n")

	return lipgloss.JoinHorizontal(lipgloss.Top, panels...) + "\n" +
		r.styles.border.Render(activity) + "\n"
}

func (r *Renderer) histogram(title string, counts []Count, limit int) string {
	lines := []string{r.styles.title.Render(title)}

	if len(counts) == 0 {
		return strings.Join(append(lines, r.styles.muted.Render("none")), "\n")
	}

	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}

	maxCount := counts[0].Count
	keyWidth := 0

	for _, c := range counts {
		if len(c.Key) > keyWidth {
			keyWidth = len(c.Key)
		}
	}

	for _, c := range counts {
		n := c.Count * histogramWidth / maxCount
		if n == 0 {
			n = 1
		}

		lines = append(lines, fmt.Sprintf("%-*s %s %d", keyWidth, c.Key,
			r.styles.stats.Render(strings.Repeat("█", n)), c.Count))
	}

	return strings.Join(lines, "\n")
}

func (r *Renderer) alerts(list []alerts.Alert) string {
	if len(list) == 0 {
		return ""
	}

	if len(list) > maxAlertLines {
		list = list[len(list)-maxAlertLines:]
	}

	var b strings.Builder

	for i := range list {
		a := &list[i]

		style := r.styles.normal

		switch a.Type {
		case alerts.TypeCritical:
			style = r.styles.critical
		case alerts.TypeWarning:
			style = r.styles.warning
		}

		line := fmt.Sprintf("%s %s %s", a.Timestamp.Format("15:04:05"), a.Message, a.Hostname)
		if a.Details != "" {
			line += " " + a.Details
		}

		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	return b.String()
}

func (r *Renderer) lost(list []LostRow) string {
	var b strings.Builder

	b.WriteString(r.styles.title.Render("Recently lost"))
	b.WriteString("\n")

	for i := range list {
		l := &list[i]
		b.WriteString(r.styles.dead.Render(fmt.Sprintf("✖ %s [%s] %s lost %s", l.Label, l.ShortID, l.Kind, l.Elapsed)))
		b.WriteString("\n")
	}

	return b.String()
}
