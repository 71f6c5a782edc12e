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

// Package render projects a snapshot into display rows and renders them as
// styled terminal text.
package render

import (
	"fmt"
	"sort"
	"time"

	"github.com/musyoka101/sliver-tui/pkg/alerts"
	"github.com/musyoka101/sliver-tui/pkg/classify"
	"github.com/musyoka101/sliver-tui/pkg/models"
	"github.com/musyoka101/sliver-tui/pkg/monitor"
	"github.com/musyoka101/sliver-tui/pkg/tracking"
)

const (
	Title           = "Sliver C2 Network Topology"
	unknownHostname = "Unknown"
	noSubnet        = "unknown"
)

// Row is one agent line of the tree.
type Row struct {
	Depth         int
	Last          bool // last child of its parent
	ID            string
	ShortID       string
	Label         string // user@host
	Kind          models.AgentKind
	OS            string
	OSFamily      classify.OSFamily
	Liveness      classify.Liveness
	Privileged    bool
	New           bool
	Protocol      classify.ProtocolClass
	Transport     string
	RemoteAddress string
	Domain        string
	Subnet        string
	Country       string
	TasksPending  int64
}

// LostRow is one entry of the recently-lost section.
type LostRow struct {
	ID      string
	ShortID string
	Label   string
	Kind    models.AgentKind
	LostAt  time.Time
	Elapsed string
}

// Header summarizes the tick the view was built from.
type Header struct {
	Title    string
	Sequence uint64
	TickAt   time.Time
	Waiting  bool // no tick committed yet
}

// Footer is the single-line statistics summary.
type Footer struct {
	Stats models.Stats
	Text  string
}

// Count is a labeled counter for histograms.
type Count struct {
	Key   string
	Count int
}

// View is everything a renderer needs; it holds no styling.
type View struct {
	Header    Header
	Rows      []Row
	Footer    Footer
	Lost      []LostRow
	Changes   string
	Protocols []Count
	Subnets   []Count
	Alerts    []alerts.Alert
	Activity  []tracking.ActivitySample
}

// Empty reports whether there are no agents to draw.
func (v *View) Empty() bool {
	return len(v.Rows) == 0
}

// Project builds the view for snap. Elapsed times are relative to now.
func Project(snap *monitor.Snapshot, now time.Time) View {
	if snap == nil {
		return View{Header: Header{Title: Title, Waiting: true}}
	}

	v := View{
		Header: Header{
			Title:    Title,
			Sequence: snap.Sequence,
			TickAt:   snap.TickAt,
		},
		Footer: Footer{
			Stats: snap.Stats,
			Text:  FooterText(&snap.Stats),
		},
		Changes:  ChangesText(snap.Delta),
		Alerts:   snap.Alerts,
		Activity: snap.Activity,
	}

	subnets := make(map[string]int)

	for i := range snap.Forest {
		v.Rows = appendRows(v.Rows, snap, &snap.Forest[i], 0, true)
	}

	for i := range v.Rows {
		key := v.Rows[i].Subnet
		if key == "" {
			key = noSubnet
		}

		subnets[key]++
	}

	v.Subnets = sortedCounts(subnets)
	v.Protocols = sortedCounts(snap.Stats.Protocols)

	for _, l := range snap.RecentlyLost {
		v.Lost = append(v.Lost, LostRow{
			ID:      l.Agent.ID,
			ShortID: l.Agent.ShortID(),
			Label:   label(&l.Agent),
			Kind:    l.Agent.Kind,
			LostAt:  l.LostAt,
			Elapsed: FormatElapsed(now.Sub(l.LostAt)),
		})
	}

	sort.SliceStable(v.Lost, func(i, j int) bool {
		if !v.Lost[i].LostAt.Equal(v.Lost[j].LostAt) {
			return v.Lost[i].LostAt.After(v.Lost[j].LostAt)
		}

		return v.Lost[i].ID < v.Lost[j].ID
	})

	return v
}

func appendRows(rows []Row, snap *monitor.Snapshot, node *models.TopologyNode, depth int, last bool) []Row {
	a := &node.Agent
	info := snap.Enrichment[a.ID]

	row := Row{
		Depth:         depth,
		Last:          last,
		ID:            a.ID,
		ShortID:       a.ShortID(),
		Label:         label(a),
		Kind:          a.Kind,
		OS:            a.OS,
		OSFamily:      classify.Family(a.OS),
		Liveness:      classify.Status(a.IsDead),
		Privileged:    classify.IsPrivileged(a.Username, a.UID, a.OS),
		New:           snap.IsNew(a.ID),
		Protocol:      classify.ProtocolOf(a.Transport),
		Transport:     classify.ProtocolKey(a.Transport),
		RemoteAddress: a.RemoteAddress,
		Domain:        info.Domain,
		Subnet:        info.Subnet,
		Country:       info.Country,
	}

	if a.Kind == models.KindBeacon && a.TasksCount > a.TasksCompleted {
		row.TasksPending = a.TasksCount - a.TasksCompleted
	}

	rows = append(rows, row)

	for i := range node.Children {
		rows = appendRows(rows, snap, &node.Children[i], depth+1, i == len(node.Children)-1)
	}

	return rows
}

func label(a *models.AgentRecord) string {
	host := a.Hostname
	if host == "" {
		host = unknownHostname
	}

	return a.Username + "@" + host
}

func sortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, n := range m {
		out = append(out, Count{Key: k, Count: n})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}

		return out[i].Key < out[j].Key
	})

	return out
}

// FormatElapsed renders d as "<n>s ago" under a minute and "<n>m ago"
// otherwise, truncating. Negative durations count as zero.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	if d < time.Minute {
		return fmt.Sprintf("%ds ago", int(d/time.Second))
	}

	return fmt.Sprintf("%dm ago", int(d/time.Minute))
}

// FooterText is the one-line statistics summary.
func FooterText(s *models.Stats) string {
	return fmt.Sprintf("Agents: %d (%d sessions, %d beacons) | Hosts: %d | Privileged: %d | Windows: %d Linux: %d Other: %d | New: %d | Dead: %d",
		s.TotalAgents, s.Sessions, s.Beacons, s.UniqueHosts, s.Privileged,
		s.Windows, s.Linux, s.OtherOS, s.NewAgents, s.DeadAgents)
}

// ChangesText describes the per-tick delta, or "" when nothing changed.
func ChangesText(d models.Delta) string {
	switch {
	case d.NewCount > 0 && d.LostCount > 0:
		return fmt.Sprintf("+%d new, -%d lost", d.NewCount, d.LostCount)
	case d.NewCount > 0:
		return fmt.Sprintf("+%d new", d.NewCount)
	case d.LostCount > 0:
		return fmt.Sprintf("-%d lost", d.LostCount)
	default:
		return ""
	}
}
