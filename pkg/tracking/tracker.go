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

// Package tracking keeps the cross-tick memory of which agents were seen,
// when they first appeared and which ones recently dropped out.
package tracking

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/musyoka101/sliver-tui/pkg/models"
	"github.com/musyoka101/sliver-tui/pkg/topology"
)

const (
	DefaultLostRetention      = 300 * time.Second
	DefaultNewAgentWindow     = 300 * time.Second
	DefaultFirstSeenRetention = time.Hour
)

// ErrStaleUpdate is returned when a pending update was prepared against a
// state that has since been replaced.
var ErrStaleUpdate = errors.New("tracker state changed since update was prepared")

// State is one immutable generation of tracker memory. A State is never
// modified after it has been committed.
type State struct {
	Known     map[string]models.AgentRecord
	FirstSeen map[string]time.Time
	Lost      map[string]models.LostAgent
}

func emptyState() *State {
	return &State{
		Known:     map[string]models.AgentRecord{},
		FirstSeen: map[string]time.Time{},
		Lost:      map[string]models.LostAgent{},
	}
}

// IsRecent reports whether id was first seen less than window before now.
func (s *State) IsRecent(id string, now time.Time, window time.Duration) bool {
	first, ok := s.FirstSeen[id]
	if !ok {
		return false
	}

	return now.Sub(first) < window
}

// RecentlyLost lists lost agents, most recent loss first, ties by ID.
func (s *State) RecentlyLost() []models.LostAgent {
	out := make([]models.LostAgent, 0, len(s.Lost))
	for _, l := range s.Lost {
		out = append(out, l)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LostAt.Equal(out[j].LostAt) {
			return out[i].LostAt.After(out[j].LostAt)
		}

		return out[i].Agent.ID < out[j].Agent.ID
	})

	return out
}

// Tracker owns the temporal state. It has a single writer (the tick loop)
// and any number of snapshot readers; each update swaps in a whole new State.
type Tracker struct {
	mu    sync.RWMutex
	state *State

	lostRetention      time.Duration
	newAgentWindow     time.Duration
	firstSeenRetention time.Duration
}

type Option func(*Tracker)

// WithLostRetention sets how long a lost agent is remembered.
func WithLostRetention(d time.Duration) Option {
	return func(t *Tracker) { t.lostRetention = d }
}

// WithNewAgentWindow sets how long an agent counts as new after first sighting.
func WithNewAgentWindow(d time.Duration) Option {
	return func(t *Tracker) { t.newAgentWindow = d }
}

// WithFirstSeenRetention bounds first-seen memory for agents that are no
// longer known or lost. Zero or negative keeps entries forever.
func WithFirstSeenRetention(d time.Duration) Option {
	return func(t *Tracker) { t.firstSeenRetention = d }
}

// WithState seeds the tracker, e.g. with a fabricated previous tick in tests.
func WithState(s *State) Option {
	return func(t *Tracker) {
		if s != nil {
			t.state = s
		}
	}
}

func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		state:              emptyState(),
		lostRetention:      DefaultLostRetention,
		newAgentWindow:     DefaultNewAgentWindow,
		firstSeenRetention: DefaultFirstSeenRetention,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Pending is a computed but not yet visible update.
type Pending struct {
	base     *State
	Next     *State
	Previous map[string]models.AgentRecord
	Delta    models.Delta
	Now      time.Time
	window   time.Duration
}

// IsRecent answers novelty against the pending state.
func (p *Pending) IsRecent(id string, now time.Time) bool {
	return p.Next.IsRecent(id, now, p.window)
}

// Prepare computes the next state for forest at now without publishing it.
func (t *Tracker) Prepare(forest models.Forest, now time.Time) *Pending {
	base := t.current()
	current := topology.Flatten(forest)

	next := &State{
		Known:     current,
		FirstSeen: make(map[string]time.Time, len(base.FirstSeen)+len(current)),
		Lost:      make(map[string]models.LostAgent, len(base.Lost)),
	}

	for id, ts := range base.FirstSeen {
		next.FirstSeen[id] = ts
	}

	var delta models.Delta

	for id := range current {
		if _, seen := base.Known[id]; seen {
			continue
		}

		delta.NewIDs = append(delta.NewIDs, id)

		if _, ok := next.FirstSeen[id]; !ok {
			next.FirstSeen[id] = now
		}
	}

	for id, lost := range base.Lost {
		if _, back := current[id]; back {
			continue
		}

		next.Lost[id] = lost
	}

	for id, rec := range base.Known {
		if _, still := current[id]; still {
			continue
		}

		delta.LostIDs = append(delta.LostIDs, id)
		next.Lost[id] = models.LostAgent{Agent: rec, LostAt: now}
	}

	for id, lost := range next.Lost {
		if now.Sub(lost.LostAt) >= t.lostRetention {
			delete(next.Lost, id)
		}
	}

	if t.firstSeenRetention > 0 {
		for id, ts := range next.FirstSeen {
			_, known := next.Known[id]
			_, lost := next.Lost[id]

			if !known && !lost && now.Sub(ts) >= t.firstSeenRetention {
				delete(next.FirstSeen, id)
			}
		}
	}

	sort.Strings(delta.NewIDs)
	sort.Strings(delta.LostIDs)
	delta.NewCount = len(delta.NewIDs)
	delta.LostCount = len(delta.LostIDs)

	return &Pending{
		base:     base,
		Next:     next,
		Previous: base.Known,
		Delta:    delta,
		Now:      now,
		window:   t.newAgentWindow,
	}
}

// Commit publishes a prepared update. It fails if another commit happened
// after p was prepared, leaving the state untouched.
func (t *Tracker) Commit(p *Pending) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != p.base {
		return ErrStaleUpdate
	}

	t.state = p.Next

	return nil
}

// Update prepares and commits in one step.
func (t *Tracker) Update(forest models.Forest, now time.Time) models.Delta {
	for {
		p := t.Prepare(forest, now)
		if err := t.Commit(p); err == nil {
			return p.Delta
		}
	}
}

func (t *Tracker) current() *State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.state
}

// State returns the committed state. Callers must not modify it.
func (t *Tracker) State() *State {
	return t.current()
}

// IsRecent reports whether id was first seen within the new-agent window.
func (t *Tracker) IsRecent(id string, now time.Time) bool {
	return t.current().IsRecent(id, now, t.newAgentWindow)
}

// RecentlyLost returns the committed lost registry, most recent first.
func (t *Tracker) RecentlyLost() []models.LostAgent {
	return t.current().RecentlyLost()
}

// Known returns a copy of the last committed identifier set.
func (t *Tracker) Known() map[string]models.AgentRecord {
	known := t.current().Known
	out := make(map[string]models.AgentRecord, len(known))

	for id, rec := range known {
		out[id] = rec
	}

	return out
}

// NewAgentWindow returns the configured novelty window.
func (t *Tracker) NewAgentWindow() time.Duration {
	return t.newAgentWindow
}
