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

// Package monitor runs the refresh loop: fetch records, rebuild the forest,
// update the tracker and publish an immutable snapshot.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/musyoka101/sliver-tui/pkg/alerts"
	"github.com/musyoka101/sliver-tui/pkg/logger"
	"github.com/musyoka101/sliver-tui/pkg/models"
	"github.com/musyoka101/sliver-tui/pkg/normalize"
	"github.com/musyoka101/sliver-tui/pkg/source"
	"github.com/musyoka101/sliver-tui/pkg/stats"
	"github.com/musyoka101/sliver-tui/pkg/topology"
	"github.com/musyoka101/sliver-tui/pkg/tracking"
)

// Monitor owns the tracker and is the only writer of its state.
type Monitor struct {
	config     *models.MonitorConfig
	source     source.Source
	logger     logger.Logger
	clock      Clock
	tracker    *tracking.Tracker
	activity   *tracking.ActivityTracker
	alerts     *alerts.Manager
	enricher   Enricher
	publishers []Publisher
	observers  []FailureObserver

	tickMu   sync.Mutex
	sequence uint64

	snapshot atomic.Pointer[Snapshot]

	errMu   sync.RWMutex
	lastErr error

	runMu     sync.Mutex
	stopped   bool
	done      chan struct{}
	refreshCh chan struct{}
	closeOnce sync.Once
	startWg   sync.WaitGroup
}

type Option func(*Monitor)

func WithClock(c Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

// WithPublishers adds sinks that receive every committed snapshot.
func WithPublishers(p ...Publisher) Option {
	return func(m *Monitor) { m.publishers = append(m.publishers, p...) }
}

func WithFailureObservers(o ...FailureObserver) Option {
	return func(m *Monitor) { m.observers = append(m.observers, o...) }
}

func WithEnricher(e Enricher) Option {
	return func(m *Monitor) { m.enricher = e }
}

// WithAlerts replaces the default alert queue.
func WithAlerts(a *alerts.Manager) Option {
	return func(m *Monitor) { m.alerts = a }
}

// WithTracker replaces the tracker built from the config.
func WithTracker(t *tracking.Tracker) Option {
	return func(m *Monitor) { m.tracker = t }
}

func New(cfg *models.MonitorConfig, src source.Source, log logger.Logger, opts ...Option) (*Monitor, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if src == nil {
		return nil, ErrNilSource
	}

	tracker := tracking.NewTracker(
		tracking.WithLostRetention(time.Duration(cfg.LostRetention)),
		tracking.WithNewAgentWindow(time.Duration(cfg.NewAgentWindow)),
		tracking.WithFirstSeenRetention(time.Duration(cfg.FirstSeenRetention)),
	)

	m := &Monitor{
		config:    cfg,
		source:    src,
		logger:    log,
		clock:     realClock{},
		tracker:   tracker,
		activity:  tracking.NewActivityTracker(time.Duration(cfg.ActivitySampleInterval), cfg.ActivityMaxSamples),
		alerts:    alerts.NewManager(cfg.MaxAlerts),
		done:      make(chan struct{}),
		refreshCh: make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Tick runs one refresh. On failure the tracker, alerts and the stored
// snapshot are left exactly as they were and the error wraps ErrTickAbandoned.
func (m *Monitor) Tick(ctx context.Context) (*Snapshot, error) {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	snap, err := m.tick(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrTickAbandoned, err)

		m.setLastError(err)
		m.logger.Error().Err(err).Msg("Tick abandoned")

		for _, o := range m.observers {
			o.ObserveFailure(err)
		}

		return nil, err
	}

	m.setLastError(nil)
	m.publish(ctx, snap)

	return snap, nil
}

func (m *Monitor) tick(ctx context.Context) (*Snapshot, error) {
	m.logger.Debug().Msg("Tick started")

	batch, err := m.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch agent records: %w", err)
	}

	if batch == nil {
		batch = &models.Batch{}
	}

	now := m.clock.Now()
	records := normalize.Normalize(batch.Sessions, batch.Beacons)

	dups := normalize.DuplicateIDs(records)
	if len(dups) > 0 {
		m.logger.Warn().Strs("ids", dups).Msg("Duplicate agent identifiers in batch")

		if m.config.StrictIdentifiers {
			return nil, fmt.Errorf("%w: %s", normalize.ErrDuplicateIdentifier, strings.Join(dups, ", "))
		}
	}

	forest := topology.BuildForest(records)
	pending := m.tracker.Prepare(forest, now)
	st := stats.Aggregate(forest, now, pending)
	detected := alerts.Detect(pending.Previous, pending.Next.Known, now)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := m.tracker.Commit(pending); err != nil {
		return nil, err
	}

	m.alerts.AddAll(detected)
	m.activity.Record(now, &st)

	novel := make(map[string]bool)

	topology.Walk(forest, func(node *models.TopologyNode, _ int) bool {
		if pending.IsRecent(node.Agent.ID, now) {
			novel[node.Agent.ID] = true
		}

		return true
	})

	m.sequence++

	snap := &Snapshot{
		Sequence:       m.sequence,
		TickAt:         now,
		Forest:         forest,
		Stats:          st,
		Delta:          pending.Delta,
		RecentlyLost:   pending.Next.RecentlyLost(),
		New:            novel,
		Alerts:         m.alerts.Active(now),
		Activity:       m.activity.Samples(),
		Duplicates:     dups,
		NewAgentWindow: m.tracker.NewAgentWindow(),
	}

	if m.enricher != nil {
		snap.Enrichment = m.enricher.EnrichForest(forest)
	}

	m.snapshot.Store(snap)

	if pending.Delta.NewCount > 0 || pending.Delta.LostCount > 0 {
		m.logger.Info().
			Int("new", pending.Delta.NewCount).
			Int("lost", pending.Delta.LostCount).
			Int("agents", st.TotalAgents).
			Msg("Agent membership changed")
	}

	return snap, nil
}

func (m *Monitor) publish(ctx context.Context, snap *Snapshot) {
	for _, p := range m.publishers {
		if err := p.Publish(ctx, snap); err != nil {
			m.logger.Error().Err(err).Str("publisher", p.Name()).Msg("Failed to publish snapshot")
		}
	}
}

// Start ticks once immediately and then every refresh interval until ctx is
// canceled or Stop is called. Ticks never overlap. Start returns nil at once
// if Stop has already been called.
func (m *Monitor) Start(ctx context.Context) error {
	m.runMu.Lock()
	if m.stopped {
		m.runMu.Unlock()
		return nil
	}

	m.startWg.Add(1)
	m.runMu.Unlock()

	defer m.startWg.Done()

	interval := time.Duration(m.config.RefreshInterval)
	ticker := m.clock.Ticker(interval)

	defer ticker.Stop()

	m.logger.Info().Dur("interval", interval).Msg("Starting monitor")

	_, _ = m.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return nil
		case <-ticker.Chan():
			_, _ = m.Tick(ctx)
		case <-m.refreshCh:
			_, _ = m.Tick(ctx)
		}
	}
}

// Stop ends the loop started by Start and waits for it to return, or for ctx
// to be done. A tick blocked in the source keeps running until the context
// passed to Start is canceled.
func (m *Monitor) Stop(ctx context.Context) error {
	m.runMu.Lock()
	m.stopped = true
	m.closeOnce.Do(func() {
		close(m.done)
	})
	m.runMu.Unlock()

	waited := make(chan struct{})

	go func() {
		m.startWg.Wait()
		close(waited)
	}()

	select {
	case <-waited:
	case <-ctx.Done():
		return fmt.Errorf("monitor stop: %w", ctx.Err())
	}

	m.logger.Info().Msg("Monitor stopped")

	return nil
}

// Refresh asks the running loop for an out-of-band tick. It never blocks.
func (m *Monitor) Refresh() {
	select {
	case m.refreshCh <- struct{}{}:
	default:
	}
}

// Snapshot returns the last committed snapshot, or nil before the first tick.
func (m *Monitor) Snapshot() *Snapshot {
	return m.snapshot.Load()
}

// LastError returns the error of the most recent tick, nil if it succeeded.
func (m *Monitor) LastError() error {
	m.errMu.RLock()
	defer m.errMu.RUnlock()

	return m.lastErr
}

// Healthy reports whether at least one tick committed and the last one succeeded.
func (m *Monitor) Healthy() bool {
	return m.Snapshot() != nil && m.LastError() == nil
}

func (m *Monitor) setLastError(err error) {
	m.errMu.Lock()
	m.lastErr = err
	m.errMu.Unlock()
}
