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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/musyoka101/sliver-tui/pkg/config"
	"github.com/musyoka101/sliver-tui/pkg/enrich"
	"github.com/musyoka101/sliver-tui/pkg/events"
	"github.com/musyoka101/sliver-tui/pkg/history"
	"github.com/musyoka101/sliver-tui/pkg/logger"
	"github.com/musyoka101/sliver-tui/pkg/metrics"
	"github.com/musyoka101/sliver-tui/pkg/models"
	"github.com/musyoka101/sliver-tui/pkg/monitor"
	"github.com/musyoka101/sliver-tui/pkg/render"
	"github.com/musyoka101/sliver-tui/pkg/source"
	"github.com/musyoka101/sliver-tui/pkg/status"
	"github.com/musyoka101/sliver-tui/pkg/tui"
	"github.com/musyoka101/sliver-tui/pkg/version"
)

func loadConfig(ctx context.Context, path string) (*models.GraphConfig, error) {
	cfg := models.DefaultGraphConfig()

	if err := config.NewConfig(nil).LoadAndValidate(ctx, path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loggingConfig keeps the alternate screen clean: in interactive mode only
// file outputs are honored.
func loggingConfig(cfg *logger.Config, interactive bool) *logger.Config {
	out := logger.DefaultConfig()
	if cfg != nil {
		c := *cfg
		out = &c
	}

	if interactive && !strings.HasPrefix(out.Output, "file:") {
		out.Output = "discard"
	}

	return out
}

// monitorHandle lets components built before the monitor read from it.
type monitorHandle struct {
	mon atomic.Pointer[monitor.Monitor]
}

func (h *monitorHandle) Snapshot() *monitor.Snapshot {
	if m := h.mon.Load(); m != nil {
		return m.Snapshot()
	}

	return nil
}

func (h *monitorHandle) LastError() error {
	if m := h.mon.Load(); m != nil {
		return m.LastError()
	}

	return nil
}

func (h *monitorHandle) Refresh() {
	if m := h.mon.Load(); m != nil {
		m.Refresh()
	}
}

type app struct {
	cfg     *models.GraphConfig
	logger  logger.Logger
	monitor *monitor.Monitor
	status  *status.Server
	closers []io.Closer
}

func newApp(ctx context.Context, cfg *models.GraphConfig, log logger.Logger, handle *monitorHandle,
	extra ...monitor.Publisher) (*app, error) {
	a := &app{cfg: cfg, logger: log}

	built := false

	defer func() {
		if !built {
			a.Close()
		}
	}()

	src, err := source.New(&cfg.Source, log)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}

	a.closers = append(a.closers, src)

	enricher, err := enrich.New(cfg.Enrich.GeoIPDB, log)
	if err != nil {
		return nil, fmt.Errorf("enrich: %w", err)
	}

	a.closers = append(a.closers, enricher)

	collector := metrics.NewCollector()
	publishers := []monitor.Publisher{collector}
	observers := []monitor.FailureObserver{collector}

	if cfg.Status.ListenAddr != "" || cfg.Status.GRPCAddr != "" {
		a.status = status.NewServer(&cfg.Status, handle, log, status.WithMetricsHandler(collector.Handler()))
		publishers = append(publishers, a.status)
		observers = append(observers, a.status)
	}

	if cfg.Publish.NATS.Enabled {
		pub, err := events.Connect(ctx, &cfg.Publish.NATS, log)
		if err != nil {
			return nil, fmt.Errorf("nats publisher: %w", err)
		}

		a.closers = append(a.closers, pub)
		publishers = append(publishers, pub)
	}

	if cfg.Publish.History.Enabled {
		sink, err := history.Open(ctx, &cfg.Publish.History, log)
		if err != nil {
			return nil, fmt.Errorf("history sink: %w", err)
		}

		a.closers = append(a.closers, sink)
		publishers = append(publishers, sink)
	}

	for _, p := range extra {
		publishers = append(publishers, p)

		if o, ok := p.(monitor.FailureObserver); ok {
			observers = append(observers, o)
		}
	}

	mon, err := monitor.New(&cfg.Monitor, src, log,
		monitor.WithEnricher(enricher),
		monitor.WithPublishers(publishers...),
		monitor.WithFailureObservers(observers...),
	)
	if err != nil {
		return nil, err
	}

	a.monitor = mon
	handle.mon.Store(mon)

	log.Info().
		Str("version", version.GetFullVersion()).
		Str("source", cfg.Source.Type).
		Int("publishers", len(publishers)).
		Msg("sliver-graph initialized")

	built = true

	return a, nil
}

// serve runs the tick loop and the optional status listeners until ctx ends.
func (a *app) serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.monitor.Start(ctx)
	})

	if a.status != nil {
		g.Go(func() error {
			return a.status.Run(ctx)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func (a *app) Close() {
	if a.monitor != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.monitor.Stop(stopCtx); err != nil {
			a.logger.Warn().Err(err).Msg("Monitor stop failed")
		}
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Close failed")
		}
	}
}

func runOnce(ctx context.Context, cfg *models.GraphConfig, log logger.Logger, w io.Writer) error {
	a, err := newApp(ctx, cfg, log, &monitorHandle{})
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.monitor.Tick(ctx)
	if err != nil {
		return err
	}

	r, err := render.NewRenderer(w, cfg.Render.Theme, render.WithHideLost(cfg.Render.HideLost))
	if err != nil {
		return err
	}

	v := render.Project(snap, time.Now())

	_, err = fmt.Fprint(w, r.Render(&v, render.ModeTree))

	return err
}

func runHeadless(ctx context.Context, cfg *models.GraphConfig, log logger.Logger) error {
	a, err := newApp(ctx, cfg, log, &monitorHandle{})
	if err != nil {
		return err
	}
	defer a.Close()

	return a.serve(ctx)
}

func runTUI(ctx context.Context, cfg *models.GraphConfig, log logger.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r, err := render.NewRenderer(os.Stdout, cfg.Render.Theme, render.WithHideLost(cfg.Render.HideLost))
	if err != nil {
		return err
	}

	handle := &monitorHandle{}
	program := tea.NewProgram(tui.New(handle, r, log), tea.WithAltScreen(), tea.WithContext(ctx))

	a, err := newApp(ctx, cfg, log, handle, tui.NewPublisher(program))
	if err != nil {
		return err
	}
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()

		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		return a.serve(gctx)
	})

	return g.Wait()
}
