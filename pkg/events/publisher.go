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

// Package events turns committed snapshots into CloudEvents on JetStream.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/musyoka101/sliver-tui/pkg/alerts"
	"github.com/musyoka101/sliver-tui/pkg/logger"
	"github.com/musyoka101/sliver-tui/pkg/models"
	"github.com/musyoka101/sliver-tui/pkg/monitor"
	"github.com/musyoka101/sliver-tui/pkg/natsutil"
)

const (
	TickEventType  = "io.sliver.graph.tick"
	AlertEventType = "io.sliver.graph.alert"
)

// TickEventData is the payload of a tick event.
type TickEventData struct {
	Sequence     uint64             `json:"sequence"`
	TickAt       time.Time          `json:"tick_at"`
	Stats        models.Stats       `json:"stats"`
	Delta        models.Delta       `json:"delta"`
	RecentlyLost []models.LostAgent `json:"recently_lost,omitempty"`
	Forest       models.Forest      `json:"forest"`
}

// AlertEventData is the payload of an alert event.
type AlertEventData struct {
	Sequence uint64       `json:"sequence"`
	Alert    alerts.Alert `json:"alert"`
}

type eventPublisher interface {
	PublishEvent(ctx context.Context, eventType, subject string, ts time.Time, data interface{}) (uint64, error)
}

// SnapshotPublisher publishes one tick event per snapshot and one alert event
// for every alert raised by that tick.
type SnapshotPublisher struct {
	events       eventPublisher
	subject      string
	alertSubject string
	logger       logger.Logger
	nc           *nats.Conn
}

var _ monitor.Publisher = (*SnapshotPublisher)(nil)

func NewSnapshotPublisher(ep eventPublisher, subject, alertSubject string, log logger.Logger) *SnapshotPublisher {
	return &SnapshotPublisher{
		events:       ep,
		subject:      subject,
		alertSubject: alertSubject,
		logger:       log,
	}
}

// Connect dials NATS, makes sure the stream covers both subjects and returns
// a publisher that owns the connection.
func Connect(ctx context.Context, cfg *models.NATSPublishConfig, log logger.Logger) (*SnapshotPublisher, error) {
	nc, err := natsutil.Connect(cfg.URL, cfg.TLS, log)
	if err != nil {
		return nil, err
	}

	ep, err := natsutil.CreateEventPublisher(ctx, nc, cfg.Domain, cfg.Stream, []string{cfg.Subject, cfg.AlertSubject})
	if err != nil {
		nc.Close()
		return nil, err
	}

	p := NewSnapshotPublisher(ep, cfg.Subject, cfg.AlertSubject, log)
	p.nc = nc

	return p, nil
}

func (*SnapshotPublisher) Name() string { return "nats" }

func (p *SnapshotPublisher) Publish(ctx context.Context, snap *monitor.Snapshot) error {
	data := TickEventData{
		Sequence:     snap.Sequence,
		TickAt:       snap.TickAt,
		Stats:        snap.Stats,
		Delta:        snap.Delta,
		RecentlyLost: snap.RecentlyLost,
		Forest:       snap.Forest,
	}

	seq, err := p.events.PublishEvent(ctx, TickEventType, p.subject, snap.TickAt, data)
	if err != nil {
		return fmt.Errorf("tick %d: %w", snap.Sequence, err)
	}

	p.logger.Debug().Uint64("tick", snap.Sequence).Uint64("stream_seq", seq).Msg("Published tick event")

	for i := range snap.Alerts {
		a := snap.Alerts[i]
		if !a.Timestamp.Equal(snap.TickAt) {
			continue
		}

		if _, err := p.events.PublishEvent(ctx, AlertEventType, p.alertSubject, a.Timestamp,
			AlertEventData{Sequence: snap.Sequence, Alert: a}); err != nil {
			return fmt.Errorf("alert %s: %w", a.ID, err)
		}
	}

	return nil
}

// Close drains the connection when the publisher owns it.
func (p *SnapshotPublisher) Close() error {
	if p.nc == nil {
		return nil
	}

	return p.nc.Drain()
}
