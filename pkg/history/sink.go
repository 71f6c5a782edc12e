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

// Package history writes one activity row per committed tick to
// PostgreSQL/Timescale.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/musyoka101/sliver-tui/pkg/logger"
	"github.com/musyoka101/sliver-tui/pkg/models"
	"github.com/musyoka101/sliver-tui/pkg/monitor"
)

var errEmptyTable = errors.New("history table name is empty")

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Sink is a monitor.Publisher backed by a pgx pool.
type Sink struct {
	db     execer
	table  string
	logger logger.Logger
	pool   *pgxpool.Pool
}

var _ monitor.Publisher = (*Sink)(nil)

// NewSink wraps db. The table name is quoted as an identifier.
func NewSink(db execer, table string, log logger.Logger) (*Sink, error) {
	if table == "" {
		return nil, errEmptyTable
	}

	return &Sink{
		db:     db,
		table:  pgx.Identifier{table}.Sanitize(),
		logger: log,
	}, nil
}

// Open dials the database, creates the table if needed and returns a sink
// that owns the pool.
func Open(ctx context.Context, cfg *models.HistoryConfig, log logger.Logger) (*Sink, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("history: failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("history: failed to initialize pool: %w", err)
	}

	sink, err := NewSink(pool, cfg.Table, log)
	if err != nil {
		pool.Close()
		return nil, err
	}

	sink.pool = pool

	if err := sink.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info().
		Str("host", poolConfig.ConnConfig.Host).
		Str("table", cfg.Table).
		Msg("Connected to history database")

	return sink, nil
}

// EnsureSchema creates the activity table.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		tick_at      TIMESTAMPTZ NOT NULL,
		sequence     BIGINT      NOT NULL,
		total_agents INTEGER     NOT NULL,
		sessions     INTEGER     NOT NULL,
		beacons      INTEGER     NOT NULL,
		privileged   INTEGER     NOT NULL,
		new_agents   INTEGER     NOT NULL,
		lost_agents  INTEGER     NOT NULL,
		dead_agents  INTEGER     NOT NULL,
		unique_hosts INTEGER     NOT NULL,
		protocols    JSONB       NOT NULL DEFAULT '{}'::jsonb,
		PRIMARY KEY (tick_at, sequence)
	)`, s.table)); err != nil {
		return fmt.Errorf("history: failed to create table %s: %w", s.table, err)
	}

	return nil
}

func (*Sink) Name() string { return "history" }

// Publish inserts the snapshot's activity row. Replays of the same tick are ignored.
func (s *Sink) Publish(ctx context.Context, snap *monitor.Snapshot) error {
	protocols, err := json.Marshal(snap.Stats.Protocols)
	if err != nil {
		return fmt.Errorf("history: marshal protocols: %w", err)
	}

	_, err = s.db.Exec(ctx, fmt.Sprintf(`INSERT INTO %s
		(tick_at, sequence, total_agents, sessions, beacons, privileged, new_agents, lost_agents, dead_agents, unique_hosts, protocols)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (tick_at, sequence) DO NOTHING`, s.table),
		snap.TickAt,
		int64(snap.Sequence),
		snap.Stats.TotalAgents,
		snap.Stats.Sessions,
		snap.Stats.Beacons,
		snap.Stats.Privileged,
		snap.Stats.NewAgents,
		len(snap.RecentlyLost),
		snap.Stats.DeadAgents,
		snap.Stats.UniqueHosts,
		protocols,
	)
	if err != nil {
		return fmt.Errorf("history: insert tick %d: %w", snap.Sequence, err)
	}

	return nil
}

// Close releases the pool when the sink owns it.
func (s *Sink) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}

	return nil
}
