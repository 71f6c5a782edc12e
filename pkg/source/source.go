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

// Package source fetches raw session and beacon records once per tick.
package source

//go:generate mockgen -destination=mock_source.go -package=source github.com/musyoka101/sliver-tui/pkg/source Source

import (
	"context"
	"fmt"
	"time"

	"github.com/musyoka101/sliver-tui/pkg/logger"
	"github.com/musyoka101/sliver-tui/pkg/models"
)

// Source yields the current agent records.
type Source interface {
	Fetch(ctx context.Context) (*models.Batch, error)
	Close() error
}

// New builds the source selected by cfg.
func New(cfg *models.SourceConfig, log logger.Logger) (Source, error) {
	switch cfg.Type {
	case models.SourceTypeFile, "":
		if cfg.Path != "" {
			return NewFileSource(cfg.Path, log), nil
		}

		if cfg.SessionsPath == "" || cfg.BeaconsPath == "" {
			return nil, ErrNoPath
		}

		return NewSplitFileSource(cfg.SessionsPath, cfg.BeaconsPath, log), nil
	case models.SourceTypeNATS:
		return DialNATS(cfg.NATSURL, cfg.Subject, time.Duration(cfg.Timeout), cfg.TLS, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)
	}
}
