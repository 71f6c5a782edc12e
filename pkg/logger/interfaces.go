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

package logger

import (
	"io"

	"github.com/rs/zerolog"
)

// Logger is the logging surface injected into every sliver-graph component.
type Logger interface {
	Trace() *zerolog.Event
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
	Fatal() *zerolog.Event
	Panic() *zerolog.Event
	With() zerolog.Context
	WithComponent(component string) zerolog.Logger
	WithFields(fields map[string]interface{}) zerolog.Logger
	SetLevel(level zerolog.Level)
	SetDebug(debug bool)
}

// zerologAdapter lets a plain zerolog.Logger satisfy Logger.
type zerologAdapter struct {
	zl zerolog.Logger
}

// New wraps an existing zerolog logger.
func New(zl zerolog.Logger) Logger {
	return &zerologAdapter{zl: zl}
}

// NewWriterLogger returns a Logger writing JSON lines to w, used by tests that inspect output.
func NewWriterLogger(w io.Writer, level zerolog.Level) Logger {
	return &zerologAdapter{zl: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

func (z *zerologAdapter) Trace() *zerolog.Event { return z.zl.Trace() }
func (z *zerologAdapter) Debug() *zerolog.Event { return z.zl.Debug() }
func (z *zerologAdapter) Info() *zerolog.Event  { return z.zl.Info() }
func (z *zerologAdapter) Warn() *zerolog.Event  { return z.zl.Warn() }
func (z *zerologAdapter) Error() *zerolog.Event { return z.zl.Error() }
func (z *zerologAdapter) Fatal() *zerolog.Event { return z.zl.Fatal() }
func (z *zerologAdapter) Panic() *zerolog.Event { return z.zl.Panic() }
func (z *zerologAdapter) With() zerolog.Context { return z.zl.With() }

func (z *zerologAdapter) WithComponent(component string) zerolog.Logger {
	return z.zl.With().Str("component", component).Logger()
}

func (z *zerologAdapter) WithFields(fields map[string]interface{}) zerolog.Logger {
	return z.zl.With().Fields(fields).Logger()
}

func (z *zerologAdapter) SetLevel(level zerolog.Level) { z.zl = z.zl.Level(level) }

func (z *zerologAdapter) SetDebug(debug bool) {
	if debug {
		z.SetLevel(zerolog.DebugLevel)
		return
	}

	z.SetLevel(zerolog.InfoLevel)
}

// NewTestLogger creates a no-op logger for testing that discards all output
func NewTestLogger() Logger {
	return &zerologAdapter{zl: zerolog.New(io.Discard).Level(zerolog.Disabled)}
}
