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

// Package logger provides JSON structured logging using zerolog
package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const fileOutputPrefix = "file:"

var (
	errEmptyLogPath = errors.New("log output file path is empty")

	filesMu   sync.Mutex
	openFiles = make(map[string]*os.File)
)

type Config struct {
	Level      string     `json:"level" yaml:"level"`
	Debug      bool       `json:"debug" yaml:"debug"`
	Output     string     `json:"output" yaml:"output"` // stdout, stderr, discard or file:<path>
	TimeFormat string     `json:"time_format" yaml:"time_format"`
	OTel       OTelConfig `json:"otel" yaml:"otel"`
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

// OpenOutput resolves a Config.Output value to a writer.
// File outputs are shared per path and stay open until Shutdown.
func OpenOutput(output string) (io.Writer, error) {
	switch {
	case output == "" || output == "stdout":
		return os.Stdout, nil
	case output == "stderr":
		return os.Stderr, nil
	case output == "discard":
		return io.Discard, nil
	case strings.HasPrefix(output, fileOutputPrefix):
		path := strings.TrimPrefix(output, fileOutputPrefix)
		if path == "" {
			return nil, errEmptyLogPath
		}

		return openFile(path)
	default:
		return os.Stdout, nil
	}
}

func openFile(path string) (*os.File, error) {
	filesMu.Lock()
	defer filesMu.Unlock()

	if f, ok := openFiles[path]; ok {
		return f, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	openFiles[path] = f

	return f, nil
}

func closeFiles() error {
	filesMu.Lock()
	defer filesMu.Unlock()

	var errs []error

	for path, f := range openFiles {
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close log file %s: %w", path, err))
		}

		delete(openFiles, path)
	}

	return errors.Join(errs...)
}

// ParseLevel returns the zerolog level for the config, Debug taking precedence.
func ParseLevel(config *Config) (zerolog.Level, error) {
	if config.Debug {
		return zerolog.DebugLevel, nil
	}

	if config.Level == "" {
		return zerolog.InfoLevel, nil
	}

	return zerolog.ParseLevel(config.Level)
}

// Init points the zerolog/log package logger at the configured output so
// libraries logging through it honor the same level and destination.
func Init(config *Config) error {
	output, err := OpenOutput(config.Output)
	if err != nil {
		return err
	}

	level, err := ParseLevel(config)
	if err != nil {
		return err
	}

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	log.Logger = zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	return nil
}

// Shutdown flushes the OTel exporter if one was started and closes file outputs.
func Shutdown() error {
	return errors.Join(ShutdownOTEL(), closeFiles())
}
