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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musyoka101/sliver-tui/pkg/logger"
	"github.com/musyoka101/sliver-tui/pkg/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadAndValidateJSON(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := writeFile(t, "graph.json", `{
		"monitor": {"refresh_interval": "2s", "lost_retention": "120s"},
		"source": {"type": "file", "path": "/tmp/agents.json"},
		"render": {"theme": "dracula"}
	}`)

	var cfg models.GraphConfig

	require.NoError(t, NewConfig(logger.NewTestLogger()).LoadAndValidate(t.Context(), path, &cfg))

	assert.Equal(t, 2*time.Second, time.Duration(cfg.Monitor.RefreshInterval))
	assert.Equal(t, 120*time.Second, time.Duration(cfg.Monitor.LostRetention))
	assert.Equal(t, 300*time.Second, time.Duration(cfg.Monitor.NewAgentWindow))
	assert.Equal(t, "dracula", cfg.Render.Theme)
}

func TestLoadAndValidateYAML(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "file")

	path := writeFile(t, "graph.yaml", `
monitor:
  refresh_interval: 10s
  strict_identifiers: true
source:
  type: nats
  nats_url: nats://127.0.0.1:4222
`)

	var cfg models.GraphConfig

	require.NoError(t, NewConfig(nil).LoadAndValidate(t.Context(), path, &cfg))

	assert.Equal(t, 10*time.Second, time.Duration(cfg.Monitor.RefreshInterval))
	assert.True(t, cfg.Monitor.StrictIdentifiers)
	assert.Equal(t, "sliver.agents.list", cfg.Source.Subject)
}

func TestLoadAndValidateRejectsInvalid(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown source type", content: `{"source": {"type": "grpc"}}`},
		{name: "file source without path", content: `{"source": {"type": "file"}}`},
		{name: "nats source without url", content: `{"source": {"type": "nats"}}`},
		{
			name:    "first seen retention shorter than window",
			content: `{"source": {"path": "a.json"}, "monitor": {"first_seen_retention": "1m"}}`,
		},
		{name: "bad theme", content: `{"source": {"path": "a.json"}, "render": {"theme": "neon"}}`},
		{name: "bad duration", content: `{"monitor": {"refresh_interval": "soon"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "graph.json", tt.content)

			var cfg models.GraphConfig

			assert.Error(t, NewConfig(logger.NewTestLogger()).LoadAndValidate(t.Context(), path, &cfg))
		})
	}
}

func TestLoadAndValidateUnknownSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "kv")

	var cfg models.GraphConfig

	err := NewConfig(logger.NewTestLogger()).LoadAndValidate(t.Context(), "unused.json", &cfg)
	require.ErrorIs(t, err, errInvalidConfigSource)
}

func TestEnvLoaderFields(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("CONFIG_ENV_PREFIX", "")
	t.Setenv("SLIVER_GRAPH_CONFIG_JSON", "")
	t.Setenv("SLIVER_GRAPH_MONITOR_REFRESH_INTERVAL", "3s")
	t.Setenv("SLIVER_GRAPH_MONITOR_MAX_ALERTS", "7")
	t.Setenv("SLIVER_GRAPH_SOURCE_PATH", "/var/lib/sliver/agents.json")
	t.Setenv("SLIVER_GRAPH_RENDER_HIDE_LOST", "true")
	t.Setenv("SLIVER_GRAPH_LOGGING_LEVEL", "debug")

	var cfg models.GraphConfig

	require.NoError(t, NewConfig(logger.NewTestLogger()).LoadAndValidate(t.Context(), "", &cfg))

	assert.Equal(t, 3*time.Second, time.Duration(cfg.Monitor.RefreshInterval))
	assert.Equal(t, 7, cfg.Monitor.MaxAlerts)
	assert.Equal(t, "/var/lib/sliver/agents.json", cfg.Source.Path)
	assert.True(t, cfg.Render.HideLost)
	require.NotNil(t, cfg.Logging)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvLoaderConfigJSON(t *testing.T) {
	t.Setenv("GRAPH_CONFIG_JSON", `{"source": {"path": "x.json"}, "monitor": {"new_agent_window": "10m"}}`)

	var cfg models.GraphConfig

	require.NoError(t, NewEnvConfigLoader(logger.NewTestLogger(), "GRAPH_").Load(t.Context(), "", &cfg))

	assert.Equal(t, "x.json", cfg.Source.Path)
	assert.Equal(t, 10*time.Minute, time.Duration(cfg.Monitor.NewAgentWindow))
}

func TestEnvLoaderRejectsNonPointer(t *testing.T) {
	loader := NewEnvConfigLoader(nil, "NOPE_")

	require.ErrorIs(t, loader.Load(t.Context(), "", models.GraphConfig{}), ErrDstMustBeNonNilPointer)

	s := "x"
	require.ErrorIs(t, loader.Load(t.Context(), "", &s), ErrDstMustBePointerToStruct)
}
