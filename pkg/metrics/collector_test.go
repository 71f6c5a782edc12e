package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musyoka101/sliver-tui/pkg/alerts"
	"github.com/musyoka101/sliver-tui/pkg/models"
	"github.com/musyoka101/sliver-tui/pkg/monitor"
)

var errTick = errors.New("fetch failed")

func snapshotWith(protocols map[string]int) *monitor.Snapshot {
	return &monitor.Snapshot{
		Sequence: 1,
		TickAt:   time.Unix(1_700_000_000, 0),
		Stats: models.Stats{
			TotalAgents: 5, Sessions: 2, Beacons: 3, Privileged: 1, Windows: 3, Linux: 2,
			Protocols: protocols, NewAgents: 4, DeadAgents: 1, UniqueHosts: 4,
		},
		RecentlyLost: []models.LostAgent{{}, {}},
		Alerts:       []alerts.Alert{{ID: "a"}},
	}
}

func TestCollectorPublish(t *testing.T) {
	c := NewCollector()
	assert.Equal(t, "metrics", c.Name())

	require.NoError(t, c.Publish(context.Background(), snapshotWith(map[string]int{"MTLS": 3, "HTTP": 2})))

	assert.InDelta(t, 5, testutil.ToFloat64(c.AgentsTotal), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(c.AgentsByKind.WithLabelValues("session")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(c.AgentsByKind.WithLabelValues("beacon")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(c.AgentsByOS.WithLabelValues("windows")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(c.AgentsByProto.WithLabelValues("MTLS")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(c.LostTotal), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.ActiveAlerts), 0)
	assert.InDelta(t, 1_700_000_000, testutil.ToFloat64(c.LastTick), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.TicksTotal.WithLabelValues(resultSuccess)), 0)
}

func TestCollectorDropsStaleTransports(t *testing.T) {
	c := NewCollector()

	require.NoError(t, c.Publish(context.Background(), snapshotWith(map[string]int{"MTLS": 3, "DNS": 2})))
	require.NoError(t, c.Publish(context.Background(), snapshotWith(map[string]int{"MTLS": 5})))

	assert.Equal(t, 1, testutil.CollectAndCount(c.AgentsByProto))
	assert.InDelta(t, 5, testutil.ToFloat64(c.AgentsByProto.WithLabelValues("MTLS")), 0)
}

func TestCollectorObserveFailure(t *testing.T) {
	c := NewCollector()

	c.ObserveFailure(errTick)
	c.ObserveFailure(errTick)

	assert.InDelta(t, 2, testutil.ToFloat64(c.TicksTotal.WithLabelValues(resultFailure)), 0)
}

func TestCollectorHandler(t *testing.T) {
	c := NewCollector()
	require.NoError(t, c.Publish(context.Background(), snapshotWith(nil)))

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "sliver_graph_agents_total 5")
	assert.Contains(t, string(body), `sliver_graph_ticks_total{result="success"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
	assert.NotNil(t, c.Registry())
}
