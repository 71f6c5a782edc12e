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

// Package metrics exposes per-tick statistics as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/musyoka101/sliver-tui/pkg/monitor"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Collector holds every metric on its own registry. It implements
// monitor.Publisher and monitor.FailureObserver.
type Collector struct {
	AgentsTotal     prometheus.Gauge
	AgentsByKind    *prometheus.GaugeVec
	AgentsByOS      *prometheus.GaugeVec
	AgentsByProto   *prometheus.GaugeVec
	PrivilegedTotal prometheus.Gauge
	DeadTotal       prometheus.Gauge
	NewTotal        prometheus.Gauge
	LostTotal       prometheus.Gauge
	UniqueHosts     prometheus.Gauge
	ActiveAlerts    prometheus.Gauge
	LastTick        prometheus.Gauge
	TicksTotal      *prometheus.CounterVec

	registry *prometheus.Registry
}

var (
	_ monitor.Publisher       = (*Collector)(nil)
	_ monitor.FailureObserver = (*Collector)(nil)
)

// NewCollector registers all metrics plus the Go runtime collectors.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	f := promauto.With(reg)

	return &Collector{
		AgentsTotal: f.NewGauge(prometheus.GaugeOpts{
			Name: "sliver_graph_agents_total",
			Help: "Agents in the current forest",
		}),
		AgentsByKind: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sliver_graph_agents",
			Help: "Agents in the current forest by kind",
		}, []string{"kind"}),
		AgentsByOS: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sliver_graph_agents_by_os",
			Help: "Agents by operating system family",
		}, []string{"family"}),
		AgentsByProto: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sliver_graph_agents_by_transport",
			Help: "Agents by uppercased transport",
		}, []string{"transport"}),
		PrivilegedTotal: f.NewGauge(prometheus.GaugeOpts{
			Name: "sliver_graph_privileged_agents",
			Help: "Agents running with elevated privileges",
		}),
		DeadTotal: f.NewGauge(prometheus.GaugeOpts{
			Name: "sliver_graph_dead_agents",
			Help: "Agents reported dead by the server",
		}),
		NewTotal: f.NewGauge(prometheus.GaugeOpts{
			Name: "sliver_graph_new_agents",
			Help: "Agents inside the new-agent window",
		}),
		LostTotal: f.NewGauge(prometheus.GaugeOpts{
			Name: "sliver_graph_recently_lost_agents",
			Help: "Agents in the recently-lost registry",
		}),
		UniqueHosts: f.NewGauge(prometheus.GaugeOpts{
			Name: "sliver_graph_unique_hosts",
			Help: "Distinct non-empty hostnames, case-insensitive",
		}),
		ActiveAlerts: f.NewGauge(prometheus.GaugeOpts{
			Name: "sliver_graph_active_alerts",
			Help: "Alerts not yet expired",
		}),
		LastTick: f.NewGauge(prometheus.GaugeOpts{
			Name: "sliver_graph_last_tick_timestamp_seconds",
			Help: "Unix time of the last committed tick",
		}),
		TicksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sliver_graph_ticks_total",
			Help: "Ticks by result",
		}, []string{"result"}),
		registry: reg,
	}
}

func (*Collector) Name() string { return "metrics" }

// Publish mirrors a committed snapshot into the gauges.
func (c *Collector) Publish(_ context.Context, snap *monitor.Snapshot) error {
	st := &snap.Stats

	c.AgentsTotal.Set(float64(st.TotalAgents))
	c.AgentsByKind.WithLabelValues("session").Set(float64(st.Sessions))
	c.AgentsByKind.WithLabelValues("beacon").Set(float64(st.Beacons))
	c.AgentsByOS.WithLabelValues("windows").Set(float64(st.Windows))
	c.AgentsByOS.WithLabelValues("linux").Set(float64(st.Linux))
	c.AgentsByOS.WithLabelValues("other").Set(float64(st.OtherOS))

	c.AgentsByProto.Reset()

	for proto, n := range st.Protocols {
		c.AgentsByProto.WithLabelValues(proto).Set(float64(n))
	}

	c.PrivilegedTotal.Set(float64(st.Privileged))
	c.DeadTotal.Set(float64(st.DeadAgents))
	c.NewTotal.Set(float64(st.NewAgents))
	c.LostTotal.Set(float64(len(snap.RecentlyLost)))
	c.UniqueHosts.Set(float64(st.UniqueHosts))
	c.ActiveAlerts.Set(float64(len(snap.Alerts)))
	c.LastTick.Set(float64(snap.TickAt.Unix()))
	c.TicksTotal.WithLabelValues(resultSuccess).Inc()

	return nil
}

// ObserveFailure counts an abandoned tick.
func (c *Collector) ObserveFailure(error) {
	c.TicksTotal.WithLabelValues(resultFailure).Inc()
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
