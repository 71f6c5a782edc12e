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

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/musyoka101/sliver-tui/pkg/logger"
)

const (
	SourceTypeFile = "file"
	SourceTypeNATS = "nats"

	defaultRefreshInterval        = 5 * time.Second
	defaultLostRetention          = 300 * time.Second
	defaultNewAgentWindow         = 300 * time.Second
	defaultFirstSeenRetention     = time.Hour
	defaultActivitySampleInterval = 10 * time.Minute
	defaultActivityMaxSamples     = 72
	defaultMaxAlerts              = 20
	defaultSourceTimeout          = 10 * time.Second
	defaultNATSSubject            = "sliver.agents.list"
	defaultPublishStream          = "SLIVER_GRAPH"
	defaultPublishSubject         = "sliver.graph.tick"
	defaultAlertSubject           = "sliver.graph.alert"
	defaultHistoryTable           = "agent_activity"
	defaultTheme                  = "default"
)

var (
	errInvalidDuration          = errors.New("invalid duration")
	errSourcePathRequired       = errors.New("source.path or both source.sessions_path and source.beacons_path are required")
	errFirstSeenRetentionTooLow = errors.New("monitor.first_seen_retention must be negative or at least monitor.new_agent_window")

	// ErrInvalidConfig wraps struct-level validation failures.
	ErrInvalidConfig = errors.New("invalid configuration")

	validate = validator.New(validator.WithRequiredStructEnabled())
)

// Duration is a time.Duration that decodes from "5s" style strings or nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		var ns int64
		if nerr := node.Decode(&ns); nerr != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}

		dur = time.Duration(ns)
	}

	*d = Duration(dur)

	return nil
}

// GraphConfig is the top-level configuration of the sliver-graph binary.
type GraphConfig struct {
	Monitor MonitorConfig  `json:"monitor" yaml:"monitor"`
	Source  SourceConfig   `json:"source" yaml:"source"`
	Publish PublishConfig  `json:"publish" yaml:"publish"`
	Status  StatusConfig   `json:"status" yaml:"status"`
	Enrich  EnrichConfig   `json:"enrich" yaml:"enrich"`
	Render  RenderConfig   `json:"render" yaml:"render"`
	Logging *logger.Config `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// MonitorConfig controls the tick loop and the temporal tracker.
type MonitorConfig struct {
	RefreshInterval        Duration `json:"refresh_interval" yaml:"refresh_interval"`
	LostRetention          Duration `json:"lost_retention" yaml:"lost_retention"`
	NewAgentWindow         Duration `json:"new_agent_window" yaml:"new_agent_window"`
	FirstSeenRetention     Duration `json:"first_seen_retention" yaml:"first_seen_retention"` // negative keeps entries forever
	StrictIdentifiers      bool     `json:"strict_identifiers" yaml:"strict_identifiers"`
	ActivitySampleInterval Duration `json:"activity_sample_interval" yaml:"activity_sample_interval"`
	ActivityMaxSamples     int      `json:"activity_max_samples" yaml:"activity_max_samples" validate:"gte=0"`
	MaxAlerts              int      `json:"max_alerts" yaml:"max_alerts" validate:"gte=0"`
}

// SourceConfig selects where agent records come from.
type SourceConfig struct {
	Type         string     `json:"type" yaml:"type" validate:"oneof=file nats"`
	Path         string     `json:"path,omitempty" yaml:"path,omitempty"`
	SessionsPath string     `json:"sessions_path,omitempty" yaml:"sessions_path,omitempty"`
	BeaconsPath  string     `json:"beacons_path,omitempty" yaml:"beacons_path,omitempty"`
	NATSURL      string     `json:"nats_url,omitempty" yaml:"nats_url,omitempty" validate:"required_if=Type nats"`
	Subject      string     `json:"subject,omitempty" yaml:"subject,omitempty"`
	Timeout      Duration   `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	TLS          *TLSConfig `json:"tls,omitempty" yaml:"tls,omitempty"`
}

// PublishConfig lists the optional outbound sinks.
type PublishConfig struct {
	NATS    NATSPublishConfig `json:"nats" yaml:"nats"`
	History HistoryConfig     `json:"history" yaml:"history"`
}

// NATSPublishConfig configures tick events on JetStream.
type NATSPublishConfig struct {
	Enabled      bool       `json:"enabled" yaml:"enabled"`
	URL          string     `json:"url" yaml:"url" validate:"required_if=Enabled true"`
	Stream       string     `json:"stream" yaml:"stream"`
	Subject      string     `json:"subject" yaml:"subject"`
	AlertSubject string     `json:"alert_subject" yaml:"alert_subject"`
	Domain       string     `json:"domain,omitempty" yaml:"domain,omitempty"`
	TLS          *TLSConfig `json:"tls,omitempty" yaml:"tls,omitempty"`
}

// TLSConfig holds the client certificate material for mTLS NATS connections.
type TLSConfig struct {
	CAFile     string `json:"ca_file" yaml:"ca_file" validate:"required"`
	CertFile   string `json:"cert_file" yaml:"cert_file" validate:"required"`
	KeyFile    string `json:"key_file" yaml:"key_file" validate:"required"`
	ServerName string `json:"server_name,omitempty" yaml:"server_name,omitempty"`
}

// HistoryConfig configures the PostgreSQL/Timescale activity sink.
type HistoryConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	DSN     string `json:"dsn" yaml:"dsn" validate:"required_if=Enabled true"`
	Table   string `json:"table" yaml:"table" validate:"omitempty,max=63"`
}

// StatusConfig configures the optional read-only status listeners.
type StatusConfig struct {
	ListenAddr string `json:"listen_addr" yaml:"listen_addr" validate:"omitempty,hostname_port"`
	GRPCAddr   string `json:"grpc_addr" yaml:"grpc_addr" validate:"omitempty,hostname_port"`
}

// EnrichConfig configures display enrichment.
type EnrichConfig struct {
	GeoIPDB string `json:"geoip_db,omitempty" yaml:"geoip_db,omitempty" validate:"omitempty,file"`
}

// RenderConfig configures the text renderer.
type RenderConfig struct {
	Theme    string `json:"theme" yaml:"theme" validate:"omitempty,oneof=default dracula"`
	HideLost bool   `json:"hide_lost" yaml:"hide_lost"`
}

// Validate fills defaults and checks the configuration.
func (c *GraphConfig) Validate() error {
	c.applyDefaults()

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.Source.Type == SourceTypeFile && c.Source.Path == "" &&
		(c.Source.SessionsPath == "" || c.Source.BeaconsPath == "") {
		return errSourcePathRequired
	}

	if c.Monitor.FirstSeenRetention > 0 && c.Monitor.FirstSeenRetention < c.Monitor.NewAgentWindow {
		return errFirstSeenRetentionTooLow
	}

	return nil
}

// DefaultGraphConfig returns a configuration with every default applied.
func DefaultGraphConfig() *GraphConfig {
	c := &GraphConfig{}
	c.applyDefaults()

	return c
}

func (c *GraphConfig) applyDefaults() {
	m := &c.Monitor

	if m.RefreshInterval == 0 {
		m.RefreshInterval = Duration(defaultRefreshInterval)
	}

	if m.LostRetention == 0 {
		m.LostRetention = Duration(defaultLostRetention)
	}

	if m.NewAgentWindow == 0 {
		m.NewAgentWindow = Duration(defaultNewAgentWindow)
	}

	if m.FirstSeenRetention == 0 {
		m.FirstSeenRetention = Duration(defaultFirstSeenRetention)
	}

	if m.ActivitySampleInterval == 0 {
		m.ActivitySampleInterval = Duration(defaultActivitySampleInterval)
	}

	if m.ActivityMaxSamples == 0 {
		m.ActivityMaxSamples = defaultActivityMaxSamples
	}

	if m.MaxAlerts == 0 {
		m.MaxAlerts = defaultMaxAlerts
	}

	if c.Source.Type == "" {
		c.Source.Type = SourceTypeFile
	}

	if c.Source.Timeout == 0 {
		c.Source.Timeout = Duration(defaultSourceTimeout)
	}

	if c.Source.Type == SourceTypeNATS && c.Source.Subject == "" {
		c.Source.Subject = defaultNATSSubject
	}

	if c.Publish.NATS.Stream == "" {
		c.Publish.NATS.Stream = defaultPublishStream
	}

	if c.Publish.NATS.Subject == "" {
		c.Publish.NATS.Subject = defaultPublishSubject
	}

	if c.Publish.NATS.AlertSubject == "" {
		c.Publish.NATS.AlertSubject = defaultAlertSubject
	}

	if c.Publish.History.Table == "" {
		c.Publish.History.Table = defaultHistoryTable
	}

	if c.Render.Theme == "" {
		c.Render.Theme = defaultTheme
	}
}
