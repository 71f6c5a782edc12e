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

// Package alerts turns agent membership changes into short-lived notifications.
package alerts

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type is the severity of an alert.
type Type int

const (
	TypeCritical Type = iota
	TypeWarning
	TypeSuccess
	TypeInfo
	TypeNotice
)

func (t Type) String() string {
	switch t {
	case TypeCritical:
		return "critical"
	case TypeWarning:
		return "warning"
	case TypeSuccess:
		return "success"
	case TypeInfo:
		return "info"
	case TypeNotice:
		return "notice"
	default:
		return "unknown"
	}
}

// MarshalText lets alerts serialize with readable severities.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Category is what an alert is about.
type Category int

const (
	CategorySessionAcquired Category = iota
	CategoryPrivilegedSessionAcquired
	CategoryBeaconAcquired
	CategoryPrivilegedBeaconAcquired
	CategorySessionLost
	CategoryBeaconLost
	CategoryBeaconMissed
	CategoryPrivilegeEscalated
	CategorySessionOpened
	CategoryPrivilegedSessionOpened
	CategorySessionClosed
	CategoryTaskQueued
	CategoryTaskCompleted
)

var categoryLabels = map[Category]string{
	CategorySessionAcquired:           "SESSION ACQUIRED",
	CategoryPrivilegedSessionAcquired: "PRIVILEGED SESSION ACQUIRED",
	CategoryBeaconAcquired:            "BEACON ACQUIRED",
	CategoryPrivilegedBeaconAcquired:  "PRIVILEGED BEACON ACQUIRED",
	CategorySessionLost:               "SESSION LOST",
	CategoryBeaconLost:                "BEACON LOST",
	CategoryBeaconMissed:              "BEACON MISSED",
	CategoryPrivilegeEscalated:        "PRIVILEGE ESCALATED",
	CategorySessionOpened:             "SESSION INIT",
	CategoryPrivilegedSessionOpened:   "PRIVILEGED SESSION INIT",
	CategorySessionClosed:             "SESSION TERMINATED",
	CategoryTaskQueued:                "TASK QUEUED",
	CategoryTaskCompleted:             "TASK COMPLETE",
}

func (c Category) String() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}

	return "EVENT"
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

const (
	DefaultMaxAlerts = 20

	dedupWindow   = 5 * time.Second
	privilegedTTL = 50 * time.Second
)

var typeTTL = map[Type]time.Duration{
	TypeCritical: 35 * time.Second,
	TypeWarning:  25 * time.Second,
	TypeSuccess:  20 * time.Second,
	TypeInfo:     15 * time.Second,
	TypeNotice:   13 * time.Second,
}

// TTLFor returns how long an alert stays visible.
func TTLFor(t Type, c Category) time.Duration {
	switch c {
	case CategoryPrivilegedSessionAcquired,
		CategoryPrivilegedBeaconAcquired,
		CategoryPrivilegedSessionOpened,
		CategoryPrivilegeEscalated:
		return privilegedTTL
	}

	return typeTTL[t]
}

// Alert is a single notification.
type Alert struct {
	ID        string        `json:"id"`
	Type      Type          `json:"type"`
	Category  Category      `json:"category"`
	Message   string        `json:"message"`
	AgentID   string        `json:"agent_id"`
	Hostname  string        `json:"hostname"`
	Details   string        `json:"details,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	TTL       time.Duration `json:"ttl"`
}

// Label is the display heading for the alert's category.
func (a *Alert) Label() string {
	return a.Category.String()
}

// Expired reports whether the alert's TTL has elapsed at now.
func (a *Alert) Expired(now time.Time) bool {
	return now.Sub(a.Timestamp) >= a.TTL
}

// Manager is a bounded, newest-first alert queue.
type Manager struct {
	mu        sync.Mutex
	alerts    []Alert
	maxAlerts int
	newID     func() string
}

type ManagerOption func(*Manager)

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(fn func() string) ManagerOption {
	return func(m *Manager) { m.newID = fn }
}

func NewManager(maxAlerts int, opts ...ManagerOption) *Manager {
	if maxAlerts <= 0 {
		maxAlerts = DefaultMaxAlerts
	}

	m := &Manager{
		alerts:    make([]Alert, 0, maxAlerts),
		maxAlerts: maxAlerts,
		newID:     uuid.NewString,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Add queues a. An alert with the same category and agent as one raised less
// than five seconds earlier is dropped. Add reports whether a was queued.
func (m *Manager) Add(a Alert) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.alerts {
		prev := &m.alerts[i]
		if prev.Category == a.Category && prev.AgentID == a.AgentID &&
			a.Timestamp.Sub(prev.Timestamp) < dedupWindow {
			return false
		}
	}

	if a.ID == "" {
		a.ID = m.newID()
	}

	if a.TTL == 0 {
		a.TTL = TTLFor(a.Type, a.Category)
	}

	m.alerts = append([]Alert{a}, m.alerts...)

	if len(m.alerts) > m.maxAlerts {
		m.alerts = m.alerts[:m.maxAlerts]
	}

	return true
}

// AddAll queues alerts in order and returns how many were accepted.
func (m *Manager) AddAll(alerts []Alert) int {
	n := 0

	for i := range alerts {
		if m.Add(alerts[i]) {
			n++
		}
	}

	return n
}

// Active drops expired alerts and returns the rest, newest first.
func (m *Manager) Active(now time.Time) []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.alerts[:0]

	for i := range m.alerts {
		if !m.alerts[i].Expired(now) {
			kept = append(kept, m.alerts[i])
		}
	}

	m.alerts = kept

	out := make([]Alert, len(kept))
	copy(out, kept)

	return out
}

// HasCritical reports whether an unexpired critical alert is queued.
func (m *Manager) HasCritical(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.alerts {
		if m.alerts[i].Type == TypeCritical && !m.alerts[i].Expired(now) {
			return true
		}
	}

	return false
}

// Clear removes every alert.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.alerts = make([]Alert, 0, m.maxAlerts)
}
