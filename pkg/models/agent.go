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

// Package models holds the data types shared by the sliver-graph packages.
package models

import "time"

// AgentKind distinguishes interactive sessions from polling beacons.
type AgentKind string

const (
	KindSession AgentKind = "session"
	KindBeacon  AgentKind = "beacon"
)

// SessionRecord is a session as reported by the C2 server.
type SessionRecord struct {
	ID            string `json:"ID"`
	Hostname      string `json:"Hostname"`
	Username      string `json:"Username"`
	UID           string `json:"UID"`
	GID           string `json:"GID"`
	OS            string `json:"OS"`
	Arch          string `json:"Arch"`
	Transport     string `json:"Transport"`
	RemoteAddress string `json:"RemoteAddress"`
	ProxyURL      string `json:"ProxyURL"`
	PID           int32  `json:"PID"`
	Filename      string `json:"Filename"`
	ActiveC2      string `json:"ActiveC2"`
	Version       string `json:"Version"`
	LastCheckin   int64  `json:"LastCheckin"`
	IsDead        bool   `json:"IsDead"`
	Evasion       bool   `json:"Evasion"`
	Burned        bool   `json:"Burned"`
}

// BeaconRecord is a beacon as reported by the C2 server.
type BeaconRecord struct {
	ID                  string `json:"ID"`
	Hostname            string `json:"Hostname"`
	Username            string `json:"Username"`
	UID                 string `json:"UID"`
	GID                 string `json:"GID"`
	OS                  string `json:"OS"`
	Arch                string `json:"Arch"`
	Transport           string `json:"Transport"`
	RemoteAddress       string `json:"RemoteAddress"`
	ProxyURL            string `json:"ProxyURL"`
	PID                 int32  `json:"PID"`
	Filename            string `json:"Filename"`
	ActiveC2            string `json:"ActiveC2"`
	Version             string `json:"Version"`
	LastCheckin         int64  `json:"LastCheckin"`
	NextCheckin         int64  `json:"NextCheckin"`
	Interval            int64  `json:"Interval"` // nanoseconds
	Jitter              int64  `json:"Jitter"`
	TasksCount          int64  `json:"TasksCount"`
	TasksCountCompleted int64  `json:"TasksCountCompleted"`
	IsDead              bool   `json:"IsDead"`
	Evasion             bool   `json:"Evasion"`
	Burned              bool   `json:"Burned"`
}

// Batch is one tick's worth of raw records from a source.
type Batch struct {
	Sessions  []SessionRecord `json:"sessions"`
	Beacons   []BeaconRecord  `json:"beacons"`
	FetchedAt time.Time       `json:"fetched_at,omitempty"`
}

// AgentRecord is the normalized shape shared by sessions and beacons.
type AgentRecord struct {
	ID            string    `json:"id"`
	Kind          AgentKind `json:"kind"`
	Hostname      string    `json:"hostname"`
	Username      string    `json:"username"`
	OS            string    `json:"os"`
	Transport     string    `json:"transport"`
	RemoteAddress string    `json:"remote_address"`
	ProxyURL      string    `json:"proxy_url,omitempty"`
	UID           string    `json:"uid,omitempty"`
	IsDead        bool      `json:"is_dead"`
	NextCheckin   int64     `json:"next_checkin,omitempty"` // always zero for sessions

	// Carried for display only.
	PID            int32  `json:"pid,omitempty"`
	Arch           string `json:"arch,omitempty"`
	Version        string `json:"version,omitempty"`
	ActiveC2       string `json:"active_c2,omitempty"`
	Filename       string `json:"filename,omitempty"`
	LastCheckin    int64  `json:"last_checkin,omitempty"`
	Interval       int64  `json:"interval,omitempty"`
	Jitter         int64  `json:"jitter,omitempty"`
	TasksCount     int64  `json:"tasks_count,omitempty"`
	TasksCompleted int64  `json:"tasks_completed,omitempty"`
	Evasion        bool   `json:"evasion,omitempty"`
	Burned         bool   `json:"burned,omitempty"`
}

// IsSession reports whether the record came from the session list.
func (a *AgentRecord) IsSession() bool {
	return a.Kind == KindSession
}

// ShortID returns the first eight characters of the identifier.
func (a *AgentRecord) ShortID() string {
	if len(a.ID) <= 8 {
		return a.ID
	}

	return a.ID[:8]
}

// TopologyNode is an agent and the agents pivoted through it.
type TopologyNode struct {
	Agent    AgentRecord    `json:"agent"`
	Children []TopologyNode `json:"children,omitempty"`
}

// Forest is the ordered list of root nodes for one tick.
type Forest []TopologyNode

// LostAgent is the last known state of an agent that dropped out.
type LostAgent struct {
	Agent  AgentRecord `json:"agent"`
	LostAt time.Time   `json:"lost_at"`
}

// Delta summarizes membership changes between two consecutive ticks.
type Delta struct {
	NewCount  int      `json:"new_count"`
	LostCount int      `json:"lost_count"`
	NewIDs    []string `json:"new_ids,omitempty"`
	LostIDs   []string `json:"lost_ids,omitempty"`
}
