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

// Package stats aggregates per-tick counters over a topology forest.
package stats

import (
	"strings"
	"time"

	"github.com/musyoka101/sliver-tui/pkg/classify"
	"github.com/musyoka101/sliver-tui/pkg/models"
	"github.com/musyoka101/sliver-tui/pkg/topology"
)

// Novelty answers whether an agent is still inside its new-agent window.
// *tracking.Tracker satisfies it.
type Novelty interface {
	IsRecent(id string, now time.Time) bool
}

// NoveltyFunc adapts a function to Novelty.
type NoveltyFunc func(id string, now time.Time) bool

func (f NoveltyFunc) IsRecent(id string, now time.Time) bool { return f(id, now) }

// Aggregate visits every node once and returns the tick's counters at now.
// A nil novelty counts no agent as new.
func Aggregate(forest models.Forest, now time.Time, novelty Novelty) models.Stats {
	s := models.Stats{Protocols: make(map[string]int)}
	hosts := make(map[string]struct{})

	topology.Walk(forest, func(node *models.TopologyNode, _ int) bool {
		a := &node.Agent

		s.TotalAgents++

		if a.IsSession() {
			s.Sessions++
		} else {
			s.Beacons++
		}

		if classify.IsPrivileged(a.Username, a.UID, a.OS) {
			s.Privileged++
		} else {
			s.Standard++
		}

		switch classify.Family(a.OS) {
		case classify.FamilyWindows:
			s.Windows++
		case classify.FamilyLinux:
			s.Linux++
		case classify.FamilyOther:
			s.OtherOS++
		}

		s.Protocols[classify.ProtocolKey(a.Transport)]++

		if novelty != nil && novelty.IsRecent(a.ID, now) {
			s.NewAgents++
		}

		if classify.Status(a.IsDead) == classify.Dead {
			s.DeadAgents++
		}

		if h := strings.ToLower(a.Hostname); h != "" {
			hosts[h] = struct{}{}
		}

		return true
	})

	s.UniqueHosts = len(hosts)

	return s
}

// UniqueHosts counts distinct non-empty hostnames, case-insensitively.
func UniqueHosts(forest models.Forest) int {
	hosts := make(map[string]struct{})

	topology.Walk(forest, func(node *models.TopologyNode, _ int) bool {
		if h := strings.ToLower(node.Agent.Hostname); h != "" {
			hosts[h] = struct{}{}
		}

		return true
	})

	return len(hosts)
}
