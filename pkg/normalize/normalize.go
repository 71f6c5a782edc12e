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

// Package normalize converts raw session and beacon records into models.AgentRecord.
package normalize

import (
	"sort"

	"github.com/musyoka101/sliver-tui/pkg/models"
)

const (
	// Unknown is the sentinel for missing display fields.
	Unknown = "Unknown"

	unknownTransport = "unknown"
)

// Normalize returns sessions followed by beacons, each in input order.
// No validation is performed; empty identifiers pass through as-is.
// Hostname takes part in parent matching and stays empty when missing.
func Normalize(sessions []models.SessionRecord, beacons []models.BeaconRecord) []models.AgentRecord {
	records := make([]models.AgentRecord, 0, len(sessions)+len(beacons))

	for i := range sessions {
		records = append(records, FromSession(&sessions[i]))
	}

	for i := range beacons {
		records = append(records, FromBeacon(&beacons[i]))
	}

	return records
}

// FromSession normalizes a session. Sessions have no check-in schedule, so
// NextCheckin is always zero.
func FromSession(s *models.SessionRecord) models.AgentRecord {
	return models.AgentRecord{
		ID:            s.ID,
		Kind:          models.KindSession,
		Hostname:      s.Hostname,
		Username:      orUnknown(s.Username),
		OS:            orUnknown(s.OS),
		Transport:     orDefault(s.Transport, unknownTransport),
		RemoteAddress: orUnknown(s.RemoteAddress),
		ProxyURL:      s.ProxyURL,
		UID:           s.UID,
		IsDead:        s.IsDead,
		PID:           s.PID,
		Arch:          s.Arch,
		Version:       s.Version,
		ActiveC2:      s.ActiveC2,
		Filename:      s.Filename,
		LastCheckin:   s.LastCheckin,
		Evasion:       s.Evasion,
		Burned:        s.Burned,
	}
}

// FromBeacon normalizes a beacon.
func FromBeacon(b *models.BeaconRecord) models.AgentRecord {
	return models.AgentRecord{
		ID:             b.ID,
		Kind:           models.KindBeacon,
		Hostname:       b.Hostname,
		Username:       orUnknown(b.Username),
		OS:             orUnknown(b.OS),
		Transport:      orDefault(b.Transport, unknownTransport),
		RemoteAddress:  orUnknown(b.RemoteAddress),
		ProxyURL:       b.ProxyURL,
		UID:            b.UID,
		IsDead:         b.IsDead,
		NextCheckin:    b.NextCheckin,
		PID:            b.PID,
		Arch:           b.Arch,
		Version:        b.Version,
		ActiveC2:       b.ActiveC2,
		Filename:       b.Filename,
		LastCheckin:    b.LastCheckin,
		Interval:       b.Interval,
		Jitter:         b.Jitter,
		TasksCount:     b.TasksCount,
		TasksCompleted: b.TasksCountCompleted,
		Evasion:        b.Evasion,
		Burned:         b.Burned,
	}
}

// DuplicateIDs returns, sorted, every identifier that occurs more than once.
func DuplicateIDs(records []models.AgentRecord) []string {
	seen := make(map[string]int, len(records))

	for i := range records {
		seen[records[i].ID]++
	}

	var dups []string

	for id, n := range seen {
		if n > 1 {
			dups = append(dups, id)
		}
	}

	sort.Strings(dups)

	return dups
}

func orUnknown(v string) string {
	return orDefault(v, Unknown)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}

	return v
}
