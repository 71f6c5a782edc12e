package models

import "time"

// Stats holds the per-tick aggregates computed over the whole forest.
type Stats struct {
	TotalAgents int            `json:"total_agents"`
	Sessions    int            `json:"sessions"`
	Beacons     int            `json:"beacons"`
	Privileged  int            `json:"privileged"`
	Standard    int            `json:"standard"`
	Windows     int            `json:"windows"`
	Linux       int            `json:"linux"`
	OtherOS     int            `json:"other_os"`
	Protocols   map[string]int `json:"protocols"`
	NewAgents   int            `json:"new_agents"`
	DeadAgents  int            `json:"dead_agents"`
	UniqueHosts int            `json:"unique_hosts"`
}

// CloudEvent is the envelope used for events published to NATS.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype,omitempty"`
	Subject         string      `json:"subject,omitempty"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data"`
}
