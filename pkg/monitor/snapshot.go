package monitor

import (
	"time"

	"github.com/musyoka101/sliver-tui/pkg/alerts"
	"github.com/musyoka101/sliver-tui/pkg/enrich"
	"github.com/musyoka101/sliver-tui/pkg/models"
	"github.com/musyoka101/sliver-tui/pkg/tracking"
)

// Snapshot is everything one committed tick produced. Snapshots are never
// modified after they are stored; consumers must treat them as read-only.
type Snapshot struct {
	Sequence       uint64                    `json:"sequence"`
	TickAt         time.Time                 `json:"tick_at"`
	Forest         models.Forest             `json:"forest"`
	Stats          models.Stats              `json:"stats"`
	Delta          models.Delta              `json:"delta"`
	RecentlyLost   []models.LostAgent        `json:"recently_lost"`
	New            map[string]bool           `json:"new,omitempty"`
	Alerts         []alerts.Alert            `json:"alerts,omitempty"`
	Activity       []tracking.ActivitySample `json:"activity,omitempty"`
	Enrichment     map[string]enrich.Info    `json:"enrichment,omitempty"`
	Duplicates     []string                  `json:"duplicates,omitempty"`
	NewAgentWindow time.Duration             `json:"new_agent_window"`
}

// IsNew reports whether the agent was inside the new-agent window at TickAt.
func (s *Snapshot) IsNew(id string) bool {
	return s.New[id]
}

// AgentIDs lists every agent ID in forest order.
func (s *Snapshot) AgentIDs() []string {
	var ids []string

	var visit func(nodes []models.TopologyNode)
	visit = func(nodes []models.TopologyNode) {
		for i := range nodes {
			ids = append(ids, nodes[i].Agent.ID)
			visit(nodes[i].Children)
		}
	}

	visit(s.Forest)

	return ids
}
