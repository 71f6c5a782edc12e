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

// Package topology infers the pivot forest from a flat list of agents.
//
// Agents are split into roots and pivoted agents, then every pivoted agent is
// attached to the first root candidate accepted by an ordered list of match
// predicates. Attachment is a single pass: only the original root candidates
// can become parents, which keeps the forest at depth two.
package topology

import (
	"strings"

	"github.com/musyoka101/sliver-tui/pkg/models"
)

var pivotTransportMarkers = []string{"pivot", "namedpipe", "bind"}

// IsPivoted reports whether the agent reaches the server through another agent.
func IsPivoted(a *models.AgentRecord) bool {
	if a.ProxyURL != "" {
		return true
	}

	transport := strings.ToLower(a.Transport)
	for _, marker := range pivotTransportMarkers {
		if strings.Contains(transport, marker) {
			return true
		}
	}

	return false
}

// MatchesProxyURL is the proxy rule: the candidate's ID or hostname appears in
// the child's proxy URL.
func MatchesProxyURL(candidate, child *models.AgentRecord) bool {
	return strings.Contains(child.ProxyURL, candidate.ID) ||
		strings.Contains(child.ProxyURL, candidate.Hostname)
}

// MatchesHostname is the same-host rule used for named pipe and TCP pivots.
func MatchesHostname(candidate, child *models.AgentRecord) bool {
	return candidate.Hostname == child.Hostname
}

func usesHostRule(a *models.AgentRecord) bool {
	transport := strings.ToLower(a.Transport)

	return strings.Contains(transport, "namedpipe") || strings.Contains(transport, "pivot")
}

// findParent returns the index of the first root accepting child, or -1.
func findParent(roots []models.TopologyNode, child *models.AgentRecord) int {
	if child.ProxyURL != "" {
		for i := range roots {
			if MatchesProxyURL(&roots[i].Agent, child) {
				return i
			}
		}
	}

	if usesHostRule(child) {
		for i := range roots {
			if MatchesHostname(&roots[i].Agent, child) {
				return i
			}
		}
	}

	return -1
}

// BuildForest builds the forest for one tick. Roots keep input order and
// unmatched pivoted agents are appended after them as their own roots.
// Children keep input order within their parent.
func BuildForest(records []models.AgentRecord) models.Forest {
	roots := make([]models.TopologyNode, 0, len(records))
	pivoted := make([]models.AgentRecord, 0)

	for i := range records {
		if IsPivoted(&records[i]) {
			pivoted = append(pivoted, records[i])
			continue
		}

		roots = append(roots, models.TopologyNode{Agent: records[i]})
	}

	var orphans []models.TopologyNode

	for i := range pivoted {
		child := models.TopologyNode{Agent: pivoted[i]}

		if idx := findParent(roots, &pivoted[i]); idx >= 0 {
			roots[idx].Children = append(roots[idx].Children, child)
			continue
		}

		orphans = append(orphans, child)
	}

	return append(models.Forest(roots), orphans...)
}

// Walk visits every node depth-first, parents before children.
// Returning false from fn stops descent into that node's children.
func Walk(f models.Forest, fn func(node *models.TopologyNode, depth int) bool) {
	for i := range f {
		walkNode(&f[i], 0, fn)
	}
}

func walkNode(node *models.TopologyNode, depth int, fn func(*models.TopologyNode, int) bool) {
	if !fn(node, depth) {
		return
	}

	for i := range node.Children {
		walkNode(&node.Children[i], depth+1, fn)
	}
}

// Flatten maps every identifier in the forest to its record. A later
// duplicate identifier overwrites an earlier one.
func Flatten(f models.Forest) map[string]models.AgentRecord {
	out := make(map[string]models.AgentRecord)

	Walk(f, func(node *models.TopologyNode, _ int) bool {
		out[node.Agent.ID] = node.Agent
		return true
	})

	return out
}

// Count returns the number of nodes in the forest.
func Count(f models.Forest) int {
	n := 0

	Walk(f, func(*models.TopologyNode, int) bool {
		n++
		return true
	})

	return n
}
