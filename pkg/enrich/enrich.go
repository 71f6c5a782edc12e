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

// Package enrich derives display-only hints for agents: AD domain, /24
// subnet and, when a GeoIP database is configured, the country of the
// remote address.
package enrich

import (
	"net"
	"net/netip"
	"strings"

	"github.com/oschwald/maxminddb-golang"

	"github.com/musyoka101/sliver-tui/pkg/logger"
	"github.com/musyoka101/sliver-tui/pkg/models"
)

// Info is the enrichment for one agent.
type Info struct {
	Domain  string `json:"domain,omitempty"`
	Subnet  string `json:"subnet,omitempty"`
	Country string `json:"country,omitempty"`
}

// DomainFromHostname returns everything after the first dot, lowercased,
// or "" for a bare hostname.
func DomainFromHostname(hostname string) string {
	_, domain, ok := strings.Cut(hostname, ".")
	if !ok || domain == "" {
		return ""
	}

	return strings.ToLower(domain)
}

// SubnetOf returns the /24 network of an IPv4 remote address such as
// "10.0.0.5:443". Anything else yields "".
func SubnetOf(remoteAddress string) string {
	host := remoteAddress
	if h, _, err := net.SplitHostPort(remoteAddress); err == nil {
		host = h
	}

	addr, err := netip.ParseAddr(host)
	if err != nil || !addr.Is4() {
		return ""
	}

	prefix, err := addr.Prefix(24)
	if err != nil {
		return ""
	}

	return prefix.String()
}

// Enricher computes Info for each agent in a forest.
type Enricher struct {
	geo    *maxminddb.Reader
	logger logger.Logger
}

// New returns an Enricher. An empty geoIPPath disables country lookups.
func New(geoIPPath string, log logger.Logger) (*Enricher, error) {
	e := &Enricher{logger: log}

	if geoIPPath == "" {
		return e, nil
	}

	reader, err := maxminddb.Open(geoIPPath)
	if err != nil {
		return nil, err
	}

	e.geo = reader

	return e, nil
}

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// Country looks up the ISO country code of the remote address.
func (e *Enricher) Country(remoteAddress string) string {
	if e.geo == nil {
		return ""
	}

	host := remoteAddress
	if h, _, err := net.SplitHostPort(remoteAddress); err == nil {
		host = h
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return ""
	}

	var rec countryRecord
	if err := e.geo.Lookup(ip, &rec); err != nil {
		e.logger.Debug().Err(err).Str("ip", host).Msg("GeoIP lookup failed")
		return ""
	}

	return rec.Country.ISOCode
}

// Enrich returns the info for one agent.
func (e *Enricher) Enrich(a *models.AgentRecord) Info {
	return Info{
		Domain:  DomainFromHostname(a.Hostname),
		Subnet:  SubnetOf(a.RemoteAddress),
		Country: e.Country(a.RemoteAddress),
	}
}

// EnrichForest returns info keyed by agent ID for every node in f.
func (e *Enricher) EnrichForest(f models.Forest) map[string]Info {
	out := make(map[string]Info)

	var visit func(nodes []models.TopologyNode)
	visit = func(nodes []models.TopologyNode) {
		for i := range nodes {
			out[nodes[i].Agent.ID] = e.Enrich(&nodes[i].Agent)
			visit(nodes[i].Children)
		}
	}

	visit(f)

	return out
}

// Close releases the GeoIP database.
func (e *Enricher) Close() error {
	if e.geo == nil {
		return nil
	}

	return e.geo.Close()
}
