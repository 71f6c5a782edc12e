package stats

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/musyoka101/sliver-tui/pkg/models"
	"github.com/musyoka101/sliver-tui/pkg/topology"
)

func TestUniqueHostProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	hostnames := gen.SliceOf(gen.OneConstOf("dc01", "DC01", "web", "Web", "db", "mail", "fs01"))

	properties.Property("unique hosts never exceed total agents", prop.ForAll(
		func(hosts []string) bool {
			s := Aggregate(forestForHosts(hosts), time.Time{}, nil)

			return s.UniqueHosts <= s.TotalAgents
		},
		hostnames,
	))

	properties.Property("equality iff hostnames are pairwise distinct ignoring case", prop.ForAll(
		func(hosts []string) bool {
			s := Aggregate(forestForHosts(hosts), time.Time{}, nil)

			distinct := map[string]bool{}
			for _, h := range hosts {
				distinct[strings.ToLower(h)] = true
			}

			return (s.UniqueHosts == s.TotalAgents) == (len(distinct) == len(hosts))
		},
		hostnames,
	))

	properties.TestingRun(t)
}

func forestForHosts(hosts []string) models.Forest {
	records := make([]models.AgentRecord, 0, len(hosts))
	for i, h := range hosts {
		records = append(records, models.AgentRecord{ID: fmt.Sprintf("a%d", i), Hostname: h, Transport: "mtls"})
	}

	return topology.BuildForest(records)
}
