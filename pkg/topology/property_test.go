package topology

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/musyoka101/sliver-tui/pkg/models"
)

var (
	propHosts      = []string{"WIN-01", "win-01", "web01", "db01", ""}
	propTransports = []string{"mtls", "http", "dns", "tcppivot", "namedpipe", "tcp-bind", "wg"}
)

// recordsFromSeeds derives a record set with unique identifiers from generated ints.
func recordsFromSeeds(seeds []int) []models.AgentRecord {
	records := make([]models.AgentRecord, 0, len(seeds))

	for i, seed := range seeds {
		rec := models.AgentRecord{
			ID:        fmt.Sprintf("agent-%d", i),
			Hostname:  propHosts[seed%len(propHosts)],
			Transport: propTransports[(seed/7)%len(propTransports)],
		}

		if seed%5 == 0 && i > 0 {
			rec.ProxyURL = fmt.Sprintf("tcp://agent-%d", seed%i)
		}

		records = append(records, rec)
	}

	return records
}

func TestForestProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("build is a pure function of its input", prop.ForAll(
		func(seeds []int) bool {
			records := recordsFromSeeds(seeds)

			return reflect.DeepEqual(BuildForest(records), BuildForest(records))
		},
		gen.SliceOf(gen.IntRange(0, 10000)),
	))

	properties.Property("every record appears exactly once", prop.ForAll(
		func(seeds []int) bool {
			records := recordsFromSeeds(seeds)
			forest := BuildForest(records)

			return Count(forest) == len(records) && len(Flatten(forest)) == len(records)
		},
		gen.SliceOf(gen.IntRange(0, 10000)),
	))

	properties.Property("non-pivoted agents are always roots", prop.ForAll(
		func(seeds []int) bool {
			records := recordsFromSeeds(seeds)
			forest := BuildForest(records)

			roots := make(map[string]bool, len(forest))
			for i := range forest {
				roots[forest[i].Agent.ID] = true
			}

			for i := range records {
				if !IsPivoted(&records[i]) && !roots[records[i].ID] {
					return false
				}
			}

			return true
		},
		gen.SliceOf(gen.IntRange(0, 10000)),
	))

	properties.Property("children are pivoted and depth never exceeds one", prop.ForAll(
		func(seeds []int) bool {
			ok := true

			Walk(BuildForest(recordsFromSeeds(seeds)), func(n *models.TopologyNode, depth int) bool {
				if depth > 1 || (depth == 1 && !IsPivoted(&n.Agent)) {
					ok = false
				}

				return true
			})

			return ok
		},
		gen.SliceOf(gen.IntRange(0, 10000)),
	))

	properties.TestingRun(t)
}
