package tracking

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/musyoka101/sliver-tui/pkg/models"
)

// ticksFromMasks turns bitmasks into per-tick forests over a pool of eight agents.
func ticksFromMasks(masks []uint8) []models.Forest {
	ticks := make([]models.Forest, 0, len(masks))

	for _, mask := range masks {
		var ids []string

		for bit := 0; bit < 8; bit++ {
			if mask&(1<<bit) != 0 {
				ids = append(ids, fmt.Sprintf("agent-%d", bit))
			}
		}

		ticks = append(ticks, forestOf(ids...))
	}

	return ticks
}

func TestTrackerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("lost registry never overlaps known agents", prop.ForAll(
		func(masks []uint8, stepSeconds int) bool {
			tr := NewTracker()
			now := t0

			for _, forest := range ticksFromMasks(masks) {
				now = now.Add(time.Duration(stepSeconds) * time.Second)
				tr.Update(forest, now)

				state := tr.State()
				for id := range state.Lost {
					if _, ok := state.Known[id]; ok {
						return false
					}
				}
			}

			return true
		},
		gen.SliceOf(gen.UInt8()),
		gen.IntRange(1, 400),
	))

	properties.Property("agents present in consecutive ticks are neither new nor lost", prop.ForAll(
		func(masks []uint8) bool {
			tr := NewTracker()
			prev := map[string]bool{}
			now := t0

			for _, forest := range ticksFromMasks(masks) {
				now = now.Add(5 * time.Second)
				delta := tr.Update(forest, now)

				for _, id := range append(delta.NewIDs, delta.LostIDs...) {
					inCurrent := false
					for i := range forest {
						if forest[i].Agent.ID == id {
							inCurrent = true
						}
					}

					if prev[id] && inCurrent {
						return false
					}
				}

				prev = map[string]bool{}
				for i := range forest {
					prev[forest[i].Agent.ID] = true
				}
			}

			return true
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.Property("delta counts match identifier lists", prop.ForAll(
		func(masks []uint8) bool {
			tr := NewTracker()
			now := t0

			for _, forest := range ticksFromMasks(masks) {
				now = now.Add(time.Second)
				delta := tr.Update(forest, now)

				if delta.NewCount != len(delta.NewIDs) || delta.LostCount != len(delta.LostIDs) {
					return false
				}
			}

			return true
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}
