package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musyoka101/sliver-tui/pkg/models"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func forestOf(ids ...string) models.Forest {
	f := make(models.Forest, 0, len(ids))
	for _, id := range ids {
		f = append(f, models.TopologyNode{Agent: models.AgentRecord{ID: id, Hostname: "h-" + id}})
	}

	return f
}

func TestFirstTickReportsEverythingNew(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	delta := tr.Update(forestOf("a", "b"), t0)

	assert.Equal(t, 2, delta.NewCount)
	assert.Equal(t, 0, delta.LostCount)
	assert.Equal(t, []string{"a", "b"}, delta.NewIDs)
	assert.True(t, tr.IsRecent("a", t0))
}

func TestChildrenAreTracked(t *testing.T) {
	t.Parallel()

	forest := models.Forest{{
		Agent:    models.AgentRecord{ID: "root"},
		Children: []models.TopologyNode{{Agent: models.AgentRecord{ID: "child"}}},
	}}

	tr := NewTracker()
	delta := tr.Update(forest, t0)

	assert.Equal(t, []string{"child", "root"}, delta.NewIDs)
	assert.Len(t, tr.Known(), 2)
}

func TestLostThenReappears(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Update(forestOf("a", "b"), t0)

	delta := tr.Update(forestOf("b"), t0.Add(5*time.Second))
	assert.Equal(t, 0, delta.NewCount)
	assert.Equal(t, 1, delta.LostCount)

	lost := tr.RecentlyLost()
	require.Len(t, lost, 1)
	assert.Equal(t, "a", lost[0].Agent.ID)
	assert.Equal(t, "h-a", lost[0].Agent.Hostname)
	assert.Equal(t, t0.Add(5*time.Second), lost[0].LostAt)

	delta = tr.Update(forestOf("a", "b"), t0.Add(10*time.Second))
	assert.Equal(t, 1, delta.NewCount)
	assert.Equal(t, 0, delta.LostCount)
	assert.Empty(t, tr.RecentlyLost())

	// First sighting is kept across the disconnect.
	assert.Equal(t, t0, tr.State().FirstSeen["a"])
}

func TestStableAgentIsNeitherNewNorLost(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Update(forestOf("a"), t0)
	delta := tr.Update(forestOf("a"), t0.Add(time.Second))

	assert.Zero(t, delta.NewCount)
	assert.Zero(t, delta.LostCount)
	assert.Empty(t, delta.NewIDs)
	assert.Empty(t, delta.LostIDs)
}

func TestLostRetentionBoundary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		elapsed time.Duration
		present bool
	}{
		{name: "299s", elapsed: 299 * time.Second, present: true},
		{name: "300s", elapsed: 300 * time.Second, present: false},
		{name: "301s", elapsed: 301 * time.Second, present: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr := NewTracker()
			tr.Update(forestOf("a"), t0)
			tr.Update(forestOf(), t0)

			tr.Update(forestOf(), t0.Add(tt.elapsed))

			assert.Equal(t, tt.present, len(tr.RecentlyLost()) == 1)
		})
	}
}

func TestNoveltyBoundary(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Update(forestOf("a"), t0)

	assert.True(t, tr.IsRecent("a", t0.Add(299*time.Second)))
	assert.False(t, tr.IsRecent("a", t0.Add(300*time.Second)))
	assert.False(t, tr.IsRecent("a", t0.Add(301*time.Second)))
	assert.False(t, tr.IsRecent("missing", t0))
}

func TestRecentlyLostOrdering(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Update(forestOf("a", "b", "c"), t0)
	tr.Update(forestOf("c"), t0.Add(time.Second))
	tr.Update(forestOf(), t0.Add(2*time.Second))

	lost := tr.RecentlyLost()
	require.Len(t, lost, 3)
	assert.Equal(t, "c", lost[0].Agent.ID)
	assert.Equal(t, "a", lost[1].Agent.ID)
	assert.Equal(t, "b", lost[2].Agent.ID)
}

func TestFirstSeenPruning(t *testing.T) {
	t.Parallel()

	tr := NewTracker(WithFirstSeenRetention(10*time.Minute))
	tr.Update(forestOf("a", "b"), t0)
	tr.Update(forestOf("b"), t0.Add(time.Minute))

	// a left the lost registry after 5m; its first-seen entry goes at 10m.
	tr.Update(forestOf("b"), t0.Add(9*time.Minute))
	assert.Contains(t, tr.State().FirstSeen, "a")

	tr.Update(forestOf("b"), t0.Add(10*time.Minute))
	assert.NotContains(t, tr.State().FirstSeen, "a")
	assert.Contains(t, tr.State().FirstSeen, "b", "known agents keep their first sighting")
}

func TestFirstSeenKeptForeverWhenDisabled(t *testing.T) {
	t.Parallel()

	tr := NewTracker(WithFirstSeenRetention(-1))
	tr.Update(forestOf("a"), t0)
	tr.Update(forestOf(), t0.Add(time.Minute))
	tr.Update(forestOf(), t0.Add(48*time.Hour))

	assert.Contains(t, tr.State().FirstSeen, "a")
}

func TestPrepareIsInvisibleUntilCommit(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Update(forestOf("a"), t0)

	p := tr.Prepare(forestOf("b"), t0.Add(time.Second))
	assert.Equal(t, 1, p.Delta.NewCount)
	assert.True(t, p.IsRecent("b", p.Now))

	assert.Contains(t, tr.Known(), "a")
	assert.NotContains(t, tr.Known(), "b")
	assert.Empty(t, tr.RecentlyLost())

	require.NoError(t, tr.Commit(p))
	assert.Contains(t, tr.Known(), "b")
	assert.Len(t, tr.RecentlyLost(), 1)

	require.ErrorIs(t, tr.Commit(p), ErrStaleUpdate)
}

func TestWithStateSeedsPreviousTick(t *testing.T) {
	t.Parallel()

	seed := &State{
		Known:     map[string]models.AgentRecord{"x": {ID: "x"}},
		FirstSeen: map[string]time.Time{"x": t0.Add(-time.Hour)},
		Lost:      map[string]models.LostAgent{},
	}

	tr := NewTracker(WithState(seed))
	delta := tr.Update(forestOf("x", "y"), t0)

	assert.Equal(t, []string{"y"}, delta.NewIDs)
	assert.False(t, tr.IsRecent("x", t0))
	assert.True(t, tr.IsRecent("y", t0))

	// The seed itself is never mutated.
	assert.Len(t, seed.Known, 1)
}
