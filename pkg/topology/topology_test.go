package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musyoka101/sliver-tui/pkg/models"
	"github.com/musyoka101/sliver-tui/pkg/normalize"
)

func agent(id, host, transport, proxy string) models.AgentRecord {
	return models.AgentRecord{ID: id, Hostname: host, Transport: transport, ProxyURL: proxy}
}

func rootIDs(f models.Forest) []string {
	ids := make([]string, 0, len(f))
	for i := range f {
		ids = append(ids, f[i].Agent.ID)
	}

	return ids
}

func childIDs(n *models.TopologyNode) []string {
	ids := make([]string, 0, len(n.Children))
	for i := range n.Children {
		ids = append(ids, n.Children[i].Agent.ID)
	}

	return ids
}

func TestIsPivoted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		agent models.AgentRecord
		want  bool
	}{
		{name: "direct mtls", agent: agent("a", "h", "mtls", ""), want: false},
		{name: "proxy url", agent: agent("a", "h", "http", "socks5://10.0.0.1"), want: true},
		{name: "tcp pivot", agent: agent("a", "h", "TCPPivot", ""), want: true},
		{name: "named pipe", agent: agent("a", "h", "NamedPipe", ""), want: true},
		{name: "bind", agent: agent("a", "h", "tcp-bind", ""), want: true},
		{name: "plain tcp", agent: agent("a", "h", "tcp", ""), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, IsPivoted(&tt.agent))
		})
	}
}

func TestBuildForestHostnameScenario(t *testing.T) {
	t.Parallel()

	records := normalize.Normalize(
		[]models.SessionRecord{{ID: "s1", Hostname: "WIN-01", Transport: "mtls"}},
		[]models.BeaconRecord{{ID: "b1", Hostname: "WIN-01", Transport: "tcppivot"}},
	)

	forest := BuildForest(records)

	require.Len(t, forest, 1)
	assert.Equal(t, "s1", forest[0].Agent.ID)
	assert.Equal(t, []string{"b1"}, childIDs(&forest[0]))
	assert.Equal(t, 2, Count(forest))
}

func TestBuildForestProxyMatchFirstWins(t *testing.T) {
	t.Parallel()

	records := []models.AgentRecord{
		agent("r1", "alpha", "mtls", ""),
		agent("r2", "bravo", "http", ""),
		agent("r3", "alpha", "dns", ""),
		agent("p1", "charlie", "http", "tcp://bravo:8080"),
		agent("p2", "delta", "http", "tcp://r3/x"),
		agent("p3", "echo", "http", "tcp://alpha"),
	}

	forest := BuildForest(records)

	require.Equal(t, []string{"r1", "r2", "r3"}, rootIDs(forest))
	assert.Equal(t, []string{"p3"}, childIDs(&forest[0]))
	assert.Equal(t, []string{"p1"}, childIDs(&forest[1]))
	assert.Equal(t, []string{"p2"}, childIDs(&forest[2]))
}

func TestBuildForestProxyFallsThroughToHostname(t *testing.T) {
	t.Parallel()

	records := []models.AgentRecord{
		agent("r1", "alpha", "mtls", ""),
		agent("p1", "alpha", "namedpipe", `\\.\pipe\nowhere`),
	}

	forest := BuildForest(records)

	require.Len(t, forest, 1)
	assert.Equal(t, []string{"p1"}, childIDs(&forest[0]))
}

func TestBuildForestFallbackRootsAppendedLast(t *testing.T) {
	t.Parallel()

	records := []models.AgentRecord{
		agent("p1", "ghost", "tcppivot", ""),
		agent("r1", "alpha", "mtls", ""),
		agent("p2", "bravo", "bind", ""),
		agent("r2", "bravo", "http", ""),
	}

	forest := BuildForest(records)

	// bind does not use the hostname rule, so p2 cannot attach to r2.
	assert.Equal(t, []string{"r1", "r2", "p1", "p2"}, rootIDs(forest))
	for i := range forest {
		assert.Empty(t, forest[i].Children)
	}
}

func TestBuildForestFallbackRootsAreNotParents(t *testing.T) {
	t.Parallel()

	records := []models.AgentRecord{
		agent("p1", "alpha", "tcppivot", ""),
		agent("p2", "beta", "http", "tcp://p1"),
	}

	forest := BuildForest(records)

	assert.Equal(t, []string{"p1", "p2"}, rootIDs(forest))
	assert.Equal(t, 2, Count(forest))
}

func TestBuildForestChildrenInInputOrder(t *testing.T) {
	t.Parallel()

	records := []models.AgentRecord{
		agent("r1", "alpha", "mtls", ""),
		agent("c3", "alpha", "namedpipe", ""),
		agent("c1", "alpha", "tcppivot", ""),
		agent("c2", "x", "http", "r1"),
	}

	forest := BuildForest(records)

	require.Len(t, forest, 1)
	assert.Equal(t, []string{"c3", "c1", "c2"}, childIDs(&forest[0]))
}

func TestFlattenAndWalk(t *testing.T) {
	t.Parallel()

	forest := BuildForest([]models.AgentRecord{
		agent("r1", "alpha", "mtls", ""),
		agent("c1", "alpha", "namedpipe", ""),
		agent("r2", "bravo", "http", ""),
	})

	flat := Flatten(forest)
	assert.Len(t, flat, 3)
	assert.Equal(t, "alpha", flat["c1"].Hostname)

	var visited []string
	var depths []int

	Walk(forest, func(n *models.TopologyNode, depth int) bool {
		visited = append(visited, n.Agent.ID)
		depths = append(depths, depth)

		return true
	})

	assert.Equal(t, []string{"r1", "c1", "r2"}, visited)
	assert.Equal(t, []int{0, 1, 0}, depths)

	var pruned []string

	Walk(forest, func(n *models.TopologyNode, _ int) bool {
		pruned = append(pruned, n.Agent.ID)
		return false
	})

	assert.Equal(t, []string{"r1", "r2"}, pruned)
}

func TestBuildForestEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, BuildForest(nil))
	assert.Empty(t, Flatten(nil))
}
