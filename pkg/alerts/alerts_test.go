package alerts

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musyoka101/sliver-tui/pkg/models"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func counterIDs() ManagerOption {
	n := 0

	return WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("alert-%d", n)
	})
}

func TestTTLFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 35*time.Second, TTLFor(TypeCritical, CategorySessionLost))
	assert.Equal(t, 25*time.Second, TTLFor(TypeWarning, CategoryBeaconMissed))
	assert.Equal(t, 20*time.Second, TTLFor(TypeSuccess, CategorySessionAcquired))
	assert.Equal(t, 15*time.Second, TTLFor(TypeInfo, CategoryTaskQueued))
	assert.Equal(t, 13*time.Second, TTLFor(TypeNotice, CategoryTaskQueued))
	assert.Equal(t, 50*time.Second, TTLFor(TypeSuccess, CategoryPrivilegedBeaconAcquired))
	assert.Equal(t, 50*time.Second, TTLFor(TypeSuccess, CategoryPrivilegeEscalated))
}

func TestManagerNewestFirstAndCap(t *testing.T) {
	t.Parallel()

	m := NewManager(2, counterIDs())

	for i, id := range []string{"a", "b", "c"} {
		require.True(t, m.Add(Alert{Type: TypeInfo, Category: CategoryTaskQueued, AgentID: id, Timestamp: t0.Add(time.Duration(i) * time.Second)}))
	}

	active := m.Active(t0.Add(3 * time.Second))
	require.Len(t, active, 2)
	assert.Equal(t, "c", active[0].AgentID)
	assert.Equal(t, "b", active[1].AgentID)
	assert.Equal(t, "alert-3", active[0].ID)
	assert.Equal(t, 15*time.Second, active[0].TTL)
}

func TestManagerDedup(t *testing.T) {
	t.Parallel()

	m := NewManager(10, counterIDs())
	base := Alert{Type: TypeCritical, Category: CategorySessionLost, AgentID: "a", Timestamp: t0}

	assert.True(t, m.Add(base))

	dup := base
	dup.Timestamp = t0.Add(4 * time.Second)
	assert.False(t, m.Add(dup))

	other := base
	other.AgentID = "b"
	assert.True(t, m.Add(other))

	later := base
	later.Timestamp = t0.Add(5 * time.Second)
	assert.True(t, m.Add(later))
}

func TestManagerExpiry(t *testing.T) {
	t.Parallel()

	m := NewManager(10)
	m.Add(Alert{Type: TypeCritical, Category: CategorySessionLost, AgentID: "a", Timestamp: t0})
	m.Add(Alert{Type: TypeNotice, Category: CategoryTaskQueued, AgentID: "b", Timestamp: t0})

	assert.Len(t, m.Active(t0.Add(12*time.Second)), 2)
	assert.Len(t, m.Active(t0.Add(13*time.Second)), 1)
	assert.True(t, m.HasCritical(t0.Add(34*time.Second)))
	assert.False(t, m.HasCritical(t0.Add(35*time.Second)))
	assert.Empty(t, m.Active(t0.Add(35*time.Second)))
}

func TestManagerClear(t *testing.T) {
	t.Parallel()

	m := NewManager(0)
	assert.Equal(t, DefaultMaxAlerts, m.maxAlerts)

	m.Add(Alert{Type: TypeCritical, Category: CategorySessionLost, AgentID: "a", Timestamp: t0})
	m.Clear()

	assert.Empty(t, m.Active(t0))
	assert.NotEmpty(t, NewManager(1).newID())
}

func categories(alerts []Alert) []Category {
	out := make([]Category, 0, len(alerts))
	for i := range alerts {
		out = append(out, alerts[i].Category)
	}

	return out
}

func TestDetectAcquiredAndLost(t *testing.T) {
	t.Parallel()

	prev := map[string]models.AgentRecord{
		"s-old": {ID: "s-old", Kind: models.KindSession, Hostname: "old"},
		"b-old": {ID: "b-old", Kind: models.KindBeacon},
	}
	cur := map[string]models.AgentRecord{
		"s-root": {ID: "s-root", Kind: models.KindSession, Username: "root", UID: "0", OS: "linux", Hostname: "web"},
		"s-user": {ID: "s-user", Kind: models.KindSession, Username: "bob", OS: "linux"},
		"b-adm":  {ID: "b-adm", Kind: models.KindBeacon, Username: `CORP\Administrator`, OS: "windows"},
		"b-usr":  {ID: "b-usr", Kind: models.KindBeacon, Username: "alice", OS: "windows", IsDead: true},
	}

	got := Detect(prev, cur, t0)

	assert.Equal(t, []Category{
		CategoryPrivilegedBeaconAcquired,
		CategoryBeaconLost,
		CategoryBeaconAcquired,
		CategoryBeaconMissed,
		CategorySessionLost,
		CategoryPrivilegedSessionAcquired,
		CategorySessionAcquired,
	}, categories(got))

	assert.Equal(t, "Unknown", got[1].Hostname)
	assert.Equal(t, "(4 active)", got[0].Details)
	assert.Equal(t, t0, got[0].Timestamp)
}

func TestDetectTransitions(t *testing.T) {
	t.Parallel()

	prev := map[string]models.AgentRecord{
		"x": {ID: "x", Kind: models.KindBeacon, Username: "bob", OS: "linux", TasksCount: 2, TasksCompleted: 1},
		"y": {ID: "y", Kind: models.KindSession, Username: "bob", OS: "linux"},
		"z": {ID: "z", Kind: models.KindBeacon, Username: "bob", OS: "linux"},
	}
	cur := map[string]models.AgentRecord{
		"x": {ID: "x", Kind: models.KindBeacon, Username: "root", OS: "linux", TasksCount: 3, TasksCompleted: 2},
		"y": {ID: "y", Kind: models.KindBeacon, Username: "bob", OS: "linux"},
		"z": {ID: "z", Kind: models.KindSession, Username: "bob", OS: "linux"},
	}

	got := Detect(prev, cur, t0)

	assert.Equal(t, []Category{
		CategoryPrivilegeEscalated,
		CategoryTaskQueued,
		CategoryTaskCompleted,
		CategorySessionClosed,
		CategorySessionOpened,
	}, categories(got))

	assert.Equal(t, "(beacon)", got[0].Details)
	assert.Equal(t, "(1→1 pending)", got[1].Details)
	assert.Equal(t, "(2/3 done)", got[2].Details)
}

func TestDetectSessionDowngradeReportsBeaconTasks(t *testing.T) {
	t.Parallel()

	prev := map[string]models.AgentRecord{
		"x": {ID: "x", Kind: models.KindSession, Username: "bob", OS: "linux"},
	}
	cur := map[string]models.AgentRecord{
		"x": {ID: "x", Kind: models.KindBeacon, Username: "bob", OS: "linux", TasksCount: 2, TasksCompleted: 1},
	}

	got := Detect(prev, cur, t0)

	require.Equal(t, []Category{
		CategorySessionClosed,
		CategoryTaskQueued,
		CategoryTaskCompleted,
	}, categories(got))

	assert.Equal(t, "(0→1 pending)", got[1].Details)
	assert.Equal(t, "(1/2 done)", got[2].Details)
}

func TestDetectNoChange(t *testing.T) {
	t.Parallel()

	state := map[string]models.AgentRecord{"a": {ID: "a", Kind: models.KindSession}}

	assert.Empty(t, Detect(state, state, t0))
}

func TestLabels(t *testing.T) {
	t.Parallel()

	a := Alert{Category: CategoryPrivilegedSessionAcquired}
	assert.Equal(t, "PRIVILEGED SESSION ACQUIRED", a.Label())
	assert.Equal(t, "EVENT", Category(99).String())
	assert.Equal(t, "critical", TypeCritical.String())
}
