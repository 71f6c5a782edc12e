package tui

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musyoka101/sliver-tui/pkg/logger"
	"github.com/musyoka101/sliver-tui/pkg/models"
	"github.com/musyoka101/sliver-tui/pkg/monitor"
	"github.com/musyoka101/sliver-tui/pkg/render"
)

var (
	t0            = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	errClipboard  = errors.New("no clipboard")
	errTeamserver = errors.New("teamserver unreachable")
)

type fakeMonitor struct {
	snap      *monitor.Snapshot
	err       error
	refreshes int
}

func (f *fakeMonitor) Snapshot() *monitor.Snapshot { return f.snap }
func (f *fakeMonitor) LastError() error            { return f.err }
func (f *fakeMonitor) Refresh()                    { f.refreshes++ }

func testSnapshot() *monitor.Snapshot {
	return &monitor.Snapshot{
		Sequence: 1,
		TickAt:   t0,
		Forest: models.Forest{
			{
				Agent: models.AgentRecord{ID: "aaaaaaaa-1111", Kind: models.KindSession, Hostname: "web01",
					Username: "root", OS: "linux", Transport: "mtls"},
				Children: []models.TopologyNode{
					{Agent: models.AgentRecord{ID: "bbbbbbbb-2222", Kind: models.KindBeacon, Hostname: "db01",
						Username: "bob", OS: "windows", Transport: "tcppivot"}},
				},
			},
		},
		New: map[string]bool{},
	}
}

func newTestModel(t *testing.T, mon *fakeMonitor, opts ...Option) *Model {
	t.Helper()

	r, err := render.NewRenderer(&bytes.Buffer{}, "default")
	require.NoError(t, err)

	opts = append([]Option{WithNow(func() time.Time { return t0 })}, opts...)
	m := New(mon, r, logger.NewTestLogger(), opts...)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	return m
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelRendersSnapshot(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, &fakeMonitor{})
	assert.Contains(t, m.View(), "waiting for agents")

	m.Update(snapshotMsg{snap: testSnapshot()})

	out := m.View()
	assert.Contains(t, out, "root@web01")
	assert.Contains(t, out, "bob@db01")
	assert.Contains(t, out, "╰─")
}

func TestModelEmptyForest(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, &fakeMonitor{snap: &monitor.Snapshot{TickAt: t0}})

	assert.Contains(t, m.View(), render.NoAgentsText)
}

func TestModelFailureAndRecovery(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, &fakeMonitor{snap: testSnapshot()})

	m.Update(failureMsg{err: errTeamserver})
	assert.Contains(t, m.View(), "refresh failed: teamserver unreachable")
	assert.Contains(t, m.View(), "root@web01")

	m.Update(snapshotMsg{snap: testSnapshot()})
	assert.NotContains(t, m.View(), "refresh failed")
}

func TestModelKeys(t *testing.T) {
	t.Parallel()

	mon := &fakeMonitor{snap: testSnapshot()}
	m := newTestModel(t, mon)

	m.Update(keyPress("r"))
	assert.Equal(t, 1, mon.refreshes)

	m.Update(keyPress("v"))
	assert.Equal(t, render.ModeDashboard, m.mode)
	assert.Contains(t, m.View(), "Overview")

	m.Update(keyPress("v"))
	assert.Equal(t, render.ModeTree, m.mode)

	m.Update(keyPress("t"))
	assert.Equal(t, "dracula", m.renderer.Theme())
	m.Update(keyPress("t"))
	assert.Equal(t, "default", m.renderer.Theme())

	m.Update(keyPress("l"))
	assert.True(t, m.renderer.HideLost())

	_, cmd := m.Update(keyPress("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModelCopyIDs(t *testing.T) {
	t.Parallel()

	var copied string

	m := newTestModel(t, &fakeMonitor{snap: testSnapshot()}, WithClipboard(func(s string) error {
		copied = s
		return nil
	}))

	m.Update(keyPress("c"))
	assert.Equal(t, "aaaaaaaa-1111\nbbbbbbbb-2222", copied)
	assert.Contains(t, m.View(), "Copied 2 agent IDs")

	failing := newTestModel(t, &fakeMonitor{snap: testSnapshot()}, WithClipboard(func(string) error {
		return errClipboard
	}))

	failing.Update(keyPress("c"))
	assert.Contains(t, failing.View(), "Failed to copy to clipboard")

	empty := newTestModel(t, &fakeMonitor{}, WithClipboard(func(string) error {
		t.Fatal("clipboard must not be written without agents")
		return nil
	}))

	empty.Update(keyPress("c"))
	assert.Equal(t, "Nothing to copy", empty.message)
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.msgs = append(r.msgs, msg)
}

func TestPublisherForwardsMessages(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	p := NewPublisher(sender)
	snap := testSnapshot()

	assert.Equal(t, "tui", p.Name())
	require.NoError(t, p.Publish(context.Background(), snap))
	p.ObserveFailure(errTeamserver)

	require.Len(t, sender.msgs, 2)
	assert.Equal(t, snapshotMsg{snap: snap}, sender.msgs[0])
	assert.Equal(t, failureMsg{err: errTeamserver}, sender.msgs[1])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, p.Publish(ctx, snap), context.Canceled)
	assert.Len(t, sender.msgs, 2)
}
