package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/musyoka101/sliver-tui/pkg/monitor"
)

type snapshotMsg struct {
	snap *monitor.Snapshot
}

type failureMsg struct {
	err error
}

// Sender is the part of *tea.Program the publisher needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Publisher forwards committed snapshots and tick failures into a running
// program.
type Publisher struct {
	program Sender
}

func NewPublisher(program Sender) *Publisher {
	return &Publisher{program: program}
}

func (*Publisher) Name() string {
	return "tui"
}

func (p *Publisher) Publish(ctx context.Context, snap *monitor.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.program.Send(snapshotMsg{snap: snap})

	return nil
}

func (p *Publisher) ObserveFailure(err error) {
	p.program.Send(failureMsg{err: err})
}
