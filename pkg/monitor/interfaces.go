package monitor

//go:generate mockgen -destination=mock_monitor.go -package=monitor github.com/musyoka101/sliver-tui/pkg/monitor Clock,Ticker,Publisher

import (
	"context"
	"time"

	"github.com/musyoka101/sliver-tui/pkg/enrich"
	"github.com/musyoka101/sliver-tui/pkg/models"
)

// Clock abstracts time-related operations.
type Clock interface {
	Now() time.Time
	Ticker(d time.Duration) Ticker
}

// Ticker abstracts the ticker behavior.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

// Publisher receives every committed snapshot.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, snap *Snapshot) error
}

// FailureObserver is notified of abandoned ticks.
type FailureObserver interface {
	ObserveFailure(err error)
}

// Enricher attaches display hints to the agents of a forest.
type Enricher interface {
	EnrichForest(f models.Forest) map[string]enrich.Info
}
