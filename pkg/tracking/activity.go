package tracking

import (
	"sync"
	"time"

	"github.com/musyoka101/sliver-tui/pkg/models"
)

const (
	DefaultActivitySampleInterval = 10 * time.Minute
	DefaultActivityMaxSamples     = 72
)

// ActivitySample is one point of the rolling activity history.
type ActivitySample struct {
	Timestamp  time.Time `json:"timestamp"`
	Sessions   int       `json:"sessions"`
	Beacons    int       `json:"beacons"`
	New        int       `json:"new"`
	Privileged int       `json:"privileged"`
}

// ActivityTracker keeps a bounded, rate-limited window of activity samples.
type ActivityTracker struct {
	mu       sync.RWMutex
	samples  []ActivitySample
	interval time.Duration
	max      int
}

func NewActivityTracker(interval time.Duration, maxSamples int) *ActivityTracker {
	if interval <= 0 {
		interval = DefaultActivitySampleInterval
	}

	if maxSamples <= 0 {
		maxSamples = DefaultActivityMaxSamples
	}

	return &ActivityTracker{
		samples:  make([]ActivitySample, 0, maxSamples),
		interval: interval,
		max:      maxSamples,
	}
}

// Record appends a sample built from stats unless the previous sample is
// younger than the sample interval. It reports whether a sample was taken.
func (a *ActivityTracker) Record(now time.Time, stats *models.Stats) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.samples); n > 0 && now.Sub(a.samples[n-1].Timestamp) < a.interval {
		return false
	}

	a.samples = append(a.samples, ActivitySample{
		Timestamp:  now,
		Sessions:   stats.Sessions,
		Beacons:    stats.Beacons,
		New:        stats.NewAgents,
		Privileged: stats.Privileged,
	})

	if len(a.samples) > a.max {
		a.samples = append(a.samples[:0:0], a.samples[len(a.samples)-a.max:]...)
	}

	return true
}

// Samples returns a copy of the window, oldest first.
func (a *ActivityTracker) Samples() []ActivitySample {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]ActivitySample, len(a.samples))
	copy(out, a.samples)

	return out
}
