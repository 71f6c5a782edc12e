package render

import (
	"strings"

	"github.com/musyoka101/sliver-tui/pkg/tracking"
)

const emptyBar = "░"

var barLevels = []string{"▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// Metric selects a series from activity samples.
type Metric func(tracking.ActivitySample) int

var (
	MetricSessions   Metric = func(s tracking.ActivitySample) int { return s.Sessions }
	MetricBeacons    Metric = func(s tracking.ActivitySample) int { return s.Beacons }
	MetricNew        Metric = func(s tracking.ActivitySample) int { return s.New }
	MetricPrivileged Metric = func(s tracking.ActivitySample) int { return s.Privileged }
)

// Sparkline renders the metric over samples in exactly width cells. Short
// series are left-padded; long ones are averaged into buckets.
func Sparkline(samples []tracking.ActivitySample, metric Metric, width int) string {
	if width <= 0 {
		return ""
	}

	values := make([]int, len(samples))
	maxValue := 0

	for i := range samples {
		values[i] = metric(samples[i])
		if values[i] > maxValue {
			maxValue = values[i]
		}
	}

	if maxValue == 0 {
		return strings.Repeat(emptyBar, width)
	}

	var b strings.Builder

	if len(values) <= width {
		b.WriteString(strings.Repeat(emptyBar, width-len(values)))

		for _, v := range values {
			b.WriteString(bar(v, maxValue))
		}

		return b.String()
	}

	per := float64(len(values)) / float64(width)

	for i := 0; i < width; i++ {
		start := int(float64(i) * per)
		end := int(float64(i+1) * per)

		if end > len(values) {
			end = len(values)
		}

		if end <= start {
			end = start + 1
		}

		sum := 0
		for _, v := range values[start:end] {
			sum += v
		}

		b.WriteString(bar(sum/(end-start), maxValue))
	}

	return b.String()
}

func bar(value, maxValue int) string {
	if maxValue <= 0 || value <= 0 {
		return emptyBar
	}

	idx := int(float64(value) / float64(maxValue) * float64(len(barLevels)))
	if idx >= len(barLevels) {
		idx = len(barLevels) - 1
	}

	return barLevels[idx]
}
