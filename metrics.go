package taskloop

import "time"

// Metrics summarizes scheduler tick latency — the wall-clock time spent
// executing one full tick (draining every ready task, then polling).
// Adapted from the teacher's Metrics/LatencyMetrics (metrics.go): the
// teacher's thread-safe, multi-writer design (mutex-guarded, built for
// concurrent producers) is unnecessary here, since the only writer is the
// loop goroutine itself; it's simplified to a bare struct updated
// in-place, read only via Loop.Metrics() (also only ever called from that
// same goroutine, or after Run has returned).
type Metrics struct {
	quantiles *pSquareMultiQuantile
	ticks     int64
}

func newMetrics() *Metrics {
	return &Metrics{
		// P50/P90/P99, matching the teacher's default percentile set.
		quantiles: newPSquareMultiQuantile(0.50, 0.90, 0.99),
	}
}

func (m *Metrics) record(d time.Duration) {
	m.ticks++
	m.quantiles.Update(float64(d.Microseconds()))
}

// TickCount returns the number of ticks recorded.
func (m *Metrics) TickCount() int64 {
	return m.ticks
}

// P50 returns the estimated median tick latency.
func (m *Metrics) P50() time.Duration {
	return time.Duration(m.quantiles.Quantile(0)) * time.Microsecond
}

// P90 returns the estimated 90th-percentile tick latency.
func (m *Metrics) P90() time.Duration {
	return time.Duration(m.quantiles.Quantile(1)) * time.Microsecond
}

// P99 returns the estimated 99th-percentile tick latency.
func (m *Metrics) P99() time.Duration {
	return time.Duration(m.quantiles.Quantile(2)) * time.Microsecond
}

// Mean returns the mean tick latency observed so far.
func (m *Metrics) Mean() time.Duration {
	return time.Duration(m.quantiles.Mean()) * time.Microsecond
}
