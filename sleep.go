package taskloop

import "time"

// sleepDuration is what a task yields (via Control.Sleep) to ask the loop
// to reschedule it ms milliseconds in the future. Grounded on core.py's
// sleep_ms: a singleton-shaped suspension request the loop turns into an
// absolute deadline at the moment it is observed, not at the moment it was
// constructed, so a task that sleeps from inside a long-running call still
// sleeps relative to when it actually yields.
type sleepDuration struct {
	ms int64
}

// neverMarker is what Control.Never yields: suspend indefinitely. The task
// is not placed back on the timer heap; only an explicit wake (a
// synchronization primitive's waiter list, or cancellation) will resume it.
// Grounded on core.py's _never()/_NeverSingletonGenerator.
type neverMarker struct{}

// SleepMs returns a duration in milliseconds suitable for Control.Sleep,
// converting from an idiomatic time.Duration.
func SleepMs(d time.Duration) int64 {
	return d.Milliseconds()
}
