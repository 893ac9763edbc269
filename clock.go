package taskloop

import "time"

// Tick is a monotonic millisecond counter, analogous to CircuitPython's
// adafruit_ticks.ticks_ms(): it wraps around (implementation-defined period,
// here the full uint32 range) rather than running away, so every comparison
// between two ticks must go through Diff rather than plain arithmetic.
type Tick uint32

// Diff returns a-b as a signed value, correctly handling wraparound, so
// long as the true difference fits in an int32 (true for any reasonable
// scheduler deadline horizon). A positive result means a is after b.
func (a Tick) Diff(b Tick) int32 {
	return int32(a - b)
}

// Before reports whether a occurs strictly before b, wrap-safe.
func (a Tick) Before(b Tick) bool {
	return a.Diff(b) < 0
}

// clock converts wall-clock time into Ticks relative to a fixed anchor
// chosen once when the Loop is created, matching the teacher's
// tick-anchor design: an arbitrary reference point, not epoch time, so the
// tick space stays small and wraps harmlessly.
type clock struct {
	anchor time.Time
}

func newClock() *clock {
	return &clock{anchor: time.Now()}
}

// now returns the current Tick.
func (c *clock) now() Tick {
	return Tick(uint32(time.Since(c.anchor).Milliseconds()))
}

// add returns the Tick ms milliseconds after t, saturating rather than
// panicking on pathological input.
func (t Tick) add(ms int64) Tick {
	if ms < 0 {
		ms = 0
	}
	return Tick(uint32(int64(t) + ms))
}
