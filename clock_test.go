package taskloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTickDiffAndBefore(t *testing.T) {
	a := Tick(100)
	b := Tick(150)
	assert.Equal(t, int32(-50), a.Diff(b))
	assert.Equal(t, int32(50), b.Diff(a))
	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
}

func TestTickWraparound(t *testing.T) {
	// a is just past the uint32 wrap, b just before it; a should still be
	// "after" b despite the raw numeric value being smaller.
	var b Tick = ^Tick(0) - 10 // near max
	a := b.add(20)             // wraps past zero
	assert.True(t, b.Before(a))
	assert.False(t, a.Before(b))
}

func TestTickAddSaturatesNegative(t *testing.T) {
	tick := Tick(100)
	assert.Equal(t, Tick(100), tick.add(-50))
}

func TestClockNowMonotonic(t *testing.T) {
	c := newClock()
	first := c.now()
	second := c.now()
	assert.False(t, second.Before(first))
}
