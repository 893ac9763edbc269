package taskloop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockMutualExclusion(t *testing.T) {
	loop, err := NewLoop()
	require.NoError(t, err)
	defer loop.Close()

	lk := NewLock(loop)
	var active int
	var maxActive int

	worker := func(c *Control) (any, error) {
		if err := c.Acquire(lk); err != nil {
			return nil, err
		}
		active++
		if active > maxActive {
			maxActive = active
		}
		if err := c.Sleep(5); err != nil {
			_ = lk.Release()
			return nil, err
		}
		active--
		return nil, lk.Release()
	}

	taskA := loop.CreateTask(Func(worker), "a")
	taskB := loop.CreateTask(Func(worker), "b")
	taskC := loop.CreateTask(Func(worker), "c")

	_, err = loop.RunUntilComplete(context.Background(), taskA)
	require.NoError(t, err)
	_, err = loop.RunUntilComplete(context.Background(), taskB)
	require.NoError(t, err)
	_, err = loop.RunUntilComplete(context.Background(), taskC)
	require.NoError(t, err)

	assert.Equal(t, 1, maxActive)
	assert.False(t, lk.Locked())
}

func TestLockReleaseWakesOneWaiter(t *testing.T) {
	loop, err := NewLoop()
	require.NoError(t, err)
	defer loop.Close()

	lk := NewLock(loop)
	_, err = loop.Run(context.Background(), Func(func(c *Control) (any, error) {
		return nil, c.Acquire(lk)
	}))
	require.NoError(t, err)

	waiter := loop.CreateTask(Func(func(c *Control) (any, error) {
		return nil, c.Acquire(lk)
	}), "waiter")

	releaser := loop.CreateTask(Func(func(c *Control) (any, error) {
		if err := c.Sleep(5); err != nil {
			return nil, err
		}
		return nil, lk.Release()
	}), "releaser")

	_, err = loop.RunUntilComplete(context.Background(), releaser)
	require.NoError(t, err)
	_, err = loop.RunUntilComplete(context.Background(), waiter)
	require.NoError(t, err)
	assert.True(t, lk.Locked())
}

func TestLockReleaseWithoutHoldingReturnsErrInvalidState(t *testing.T) {
	loop, err := NewLoop()
	require.NoError(t, err)
	defer loop.Close()

	lk := NewLock(loop)
	assert.ErrorIs(t, lk.Release(), ErrInvalidState)
}

// TestLockFreshCallerDoesNotBargeAheadOfHandedOffWaiter reproduces the race
// a lock without asyncio's fairness check is prone to: a waiter already
// queued (b) gets handed the lock by Release, but a third task (c), woken
// in the very same tick for an unrelated reason, calls Acquire before b has
// actually resumed to claim it. c must still queue behind b rather than
// seeing locked == false and taking the lock itself.
func TestLockFreshCallerDoesNotBargeAheadOfHandedOffWaiter(t *testing.T) {
	loop, err := NewLoop()
	require.NoError(t, err)
	defer loop.Close()

	lk := NewLock(loop)
	var order []string

	holder := Func(func(c *Control) (any, error) {
		if err := c.Acquire(lk); err != nil {
			return nil, err
		}
		order = append(order, "holder")
		if err := c.Sleep(5); err != nil {
			_ = lk.Release()
			return nil, err
		}
		return nil, lk.Release()
	})

	b := Func(func(c *Control) (any, error) {
		if err := c.Acquire(lk); err != nil {
			return nil, err
		}
		order = append(order, "b")
		return nil, lk.Release()
	})

	// c never queues behind b explicitly — it's asleep until the same tick
	// b gets handed the lock, then races to Acquire.
	c := Func(func(c *Control) (any, error) {
		if err := c.Sleep(5); err != nil {
			return nil, err
		}
		if err := c.Acquire(lk); err != nil {
			return nil, err
		}
		order = append(order, "c")
		return nil, lk.Release()
	})

	holderTask := loop.CreateTask(holder, "holder")
	bTask := loop.CreateTask(b, "b")
	cTask := loop.CreateTask(c, "c")

	_, err = loop.RunUntilComplete(context.Background(), cTask)
	require.NoError(t, err)
	_, err = loop.RunUntilComplete(context.Background(), bTask)
	require.NoError(t, err)
	_, err = loop.RunUntilComplete(context.Background(), holderTask)
	require.NoError(t, err)

	assert.Equal(t, []string{"holder", "b", "c"}, order)
}
