package taskloop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeverOnlyResumesOnExternalWake(t *testing.T) {
	loop, err := NewLoop()
	require.NoError(t, err)
	defer loop.Close()

	waiter := loop.CreateTask(Func(func(c *Control) (any, error) {
		return c.Never()
	}), "waiter")

	loop.CreateTask(Func(func(c *Control) (any, error) {
		if err := c.Sleep(5); err != nil {
			return nil, err
		}
		c.loop.wake(waiter, "woken", nil)
		return nil, nil
	}), "waker")

	result, err := loop.RunUntilComplete(context.Background(), waiter)
	require.NoError(t, err)
	assert.Equal(t, "woken", result)
}

func TestFuncPanicDuringResumeStillYieldsTaskPanicError(t *testing.T) {
	loop, err := NewLoop()
	require.NoError(t, err)
	defer loop.Close()

	_, err = loop.Run(context.Background(), Func(func(c *Control) (any, error) {
		if err := c.Sleep(1); err != nil {
			return nil, err
		}
		panic("late panic")
	}))
	require.Error(t, err)
	var panicErr *TaskPanicError
	require.ErrorAs(t, err, &panicErr)
}

func TestStepErrorBeforeFirstStepNeverRunsBody(t *testing.T) {
	ran := false
	co := Func(func(c *Control) (any, error) {
		ran = true
		return nil, nil
	})

	boom := assert.AnError
	result, done, err := co.StepError(boom)
	assert.True(t, done)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, boom)
	assert.False(t, ran, "coroutine body must not run once raised into before its first step")
}

func TestCancelBeforeFirstStepNeverRunsTaskBody(t *testing.T) {
	loop, err := NewLoop()
	require.NoError(t, err)
	defer loop.Close()

	ran := false
	_, err = loop.Run(context.Background(), Func(func(c *Control) (any, error) {
		task := c.loop.CreateTask(Func(func(c2 *Control) (any, error) {
			ran = true
			return nil, nil
		}), "never-runs")
		ok, cerr := task.Cancel("cancelled before it ever started")
		require.NoError(t, cerr)
		require.True(t, ok)

		_, awaitErr := c.Await(task)
		return nil, awaitErr
	}))
	var cancelErr *CancelledError
	require.ErrorAs(t, err, &cancelErr)
	assert.False(t, ran, "task cancelled before its first step must never run its body")
}

func TestStepAfterFinishPanics(t *testing.T) {
	co := Func(func(c *Control) (any, error) {
		return nil, nil
	})
	_, done, _ := co.Step(nil)
	require.True(t, done)
	assert.Panics(t, func() {
		_, _, _ = co.Step(nil)
	})
}
