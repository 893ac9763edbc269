package taskloop

import (
	"errors"
	"fmt"
)

// Sentinel errors for the scheduler's error taxonomy. Use errors.Is to test
// for these; wrapped errors (via WrapError or CancelledError.Unwrap) still
// match.
var (
	// ErrCancelled is raised into a task when it (or something it is
	// transitively awaiting) is cancelled. It is never passed to the
	// exception handler: a cancelled task is expected behavior, not a
	// fault.
	ErrCancelled = errors.New("taskloop: cancelled")

	// ErrTimeout is returned by WaitFor when the deadline elapses before the
	// awaited work finishes. Wait does not return it: a timed-out Wait
	// reports the unfinished tasks in its pending slice instead.
	ErrTimeout = errors.New("taskloop: timed out")

	// ErrInvalidState is returned when an operation is attempted against a
	// Task or primitive in a state that does not permit it (for example,
	// reading Result before Done).
	ErrInvalidState = errors.New("taskloop: invalid state")

	// ErrQueueEmpty is returned by Queue.GetNoWait when the queue has
	// nothing to dequeue.
	ErrQueueEmpty = errors.New("taskloop: queue is empty")

	// ErrQueueFull is returned by Queue.PutNoWait when a bounded queue is
	// at capacity.
	ErrQueueFull = errors.New("taskloop: queue is full")

	// ErrNoRunningLoop is returned by CurrentTask and similar loop-relative
	// accessors when called outside of Run.
	ErrNoRunningLoop = errors.New("taskloop: no running loop")

	// ErrCantCancelSelf is returned by Task.Cancel when asked to cancel the
	// task that is currently executing.
	ErrCantCancelSelf = errors.New("taskloop: task cannot cancel itself")

	// ErrCantWait is returned by Wait/WaitFor when given no awaitables, or
	// when called from outside a running loop. Gather has no such case: an
	// empty awaitable list returns an empty result and no error, per
	// funcs.py's own `if not aws: return []`.
	ErrCantWait = errors.New("taskloop: nothing to wait for")

	// ErrSelectorUnsupported is returned by RegisterFD on platforms with no
	// native readiness-selector implementation (anything but linux/darwin).
	ErrSelectorUnsupported = errors.New("taskloop: no I/O selector on this platform")
)

// CancelledError is the concrete error value delivered to a task's
// coroutine when it is cancelled. It wraps ErrCancelled so errors.Is(err,
// ErrCancelled) succeeds, and carries the caller-supplied message, if any.
type CancelledError struct {
	Message string
}

// Error implements the error interface.
func (e *CancelledError) Error() string {
	if e.Message == "" {
		return ErrCancelled.Error()
	}
	return fmt.Sprintf("%s: %s", ErrCancelled.Error(), e.Message)
}

// Unwrap allows errors.Is(err, ErrCancelled) to succeed.
func (e *CancelledError) Unwrap() error {
	return ErrCancelled
}

// TaskPanicError wraps a value recovered from a panic inside a task's
// coroutine function. Unlike a scheduler invariant violation (which trips an
// assertion and crashes the process), a panicking task is a task-scoped
// failure: it is recovered, wrapped, and delivered as the task's exception
// like any other error.
type TaskPanicError struct {
	Value any
}

// Error implements the error interface.
func (e *TaskPanicError) Error() string {
	return fmt.Sprintf("taskloop: task panicked: %v", e.Value)
}

// Unwrap returns the recovered value if it is itself an error.
func (e *TaskPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// WrapError wraps cause with a message, preserving it for errors.Is/As.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
