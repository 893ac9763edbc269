package taskloop

// Event is a level-triggered signal: Set wakes every task currently
// blocked in Wait and any future Wait returns immediately until Clear is
// called. Grounded on core's event.py, built directly on a TaskQueue of
// waiters rather than anything more general (CircuitPython explicitly
// dropped the MicroPython ThreadSafeFlag extension as non-standard; this
// scheduler has no cross-thread story at all, so the same applies here).
type Event struct {
	loop    *Loop
	isSet   bool
	waiters *TaskQueue
}

// NewEvent returns a new, unset Event bound to loop.
func NewEvent(loop *Loop) *Event {
	return &Event{loop: loop, waiters: NewTaskQueue()}
}

// IsSet reports whether the event is currently set.
func (e *Event) IsSet() bool {
	return e.isSet
}

// Set marks the event set and wakes every task currently waiting on it.
func (e *Event) Set() {
	if e.isSet {
		return
	}
	e.isSet = true
	for t := e.waiters.Pop(); t != nil; t = e.waiters.Pop() {
		e.loop.wake(t, nil, nil)
	}
}

// Clear marks the event unset. Subsequent Wait calls block until Set.
func (e *Event) Clear() {
	e.isSet = false
}

// WaitEvent suspends the calling task's coroutine until the event is set. If
// already set, it returns immediately without suspending.
func (c *Control) WaitEvent(e *Event) error {
	if e.isSet {
		return nil
	}
	_, err := c.suspend(e.waiters)
	return err
}
