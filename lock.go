package taskloop

// Lock is a simple mutual-exclusion primitive: at most one task holds it,
// others calling Acquire suspend on a FIFO waiter queue until Release.
// Grounded on asyncio.Lock's acquire()/release(), including its fairness
// guarantee: a freshly arriving caller must not barge ahead of a waiter
// Release has already handed the lock to, just because it hasn't resumed
// to actually claim it yet.
type Lock struct {
	loop    *Loop
	locked  bool
	waiters *TaskQueue
	// handoffTarget is the specific *Task Release most recently popped and
	// woke, from the moment it's woken until it either claims the lock or
	// is cancelled first. While set, any other Acquire call (including a
	// fresh one that finds locked == false) must still queue behind it.
	handoffTarget *Task
}

// NewLock returns a new, unlocked Lock bound to loop.
func NewLock(loop *Loop) *Lock {
	return &Lock{loop: loop, waiters: NewTaskQueue()}
}

// Locked reports whether the lock is currently held.
func (l *Lock) Locked() bool {
	return l.locked
}

// Acquire suspends the calling task until the lock is free and no other
// waiter is already ahead of it in line, then takes it.
func (c *Control) Acquire(l *Lock) error {
	self := c.loop.current
	for l.locked || (l.handoffTarget != nil && l.handoffTarget != self) {
		if _, err := c.suspend(l.waiters); err != nil {
			if l.handoffTarget == self {
				// Cancelled after Release already handed the lock to us but
				// before we resumed to claim it: pass the handoff on rather
				// than stranding it and deadlocking every other waiter.
				l.handoffTarget = nil
				l.wakeNext()
			}
			return err
		}
	}
	if l.handoffTarget == self {
		l.handoffTarget = nil
	}
	l.locked = true
	return nil
}

// Release frees the lock and hands it to the next waiter in line, if any.
// Returns ErrInvalidState if the lock is not currently held, mirroring
// asyncio.Lock.release()'s RuntimeError on the same misuse.
func (l *Lock) Release() error {
	if !l.locked {
		return ErrInvalidState
	}
	l.locked = false
	l.wakeNext()
	return nil
}

func (l *Lock) wakeNext() {
	if w := l.waiters.Pop(); w != nil {
		l.handoffTarget = w
		l.loop.wake(w, nil, nil)
	}
}
