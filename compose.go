package taskloop

// ReturnWhen selects when Wait is satisfied: once every awaited task has
// finished, or as soon as any one of them finishes with an error.
type ReturnWhen uint8

const (
	// AllCompleted waits for every awaited task to finish.
	AllCompleted ReturnWhen = iota
	// FirstException returns as soon as any awaited task finishes with a
	// non-cancellation error, leaving the rest pending.
	FirstException
)

// promote turns a or a *Task into a scheduled *Task: a bare Coroutine is
// wrapped with CreateTask, a *Task is returned unchanged. Grounded on
// core.py's _promote_to_task.
func (l *Loop) promote(a any) *Task {
	switch v := a.(type) {
	case *Task:
		return v
	case Coroutine:
		return l.CreateTask(v, "")
	default:
		panic("taskloop: not awaitable (need *Task or Coroutine)")
	}
}

// Wait suspends the calling task until returnWhen is satisfied among the
// given awaitables, or until timeoutMs milliseconds elapse (timeoutMs <= 0
// means no timeout). It returns the tasks already finished and those still
// pending. Wait itself never raises ErrTimeout — a non-empty pending slice
// on return is the caller's signal that the deadline won.
//
// Grounded on core's funcs.py wait(); resolves the spec's "done"/"pending"
// naming ambiguity (see SPEC_FULL.md) as ordered []* Task with linear scan,
// since the number of awaited tasks in one call is always small on this
// target.
func (c *Control) Wait(aws []any, timeoutMs int64, returnWhen ReturnWhen) (done, pending []*Task, err error) {
	if len(aws) == 0 {
		return nil, nil, ErrCantWait
	}
	self := c.loop.current
	if self == nil {
		return nil, nil, ErrCantWait
	}

	tasks := make([]*Task, len(aws))
	for i, a := range aws {
		tasks[i] = c.loop.promote(a)
	}

	var timeoutTask *Task
	if timeoutMs > 0 {
		timeoutTask = c.loop.CreateTask(Func(func(tc *Control) (any, error) {
			return nil, tc.Sleep(timeoutMs)
		}), "wait-timeout")
	}

	satisfied := func() bool {
		if timeoutTask != nil && timeoutTask.Done() {
			return true
		}
		allDone := true
		for _, t := range tasks {
			if !t.Done() {
				allDone = false
				continue
			}
			if returnWhen == FirstException && t.err != nil && !isCancelledErr(t.err) {
				return true
			}
		}
		return allDone
	}

	woken := false
	wake := func() {
		if woken || !satisfied() {
			return
		}
		woken = true
		c.loop.wake(self, nil, nil)
	}

	if !satisfied() {
		cancels := make([]func(), 0, len(tasks)+1)
		for _, t := range tasks {
			cancels = append(cancels, t.onCompletion(wake))
		}
		if timeoutTask != nil {
			cancels = append(cancels, timeoutTask.onCompletion(wake))
		}
		_, err := c.Never()
		// Whichever way Never returns, every sibling and the timeout task
		// that is still pending is holding a reference to wake (and
		// everything wake closes over) via its doneCallbacks — drop it now
		// rather than waiting for that task's own eventual completion.
		for _, cancel := range cancels {
			cancel()
		}
		if err != nil {
			if timeoutTask != nil && !timeoutTask.Done() {
				_, _ = timeoutTask.Cancel("wait cancelled")
			}
			return nil, nil, err
		}
	}

	if timeoutTask != nil && !timeoutTask.Done() {
		_, _ = timeoutTask.Cancel("wait satisfied")
	}

	for _, t := range tasks {
		if t.Done() {
			done = append(done, t)
		} else {
			pending = append(pending, t)
		}
	}
	return done, pending, nil
}

// WaitFor awaits a single awaitable, cancelling it and returning ErrTimeout
// if timeoutMs elapses first (timeoutMs must be > 0). Cancellation of the
// calling task propagates to the awaited one.
func (c *Control) WaitFor(aw any, timeoutMs int64) (any, error) {
	if timeoutMs <= 0 {
		return nil, ErrCantWait
	}
	t := c.loop.promote(aw)
	_, pending, err := c.Wait([]any{t}, timeoutMs, AllCompleted)
	if err != nil {
		_, _ = t.Cancel("wait_for cancelled")
		return nil, err
	}
	if len(pending) > 0 {
		_, _ = t.Cancel("wait_for timed out")
		return nil, ErrTimeout
	}
	return t.Result()
}

// Gather promotes every awaitable to a task and waits on them, returning
// their results in submission order. returnExceptions selects the two
// modes funcs.py's gather(*aws, return_exceptions) supports:
//   - false (the common case): returns as soon as any task finishes with a
//     non-cancellation error, cancelling every still-running sibling and
//     propagating that first error.
//   - true: always waits for every task to finish (no early exit, nothing
//     gets cancelled), and each failing task's error is placed into the
//     results slice at its index instead of being returned — the overall
//     error return is always nil in this mode.
//
// With zero awaitables, matches funcs.py's `if not aws: return []` — an
// empty, non-nil result and no error, unlike Wait/WaitFor's empty-set
// ErrCantWait.
func (c *Control) Gather(returnExceptions bool, aws ...any) ([]any, error) {
	if len(aws) == 0 {
		return []any{}, nil
	}
	tasks := make([]*Task, len(aws))
	for i, a := range aws {
		tasks[i] = c.loop.promote(a)
	}

	returnWhen := FirstException
	if returnExceptions {
		returnWhen = AllCompleted
	}

	_, _, err := c.Wait(anySlice(tasks), 0, returnWhen)
	if err != nil {
		for _, t := range tasks {
			if !t.Done() {
				_, _ = t.Cancel("gather aborted")
			}
		}
		return nil, err
	}

	if !returnExceptions {
		for _, t := range tasks {
			if !t.Done() {
				// One task raised; the rest are still running — abort them,
				// matching the "cancel-all on exception" behavior. Cancel
				// only schedules the cancellation; it does not run
				// synchronously, so t is not necessarily Done() yet even
				// after this call returns.
				_, _ = t.Cancel("gather aborted: sibling failed")
			}
		}
	}

	var firstErr error
	results := make([]any, len(tasks))
	for i, t := range tasks {
		if !t.Done() {
			// Still unwinding from the cancel above (FirstException mode
			// only) — it never produced a result, and its eventual
			// CancelledError isn't the failure that triggered the abort, so
			// it must not be allowed to clobber firstErr.
			continue
		}
		res, terr := t.Result()
		if terr != nil {
			if returnExceptions {
				results[i] = terr
				continue
			}
			if firstErr == nil {
				firstErr = terr
			}
			continue
		}
		results[i] = res
	}
	if returnExceptions {
		return results, nil
	}
	return results, firstErr
}

func anySlice(tasks []*Task) []any {
	out := make([]any, len(tasks))
	for i, t := range tasks {
		out[i] = t
	}
	return out
}
