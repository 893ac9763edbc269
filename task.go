package taskloop

import "fmt"

// Coroutine is the narrow interface the scheduler drives. It mirrors a
// Python generator's send()/throw() protocol: Step resumes execution by
// handing back a value from the last suspension point; StepError resumes by
// raising err at that point instead (used to deliver cancellation and other
// injected errors). Both return the next yielded value (what the coroutine
// is now waiting on) together with done and the coroutine's final error
// (err from Step, stepErr from StepError) when the coroutine has finished.
//
// A yielded value is one of: nil (requeue as ready at the current tick), a
// *Task (await another task), a *TaskQueue (suspend on a wait list, e.g.
// Event/Queue/Lock), an *ioWait (suspend for FD readiness), a
// sleepDuration (a relative delay the loop turns into a deadline) or a
// neverMarker (see sleep.go). Anything else is a scheduler invariant
// violation.
type Coroutine interface {
	Step(value any) (yielded any, done bool, err error)
	StepError(err error) (yielded any, done bool, stepErr error)
}

type taskStateKind uint8

const (
	stateRunnable taskStateKind = iota
	stateWaiters
	stateDoneUnclaimed
	stateDoneClaimed
)

// Task is the scheduler's unit of concurrency: a coroutine plus the
// bookkeeping needed to schedule it, await it, and cancel it. Task embeds
// the pairing-heap intrusive fields directly (no wrapper node is ever
// allocated for queue membership).
type Task struct {
	// pairing heap membership (see heap.go); phKey is the Tick at which
	// this task becomes eligible to run, or the current tick for tasks
	// already ready.
	phKey       Tick
	phSeq       uint64
	phParent    *Task
	phChild     *Task
	phChildLast *Task
	phNext      *Task

	loop *Loop
	coro Coroutine
	name string

	// data is the polymorphic "what am I waiting on" slot: nil, *Task
	// (awaiting another task), *TaskQueue (the list of waiters this task
	// is enqueued in) or *ioWait. It is nil while the task is ready or
	// sleeping, and also while it is suspended via Never.
	data any

	// stateKind is this task's own scheduling state: runnable, blocked
	// (data+stateWaiters describes on what), or done.
	stateKind taskStateKind

	// waiters holds every *other* task currently suspended awaiting this
	// one via Control.Await(t) — woken and drained in finish(). Unrelated
	// to stateKind: it exists regardless of what this task itself is
	// doing.
	waiters *TaskQueue

	result any
	err    error

	cancelRequested bool
	cancelMessage   string

	// pendingValue/pendingErr are the resume payload for the next Step:
	// set by loop.wake (and scheduleCancel) when the task is requeued,
	// consumed by loop.step immediately before calling Step/StepError.
	pendingValue any
	pendingErr   error

	// doneCallbacks are plain Go-level observers notified on completion,
	// distinct from waiters (other tasks suspended via Control.Await on
	// this one): used by Wait/Gather, which need to know this task
	// finished without themselves being represented as a queued waiter.
	// Keyed by an opaque id so a cancel func can delete its own entry
	// outright instead of merely neutering it, which would otherwise leave
	// finish()'s hadWatchers check permanently (and wrongly) true.
	doneCallbacks  map[uint64]func()
	nextCallbackID uint64
}

// onCompletion registers cb to run once the task finishes, returning a
// cancel function that unregisters it. If the task has already finished, cb
// runs immediately and the returned cancel is a no-op. Callers that may
// return before the task finishes (Wait, on timeout or an early
// FirstException exit) must call cancel, both to avoid pinning cb's
// captures for the remaining lifetime of a still-pending task and so a task
// nobody ends up watching is still reported via finish()'s unclaimed-error
// path.
func (t *Task) onCompletion(cb func()) (cancel func()) {
	if t.Done() {
		cb()
		return func() {}
	}
	if t.doneCallbacks == nil {
		t.doneCallbacks = make(map[uint64]func())
	}
	id := t.nextCallbackID
	t.nextCallbackID++
	t.doneCallbacks[id] = cb
	return func() { delete(t.doneCallbacks, id) }
}

func newTask(loop *Loop, coro Coroutine, name string) *Task {
	return &Task{
		loop:      loop,
		coro:      coro,
		name:      name,
		phKey:     loop.clock.now(),
		stateKind: stateRunnable,
		waiters:   NewTaskQueue(),
	}
}

// GetCoro returns the coroutine backing this task.
func (t *Task) GetCoro() Coroutine {
	return t.coro
}

// String implements fmt.Stringer for debug/log output.
func (t *Task) String() string {
	if t.name != "" {
		return fmt.Sprintf("Task(%s)", t.name)
	}
	return fmt.Sprintf("Task(%p)", t)
}

// Done reports whether the task has finished, successfully, with an error,
// or via cancellation, whether or not its result has been claimed yet.
func (t *Task) Done() bool {
	return t.stateKind == stateDoneUnclaimed || t.stateKind == stateDoneClaimed
}

// Cancelled reports whether the task finished because it was cancelled.
func (t *Task) Cancelled() bool {
	return t.Done() && isCancelledErr(t.err)
}

func isCancelledErr(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(*CancelledError)
	return ok
}

// Result returns the task's return value. It is ErrInvalidState if the task
// has not finished, and returns the task's error if it finished abnormally.
func (t *Task) Result() (any, error) {
	if !t.Done() {
		return nil, ErrInvalidState
	}
	t.claim()
	if t.err != nil {
		return nil, t.err
	}
	return t.result, nil
}

// Exception returns the error the task finished with, or nil if it
// completed successfully. It is ErrInvalidState if the task has not
// finished.
func (t *Task) Exception() error {
	if !t.Done() {
		return ErrInvalidState
	}
	t.claim()
	return t.err
}

// claim marks a finished task's outcome as observed. It does not affect
// unclaimed-exception reporting, which finish decides (and performs) at the
// moment the task finishes, before any Result/Exception call can happen.
func (t *Task) claim() {
	if t.stateKind == stateDoneUnclaimed {
		t.stateKind = stateDoneClaimed
	}
}

// Cancel requests cancellation of t, following the await chain to whichever
// task is actually suspended (t may itself be blocked awaiting another
// task, which may in turn be blocked, and so on). It returns false, nil if
// the target has already finished, and ErrCantCancelSelf if the chain
// bottoms out at the task currently executing.
func (t *Task) Cancel(msg string) (bool, error) {
	target := t
	for target.stateKind == stateWaiters {
		if inner, ok := target.data.(*Task); ok {
			target = inner
			continue
		}
		break
	}

	if target.Done() {
		return false, nil
	}
	if target == t.loop.current {
		return false, ErrCantCancelSelf
	}

	target.cancelRequested = true
	target.cancelMessage = msg
	t.loop.scheduleCancel(target)
	return true, nil
}

// finish transitions the task to done, recording result/err, waking every
// waiter, and registering it for unclaimed-exception reporting if it ended
// with an error nobody is positioned to observe. A task with at least one
// registered waiter or completion callback already has somewhere for its
// error to propagate to (the awaiter's own Await/Wait/Gather call), so it
// is not reported here even if nobody has called Result/Exception on it
// yet — only a task nobody is watching at all (created and never awaited)
// counts as unclaimed.
func (t *Task) finish(result any, err error) {
	waiters := t.waiters
	callbacks := t.doneCallbacks
	hadWatchers := waiters.Len() > 0 || len(callbacks) > 0
	t.result = result
	t.err = err
	t.stateKind = stateDoneUnclaimed
	t.waiters = nil
	t.doneCallbacks = nil
	t.data = nil

	for w := waiters.Pop(); w != nil; w = waiters.Pop() {
		t.loop.wake(w, t.result, t.err)
	}
	for _, cb := range callbacks {
		cb()
	}
	if err != nil && !isCancelledErr(err) && !hadWatchers {
		t.loop.noteUnclaimed(t)
	}
}
