package taskloop

import (
	"context"
	"errors"
	"time"
)

// Standard loop-lifecycle errors.
var (
	// ErrLoopAlreadyRunning is returned when Run is called on a loop that
	// is already running.
	ErrLoopAlreadyRunning = errors.New("taskloop: loop is already running")

	// ErrReentrantRun is returned when Run is called from a task running
	// on the loop itself — a Loop drives exactly one call stack.
	ErrReentrantRun = errors.New("taskloop: cannot call Run from within the loop")
)

// Loop is the scheduler: a pairing-heap ready/timer queue, an IOQueue, and
// the single goroutine stack that steps tasks one at a time. Grounded on
// the teacher's Loop (loop.go) for overall shape — Run/Stop/Close,
// CreateTask, tick/poll structure — generalized from a JS-style
// timer+microtask+promise loop down to the spec's single-threaded
// cooperative task scheduler: no ingress queues, no promise registry, no
// fast/slow path split, no atomics, because there is only ever one
// goroutine touching this struct's fields.
type Loop struct {
	clock *clock
	rq    *TaskQueue
	io    *IOQueue

	current *Task
	state   LoopState

	opts    *loopOptions
	metrics *Metrics
}

// NewLoop constructs a Loop. Grounded on the teacher's functional-options
// constructor pattern (options.go / New in loop.go).
func NewLoop(opts ...LoopOption) (*Loop, error) {
	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}
	l := &Loop{
		clock: newClock(),
		rq:    NewTaskQueue(),
		opts:  cfg,
		state: StateIdle,
	}
	l.io = newIOQueue(l)
	if err := l.io.init(); err != nil {
		return nil, err
	}
	if cfg.metricsEnabled {
		l.metrics = newMetrics()
	}
	return l, nil
}

// NewEventLoop is an alias for NewLoop matching core.py's
// new_event_loop() naming, for callers translating from the original API.
func NewEventLoop(opts ...LoopOption) (*Loop, error) {
	return NewLoop(opts...)
}

// Close releases the loop's OS resources (the I/O selector). Call after
// Run has returned.
func (l *Loop) Close() error {
	return l.io.close()
}

// CreateTask schedules co to run, returning its Task immediately (it does
// not start executing until the loop next steps it). Grounded on core.py's
// create_task.
func (l *Loop) CreateTask(co Coroutine, name string) *Task {
	t := newTask(l, co, name)
	if cf, ok := co.(*coroutineFunc); ok {
		cf.ctrl.loop = l
	}
	l.rq.Push(t)
	return t
}

// CurrentTask returns the task currently executing, or ErrNoRunningLoop if
// called while the loop isn't actively stepping a task.
func (l *Loop) CurrentTask() (*Task, error) {
	if l.current == nil {
		return nil, ErrNoRunningLoop
	}
	return l.current, nil
}

// SetExceptionHandler replaces the handler invoked for unclaimed task
// exceptions.
func (l *Loop) SetExceptionHandler(h ExceptionHandler) {
	l.opts.exceptionHandler = h
}

// GetExceptionHandler returns the currently configured exception handler.
func (l *Loop) GetExceptionHandler() ExceptionHandler {
	return l.opts.exceptionHandler
}

// CallExceptionHandler invokes the configured exception handler directly,
// useful for primitives outside the task/coroutine model that still want
// to report through the same channel.
func (l *Loop) CallExceptionHandler(task *Task, err error) {
	l.opts.exceptionHandler(l, task, err)
}

// Metrics returns tick-latency statistics, or nil if WithMetrics(true) was
// not set at construction.
func (l *Loop) Metrics() *Metrics {
	return l.metrics
}

// Stop requests that the loop exit as soon as the task currently being
// stepped suspends or finishes; other tasks still due in the same tick are
// left queued and do not run. Safe to call from within a task.
func (l *Loop) Stop() {
	if l.state == StateRunning {
		l.state = StateStopping
	}
}

// Run schedules co as a task and drives the loop until that task finishes,
// returning its result/error. This is the spec's run_until_complete. ctx,
// if non-nil and cancellable, is polled once per tick; because the
// underlying OS poll can block indefinitely when no timer is pending,
// Run caps that wait to a bounded interval whenever ctx carries a
// cancellation channel, so ctx.Err() is still observed promptly.
func (l *Loop) Run(ctx context.Context, co Coroutine) (any, error) {
	t := l.CreateTask(co, "")
	return l.RunUntilComplete(ctx, t)
}

// RunUntilComplete drives the loop until t finishes, returning its
// result/error. Other tasks created along the way keep running after t
// finishes only if something else later calls RunUntilComplete/RunForever
// again; a single call returns as soon as t is Done.
func (l *Loop) RunUntilComplete(ctx context.Context, t *Task) (any, error) {
	if l.current != nil {
		return nil, ErrReentrantRun
	}
	if l.state == StateRunning {
		return nil, ErrLoopAlreadyRunning
	}
	l.state = StateRunning
	defer func() {
		if l.state != StateStopped {
			l.state = StateIdle
		}
	}()

	for !t.Done() {
		if l.state == StateStopping {
			break
		}
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if l.rq.Empty() && l.io.Empty() {
			break
		}
		l.runTick(ctx)
	}

	l.state = StateStopped
	return t.Result()
}

// RunForever drives the loop until both the ready/timer queue and the
// IOQueue are empty, or Stop is called — even if Stop was never invoked,
// per the scheduler's documented idle-exit behavior (the run loop does not
// block forever on an empty system).
func (l *Loop) RunForever(ctx context.Context) error {
	if l.current != nil {
		return ErrReentrantRun
	}
	if l.state == StateRunning {
		return ErrLoopAlreadyRunning
	}
	l.state = StateRunning
	defer func() {
		if l.state != StateStopped {
			l.state = StateIdle
		}
	}()

	for l.state == StateRunning {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if l.rq.Empty() && l.io.Empty() {
			break
		}
		l.runTick(ctx)
	}

	l.state = StateStopped
	return nil
}

// runTick executes every task whose deadline has arrived, then blocks in
// the I/O selector for however long until the next one (or indefinitely,
// if only I/O waiters remain).
func (l *Loop) runTick(ctx context.Context) {
	start := time.Now()
	defer func() {
		if l.metrics != nil {
			l.metrics.record(time.Since(start))
		}
	}()

	now := l.clock.now()
	for {
		peek := l.rq.Peek()
		if peek == nil || peek.phKey.Diff(now) > 0 {
			break
		}
		task := l.rq.Pop()
		l.step(task)
		if l.state == StateStopping {
			return
		}
	}

	if l.rq.Empty() && l.io.Empty() {
		return
	}

	timeoutMs := -1
	if peek := l.rq.Peek(); peek != nil {
		d := peek.phKey.Diff(l.clock.now())
		if d < 0 {
			d = 0
		}
		timeoutMs = int(d)
	} else if l.io.Empty() {
		return
	}
	if ctx != nil && ctx.Done() != nil && (timeoutMs < 0 || timeoutMs > 250) {
		// Bound the wait so a cancelled ctx is noticed promptly even
		// though the OS selector has no way to be woken by a Go channel.
		timeoutMs = 250
	}

	_, _ = l.io.poll(timeoutMs)
}

// step drives one task through a single suspension point.
func (l *Loop) step(t *Task) {
	l.current = t
	defer func() { l.current = nil }()

	var (
		result any
		done   bool
		err    error
	)
	if t.pendingErr != nil {
		pe := t.pendingErr
		t.pendingErr = nil
		result, done, err = t.coro.StepError(pe)
	} else {
		v := t.pendingValue
		t.pendingValue = nil
		result, done, err = t.coro.Step(v)
	}

	if done {
		t.finish(result, err)
		return
	}

	switch y := result.(type) {
	case nil:
		t.phKey = l.clock.now()
		l.rq.Push(t)
	case sleepDuration:
		t.phKey = l.clock.now().add(y.ms)
		l.rq.Push(t)
	case *Task:
		if y.Done() {
			l.wake(t, y.result, y.err)
			return
		}
		t.data = y
		t.stateKind = stateWaiters
		y.waiters.Push(t)
	case *TaskQueue:
		t.data = y
		t.stateKind = stateWaiters
		y.Push(t)
	case neverMarker:
		t.data = nil
		t.stateKind = stateWaiters
	case *ioWait:
		t.data = y
		t.stateKind = stateWaiters
		var regErr error
		if y.dir == ioRead {
			regErr = l.io.queueRead(y.fd, t)
		} else {
			regErr = l.io.queueWrite(y.fd, t)
		}
		if regErr != nil {
			l.wake(t, nil, regErr)
		}
	default:
		panic("taskloop: coroutine yielded an unsupported value")
	}
}

// wake requeues t to run again with the given resume value/error, clearing
// its data/state bookkeeping. It does not remove t from any waiter queue:
// callers pop or clear t from that queue before calling wake. Used both by
// internal completion paths (Task.finish, Event.Set, Queue put/get,
// IOQueue.dispatch) and by Wait/Gather's synthetic self-wake.
func (l *Loop) wake(t *Task, value any, err error) {
	if t.Done() {
		return
	}
	t.stateKind = stateRunnable
	t.data = nil
	t.pendingValue = value
	t.pendingErr = err
	t.phKey = l.clock.now()
	l.rq.Push(t)
}

// scheduleCancel detaches target from wherever it is currently waiting and
// requeues it with a CancelledError pending for its next step.
func (l *Loop) scheduleCancel(target *Task) {
	switch target.stateKind {
	case stateRunnable:
		l.rq.Remove(target)
	case stateWaiters:
		switch d := target.data.(type) {
		case *Task:
			d.waiters.Remove(target)
		case *TaskQueue:
			d.Remove(target)
		case *ioWait:
			l.io.removeDirection(d.fd, d.dir)
		}
	}
	target.stateKind = stateRunnable
	target.data = nil
	target.pendingValue = nil
	target.pendingErr = &CancelledError{Message: target.cancelMessage}
	target.phKey = l.clock.now()
	l.rq.Push(target)
}

// noteUnclaimed reports t's terminal error to the exception handler. Called
// once, from Task.finish, for a task that finished with a non-cancellation
// error while no task was awaiting it and no completion callback was
// registered on it. A later Result/Exception call still returns the error;
// it has no effect on this report, which has already happened.
func (l *Loop) noteUnclaimed(t *Task) {
	l.opts.exceptionHandler(l, t, t.err)
}
