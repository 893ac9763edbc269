package taskloop

// Control is the handle a Func body uses to suspend itself. Every method
// blocks the calling goroutine until the scheduler steps the coroutine
// again, handing back whatever value or error was fed into that step.
type Control struct {
	resume chan stepIn
	yield  chan stepOut
	loop   *Loop
}

type stepIn struct {
	value any
	err   error
	raise bool
}

type stepOut struct {
	yielded any
	done    bool
	result  any
	err     error
}

// Sleep suspends the task for at least ms milliseconds. If the task is
// cancelled while asleep, Sleep returns the cancellation error instead.
func (c *Control) Sleep(ms int64) error {
	_, err := c.suspend(sleepDuration{ms: ms})
	return err
}

// Await suspends until the given awaitable (a *Task, *TaskQueue, or
// *ioWait) completes, returning its delivered value/error.
func (c *Control) Await(awaitable any) (any, error) {
	return c.suspend(awaitable)
}

// Never suspends forever; only an external wake (whoever registered this
// task on a waiter queue elsewhere — Event, Queue, Lock) or a cancellation
// resumes it.
func (c *Control) Never() (any, error) {
	return c.suspend(neverMarker{})
}

// AwaitRead suspends until fd becomes readable.
func (c *Control) AwaitRead(fd int) error {
	_, err := c.suspend(&ioWait{fd: fd, dir: ioRead})
	return err
}

// AwaitWrite suspends until fd becomes writable.
func (c *Control) AwaitWrite(fd int) error {
	_, err := c.suspend(&ioWait{fd: fd, dir: ioWrite})
	return err
}

func (c *Control) suspend(yielded any) (any, error) {
	c.yield <- stepOut{yielded: yielded}
	in := <-c.resume
	if in.raise {
		return nil, in.err
	}
	return in.value, nil
}

// coroutineFunc adapts an ordinary Go function into a Coroutine by running
// it on a dedicated goroutine parked on a pair of unbuffered handshake
// channels: at any instant exactly one side (the scheduler driving Step, or
// the body running between suspension points) is runnable, so this never
// introduces real concurrency into the single-threaded scheduler — it only
// supplies the stackful-suspension capability Go's lack of generators would
// otherwise rule out. Grounded on the teacher's Promisify goroutine +
// panic/Goexit recovery pattern (promisify.go), adapted from "run once, and
// resolve a Promise" into "repeatedly suspend and resume".
type coroutineFunc struct {
	ctrl     *Control
	fn       func(c *Control) (any, error)
	started  bool
	finished bool
}

// Func builds a Coroutine from fn, which receives a *Control to suspend
// itself with. A panic inside fn is recovered and delivered as the task's
// terminal error (TaskPanicError): a user-code panic is a task-scoped
// failure here, not a crashed process.
func Func(fn func(c *Control) (any, error)) Coroutine {
	return &coroutineFunc{
		ctrl: &Control{
			resume: make(chan stepIn),
			yield:  make(chan stepOut),
		},
		fn: fn,
	}
}

func (c *coroutineFunc) Step(value any) (any, bool, error) {
	return c.step(stepIn{value: value})
}

func (c *coroutineFunc) StepError(err error) (any, bool, error) {
	return c.step(stepIn{err: err, raise: true})
}

func (c *coroutineFunc) step(in stepIn) (any, bool, error) {
	if c.finished {
		panic("taskloop: Step called on a finished coroutine")
	}
	if !c.started {
		if in.raise {
			// Raising into a coroutine that has never run propagates
			// immediately without ever executing its body — mirrors a
			// Python generator's throw() called before its first
			// next()/send(), and lets a task cancelled before its first
			// Step (e.g. cancelled the instant it's created) actually
			// observe the cancellation instead of silently running to
			// completion.
			c.finished = true
			return nil, true, in.err
		}
		c.started = true
		go c.run()
	} else {
		c.ctrl.resume <- in
	}
	out := <-c.ctrl.yield
	if out.done {
		c.finished = true
		return out.result, true, out.err
	}
	return out.yielded, false, nil
}

func (c *coroutineFunc) run() {
	defer func() {
		if r := recover(); r != nil {
			c.ctrl.yield <- stepOut{done: true, err: &TaskPanicError{Value: r}}
		}
	}()
	result, err := c.fn(c.ctrl)
	c.ctrl.yield <- stepOut{done: true, result: result, err: err}
}
