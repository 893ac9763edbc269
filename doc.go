// Package taskloop implements a single-threaded, cooperative task scheduler
// for resource-constrained devices.
//
// Unlike a typical Go program, which leans on goroutines and the runtime
// scheduler for concurrency, taskloop runs exactly one task at a time on the
// goroutine that calls Run. Tasks voluntarily yield by awaiting a sleep, an
// I/O readiness wait, another task, or a synchronization primitive (Event,
// Queue, Lock); nothing preempts a running task. This trades fairness and
// parallelism for a small, predictable memory footprint: the scheduler itself
// never takes a lock and never touches an atomic — ready work and pending
// timers live in a single intrusive pairing heap keyed by a wrap-safe
// monotonic tick (popping from it allocates only short-lived scratch slices
// for the pairing pass).
//
// # Coroutines
//
// Go has no native stackful coroutine, so tasks are built from the Coroutine
// interface, which the loop drives by repeatedly calling Step/StepError with
// a resume value or error until the coroutine reports it is finished. Func
// adapts an ordinary Go function into a Coroutine using a goroutine parked
// on a handshake channel; at any instant at most one side of the handshake
// is runnable, preserving the single-active-task invariant even though the
// implementation uses the go keyword.
//
// # I/O
//
// CreateTask schedules a coroutine for execution. Coroutines that need to
// wait on file descriptor readiness register through the Loop's IOQueue,
// which is backed by an OS-specific selector (epoll on Linux, kqueue on
// Darwin, a portable timeout-only fallback everywhere else, BSDs included).
//
// # Errors and cancellation
//
// Task.Cancel follows the await chain to the innermost task actually
// suspended and schedules ErrCancelled to be raised there; it returns
// ErrCantCancelSelf if asked to cancel the task currently running. A task
// that finishes with a non-cancellation error while no task is awaiting it
// and no Wait/Gather is watching it is reported, once, to the Loop's
// exception handler at the moment it finishes; a later Result/Exception call
// does not change that.
package taskloop
