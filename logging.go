package taskloop

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/joeycumines/go-catrate"
)

// LogLevel orders log severities, matching the teacher's logging.go.
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String implements fmt.Stringer.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LogEntry is a single structured log record. Grounded on the teacher's
// LogEntry (logging.go), narrowed from its generic loop/timer/FD fields to
// the identifiers this scheduler actually has: a task and a category.
type LogEntry struct {
	Level     LogLevel
	Category  string // "run", "timer", "task", "io", "cancel", "exception"
	TaskName  string
	Message   string
	Err       error
	Timestamp time.Time
}

// Logger is the sink every diagnostic in this package goes through — every
// call site in taskloop routes through Logger consistently, rather than a
// few hot paths falling back to stdlib log.Printf the way the teacher's
// loop.go occasionally does; see SPEC_FULL.md's AMBIENT STACK section.
type Logger interface {
	Log(entry LogEntry)
	IsEnabled(level LogLevel) bool
}

// DefaultLogger writes entries to an *os.File as a single human-readable
// line. Its level check and each write are guarded by a mutex, so it may
// be shared across goroutines, though taskloop itself only logs from the
// loop goroutine.
type DefaultLogger struct {
	mu    sync.Mutex
	out   *os.File
	level LogLevel
}

// NewDefaultLogger returns a DefaultLogger writing to os.Stderr at the
// given minimum level.
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	return &DefaultLogger{out: os.Stderr, level: level}
}

// IsEnabled reports whether level would actually be written.
func (d *DefaultLogger) IsEnabled(level LogLevel) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return level >= d.level
}

// Log writes entry if its level is enabled.
func (d *DefaultLogger) Log(entry LogEntry) {
	if !d.IsEnabled(entry.Level) {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if entry.Err != nil {
		fmt.Fprintf(d.out, "[%s] %s task=%s: %s: %v\n",
			entry.Level, entry.Category, entry.TaskName, entry.Message, entry.Err)
	} else {
		fmt.Fprintf(d.out, "[%s] %s task=%s: %s\n",
			entry.Level, entry.Category, entry.TaskName, entry.Message)
	}
}

var defaultLogger = NewDefaultLogger(LevelInfo)

// ExceptionHandler is invoked exactly once for every task that finishes
// with an error while no task is awaiting it and no completion callback
// (Wait/Gather) is registered on it; Result/Exception calls made afterwards
// do not prevent it. It receives the offending task and its error; a
// CancelledError never reaches the handler from the loop.
type ExceptionHandler func(loop *Loop, task *Task, err error)

// errorCategory classifies an error for rate-limiting purposes by concrete
// Go type — a reasonable proxy for "the same kind of bug keeps firing"
// without requiring callers to tag errors themselves.
func errorCategory(err error) string {
	return fmt.Sprintf("%T", err)
}

// defaultExceptionHandler logs unclaimed task exceptions through the
// configured Logger, optionally rate-limited per errorCategory via
// go-catrate so a task that keeps raising the same error doesn't flood the
// log sink on a resource-constrained device.
func defaultExceptionHandler(cfg *loopOptions) ExceptionHandler {
	var limiter *catrate.Limiter
	if len(cfg.rateLimitedLogging) > 0 {
		limiter = catrate.NewLimiter(cfg.rateLimitedLogging)
	}

	return func(loop *Loop, task *Task, err error) {
		if limiter != nil {
			if _, allowed := limiter.Allow(errorCategory(err)); !allowed {
				return
			}
		}
		cfg.logger.Log(LogEntry{
			Level:     LevelError,
			Category:  "exception",
			TaskName:  task.String(),
			Message:   "unhandled exception in task",
			Err:       err,
			Timestamp: time.Now(),
		})
	}
}
