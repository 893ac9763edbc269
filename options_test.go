package taskloop

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRateLimitProbe = errors.New("rate limit probe")

func TestResolveLoopOptionsDefaults(t *testing.T) {
	cfg, err := resolveLoopOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultLogger, cfg.logger)
	assert.NotNil(t, cfg.exceptionHandler)
	assert.False(t, cfg.metricsEnabled)
}

func TestWithLoggerOverridesDefault(t *testing.T) {
	custom := NewDefaultLogger(LevelDebug)
	cfg, err := resolveLoopOptions([]LoopOption{WithLogger(custom)})
	require.NoError(t, err)
	assert.Same(t, custom, cfg.logger)
}

func TestWithExceptionHandlerOverridesDefault(t *testing.T) {
	called := false
	h := func(l *Loop, task *Task, err error) { called = true }
	cfg, err := resolveLoopOptions([]LoopOption{WithExceptionHandler(h)})
	require.NoError(t, err)
	cfg.exceptionHandler(nil, nil, nil)
	assert.True(t, called)
}

func TestWithRateLimitedExceptionLoggingThrottles(t *testing.T) {
	var lines int
	logger := &countingLogger{count: &lines}
	cfg, err := resolveLoopOptions([]LoopOption{
		WithLogger(logger),
		WithRateLimitedExceptionLogging(map[time.Duration]int{time.Minute: 1}),
	})
	require.NoError(t, err)

	cfg.exceptionHandler(nil, &Task{name: "t"}, errRateLimitProbe)
	cfg.exceptionHandler(nil, &Task{name: "t"}, errRateLimitProbe)
	assert.Equal(t, 1, lines)
}

type countingLogger struct {
	count *int
}

func (c *countingLogger) Log(entry LogEntry)             { *c.count++ }
func (c *countingLogger) IsEnabled(level LogLevel) bool { return true }
