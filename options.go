// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package taskloop

import "time"

// loopOptions holds configuration resolved from a set of LoopOption values.
type loopOptions struct {
	logger             Logger
	exceptionHandler   ExceptionHandler
	metricsEnabled     bool
	rateLimitedLogging map[time.Duration]int
}

// LoopOption configures a Loop at construction time, matching the
// teacher's functional-options pattern (options.go) generalized from
// JS-event-loop knobs (strict microtask ordering, fast-path mode) to this
// scheduler's own.
type LoopOption interface {
	applyLoop(*loopOptions) error
}

type loopOptionImpl struct {
	applyLoopFunc func(*loopOptions) error
}

func (l *loopOptionImpl) applyLoop(opts *loopOptions) error {
	return l.applyLoopFunc(opts)
}

// WithLogger sets the structured logger the default exception handler
// writes to (category "exception"); no other scheduler path logs.
// Defaults to DefaultLogger.
func WithLogger(logger Logger) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithExceptionHandler sets the handler invoked, exactly once per task,
// for a non-cancellation error that finishes a task while no task is
// awaiting it and no Wait/Gather is watching it. Defaults to a handler that
// logs via the configured Logger.
func WithExceptionHandler(h ExceptionHandler) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.exceptionHandler = h
		return nil
	}}
}

// WithMetrics enables tick-latency percentile tracking, retrievable via
// Loop.Metrics(). Adds a small fixed amount of bookkeeping per tick; disable
// it on the most constrained targets.
func WithMetrics(enabled bool) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.metricsEnabled = enabled
		return nil
	}}
}

// WithRateLimitedExceptionLogging caps how often the default exception
// handler actually emits a log line for repeated unhandled exceptions in
// the same category (see errorCategory in logging.go), using
// github.com/joeycumines/go-catrate's sliding-window Limiter. It never
// changes whether the handler runs — only whether that run's log line is
// throttled. rates follows catrate.NewLimiter's contract: window duration
// to max event count, monotonic across windows.
func WithRateLimitedExceptionLogging(rates map[time.Duration]int) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.rateLimitedLogging = rates
		return nil
	}}
}

// resolveLoopOptions applies every non-nil LoopOption to a fresh
// loopOptions, seeded with defaults.
func resolveLoopOptions(opts []LoopOption) (*loopOptions, error) {
	cfg := &loopOptions{
		logger: defaultLogger,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyLoop(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.exceptionHandler == nil {
		cfg.exceptionHandler = defaultExceptionHandler(cfg)
	}
	return cfg, nil
}
