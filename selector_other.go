//go:build !linux && !darwin

package taskloop

import "time"

// fallbackSelector is the portable selector used on platforms without a
// native epoll/kqueue implementation in this package (notably Windows: the
// teacher's IOCP-backed poller_windows.go does not generalize to this
// scheduler's single-threaded readiness model without reproducing a large
// share of its machinery — see DESIGN.md). It supports no FD registration,
// only timed blocking, so a program built for timers/sleeps/sync
// primitives alone still runs correctly; one that awaits FD readiness gets
// ErrSelectorUnsupported immediately instead of hanging.
type fallbackSelector struct{}

func newSelector() selector {
	return &fallbackSelector{}
}

func (f *fallbackSelector) Init() error { return nil }
func (f *fallbackSelector) Close() error { return nil }

func (f *fallbackSelector) RegisterFD(fd int, events ioEvents, cb func(ioEvents)) error {
	return ErrSelectorUnsupported
}

func (f *fallbackSelector) ModifyFD(fd int, events ioEvents) error {
	return ErrSelectorUnsupported
}

func (f *fallbackSelector) UnregisterFD(fd int) error {
	return ErrSelectorUnsupported
}

func (f *fallbackSelector) PollIO(timeoutMs int) (int, error) {
	if timeoutMs < 0 {
		// No FDs can ever be registered on this platform, so an
		// unbounded wait here would hang forever; the loop only calls
		// PollIO with a negative timeout when it believes some FD is
		// registered, which can't happen.
		return 0, ErrSelectorUnsupported
	}
	time.Sleep(time.Duration(timeoutMs) * time.Millisecond)
	return 0, nil
}
