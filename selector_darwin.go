//go:build darwin

package taskloop

import "golang.org/x/sys/unix"

// kqueueSelector implements selector using kqueue. Adapted from the
// teacher's FastPoller (poller_darwin.go), dropping the RWMutex/atomic
// guards and dynamic-growth fd slice the teacher needs for concurrent
// registration/polling from multiple goroutines: here RegisterFD and
// PollIO only ever run on the single loop goroutine, so a plain map
// suffices and is simpler to get right without being able to compile it.
type kqueueSelector struct {
	kq       int
	fds      map[int]func(ioEvents)
	eventBuf [128]unix.Kevent_t
}

func newSelector() selector {
	return &kqueueSelector{fds: make(map[int]func(ioEvents))}
}

func (p *kqueueSelector) Init() error {
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	unix.CloseOnExec(kq)
	p.kq = kq
	return nil
}

func (p *kqueueSelector) Close() error {
	if p.kq == 0 {
		return nil
	}
	return unix.Close(p.kq)
}

func (p *kqueueSelector) RegisterFD(fd int, events ioEvents, cb func(ioEvents)) error {
	kevents := eventsToKevents(fd, events, unix.EV_ADD|unix.EV_ENABLE)
	if len(kevents) > 0 {
		if _, err := unix.Kevent(p.kq, kevents, nil, nil); err != nil {
			return err
		}
	}
	p.fds[fd] = cb
	return nil
}

func (p *kqueueSelector) ModifyFD(fd int, events ioEvents) error {
	// Simplest correct approach without tracking prior events per fd:
	// delete both filters, then (re-)add the ones currently wanted.
	_, _ = unix.Kevent(p.kq, eventsToKevents(fd, EventRead|EventWrite, unix.EV_DELETE), nil, nil)
	kevents := eventsToKevents(fd, events, unix.EV_ADD|unix.EV_ENABLE)
	if len(kevents) == 0 {
		return nil
	}
	_, err := unix.Kevent(p.kq, kevents, nil, nil)
	return err
}

func (p *kqueueSelector) UnregisterFD(fd int) error {
	delete(p.fds, fd)
	_, err := unix.Kevent(p.kq, eventsToKevents(fd, EventRead|EventWrite, unix.EV_DELETE), nil, nil)
	return err
}

func (p *kqueueSelector) PollIO(timeoutMs int) (int, error) {
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeoutMs / 1000),
			Nsec: int64((timeoutMs % 1000) * 1000000),
		}
	}

	n, err := unix.Kevent(p.kq, nil, p.eventBuf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Ident)
		if cb, ok := p.fds[fd]; ok && cb != nil {
			cb(keventToEvents(&p.eventBuf[i]))
		}
	}
	return n, nil
}

func eventsToKevents(fd int, events ioEvents, flags uint16) []unix.Kevent_t {
	var kevents []unix.Kevent_t
	if events&EventRead != 0 {
		kevents = append(kevents, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if events&EventWrite != 0 {
		kevents = append(kevents, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return kevents
}

func keventToEvents(kev *unix.Kevent_t) ioEvents {
	var events ioEvents
	switch kev.Filter {
	case unix.EVFILT_READ:
		events |= EventRead
	case unix.EVFILT_WRITE:
		events |= EventWrite
	}
	if kev.Flags&unix.EV_ERROR != 0 {
		events |= EventError
	}
	if kev.Flags&unix.EV_EOF != 0 {
		events |= EventHangup
	}
	return events
}
