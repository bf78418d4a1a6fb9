//go:build darwin || dragonfly || freebsd || netbsd || openbsd

// File: poller/kqueue_bsd.go
// Author: momentics <momentics@gmail.com>
//
// kqueue(2) backend for Darwin and the BSDs. Read and write interest
// map to separate EVFILT_READ/EVFILT_WRITE registrations, tracked per
// descriptor so Modify can issue the minimal change list.

package poller

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/ioloop/api"
)

func init() {
	backends[BackendKqueue] = newKqueuePoller
	defaultBackend = BackendKqueue
}

type kqueuePoller struct {
	kq       int
	wk       *pipeWaker
	interest map[int]api.IOEvents
	raw      []unix.Kevent_t
}

func newKqueuePoller() (api.Poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, fmt.Errorf("kqueue: %w", err)
	}
	unix.CloseOnExec(kq)
	wk, err := newPipeWaker()
	if err != nil {
		unix.Close(kq)
		return nil, err
	}
	p := &kqueuePoller{kq: kq, wk: wk, interest: make(map[int]api.IOEvents)}
	var ev unix.Kevent_t
	unix.SetKevent(&ev, wk.readFd(), unix.EVFILT_READ, unix.EV_ADD|unix.EV_ENABLE)
	if _, err := unix.Kevent(kq, []unix.Kevent_t{ev}, nil, nil); err != nil {
		p.Close()
		return nil, fmt.Errorf("kevent add waker: %w", err)
	}
	return p, nil
}

// apply issues the change list converting the old interest set of fd
// into the new one.
func (p *kqueuePoller) apply(fd int, old, next api.IOEvents) error {
	changes := make([]unix.Kevent_t, 0, 2)
	for _, f := range [...]struct {
		bit    api.IOEvents
		filter int
	}{
		{api.EventRead, unix.EVFILT_READ},
		{api.EventWrite, unix.EVFILT_WRITE},
	} {
		had, want := old&f.bit != 0, next&f.bit != 0
		if had == want {
			continue
		}
		var ev unix.Kevent_t
		flags := unix.EV_ADD | unix.EV_ENABLE
		if !want {
			flags = unix.EV_DELETE
		}
		unix.SetKevent(&ev, fd, f.filter, flags)
		changes = append(changes, ev)
	}
	if len(changes) == 0 {
		return nil
	}
	if _, err := unix.Kevent(p.kq, changes, nil, nil); err != nil {
		return fmt.Errorf("kevent change fd %d: %w", fd, err)
	}
	return nil
}

func (p *kqueuePoller) Add(fd int, events api.IOEvents) error {
	if _, ok := p.interest[fd]; ok {
		return api.ErrAlreadyRegistered
	}
	if err := p.apply(fd, 0, events); err != nil {
		return err
	}
	p.interest[fd] = events
	return nil
}

func (p *kqueuePoller) Modify(fd int, events api.IOEvents) error {
	old, ok := p.interest[fd]
	if !ok {
		return api.ErrNotRegistered
	}
	if err := p.apply(fd, old, events); err != nil {
		return err
	}
	p.interest[fd] = events
	return nil
}

func (p *kqueuePoller) Delete(fd int) error {
	old, ok := p.interest[fd]
	if !ok {
		return api.ErrNotRegistered
	}
	err := p.apply(fd, old, 0)
	delete(p.interest, fd)
	return err
}

func (p *kqueuePoller) Wait(evs []api.Event, timeout time.Duration) (int, error) {
	if len(evs) == 0 {
		return 0, api.ErrInvalidArgument
	}
	if cap(p.raw) < len(evs)+1 {
		p.raw = make([]unix.Kevent_t, len(evs)+1)
	}
	raw := p.raw[:len(evs)+1]

	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}
	n, err := unix.Kevent(p.kq, nil, raw, ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("kevent wait: %w", err)
	}

	out := 0
	for i := 0; i < n; i++ {
		fd := int(raw[i].Ident)
		if fd == p.wk.readFd() {
			p.wk.drain()
			continue
		}
		var events api.IOEvents
		switch raw[i].Filter {
		case unix.EVFILT_READ:
			events |= api.EventRead
		case unix.EVFILT_WRITE:
			events |= api.EventWrite
		}
		if raw[i].Flags&unix.EV_EOF != 0 {
			events |= api.EventHup
		}
		if raw[i].Flags&unix.EV_ERROR != 0 {
			events |= api.EventError
		}
		evs[out] = api.Event{Fd: fd, Events: events}
		out++
	}
	return out, nil
}

func (p *kqueuePoller) Wakeup() error { return p.wk.wake() }

func (p *kqueuePoller) Close() error {
	p.wk.close()
	return unix.Close(p.kq)
}
