//go:build linux

// File: poller/select_linux.go
// Author: momentics <momentics@gmail.com>
//
// select(2) backend, kept for parity with the classic reactor backend
// set. Bounded by FD_SETSIZE; fds at or above the limit are rejected
// at Add time rather than corrupting the fd sets.

package poller

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/ioloop/api"
)

const fdSetLimit = 1024 // FD_SETSIZE

func init() {
	backends[BackendSelect] = newSelectPoller
}

type selectPoller struct {
	wk       *pipeWaker
	interest map[int]api.IOEvents
}

func newSelectPoller() (api.Poller, error) {
	wk, err := newPipeWaker()
	if err != nil {
		return nil, err
	}
	if wk.readFd() >= fdSetLimit {
		wk.close()
		return nil, fmt.Errorf("select: waker fd %d exceeds FD_SETSIZE", wk.readFd())
	}
	return &selectPoller{wk: wk, interest: make(map[int]api.IOEvents)}, nil
}

func (p *selectPoller) Add(fd int, events api.IOEvents) error {
	if fd >= fdSetLimit {
		return api.NewError(api.ErrCodeInvalidArgument, "select: fd exceeds FD_SETSIZE").
			WithContext("fd", fd)
	}
	if _, ok := p.interest[fd]; ok {
		return api.ErrAlreadyRegistered
	}
	p.interest[fd] = events
	return nil
}

func (p *selectPoller) Modify(fd int, events api.IOEvents) error {
	if _, ok := p.interest[fd]; !ok {
		return api.ErrNotRegistered
	}
	p.interest[fd] = events
	return nil
}

func (p *selectPoller) Delete(fd int) error {
	if _, ok := p.interest[fd]; !ok {
		return api.ErrNotRegistered
	}
	delete(p.interest, fd)
	return nil
}

func (p *selectPoller) Wait(evs []api.Event, timeout time.Duration) (int, error) {
	if len(evs) == 0 {
		return 0, api.ErrInvalidArgument
	}

	var rset, wset, eset unix.FdSet
	maxFd := p.wk.readFd()
	rset.Set(maxFd)
	for fd, events := range p.interest {
		if events&api.EventRead != 0 {
			rset.Set(fd)
		}
		if events&api.EventWrite != 0 {
			wset.Set(fd)
		}
		eset.Set(fd)
		if fd > maxFd {
			maxFd = fd
		}
	}

	var tv *unix.Timeval
	if timeout >= 0 {
		t := unix.NsecToTimeval(timeout.Nanoseconds())
		tv = &t
	}
	n, err := unix.Select(maxFd+1, &rset, &wset, &eset, tv)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("select: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	if rset.IsSet(p.wk.readFd()) {
		p.wk.drain()
	}

	out := 0
	for fd := range p.interest {
		if out == len(evs) {
			break
		}
		var events api.IOEvents
		if rset.IsSet(fd) {
			events |= api.EventRead
		}
		if wset.IsSet(fd) {
			events |= api.EventWrite
		}
		if eset.IsSet(fd) {
			events |= api.EventError
		}
		if events == 0 {
			continue
		}
		evs[out] = api.Event{Fd: fd, Events: events}
		out++
	}
	return out, nil
}

func (p *selectPoller) Wakeup() error { return p.wk.wake() }

func (p *selectPoller) Close() error {
	p.wk.close()
	p.interest = nil
	return nil
}
