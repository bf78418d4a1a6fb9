//go:build unix

// File: poller/poll_unix.go
// Author: momentics <momentics@gmail.com>
//
// Portable poll(2) backend. Keeps a dense pollfd table with an fd
// index map; removal swaps the tail entry in to stay O(1).

package poller

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/ioloop/api"
)

func init() {
	backends[BackendPoll] = newPollPoller
}

type pollPoller struct {
	wk  *pipeWaker
	fds []unix.PollFd
	idx map[int]int // fd -> position in fds
}

func newPollPoller() (api.Poller, error) {
	wk, err := newPipeWaker()
	if err != nil {
		return nil, err
	}
	p := &pollPoller{wk: wk, idx: make(map[int]int)}
	p.fds = append(p.fds, unix.PollFd{Fd: int32(wk.readFd()), Events: unix.POLLIN})
	return p, nil
}

func toPollEvents(events api.IOEvents) int16 {
	var pe int16
	if events&api.EventRead != 0 {
		pe |= unix.POLLIN | unix.POLLPRI
	}
	if events&api.EventWrite != 0 {
		pe |= unix.POLLOUT
	}
	return pe
}

func fromPollEvents(pe int16) api.IOEvents {
	var events api.IOEvents
	if pe&(unix.POLLIN|unix.POLLPRI) != 0 {
		events |= api.EventRead
	}
	if pe&unix.POLLOUT != 0 {
		events |= api.EventWrite
	}
	if pe&(unix.POLLERR|unix.POLLNVAL) != 0 {
		events |= api.EventError
	}
	if pe&unix.POLLHUP != 0 {
		events |= api.EventHup
	}
	return events
}

func (p *pollPoller) Add(fd int, events api.IOEvents) error {
	if _, ok := p.idx[fd]; ok {
		return api.ErrAlreadyRegistered
	}
	p.idx[fd] = len(p.fds)
	p.fds = append(p.fds, unix.PollFd{Fd: int32(fd), Events: toPollEvents(events)})
	return nil
}

func (p *pollPoller) Modify(fd int, events api.IOEvents) error {
	pos, ok := p.idx[fd]
	if !ok {
		return api.ErrNotRegistered
	}
	p.fds[pos].Events = toPollEvents(events)
	return nil
}

func (p *pollPoller) Delete(fd int) error {
	pos, ok := p.idx[fd]
	if !ok {
		return api.ErrNotRegistered
	}
	last := len(p.fds) - 1
	if pos != last {
		p.fds[pos] = p.fds[last]
		p.idx[int(p.fds[pos].Fd)] = pos
	}
	p.fds = p.fds[:last]
	delete(p.idx, fd)
	return nil
}

func (p *pollPoller) Wait(evs []api.Event, timeout time.Duration) (int, error) {
	if len(evs) == 0 {
		return 0, api.ErrInvalidArgument
	}
	n, err := unix.Poll(p.fds, waitMsec(timeout))
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("poll: %w", err)
	}
	if n == 0 {
		return 0, nil
	}

	out := 0
	for i := range p.fds {
		if out == len(evs) {
			break
		}
		re := p.fds[i].Revents
		if re == 0 {
			continue
		}
		fd := int(p.fds[i].Fd)
		if fd == p.wk.readFd() {
			p.wk.drain()
			continue
		}
		evs[out] = api.Event{Fd: fd, Events: fromPollEvents(re)}
		out++
	}
	return out, nil
}

func (p *pollPoller) Wakeup() error { return p.wk.wake() }

func (p *pollPoller) Close() error {
	p.wk.close()
	p.fds = nil
	p.idx = nil
	return nil
}
