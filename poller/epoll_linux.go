//go:build linux

// File: poller/epoll_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7) backend with an eventfd waker. Level-triggered.

package poller

import (
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/ioloop/api"
)

func init() {
	backends[BackendEpoll] = newEpollPoller
	defaultBackend = BackendEpoll
}

type epollPoller struct {
	epfd   int
	wakeFd int
	raw    []unix.EpollEvent
}

func newEpollPoller() (api.Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakeFd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	p := &epollPoller{epfd: epfd, wakeFd: wakeFd}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakeFd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeFd, &ev); err != nil {
		p.Close()
		return nil, fmt.Errorf("epoll ctl add waker: %w", err)
	}
	return p, nil
}

func toEpollEvents(events api.IOEvents) uint32 {
	var ep uint32
	if events&api.EventRead != 0 {
		ep |= unix.EPOLLIN | unix.EPOLLPRI
	}
	if events&api.EventWrite != 0 {
		ep |= unix.EPOLLOUT
	}
	return ep
}

func fromEpollEvents(ep uint32) api.IOEvents {
	var events api.IOEvents
	if ep&(unix.EPOLLIN|unix.EPOLLPRI) != 0 {
		events |= api.EventRead
	}
	if ep&unix.EPOLLOUT != 0 {
		events |= api.EventWrite
	}
	if ep&unix.EPOLLERR != 0 {
		events |= api.EventError
	}
	if ep&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		events |= api.EventHup
	}
	return events
}

func (p *epollPoller) Add(fd int, events api.IOEvents) error {
	ev := unix.EpollEvent{Events: toEpollEvents(events), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add fd %d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) Modify(fd int, events api.IOEvents) error {
	ev := unix.EpollEvent{Events: toEpollEvents(events), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl mod fd %d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) Delete(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del fd %d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) Wait(evs []api.Event, timeout time.Duration) (int, error) {
	if len(evs) == 0 {
		return 0, api.ErrInvalidArgument
	}
	// One extra slot so the waker cannot crowd out a real event.
	if cap(p.raw) < len(evs)+1 {
		p.raw = make([]unix.EpollEvent, len(evs)+1)
	}
	raw := p.raw[:len(evs)+1]

	n, err := unix.EpollWait(p.epfd, raw, waitMsec(timeout))
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}

	out := 0
	for i := 0; i < n; i++ {
		fd := int(raw[i].Fd)
		if fd == p.wakeFd {
			p.drainWaker()
			continue
		}
		evs[out] = api.Event{Fd: fd, Events: fromEpollEvents(raw[i].Events)}
		out++
	}
	return out, nil
}

// Wakeup bumps the eventfd counter; wakeups coalesce until drained.
func (p *epollPoller) Wakeup() error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(p.wakeFd, buf[:])
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

func (p *epollPoller) drainWaker() {
	var buf [8]byte
	for {
		if _, err := unix.Read(p.wakeFd, buf[:]); err != nil {
			return
		}
	}
}

func (p *epollPoller) Close() error {
	unix.Close(p.wakeFd)
	return unix.Close(p.epfd)
}
