// File: loop.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reactor loop binding a poller backend, the timer heap and the
// fd-to-handler registry. Registration calls and timer scheduling are
// loop-goroutine only (or before Run); Post, Stop and Wakeup-driven
// paths are safe from any goroutine.

package ioloop

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/ioloop/api"
	"github.com/momentics/ioloop/poller"
)

type entry struct {
	h      api.IOHandler
	events api.IOEvents
}

// Loop is a single-goroutine cooperative reactor.
type Loop struct {
	p         api.Poller
	handlers  map[int]*entry
	timers    timerHeap
	evs       []api.Event
	maxEvents int

	postMu sync.Mutex
	posted []func()

	running atomic.Bool
	stop    atomic.Bool
	closed  atomic.Bool

	// counters exported through Stats; mirrored into atomics so debug
	// probes can read them off the loop goroutine
	iterations      atomic.Int64
	eventsHandled   atomic.Int64
	timersFired     atomic.Int64
	cancelledTimers atomic.Int64
	timersPending   atomic.Int64
	handlerCount    atomic.Int64
}

// New builds a loop over the platform's preferred poller backend, or
// the one forced via WithBackend.
func New(opts ...Option) (*Loop, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	var (
		p   api.Poller
		err error
	)
	if cfg.backend != "" {
		p, err = poller.NewBackend(cfg.backend)
	} else {
		p, err = poller.New()
	}
	if err != nil {
		return nil, err
	}
	return &Loop{
		p:         p,
		handlers:  make(map[int]*entry),
		evs:       make([]api.Event, cfg.maxEvents),
		maxEvents: cfg.maxEvents,
	}, nil
}

// Register binds h to the loop for the given interest set.
func (l *Loop) Register(h api.IOHandler, events api.IOEvents) error {
	if l.closed.Load() {
		return api.ErrLoopClosed
	}
	fd := h.Fd()
	if _, ok := l.handlers[fd]; ok {
		return api.ErrAlreadyRegistered
	}
	if err := l.p.Add(fd, events); err != nil {
		return err
	}
	l.handlers[fd] = &entry{h: h, events: events}
	l.handlerCount.Add(1)
	return nil
}

// Modify replaces the interest set of a registered descriptor.
func (l *Loop) Modify(fd int, events api.IOEvents) error {
	e, ok := l.handlers[fd]
	if !ok {
		return api.ErrNotRegistered
	}
	if e.events == events {
		return nil
	}
	if err := l.p.Modify(fd, events); err != nil {
		return err
	}
	e.events = events
	return nil
}

// Interest returns the current interest set of a registered fd.
func (l *Loop) Interest(fd int) (api.IOEvents, bool) {
	e, ok := l.handlers[fd]
	if !ok {
		return 0, false
	}
	return e.events, true
}

// Unregister removes fd from the loop without touching the descriptor.
func (l *Loop) Unregister(fd int) error {
	if _, ok := l.handlers[fd]; !ok {
		return api.ErrNotRegistered
	}
	delete(l.handlers, fd)
	l.handlerCount.Add(-1)
	return l.p.Delete(fd)
}

// Len reports the number of registered descriptors.
func (l *Loop) Len() int { return len(l.handlers) }

// Post queues fn for execution on the loop goroutine and wakes the
// loop. Safe from any goroutine; functions run in submission order.
func (l *Loop) Post(fn func()) {
	l.postMu.Lock()
	wake := len(l.posted) == 0
	l.posted = append(l.posted, fn)
	l.postMu.Unlock()
	if wake {
		if err := l.p.Wakeup(); err != nil {
			log.Printf("ioloop: wakeup: %v", err)
		}
	}
}

func (l *Loop) runPosted() {
	l.postMu.Lock()
	batch := l.posted
	l.posted = nil
	l.postMu.Unlock()
	for _, fn := range batch {
		l.safeRun(fn)
	}
}

// Run blocks, iterating the loop until Stop or Close.
func (l *Loop) Run() error {
	if l.closed.Load() {
		return api.ErrLoopClosed
	}
	if !l.running.CompareAndSwap(false, true) {
		return api.NewError(api.ErrCodeInvalidArgument, "loop is already running")
	}
	defer l.running.Store(false)
	for !l.stop.Load() {
		if err := l.RunOnce(-1); err != nil {
			return err
		}
	}
	l.stop.Store(false)
	return nil
}

// RunOnce performs a single loop iteration: expired timers, posted
// callbacks, one poller wait bounded by timeout (negative blocks until
// the nearest timer or a wakeup), then event dispatch.
func (l *Loop) RunOnce(timeout time.Duration) error {
	if l.closed.Load() {
		return api.ErrLoopClosed
	}
	l.expireTimers(time.Now())
	l.runPosted()

	wait := l.nextTimeout()
	if timeout >= 0 && (wait < 0 || timeout < wait) {
		wait = timeout
	}
	n, err := l.p.Wait(l.evs, wait)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		l.dispatch(l.evs[i])
	}
	l.iterations.Add(1)
	return nil
}

// dispatch routes one readiness event, re-checking the registry before
// every callback: a handler may unregister itself (or a sibling) while
// running.
func (l *Loop) dispatch(ev api.Event) {
	e, ok := l.handlers[ev.Fd]
	if !ok {
		return
	}
	l.eventsHandled.Add(1)

	readable := ev.Events&api.EventRead != 0 ||
		(ev.Events&api.EventHup != 0 && e.events&api.EventRead != 0)
	if readable && e.events&api.EventRead != 0 {
		l.safeRun(e.h.OnReadable)
	}
	if cur, ok := l.handlers[ev.Fd]; !ok || cur != e {
		return
	}
	if ev.Events&api.EventWrite != 0 && e.events&api.EventWrite != 0 {
		l.safeRun(e.h.OnWritable)
	}
	if cur, ok := l.handlers[ev.Fd]; !ok || cur != e {
		return
	}
	if ev.Events&api.EventError != 0 {
		l.safeRun(func() { e.h.OnError(api.ErrEventError) })
	}
}

// Stop asks Run to return after the current iteration. Safe from any
// goroutine.
func (l *Loop) Stop() {
	l.stop.Store(true)
	if err := l.p.Wakeup(); err != nil {
		log.Printf("ioloop: wakeup: %v", err)
	}
}

// Close stops the loop, notifies every registered handler with
// ErrLoopClosed and releases the poller. Idempotent. Must not be
// called concurrently with Run; Stop first, from other goroutines.
func (l *Loop) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	l.stop.Store(true)
	for fd, e := range l.handlers {
		delete(l.handlers, fd)
		_ = l.p.Delete(fd)
		h := e.h
		l.safeRun(func() { h.OnError(api.ErrLoopClosed) })
	}
	l.timers = nil
	l.timersPending.Store(0)
	l.handlerCount.Store(0)
	return l.p.Close()
}

// Stats exposes loop counters for metrics export and debug probes.
func (l *Loop) Stats() map[string]int64 {
	return map[string]int64{
		"iterations":       l.iterations.Load(),
		"events_handled":   l.eventsHandled.Load(),
		"timers_fired":     l.timersFired.Load(),
		"timers_pending":   l.timersPending.Load(),
		"handlers":         l.handlerCount.Load(),
		"timers_cancelled": l.cancelledTimers.Load(),
	}
}

// safeRun shields the loop from panicking callbacks.
func (l *Loop) safeRun(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ioloop: recovered callback panic: %v", r)
		}
	}()
	fn()
}
