// File: timer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Binary-heap timer queue owned by the loop. Cancellation is lazy: a
// cancelled timer stays in the heap until it surfaces or until the
// heap is compacted, so Cancel stays O(1) and goroutine-safe.

package ioloop

import (
	"container/heap"
	"sync/atomic"
	"time"

	"github.com/momentics/ioloop/api"
)

// Compaction triggers when cancelled entries exceed this floor and
// outnumber half the heap.
const cancelCompactFloor = 512

// Timer is a scheduled callback handle returned by CallLater and
// CallEvery. Cancel is goroutine-safe; Reset must run on the loop.
type Timer struct {
	loop      *Loop
	fn        func()
	when      time.Time
	delay     time.Duration
	period    time.Duration // 0 for one-shot
	index     int           // heap position, -1 once popped
	cancelled atomic.Bool
}

var _ api.Cancelable = (*Timer)(nil)

// Cancel withdraws the timer. Idempotent.
func (t *Timer) Cancel() {
	if !t.cancelled.Swap(true) {
		t.loop.cancelledTimers.Add(1)
	}
}

// Cancelled reports whether Cancel has been called.
func (t *Timer) Cancelled() bool { return t.cancelled.Load() }

// Reset rearms the timer with its original delay, reviving it if it
// was cancelled or already fired. Loop goroutine only.
func (t *Timer) Reset() {
	if t.cancelled.Swap(false) {
		t.loop.cancelledTimers.Add(-1)
	}
	t.when = time.Now().Add(t.delay)
	if t.index >= 0 {
		heap.Fix(&t.loop.timers, t.index)
	} else {
		heap.Push(&t.loop.timers, t)
		t.loop.timersPending.Add(1)
	}
}

// timerHeap orders timers by deadline.
type timerHeap []*Timer

func (h timerHeap) Len() int           { return len(h) }
func (h timerHeap) Less(i, j int) bool { return h[i].when.Before(h[j].when) }

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// schedule inserts a new timer, compacting the heap first when lazy
// cancellations have accumulated.
func (l *Loop) schedule(delay, period time.Duration, fn func()) *Timer {
	if delay < 0 {
		delay = 0
	}
	l.maybeCompactTimers()
	t := &Timer{
		loop:   l,
		fn:     fn,
		when:   time.Now().Add(delay),
		delay:  delay,
		period: period,
		index:  -1,
	}
	heap.Push(&l.timers, t)
	l.timersPending.Add(1)
	return t
}

// CallLater runs fn once after delay. A non-positive delay fires on
// the next loop iteration. Loop goroutine only; use Post from outside.
func (l *Loop) CallLater(delay time.Duration, fn func()) *Timer {
	return l.schedule(delay, 0, fn)
}

// CallEvery runs fn every period until the timer is cancelled.
func (l *Loop) CallEvery(period time.Duration, fn func()) *Timer {
	if period <= 0 {
		period = time.Millisecond
	}
	return l.schedule(period, period, fn)
}

// expireTimers pops and runs every timer due at now. Periodic timers
// are rescheduled before their callback runs so a panicking callback
// does not kill the period.
func (l *Loop) expireTimers(now time.Time) {
	for l.timers.Len() > 0 {
		t := l.timers[0]
		if t.cancelled.Load() {
			heap.Pop(&l.timers)
			l.cancelledTimers.Add(-1)
			l.timersPending.Add(-1)
			continue
		}
		if t.when.After(now) {
			return
		}
		heap.Pop(&l.timers)
		if t.period > 0 {
			t.when = now.Add(t.period)
			heap.Push(&l.timers, t)
		} else {
			l.timersPending.Add(-1)
		}
		l.timersFired.Add(1)
		l.safeRun(t.fn)
	}
}

// nextTimeout returns the wait budget until the nearest live timer,
// negative when the heap holds none.
func (l *Loop) nextTimeout() time.Duration {
	for l.timers.Len() > 0 {
		t := l.timers[0]
		if t.cancelled.Load() {
			heap.Pop(&l.timers)
			l.cancelledTimers.Add(-1)
			l.timersPending.Add(-1)
			continue
		}
		d := time.Until(t.when)
		if d < 0 {
			d = 0
		}
		return d
	}
	return -1
}

func (l *Loop) maybeCompactTimers() {
	n := l.cancelledTimers.Load()
	if n < cancelCompactFloor || n < int64(l.timers.Len()/2) {
		return
	}
	live := l.timers[:0]
	for _, t := range l.timers {
		if t.cancelled.Load() {
			l.cancelledTimers.Add(-1)
			continue
		}
		t.index = len(live)
		live = append(live, t)
	}
	l.timers = live
	l.timersPending.Store(int64(len(live)))
	heap.Init(&l.timers)
}
