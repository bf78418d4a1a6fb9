//go:build unix

// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

// poller_test.go — backend conformance suite run against every poller
// available on the build platform.
package poller

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/ioloop/api"
)

func testPipe(t *testing.T) (r, w int) {
	t.Helper()
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	for _, fd := range fds {
		if err := unix.SetNonblock(fd, true); err != nil {
			t.Fatalf("nonblock: %v", err)
		}
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

// forEachBackend runs fn once per registered backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, p api.Poller)) {
	t.Helper()
	names := Backends()
	if len(names) == 0 {
		t.Skip("no poller backends on this platform")
	}
	for _, name := range names {
		name := name
		t.Run(name, func(t *testing.T) {
			p, err := NewBackend(name)
			if err != nil {
				t.Fatalf("NewBackend(%q): %v", name, err)
			}
			defer p.Close()
			fn(t, p)
		})
	}
}

func TestNewDefaultBackend(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.Close()
}

func TestNewBackendUnknown(t *testing.T) {
	if _, err := NewBackend("bogus"); err == nil {
		t.Error("NewBackend accepted an unknown name")
	}
}

func TestWaitTimeout(t *testing.T) {
	forEachBackend(t, func(t *testing.T, p api.Poller) {
		evs := make([]api.Event, 8)
		start := time.Now()
		n, err := p.Wait(evs, 20*time.Millisecond)
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if n != 0 {
			t.Errorf("Wait returned %d events on an empty set", n)
		}
		if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
			t.Errorf("Wait returned too early: %v", elapsed)
		}
	})
}

func TestReadReadiness(t *testing.T) {
	forEachBackend(t, func(t *testing.T, p api.Poller) {
		r, w := testPipe(t)
		if err := p.Add(r, api.EventRead); err != nil {
			t.Fatalf("Add: %v", err)
		}

		evs := make([]api.Event, 8)
		n, err := p.Wait(evs, 20*time.Millisecond)
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if n != 0 {
			t.Fatalf("spurious readiness before any write: %d events", n)
		}

		if _, err := unix.Write(w, []byte("x")); err != nil {
			t.Fatalf("write: %v", err)
		}
		n, err = p.Wait(evs, time.Second)
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if n != 1 {
			t.Fatalf("Wait = %d events, want 1", n)
		}
		if evs[0].Fd != r {
			t.Errorf("event fd = %d, want %d", evs[0].Fd, r)
		}
		if !evs[0].Events.Has(api.EventRead) {
			t.Errorf("event mask %v lacks EventRead", evs[0].Events)
		}
	})
}

func TestWriteReadiness(t *testing.T) {
	forEachBackend(t, func(t *testing.T, p api.Poller) {
		_, w := testPipe(t)
		if err := p.Add(w, api.EventWrite); err != nil {
			t.Fatalf("Add: %v", err)
		}

		evs := make([]api.Event, 8)
		n, err := p.Wait(evs, time.Second)
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if n != 1 || evs[0].Fd != w || !evs[0].Events.Has(api.EventWrite) {
			t.Fatalf("idle pipe write end not writable: n=%d evs=%v", n, evs[:n])
		}
	})
}

func TestModifyAndDelete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, p api.Poller) {
		r, w := testPipe(t)
		if err := p.Add(r, api.EventRead); err != nil {
			t.Fatalf("Add: %v", err)
		}
		if _, err := unix.Write(w, []byte("x")); err != nil {
			t.Fatalf("write: %v", err)
		}

		// Drop read interest; the pending byte must not surface.
		if err := p.Modify(r, 0); err != nil {
			t.Fatalf("Modify: %v", err)
		}
		evs := make([]api.Event, 8)
		n, err := p.Wait(evs, 20*time.Millisecond)
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
		for i := 0; i < n; i++ {
			if evs[i].Fd == r && evs[i].Events.Has(api.EventRead) {
				t.Error("read event delivered after interest was cleared")
			}
		}

		if err := p.Modify(r, api.EventRead); err != nil {
			t.Fatalf("Modify: %v", err)
		}
		n, err = p.Wait(evs, time.Second)
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if n != 1 || evs[0].Fd != r {
			t.Fatalf("restored interest not delivered: n=%d", n)
		}

		if err := p.Delete(r); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		n, err = p.Wait(evs, 20*time.Millisecond)
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if n != 0 {
			t.Errorf("deleted fd still delivered %d events", n)
		}
	})
}

func TestWakeupInterruptsWait(t *testing.T) {
	forEachBackend(t, func(t *testing.T, p api.Poller) {
		type result struct {
			n   int
			err error
		}
		res := make(chan result, 1)
		go func() {
			evs := make([]api.Event, 8)
			n, err := p.Wait(evs, 5*time.Second)
			res <- result{n, err}
		}()

		time.Sleep(20 * time.Millisecond)
		if err := p.Wakeup(); err != nil {
			t.Fatalf("Wakeup: %v", err)
		}

		select {
		case r := <-res:
			if r.err != nil {
				t.Fatalf("Wait: %v", r.err)
			}
			if r.n != 0 {
				t.Errorf("wakeup surfaced %d events to the caller", r.n)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Wakeup did not interrupt a blocked Wait")
		}
	})
}

func TestWaitMsecRounding(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want int
	}{
		{-1, -1},
		{0, 0},
		{time.Microsecond, 1},
		{time.Millisecond, 1},
		{2500 * time.Microsecond, 2},
	}
	for _, c := range cases {
		if got := waitMsec(c.in); got != c.want {
			t.Errorf("waitMsec(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}
