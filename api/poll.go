// File: api/poll.go
// Author: momentics <momentics@gmail.com>
//
// Poller contract for OS readiness multiplexing across backend
// strategies (epoll, kqueue, poll, select).

package api

import "time"

// Event is one readiness notification produced by a Poller.
type Event struct {
	Fd     int      // watched file descriptor
	Events IOEvents // readiness bits observed on it
}

// Poller watches a set of file descriptors and reports readiness.
// Implementations are not goroutine-safe except for Wakeup, which may
// be called from any goroutine to interrupt a pending Wait.
type Poller interface {
	// Add registers fd for the given interest set.
	Add(fd int, events IOEvents) error

	// Modify replaces the interest set of an already registered fd.
	Modify(fd int, events IOEvents) error

	// Delete removes fd from the interest set.
	Delete(fd int) error

	// Wait blocks up to timeout for readiness and fills evs.
	// A negative timeout blocks indefinitely. Interruption by a signal
	// or by Wakeup returns n == 0 and a nil error.
	Wait(evs []Event, timeout time.Duration) (n int, err error)

	// Wakeup interrupts a concurrent Wait. Safe from any goroutine.
	Wakeup() error

	// Close releases the backend resources.
	Close() error
}
