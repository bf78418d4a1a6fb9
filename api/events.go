// File: api/events.go
// Author: momentics <momentics@gmail.com>
//
// Readiness event bitmask shared by the poller backends and the loop.

package api

import "strings"

// IOEvents is a bitmask of descriptor readiness conditions.
type IOEvents uint32

const (
	// EventRead signals the descriptor has data to read (or a pending
	// accept on a listening socket).
	EventRead IOEvents = 1 << iota

	// EventWrite signals the descriptor accepts writes without blocking.
	EventWrite

	// EventError signals an error condition (EPOLLERR, POLLERR, EV_ERROR).
	EventError

	// EventHup signals peer hangup. Backends that cannot distinguish
	// hangup report it as EventError instead.
	EventHup
)

// Has reports whether all bits of mask are set.
func (ev IOEvents) Has(mask IOEvents) bool { return ev&mask == mask }

// String renders the mask for logs and debug probes.
func (ev IOEvents) String() string {
	if ev == 0 {
		return "none"
	}
	parts := make([]string, 0, 4)
	if ev&EventRead != 0 {
		parts = append(parts, "read")
	}
	if ev&EventWrite != 0 {
		parts = append(parts, "write")
	}
	if ev&EventError != 0 {
		parts = append(parts, "error")
	}
	if ev&EventHup != 0 {
		parts = append(parts, "hup")
	}
	return strings.Join(parts, "|")
}
