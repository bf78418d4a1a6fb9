// File: api/conn.go
// Author: momentics <momentics@gmail.com>
//
// Asynchronous socket channel abstraction registered with the loop.

package api

import "net"

// Conn is a buffered, non-blocking socket channel owned by a loop.
// Send is goroutine-safe; everything else happens on the loop.
type Conn interface {
	// Fd returns the underlying descriptor.
	Fd() int

	// Send queues b for transmission and takes ownership of it.
	// Returns ErrConnClosed once the channel is closed.
	Send(b []byte) error

	// Close tears the channel down, discarding unsent data.
	Close() error

	// CloseWhenDone closes after the outbound queue has drained.
	CloseWhenDone() error

	// LocalAddr returns the bound local address.
	LocalAddr() net.Addr

	// RemoteAddr returns the peer address, nil for unconnected fds.
	RemoteAddr() net.Addr
}
