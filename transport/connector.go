//go:build unix

// File: transport/connector.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking outbound connect. connect(2) on a non-blocking socket
// returns EINPROGRESS; completion surfaces as writability and the
// result is read back via SO_ERROR in Conn.finishConnect.

package transport

import (
	"golang.org/x/sys/unix"

	"github.com/momentics/ioloop"
	"github.com/momentics/ioloop/api"
)

// Connect starts an asynchronous connect to network/addr and returns
// the channel immediately. WithOnConnected fires once the socket is
// writable and SO_ERROR is clean; failures reach WithOnClosed. Like
// registration, Connect must run on the loop goroutine or before Run.
func Connect(loop *ioloop.Loop, network, addr string, opts ...ConnOption) (*Conn, error) {
	family, sa, err := resolveSockaddr(network, addr)
	if err != nil {
		return nil, err
	}
	fd, err := newStreamSocket(family)
	if err != nil {
		return nil, err
	}
	c := newConnShell(loop, fd, opts...)
	c.local = localAddr(fd)

	switch err := unix.Connect(fd, sa); err {
	case nil:
		// Immediate completion (loopback, unix sockets).
		if err := loop.Register(c, api.EventRead); err != nil {
			unix.Close(fd)
			return nil, err
		}
		c.events = api.EventRead
		c.local = localAddr(fd)
		c.remote = peerAddr(fd)
		if c.onConnected != nil {
			fn := c.onConnected
			loop.Post(func() {
				if !c.closed.Load() {
					fn(c)
				}
			})
		}
		return c, nil
	case unix.EINPROGRESS:
		c.connecting = true
		if err := loop.Register(c, api.EventWrite); err != nil {
			unix.Close(fd)
			return nil, err
		}
		c.events = api.EventWrite
		return c, nil
	default:
		unix.Close(fd)
		return nil, err
	}
}
