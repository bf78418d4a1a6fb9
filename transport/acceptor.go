//go:build unix

// File: transport/acceptor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Acceptor is the listening-socket specialization of the channel: a
// readable event means pending connections, drained until EAGAIN.

package transport

import (
	"fmt"
	"log"
	"net"
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/momentics/ioloop"
	"github.com/momentics/ioloop/api"
)

const listenBacklog = 511

// Acceptor owns a listening socket registered with a loop and hands
// every inbound connection to the OnAccept hook as a ready Conn.
type Acceptor struct {
	loop     *ioloop.Loop
	fd       int
	network  string
	addr     net.Addr
	onAccept func(*Conn)
	connOpts []ConnOption
	onClosed func(err error)
	closed   atomic.Bool
	accepted atomic.Int64
}

var _ api.IOHandler = (*Acceptor)(nil)

// AcceptorOption customizes acceptor construction.
type AcceptorOption func(*Acceptor)

// WithConnOptions sets the options applied to every accepted Conn.
func WithConnOptions(opts ...ConnOption) AcceptorOption {
	return func(a *Acceptor) { a.connOpts = opts }
}

// WithOnListenerClosed sets a hook fired when the listener tears down.
func WithOnListenerClosed(fn func(err error)) AcceptorOption {
	return func(a *Acceptor) { a.onClosed = fn }
}

// NewAcceptor binds and listens on network/addr ("tcp", "tcp4",
// "tcp6", "unix") and registers the accept path with the loop.
func NewAcceptor(loop *ioloop.Loop, network, addr string, onAccept func(*Conn), opts ...AcceptorOption) (*Acceptor, error) {
	family, sa, err := resolveSockaddr(network, addr)
	if err != nil {
		return nil, err
	}
	fd, err := newStreamSocket(family)
	if err != nil {
		return nil, err
	}
	a := &Acceptor{loop: loop, fd: fd, network: network, onAccept: onAccept}
	for _, opt := range opts {
		opt(a)
	}

	if family != unix.AF_UNIX {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("set SO_REUSEADDR: %w", err)
		}
	} else {
		// A stale socket file from a previous run blocks bind.
		_ = os.Remove(addr)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind %s %q: %w", network, addr, err)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen %s %q: %w", network, addr, err)
	}
	a.addr = localAddr(fd)

	if err := loop.Register(a, api.EventRead); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return a, nil
}

// Fd returns the listening descriptor.
func (a *Acceptor) Fd() int { return a.fd }

// Addr returns the bound listen address (with the resolved port).
func (a *Acceptor) Addr() net.Addr { return a.addr }

// Accepted reports the number of connections handed out.
func (a *Acceptor) Accepted() int64 { return a.accepted.Load() }

// OnReadable drains the accept backlog.
func (a *Acceptor) OnReadable() {
	for {
		nfd, _, err := unix.Accept(a.fd)
		if err != nil {
			switch err {
			case unix.EAGAIN:
				return
			case unix.EINTR, unix.ECONNABORTED:
				continue
			case unix.EMFILE, unix.ENFILE:
				// Out of descriptors; retry on the next readable event.
				log.Printf("transport: accept on %s: %v", a.network, err)
				return
			default:
				log.Printf("transport: accept on %s: %v", a.network, err)
				return
			}
		}
		conn, err := NewConn(a.loop, nfd, a.connOpts...)
		if err != nil {
			unix.Close(nfd)
			log.Printf("transport: adopt accepted fd %d: %v", nfd, err)
			continue
		}
		a.accepted.Add(1)
		if a.onAccept != nil {
			a.onAccept(conn)
		}
	}
}

// OnWritable is never requested for a listening socket.
func (a *Acceptor) OnWritable() {}

// OnError tears the listener down.
func (a *Acceptor) OnError(err error) { a.closeWith(err) }

// Close unregisters and closes the listening socket. Safe from any
// goroutine; the actual teardown runs on the loop.
func (a *Acceptor) Close() error {
	if a.closed.Load() {
		return nil
	}
	a.loop.Post(func() { a.closeWith(nil) })
	return nil
}

func (a *Acceptor) closeWith(err error) {
	if !a.closed.CompareAndSwap(false, true) {
		return
	}
	_ = a.loop.Unregister(a.fd)
	unix.Close(a.fd)
	if a.network == "unix" {
		if ua, ok := a.addr.(*net.UnixAddr); ok {
			_ = os.Remove(ua.Name)
		}
	}
	if a.onClosed != nil {
		a.onClosed(err)
	}
}
