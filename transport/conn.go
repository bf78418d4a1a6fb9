//go:build unix

// File: transport/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Conn is the buffered asynchronous socket channel. Outbound data sits
// in a FIFO of byte slices; write interest is raised while the FIFO is
// non-empty and dropped once it drains. Read payloads are handed to
// the OnData hook in a pool-backed buffer valid for the callback
// duration only.

package transport

import (
	"io"
	"net"
	"sync/atomic"

	"github.com/eapache/queue"
	"golang.org/x/sys/unix"

	"github.com/momentics/ioloop"
	"github.com/momentics/ioloop/api"
	"github.com/momentics/ioloop/pool"
)

const defaultReadBufferSize = 64 << 10

// ConnOption customizes channel construction.
type ConnOption func(*Conn)

// WithOnData sets the inbound payload hook. The buffer is reclaimed
// when the hook returns; copy to retain.
func WithOnData(fn func(c *Conn, data []byte)) ConnOption {
	return func(c *Conn) { c.onData = fn }
}

// WithOnClosed sets the teardown hook, invoked exactly once. err is
// nil for local closes, io.EOF for peer closes.
func WithOnClosed(fn func(c *Conn, err error)) ConnOption {
	return func(c *Conn) { c.onClosed = fn }
}

// WithOnConnected sets the hook invoked when an outbound connect
// completes (see Connect).
func WithOnConnected(fn func(c *Conn)) ConnOption {
	return func(c *Conn) { c.onConnected = fn }
}

// WithReadBufferSize overrides the per-read buffer size.
func WithReadBufferSize(n int) ConnOption {
	return func(c *Conn) {
		if n > 0 {
			c.readSize = n
		}
	}
}

// WithBytePool overrides the read buffer pool.
func WithBytePool(p api.BytePool) ConnOption {
	return func(c *Conn) { c.pool = p }
}

// Conn wraps a non-blocking stream socket registered with a loop.
type Conn struct {
	loop     *ioloop.Loop
	fd       int
	pool     api.BytePool
	readSize int

	// loop-goroutine state
	out             *queue.Queue // of []byte
	pending         []byte       // partially written head
	events          api.IOEvents
	connecting      bool
	closeAfterFlush bool

	onData      func(*Conn, []byte)
	onClosed    func(*Conn, error)
	onConnected func(*Conn)

	closed atomic.Bool

	local  net.Addr
	remote net.Addr
}

var (
	_ api.Conn      = (*Conn)(nil)
	_ api.IOHandler = (*Conn)(nil)
)

// NewConn adopts an already connected socket fd (for example one
// returned by accept) into the loop with read interest. The fd is
// switched to non-blocking mode and, for TCP, TCP_NODELAY.
func NewConn(loop *ioloop.Loop, fd int, opts ...ConnOption) (*Conn, error) {
	c := newConnShell(loop, fd, opts...)
	if err := prepareFd(fd, isTCPFd(fd)); err != nil {
		return nil, err
	}
	c.local = localAddr(fd)
	c.remote = peerAddr(fd)
	if err := loop.Register(c, api.EventRead); err != nil {
		return nil, err
	}
	c.events = api.EventRead
	return c, nil
}

func newConnShell(loop *ioloop.Loop, fd int, opts ...ConnOption) *Conn {
	c := &Conn{
		loop:     loop,
		fd:       fd,
		pool:     pool.Default(),
		readSize: defaultReadBufferSize,
		out:      queue.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fd returns the underlying descriptor.
func (c *Conn) Fd() int { return c.fd }

// LocalAddr returns the bound local address.
func (c *Conn) LocalAddr() net.Addr { return c.local }

// RemoteAddr returns the peer address, nil before connect completion.
func (c *Conn) RemoteAddr() net.Addr { return c.remote }

// Send queues b for transmission, taking ownership of the slice.
// Safe from any goroutine; the enqueue itself happens on the loop.
func (c *Conn) Send(b []byte) error {
	if c.closed.Load() {
		return api.ErrConnClosed
	}
	c.loop.Post(func() { c.enqueue(b) })
	return nil
}

func (c *Conn) enqueue(b []byte) {
	if c.closed.Load() || len(b) == 0 {
		return
	}
	c.out.Add(b)
	if !c.connecting {
		c.setInterest(c.events | api.EventWrite)
	}
}

// Close discards unsent data and tears the channel down. Idempotent.
func (c *Conn) Close() error {
	if c.closed.Load() {
		return nil
	}
	c.loop.Post(func() { c.closeWith(nil) })
	return nil
}

// CloseWhenDone closes after the outbound queue has drained.
func (c *Conn) CloseWhenDone() error {
	if c.closed.Load() {
		return nil
	}
	c.loop.Post(func() {
		if c.pending == nil && c.out.Length() == 0 {
			c.closeWith(nil)
			return
		}
		c.closeAfterFlush = true
	})
	return nil
}

// OnReadable drains one read quantum and hands it to OnData. A zero
// read is peer EOF.
func (c *Conn) OnReadable() {
	if c.closed.Load() {
		return
	}
	buf := c.pool.Get(c.readSize)
	defer c.pool.Put(buf)
	n, err := unix.Read(c.fd, buf)
	if n > 0 {
		if c.onData != nil {
			c.onData(c, buf[:n])
		}
		return
	}
	switch err {
	case nil:
		c.closeWith(io.EOF)
	case unix.EAGAIN, unix.EINTR:
	default:
		c.closeWith(err)
	}
}

// OnWritable completes a pending connect or flushes the outbound FIFO.
func (c *Conn) OnWritable() {
	if c.closed.Load() {
		return
	}
	if c.connecting {
		c.finishConnect()
		return
	}
	c.flush()
}

func (c *Conn) flush() {
	for {
		if c.pending == nil {
			if c.out.Length() == 0 {
				break
			}
			c.pending = c.out.Remove().([]byte)
		}
		n, err := unix.Write(c.fd, c.pending)
		if n > 0 {
			c.pending = c.pending[n:]
			if len(c.pending) == 0 {
				c.pending = nil
			}
		}
		if err != nil {
			switch err {
			case unix.EAGAIN:
				return // kernel buffer full, stay write-interested
			case unix.EINTR:
				continue
			default:
				c.closeWith(err)
				return
			}
		}
		if n <= 0 {
			return
		}
	}
	if c.closeAfterFlush {
		c.closeWith(nil)
		return
	}
	c.setInterest(c.events &^ api.EventWrite)
}

// OnError resolves the socket error condition and closes the channel.
func (c *Conn) OnError(err error) {
	if c.closed.Load() {
		return
	}
	if errno, e := unix.GetsockoptInt(c.fd, unix.SOL_SOCKET, unix.SO_ERROR); e == nil && errno != 0 {
		err = unix.Errno(errno)
	}
	c.closeWith(err)
}

func (c *Conn) finishConnect() {
	c.connecting = false
	errno, err := unix.GetsockoptInt(c.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		c.closeWith(err)
		return
	}
	if errno != 0 {
		c.closeWith(unix.Errno(errno))
		return
	}
	c.local = localAddr(c.fd)
	c.remote = peerAddr(c.fd)
	events := api.EventRead
	if c.pending != nil || c.out.Length() > 0 {
		events |= api.EventWrite
	}
	c.setInterest(events)
	if c.onConnected != nil {
		c.onConnected(c)
	}
}

func (c *Conn) setInterest(events api.IOEvents) {
	if events == c.events {
		return
	}
	if err := c.loop.Modify(c.fd, events); err != nil {
		return
	}
	c.events = events
}

// closeWith is the single teardown path: unregister, close the fd,
// drop queued data, fire OnClosed once.
func (c *Conn) closeWith(err error) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	_ = c.loop.Unregister(c.fd)
	unix.Close(c.fd)
	c.pending = nil
	for c.out.Length() > 0 {
		c.out.Remove()
	}
	if c.onClosed != nil {
		c.onClosed(c, err)
	}
}
