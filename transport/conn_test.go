//go:build unix

// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

// conn_test.go — buffered channel behaviour over socketpairs: inbound
// delivery, outbound flush with partial writes, close semantics.
package transport

import (
	"bytes"
	"io"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/ioloop"
	"github.com/momentics/ioloop/api"
)

// newTestLoop builds a loop without starting it; registration has to
// happen before Run.
func newTestLoop(t *testing.T) *ioloop.Loop {
	t.Helper()
	l, err := ioloop.New()
	require.NoError(t, err)
	return l
}

// startLoop runs l in a goroutine and stops it on test cleanup.
func startLoop(t *testing.T, l *ioloop.Loop) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- l.Run() }()
	t.Cleanup(func() {
		l.Stop()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("loop did not stop")
		}
		l.Close()
	})
}

func socketpair(t *testing.T) (local, peer int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	return fds[0], fds[1]
}

func TestConnReceive(t *testing.T) {
	l := newTestLoop(t)
	local, peer := socketpair(t)
	defer unix.Close(peer)

	var mu sync.Mutex
	var got []byte
	_, err := NewConn(l, local, WithOnData(func(_ *Conn, data []byte) {
		mu.Lock()
		got = append(got, data...)
		mu.Unlock()
	}))
	require.NoError(t, err)
	startLoop(t, l)

	_, err = unix.Write(peer, []byte("hello"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return bytes.Equal(got, []byte("hello"))
	}, 2*time.Second, 5*time.Millisecond)
}

func TestConnSendFlushesAndCloseWhenDone(t *testing.T) {
	l := newTestLoop(t)
	local, peer := socketpair(t)

	closed := make(chan error, 1)
	c, err := NewConn(l, local, WithOnClosed(func(_ *Conn, err error) { closed <- err }))
	require.NoError(t, err)
	startLoop(t, l)

	// Large enough to overrun the socket buffer and exercise the
	// pending-partial-write path.
	payload := make([]byte, 1<<20)
	_, err = rand.New(rand.NewSource(1)).Read(payload)
	require.NoError(t, err)

	require.NoError(t, c.Send(payload))
	require.NoError(t, c.CloseWhenDone())

	var echoed []byte
	buf := make([]byte, 64<<10)
	for {
		n, err := unix.Read(peer, buf)
		if n > 0 {
			echoed = append(echoed, buf[:n]...)
		}
		if n == 0 && err == nil {
			break // peer EOF after the flush completed
		}
		require.NoError(t, err)
	}
	unix.Close(peer)

	require.Equal(t, len(payload), len(echoed))
	assert.True(t, bytes.Equal(payload, echoed))

	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("OnClosed not fired after drain")
	}
}

func TestConnPeerEOF(t *testing.T) {
	l := newTestLoop(t)
	local, peer := socketpair(t)

	closed := make(chan error, 1)
	c, err := NewConn(l, local, WithOnClosed(func(_ *Conn, err error) { closed <- err }))
	require.NoError(t, err)
	startLoop(t, l)

	require.NoError(t, unix.Close(peer))

	select {
	case err := <-closed:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(2 * time.Second):
		t.Fatal("peer close not observed")
	}

	assert.ErrorIs(t, c.Send([]byte("late")), api.ErrConnClosed)
}

func TestConnLocalCloseIdempotent(t *testing.T) {
	l := newTestLoop(t)
	local, peer := socketpair(t)
	defer unix.Close(peer)

	var closes atomic.Int32
	closed := make(chan error, 2)
	c, err := NewConn(l, local, WithOnClosed(func(_ *Conn, err error) {
		closes.Add(1)
		closed <- err
	}))
	require.NoError(t, err)
	startLoop(t, l)

	require.NoError(t, c.Close())
	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("OnClosed not fired")
	}
	require.NoError(t, c.Close())

	// Give a second teardown a chance to fire before asserting once-ness.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), closes.Load())
}

func TestConnRejectsEmptyAndLateSends(t *testing.T) {
	l := newTestLoop(t)
	local, peer := socketpair(t)
	defer unix.Close(peer)

	closed := make(chan error, 1)
	c, err := NewConn(l, local, WithOnClosed(func(_ *Conn, err error) { closed <- err }))
	require.NoError(t, err)
	startLoop(t, l)

	// Zero-length sends are dropped, not queued.
	require.NoError(t, c.Send(nil))

	require.NoError(t, c.Close())
	<-closed
	assert.ErrorIs(t, c.Send([]byte("x")), api.ErrConnClosed)
}
