// File: server/run.go
// Package server implements startup, the reactor loop lifecycle and
// graceful shutdown for the Server facade.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/momentics/ioloop/api"
	"github.com/momentics/ioloop/control"
)

// Run starts the reactor and blocks until Shutdown is called. The
// handler chain is frozen here; accepted connections feed it through
// the executor.
func (s *Server) Run(handler api.Handler) error {
	s.chain = buildChain(handler, s.middleware...)

	var watcher *control.Watcher
	if s.cfg.configFile != "" {
		w, err := control.NewWatcher(s.cfg.configFile, s.hub.Config)
		if err != nil {
			return err
		}
		watcher = w
		defer watcher.Close()
	}

	var g errgroup.Group
	g.Go(s.loop.Run)

	<-s.shutdownCh

	// Graceful teardown: stop accepting, flush and close channels,
	// then stop the loop.
	deadline := time.Now().Add(s.cfg.shutdownTimeout)
	_ = s.acc.Close()
	s.loop.Post(func() {
		for _, c := range s.conns {
			_ = c.CloseWhenDone()
		}
	})
	s.waitConnsDrained(deadline)

	s.loop.Stop()
	err := s.waitLoop(&g, deadline)
	s.exec.Close()
	if cerr := s.loop.Close(); err == nil {
		err = cerr
	}
	return err
}

// Shutdown signals Run to stop accepting and tear down. Idempotent.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
}

// waitConnsDrained polls the loop for the open-connection count until
// it reaches zero or the deadline passes.
func (s *Server) waitConnsDrained(deadline time.Time) {
	for time.Now().Before(deadline) {
		remaining := make(chan int, 1)
		s.loop.Post(func() { remaining <- len(s.conns) })
		select {
		case n := <-remaining:
			if n == 0 {
				return
			}
		case <-time.After(100 * time.Millisecond):
		}
		time.Sleep(10 * time.Millisecond)
	}
	log.Printf("server: shutdown timeout with connections still open")
}

// waitLoop bounds the wait for the loop goroutine to exit.
func (s *Server) waitLoop(g *errgroup.Group, deadline time.Time) error {
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(time.Until(deadline) + time.Second):
		return api.NewError(api.ErrCodeInternal, "loop did not stop before shutdown deadline")
	}
}
