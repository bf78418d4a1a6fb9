// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server construction and the per-connection callback wiring between
// the acceptor, the loop and the executor.

package server

import (
	"log"
	"net"
	"runtime"
	"sync"
	"time"

	"github.com/momentics/ioloop"
	"github.com/momentics/ioloop/api"
	"github.com/momentics/ioloop/control"
	"github.com/momentics/ioloop/internal/concurrency"
	"github.com/momentics/ioloop/pool"
	"github.com/momentics/ioloop/transport"
)

// Message is the payload unit handed to the handler chain.
type Message struct {
	Conn *transport.Conn
	Data []byte
}

type config struct {
	network         string
	backend         string
	workers         int
	maxEvents       int
	readBufSize     int
	shutdownTimeout time.Duration
	configFile      string
}

// Server binds one loop, one acceptor and an executor.
type Server struct {
	cfg        config
	middleware []Middleware

	loop *ioloop.Loop
	acc  *transport.Acceptor
	exec *concurrency.Executor
	hub  *control.Hub

	chain api.Handler

	conns map[int]*transport.Conn // loop goroutine only

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// New creates a server listening on addr once Run is called. The
// listening socket itself is bound here, so Addr is valid immediately
// (useful with ":0").
func New(addr string, opts ...Option) (*Server, error) {
	s := &Server{
		cfg: config{
			network:         "tcp",
			workers:         runtime.NumCPU(),
			maxEvents:       128,
			shutdownTimeout: 5 * time.Second,
		},
		conns:      make(map[int]*transport.Conn),
		shutdownCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	loopOpts := []ioloop.Option{ioloop.WithMaxEvents(s.cfg.maxEvents)}
	if s.cfg.backend != "" {
		loopOpts = append(loopOpts, ioloop.WithBackend(s.cfg.backend))
	}
	loop, err := ioloop.New(loopOpts...)
	if err != nil {
		return nil, err
	}
	s.loop = loop

	connOpts := []transport.ConnOption{
		transport.WithOnData(s.onData),
		transport.WithOnClosed(s.onConnClosed),
	}
	if s.cfg.readBufSize > 0 {
		connOpts = append(connOpts, transport.WithReadBufferSize(s.cfg.readBufSize))
	}
	acc, err := transport.NewAcceptor(loop, s.cfg.network, addr, s.onAccept,
		transport.WithConnOptions(connOpts...))
	if err != nil {
		loop.Close()
		return nil, err
	}
	s.acc = acc

	s.exec = concurrency.NewExecutor(s.cfg.workers)
	s.hub = control.NewHub()
	s.hub.RegisterDebugProbe("loop", func() any { return s.loop.Stats() })
	s.hub.RegisterDebugProbe("executor", func() any { return s.exec.Stats() })
	s.hub.RegisterDebugProbe("pool", func() any { return pool.Default().Stats() })
	return s, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() net.Addr { return s.acc.Addr() }

// Control exposes the server's control hub.
func (s *Server) Control() api.Control { return s.hub }

func (s *Server) onAccept(c *transport.Conn) {
	s.conns[c.Fd()] = c
	s.hub.Metrics.Add("conns_accepted", 1)
}

func (s *Server) onConnClosed(c *transport.Conn, err error) {
	delete(s.conns, c.Fd())
	s.hub.Metrics.Add("conns_closed", 1)
}

// onData runs on the loop goroutine: copy the pooled buffer out and
// hand the message to the executor so the handler cannot stall the
// reactor.
func (s *Server) onData(c *transport.Conn, data []byte) {
	msg := &Message{Conn: c, Data: append([]byte(nil), data...)}
	s.hub.Metrics.Add("messages_in", 1)
	if err := s.exec.Submit(func() {
		if err := s.chain.Handle(msg); err != nil {
			log.Printf("server: handler: %v", err)
			s.hub.Metrics.Add("handler_errors", 1)
		}
	}); err != nil {
		log.Printf("server: submit: %v", err)
	}
}
