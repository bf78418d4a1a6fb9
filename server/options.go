// File: server/options.go
// Package server defines functional options for the Server facade.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import "time"

// Option customizes server initialization.
type Option func(*Server)

// WithNetwork selects the listen network: "tcp" (default), "tcp4",
// "tcp6" or "unix".
func WithNetwork(network string) Option {
	return func(s *Server) { s.cfg.network = network }
}

// WithBackend forces a specific poller backend for the loop.
func WithBackend(name string) Option {
	return func(s *Server) { s.cfg.backend = name }
}

// WithWorkers sets the number of executor worker goroutines.
func WithWorkers(n int) Option {
	return func(s *Server) { s.cfg.workers = n }
}

// WithMiddleware attaches middleware in FIFO order: the first one
// wraps outermost.
func WithMiddleware(mw ...Middleware) Option {
	return func(s *Server) { s.middleware = append(s.middleware, mw...) }
}

// WithMaxEvents overrides the loop's readiness batch size.
func WithMaxEvents(n int) Option {
	return func(s *Server) { s.cfg.maxEvents = n }
}

// WithReadBufferSize sets the per-connection read buffer size.
func WithReadBufferSize(n int) Option {
	return func(s *Server) { s.cfg.readBufSize = n }
}

// WithShutdownTimeout bounds graceful teardown (default 5s).
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.cfg.shutdownTimeout = d
		}
	}
}

// WithConfigFile hot-loads the JSON file into the server's control
// hub for the lifetime of Run.
func WithConfigFile(path string) Option {
	return func(s *Server) { s.cfg.configFile = path }
}
