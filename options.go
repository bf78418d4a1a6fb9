// File: options.go
// Package ioloop defines functional options for loop construction.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ioloop

// Option customizes loop initialization.
type Option func(*config)

type config struct {
	backend   string
	maxEvents int
}

func defaultConfig() config {
	return config{maxEvents: 128}
}

// WithBackend forces a specific poller backend ("epoll", "kqueue",
// "poll", "select"). Default is the platform's best backend.
func WithBackend(name string) Option {
	return func(c *config) { c.backend = name }
}

// WithMaxEvents overrides the per-iteration readiness batch size.
func WithMaxEvents(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxEvents = n
		}
	}
}
