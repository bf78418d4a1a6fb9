//go:build !unix

// File: poller/poller_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub for platforms without a readiness multiplexer backend.

package poller

import "github.com/momentics/ioloop/api"

// Backend names accepted by NewBackend on supported platforms.
const (
	BackendEpoll  = "epoll"
	BackendKqueue = "kqueue"
	BackendPoll   = "poll"
	BackendSelect = "select"
)

// New is not available on this platform.
func New() (api.Poller, error) {
	return nil, api.ErrNotSupported
}

// NewBackend is not available on this platform.
func NewBackend(name string) (api.Poller, error) {
	return nil, api.ErrNotSupported
}

// Backends reports no available backends on this platform.
func Backends() []string { return nil }
