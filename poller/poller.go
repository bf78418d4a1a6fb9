//go:build unix

// File: poller/poller.go
// Author: momentics <momentics@gmail.com>
//
// Backend registry and selection. Platform files register their
// constructors in init and nominate the platform default.

package poller

import (
	"fmt"
	"time"

	"github.com/momentics/ioloop/api"
)

// Backend names accepted by NewBackend.
const (
	BackendEpoll  = "epoll"
	BackendKqueue = "kqueue"
	BackendPoll   = "poll"
	BackendSelect = "select"
)

var (
	backends       = make(map[string]func() (api.Poller, error))
	defaultBackend string
)

// New returns the preferred poller for this platform.
func New() (api.Poller, error) {
	name := defaultBackend
	if name == "" {
		name = BackendPoll
	}
	return NewBackend(name)
}

// NewBackend returns the named poller backend. The name must be one of
// the Backend constants available on this platform.
func NewBackend(name string) (api.Poller, error) {
	ctor, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("poller: unknown or unavailable backend %q", name)
	}
	return ctor()
}

// Backends lists the backend names available on this platform.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	return names
}

// waitMsec converts a wait timeout to milliseconds for epoll/poll.
// Negative means block forever; sub-millisecond timeouts round up so a
// positive timeout never degrades into a busy spin.
func waitMsec(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	ms := int(timeout / time.Millisecond)
	if ms == 0 && timeout > 0 {
		ms = 1
	}
	return ms
}
