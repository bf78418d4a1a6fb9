// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package poller provides the OS readiness multiplexer backends behind
// the reactor loop: epoll on Linux, kqueue on Darwin and the BSDs, and
// portable poll(2) and select(2) fallbacks. New picks the best backend
// for the platform; NewBackend forces a specific strategy by name.
//
// All backends are level-triggered and carry an internal wakeup
// descriptor (eventfd on Linux, a self-pipe elsewhere) so a blocked
// Wait can be interrupted from another goroutine.
package poller
