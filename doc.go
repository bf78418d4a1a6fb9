// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package ioloop implements the reactor core: a single-goroutine event
// loop binding a poller backend, a timer heap and an fd-to-handler
// registry.
//
// One iteration runs expired timers, then callbacks injected via Post,
// then waits on the poller (with a timeout derived from the nearest
// timer deadline) and dispatches readiness events to the registered
// IOHandlers. All callbacks execute on the loop goroutine; the only
// goroutine-safe entry points are Post, Stop and Timer.Cancel.
package ioloop
