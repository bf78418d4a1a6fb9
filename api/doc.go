// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Contract layer of the ioloop library. Every package in the module
// programs against these interfaces; concrete implementations live in
// poller, ioloop, transport, pool and control.
//
// The contracts describe a single-threaded cooperative reactor:
//   - Poller: OS readiness multiplexer (epoll, kqueue, poll, select)
//   - Scheduler: deferred and periodic callback execution
//   - IOHandler: per-descriptor event sink driven by the loop
//   - Conn: buffered asynchronous socket channel
//   - BytePool: pooled payload buffers for read paths
//   - Control: dynamic config, metrics and debug introspection
package api
