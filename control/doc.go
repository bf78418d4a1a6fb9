// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime control plane for the reactor: dynamic configuration with
// reload listeners, config-file hot reload over fsnotify, a metrics
// registry fed by loop and facade counters, and debug probes with a
// JSON state dump.
//
// The package is loop-agnostic and concurrent-safe throughout.
package control
