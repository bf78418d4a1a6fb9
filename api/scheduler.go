// Package api
// Author: momentics <momentics@gmail.com>
//
// Scheduling contract for deferred and periodic callback execution
// inside the reactor loop. The loop hands out concrete timers; this
// package only fixes the cancellation surface shared across layers.

package api

// Cancelable is a scheduled callback that can be withdrawn.
// Cancellation is goroutine-safe; a cancelled callback never fires and
// cancelling an already fired one-shot timer is a no-op.
type Cancelable interface {
	Cancel()
	Cancelled() bool
}
