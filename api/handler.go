// File: api/handler.go
// Package api defines IOHandler and Handler interfaces.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// IOHandler is the per-descriptor event sink driven by the loop.
// All methods are invoked on the loop goroutine.
type IOHandler interface {
	// Fd returns the descriptor this handler is bound to.
	Fd() int

	// OnReadable is called when the descriptor is readable.
	OnReadable()

	// OnWritable is called when the descriptor is writable.
	OnWritable()

	// OnError is called on error conditions, including loop shutdown
	// (ErrLoopClosed). The handler owns descriptor cleanup.
	OnError(err error)
}

// Handler processes application payloads on the server facade.
type Handler interface {
	Handle(data any) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(data any) error

// Handle implements Handler.
func (f HandlerFunc) Handle(data any) error { return f(data) }
