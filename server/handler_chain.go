// File: server/handler_chain.go
// Package server implements the middleware handler chain.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import "github.com/momentics/ioloop/api"

// Middleware decorates a Handler.
type Middleware func(api.Handler) api.Handler

// buildChain wraps h so the first middleware runs outermost.
func buildChain(h api.Handler, mw ...Middleware) api.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
