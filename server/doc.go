// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server is the high-level facade over the reactor: one loop, one
// acceptor, a middleware-decorated handler chain and a worker executor
// so application handlers never block the loop goroutine. Payloads
// reach the handler as *Message values carrying the source channel;
// replies go back through Message.Conn.Send.
package server
