// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package transport implements the asynchronous socket channels driven
// by an ioloop.Loop: Conn wraps a non-blocking socket with a buffered
// outbound queue and read-side callbacks, Acceptor listens and hands
// inbound sockets to an OnAccept hook, and Connect performs a
// non-blocking outbound connect completed on writability.
//
// TCP (v4/v6) and Unix-domain stream sockets are supported.
package transport
