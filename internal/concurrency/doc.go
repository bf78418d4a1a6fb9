// Package concurrency
// Author: momentics <momentics@gmail.com>
//
// Off-loop execution support for the server facade: a bounded worker
// executor so application handlers never block the reactor goroutine,
// built over a lock-free ring with a channel fallback.
package concurrency
