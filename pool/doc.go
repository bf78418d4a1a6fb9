// Package pool
// Author: momentics <momentics@gmail.com>
//
// Size-classed byte buffers for the read path, backed by
// bytedance/gopkg mcache. The loop hands OnData callbacks a pooled
// buffer and reclaims it when the callback returns, keeping steady
// per-connection reads allocation-free.
package pool
