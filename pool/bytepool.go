// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>

package pool

import (
	"sync/atomic"

	"github.com/bytedance/gopkg/lang/mcache"

	"github.com/momentics/ioloop/api"
)

// BytePool implements api.BytePool over mcache size classes.
type BytePool struct {
	alloc atomic.Int64
	free  atomic.Int64
}

var _ api.BytePool = (*BytePool)(nil)

// NewBytePool creates an accounting wrapper over the shared mcache.
func NewBytePool() *BytePool {
	return &BytePool{}
}

// Get returns a slice with len == size.
func (p *BytePool) Get(size int) []byte {
	p.alloc.Add(1)
	return mcache.Malloc(size)
}

// Put recycles a slice obtained from Get.
func (p *BytePool) Put(b []byte) {
	if b == nil {
		return
	}
	p.free.Add(1)
	mcache.Free(b)
}

// Stats returns allocation accounting.
func (p *BytePool) Stats() api.BytePoolStats {
	alloc, free := p.alloc.Load(), p.free.Load()
	return api.BytePoolStats{
		TotalAlloc: alloc,
		TotalFree:  free,
		InUse:      alloc - free,
	}
}

var defaultPool = NewBytePool()

// Default returns the process-wide pool used by transport channels
// unless overridden per connection.
func Default() *BytePool { return defaultPool }
