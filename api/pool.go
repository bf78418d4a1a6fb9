// Package api
// Author: momentics
//
// Pooled payload buffers for the read path. Buffers handed to OnData
// callbacks come from a BytePool and are reclaimed when the callback
// returns; callers copy if they need the bytes longer.

package api

// BytePool hands out byte slices of at least the requested size.
type BytePool interface {
	// Get returns a slice with len == size.
	Get(size int) []byte

	// Put returns a slice obtained from Get. The slice must not be
	// used afterwards.
	Put(b []byte)

	// Stats exposes allocation accounting for observability.
	Stats() BytePoolStats
}

// BytePoolStats aggregates buffer allocation/reuse accounting.
type BytePoolStats struct {
	TotalAlloc int64
	TotalFree  int64
	InUse      int64
}
