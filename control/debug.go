// File: control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Runtime debug handler and probe reflector for internal inspection.
// Probes are pull-based: each registered hook is invoked at dump time.

package control

import (
	"sync"

	"github.com/bytedance/sonic"
)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{probes: make(map[string]func() any)}
}

// Register inserts a named debug hook, replacing any previous one.
func (dp *DebugProbes) Register(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// DumpState returns the output of all probes.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any, len(dp.probes))
	for name, fn := range dp.probes {
		out[name] = fn()
	}
	return out
}

// DumpJSON renders the probe output as JSON.
func (dp *DebugProbes) DumpJSON() ([]byte, error) {
	return sonic.Marshal(dp.DumpState())
}
