// File: control/hub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Hub bundles the config store, metrics registry and debug probes
// behind the api.Control contract used by the server facade.

package control

import "github.com/momentics/ioloop/api"

// Hub implements api.Control.
type Hub struct {
	Config  *ConfigStore
	Metrics *MetricsRegistry
	Probes  *DebugProbes
}

var _ api.Control = (*Hub)(nil)

// NewHub creates a hub with empty components.
func NewHub() *Hub {
	return &Hub{
		Config:  NewConfigStore(),
		Metrics: NewMetricsRegistry(),
		Probes:  NewDebugProbes(),
	}
}

// GetConfig returns a config snapshot.
func (h *Hub) GetConfig() map[string]any { return h.Config.Snapshot() }

// SetConfig merges cfg and notifies reload listeners.
func (h *Hub) SetConfig(cfg map[string]any) error {
	h.Config.Set(cfg)
	return nil
}

// Stats returns the metrics snapshot.
func (h *Hub) Stats() map[string]any { return h.Metrics.Snapshot() }

// OnReload registers a config reload listener.
func (h *Hub) OnReload(fn func()) { h.Config.OnReload(fn) }

// RegisterDebugProbe inserts a named debug hook.
func (h *Hub) RegisterDebugProbe(name string, fn func() any) {
	h.Probes.Register(name, fn)
}
