// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

// control_test.go — config store, metrics registry, debug probes and
// the hub contract.
package control

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/ioloop/api"
)

func TestConfigStoreGetTyped(t *testing.T) {
	cs := NewConfigStore()
	cs.Set(map[string]any{
		"name":    "echo",
		"workers": 4,
		"ratio":   2.0, // JSON numbers arrive as float64
	})

	assert.Equal(t, "echo", cs.GetString("name", "def"))
	assert.Equal(t, "def", cs.GetString("missing", "def"))
	assert.Equal(t, "def", cs.GetString("workers", "def"))

	assert.Equal(t, 4, cs.GetInt("workers", -1))
	assert.Equal(t, 2, cs.GetInt("ratio", -1))
	assert.Equal(t, -1, cs.GetInt("name", -1))
	assert.Equal(t, -1, cs.GetInt("missing", -1))
}

func TestConfigStoreSnapshotIsCopy(t *testing.T) {
	cs := NewConfigStore()
	cs.Set(map[string]any{"a": 1})

	snap := cs.Snapshot()
	snap["a"] = 99
	snap["b"] = true

	assert.Equal(t, 1, cs.GetInt("a", -1))
	_, ok := cs.Get("b")
	assert.False(t, ok)
}

func TestConfigStoreSetMergesAndNotifies(t *testing.T) {
	cs := NewConfigStore()
	cs.Set(map[string]any{"a": 1, "b": 2})

	var reloads int
	cs.OnReload(func() { reloads++ })

	cs.Set(map[string]any{"b": 20, "c": 3})
	assert.Equal(t, 1, reloads)
	assert.Equal(t, 1, cs.GetInt("a", -1))
	assert.Equal(t, 20, cs.GetInt("b", -1))
	assert.Equal(t, 3, cs.GetInt("c", -1))
}

func TestMetricsRegistry(t *testing.T) {
	mr := NewMetricsRegistry()
	mr.Add("conns", 1)
	mr.Add("conns", 2)
	mr.Set("backend", "epoll")

	assert.Equal(t, int64(3), mr.Counter("conns"))
	assert.Equal(t, int64(0), mr.Counter("missing"))

	snap := mr.Snapshot()
	assert.Equal(t, int64(3), snap["conns"])
	assert.Equal(t, "epoll", snap["backend"])
	assert.Contains(t, snap, "updated")
}

func TestDebugProbes(t *testing.T) {
	dp := NewDebugProbes()
	dp.Register("loop", func() any { return map[string]int64{"iterations": 7} })
	dp.Register("loop", func() any { return map[string]int64{"iterations": 8} })

	state := dp.DumpState()
	require.Contains(t, state, "loop")
	assert.Equal(t, map[string]int64{"iterations": 8}, state["loop"])

	raw, err := dp.DumpJSON()
	require.NoError(t, err)
	var decoded map[string]map[string]int64
	require.NoError(t, sonic.Unmarshal(raw, &decoded))
	assert.Equal(t, int64(8), decoded["loop"]["iterations"])
}

func TestHubImplementsControl(t *testing.T) {
	var hub api.Control = NewHub()

	require.NoError(t, hub.SetConfig(map[string]any{"a": 1}))
	assert.Equal(t, 1, hub.GetConfig()["a"])

	var reloaded bool
	hub.OnReload(func() { reloaded = true })
	require.NoError(t, hub.SetConfig(map[string]any{"a": 2}))
	assert.True(t, reloaded)

	hub.RegisterDebugProbe("p", func() any { return "x" })
	h := hub.(*Hub)
	assert.Equal(t, "x", h.Probes.DumpState()["p"])

	h.Metrics.Add("n", 5)
	assert.Equal(t, int64(5), hub.Stats()["n"])
}
