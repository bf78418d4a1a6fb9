// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

package concurrency

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/ioloop/api"
)

func TestRingBufferFIFO(t *testing.T) {
	r := NewRingBuffer[int](8)
	assert.Equal(t, 0, r.Len())

	for i := 0; i < 5; i++ {
		require.True(t, r.Enqueue(i))
	}
	assert.Equal(t, 5, r.Len())

	for i := 0; i < 5; i++ {
		v, ok := r.Dequeue()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok := r.Dequeue()
	assert.False(t, ok)
}

func TestRingBufferFull(t *testing.T) {
	r := NewRingBuffer[int](4)
	for i := 0; i < 4; i++ {
		require.True(t, r.Enqueue(i))
	}
	assert.False(t, r.Enqueue(99))

	v, ok := r.Dequeue()
	require.True(t, ok)
	assert.Equal(t, 0, v)
	assert.True(t, r.Enqueue(99))
}

func TestRingBufferRoundsCapacity(t *testing.T) {
	r := NewRingBuffer[int](3)
	for i := 0; i < 4; i++ {
		require.True(t, r.Enqueue(i), "rounded capacity must hold 4 items")
	}
	assert.False(t, r.Enqueue(4))
}

func TestRingBufferWrapAround(t *testing.T) {
	r := NewRingBuffer[int](4)
	for cycle := 0; cycle < 10; cycle++ {
		require.True(t, r.Enqueue(cycle))
		v, ok := r.Dequeue()
		require.True(t, ok)
		assert.Equal(t, cycle, v)
	}
}

func TestExecutorRunsAllTasks(t *testing.T) {
	e := NewExecutor(4)
	defer e.Close()

	const n = 1000
	var done atomic.Int64
	for i := 0; i < n; i++ {
		require.NoError(t, e.Submit(func() { done.Add(1) }))
	}

	assert.Eventually(t, func() bool { return done.Load() == n },
		5*time.Second, 5*time.Millisecond)

	stats := e.Stats()
	assert.Equal(t, int64(n), stats["total_tasks"])
	assert.Equal(t, int64(n), stats["completed_tasks"])
	assert.Equal(t, int64(4), stats["num_workers"])
}

func TestExecutorDefaultsWorkerCount(t *testing.T) {
	e := NewExecutor(0)
	defer e.Close()
	assert.Greater(t, e.NumWorkers(), 0)
}

func TestExecutorSurvivesPanickingTask(t *testing.T) {
	e := NewExecutor(1)
	defer e.Close()

	var done atomic.Bool
	require.NoError(t, e.Submit(func() { panic("boom") }))
	require.NoError(t, e.Submit(func() { done.Store(true) }))

	assert.Eventually(t, func() bool { return done.Load() },
		2*time.Second, 5*time.Millisecond)
}

func TestExecutorSubmitAfterClose(t *testing.T) {
	e := NewExecutor(1)
	e.Close()
	e.Close() // idempotent

	err := e.Submit(func() {})
	assert.ErrorIs(t, err, api.ErrExecutorClosed)
}
