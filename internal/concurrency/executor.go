// File: internal/concurrency/executor.go
// Package concurrency implements the bounded task executor.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor dispatches tasks across worker goroutines. Each worker owns
// a lock-free local ring; a buffered global channel absorbs overflow.

package concurrency

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/ioloop/api"
)

// TaskFunc is a unit of work to execute.
type TaskFunc func()

// Executor manages a pool of worker goroutines.
type Executor struct {
	globalQueue chan TaskFunc
	workers     []*worker
	wg          sync.WaitGroup
	closed      atomic.Bool
	next        atomic.Int64 // round-robin cursor for local enqueue

	totalTasks     atomic.Int64
	completedTasks atomic.Int64
}

// NewExecutor creates an Executor with numWorkers goroutines.
// numWorkers <= 0 defaults to runtime.NumCPU().
func NewExecutor(numWorkers int) *Executor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	e := &Executor{
		globalQueue: make(chan TaskFunc, numWorkers*4),
		workers:     make([]*worker, numWorkers),
	}
	for i := range e.workers {
		w := &worker{
			executor:   e,
			localQueue: NewRingBuffer[TaskFunc](256),
			stopCh:     make(chan struct{}),
		}
		e.workers[i] = w
		e.wg.Add(1)
		go w.run()
	}
	return e
}

// Submit enqueues a task, preferring a worker-local ring and falling
// back to the global queue. Blocks when every queue is full so the
// caller gets natural backpressure. Single producer: the facade calls
// Submit from the loop goroutine only (the rings are SPSC).
func (e *Executor) Submit(task TaskFunc) error {
	if e.closed.Load() {
		return api.ErrExecutorClosed
	}
	e.totalTasks.Add(1)
	idx := int(e.next.Add(1)) % len(e.workers)
	if idx < 0 {
		idx = -idx
	}
	if e.workers[idx].localQueue.Enqueue(task) {
		return nil
	}
	select {
	case e.globalQueue <- task:
		return nil
	default:
	}
	// Both paths full: wait on the global queue unless closing.
	for {
		if e.closed.Load() {
			return api.ErrExecutorClosed
		}
		select {
		case e.globalQueue <- task:
			return nil
		case <-time.After(time.Millisecond):
		}
	}
}

// NumWorkers returns the worker count.
func (e *Executor) NumWorkers() int { return len(e.workers) }

// Close drains nothing: queued tasks may be dropped. Idempotent;
// blocks until workers exit.
func (e *Executor) Close() {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	for _, w := range e.workers {
		close(w.stopCh)
	}
	e.wg.Wait()
}

// Stats returns executor counters.
func (e *Executor) Stats() map[string]int64 {
	total, done := e.totalTasks.Load(), e.completedTasks.Load()
	return map[string]int64{
		"total_tasks":     total,
		"completed_tasks": done,
		"pending_tasks":   total - done,
		"num_workers":     int64(len(e.workers)),
	}
}

// worker is a single executor goroutine.
type worker struct {
	executor   *Executor
	localQueue *RingBuffer[TaskFunc]
	stopCh     chan struct{}
}

func (w *worker) run() {
	defer w.executor.wg.Done()
	for {
		if task, ok := w.localQueue.Dequeue(); ok {
			w.executeTask(task)
			continue
		}
		select {
		case <-w.stopCh:
			return
		case task := <-w.executor.globalQueue:
			w.executeTask(task)
		case <-time.After(time.Millisecond):
			// recheck the local ring
		}
	}
}

// executeTask runs the task, recovering panics to keep the worker
// alive.
func (w *worker) executeTask(task TaskFunc) {
	defer func() {
		_ = recover()
		w.executor.completedTasks.Add(1)
	}()
	task()
}
