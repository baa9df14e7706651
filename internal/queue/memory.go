// Package queue provides the async task queue backing the pipeline
// worker.
package queue

import (
	"context"
	"errors"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

// ErrFull is returned when the queue cannot accept another task.
var ErrFull = errors.New("task queue full")

const defaultCapacity = 1024

// Memory is a bounded in-process task queue.
type Memory struct {
	tasks chan catalog.Task
}

// NewMemory constructs a Memory queue. capacity <= 0 uses the default.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Memory{tasks: make(chan catalog.Task, capacity)}
}

// Enqueue adds a task without blocking. A full queue is an error so
// callers can surface back-pressure instead of stalling a crawl.
func (q *Memory) Enqueue(ctx context.Context, task catalog.Task) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.tasks <- task:
		return nil
	default:
		return ErrFull
	}
}

// Dequeue blocks until a task is available or the context ends.
func (q *Memory) Dequeue(ctx context.Context) (catalog.Task, error) {
	select {
	case <-ctx.Done():
		return catalog.Task{}, ctx.Err()
	case task := <-q.tasks:
		return task, nil
	}
}

// Len reports how many tasks are waiting.
func (q *Memory) Len() int { return len(q.tasks) }
