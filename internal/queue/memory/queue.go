// Package memory provides the bounded in-process image task queue.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/pris-scanner/internal/scanner"
)

// ErrClosed is returned by Enqueue after Close, and by Dequeue once the
// queue is closed and drained.
var ErrClosed = errors.New("queue closed")

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch      chan scanner.ImageTask
	closeMu sync.RWMutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		ch: make(chan scanner.ImageTask, capacity),
	}
}

// Enqueue pushes a task or returns when ctx ends.
func (q *Queue) Enqueue(ctx context.Context, task scanner.ImageTask) error {
	q.closeMu.RLock()
	defer q.closeMu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- task:
		return nil
	}
}

// Dequeue pops the next task. It returns ErrClosed after Close once every
// buffered task has been handed out.
func (q *Queue) Dequeue(ctx context.Context) (scanner.ImageTask, error) {
	if err := ctx.Err(); err != nil {
		return scanner.ImageTask{}, fmt.Errorf("dequeue canceled: %w", err)
	}
	select {
	case <-ctx.Done():
		return scanner.ImageTask{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case task, ok := <-q.ch:
		if !ok {
			return scanner.ImageTask{}, ErrClosed
		}
		return task, nil
	}
}

// Len reports how many tasks are buffered.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops further enqueues; buffered tasks remain available. It waits
// for in-flight Enqueue calls to return.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
