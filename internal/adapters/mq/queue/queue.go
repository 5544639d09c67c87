// Package queue holds a bounded in-memory FIFO for interaction jobs.
//
// Enqueue never blocks: a full or closed queue refuses the item at once so
// callers can answer with backpressure instead of stalling.
package queue

import (
	"context"
	"sync"

	"github.com/okian/ginput/pkg/metrics"
)

const defaultQueueCapacity = 64

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue[T any] interface {
	// Enqueue adds an item. It fails with ErrFull, ErrClosed or the
	// context error.
	Enqueue(ctx context.Context, item T) error

	// Dequeue returns a channel that receives items as they become available.
	// The channel is closed once the queue is closed and drained, or ctx ends.
	Dequeue(ctx context.Context) <-chan T

	// Len returns the current number of queued items.
	Len() int

	// Close stops accepting items. Already queued items are still delivered.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue[T any] struct {
	items   chan T
	observe func(int)

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue[T any](opts ...Option) *InMemoryQueue[T] {
	o := options{
		capacity: defaultQueueCapacity,
		observe:  metrics.UpdateJobQueueSize,
	}
	for _, opt := range opts {
		opt(&o)
	}

	q := &InMemoryQueue[T]{
		items:   make(chan T, o.capacity),
		observe: o.observe,
	}
	q.observe(0)
	return q
}

// Enqueue adds an item to the queue.
func (q *InMemoryQueue[T]) Enqueue(ctx context.Context, item T) error {
	err := q.enqueue(ctx, item)
	if err != nil {
		metrics.RecordJobEnqueueError(reason(err))
		return err
	}
	metrics.RecordJobEnqueue()
	q.observe(len(q.items))
	return nil
}

func (q *InMemoryQueue[T]) enqueue(ctx context.Context, item T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}

	select {
	case q.items <- item:
		return nil
	default:
		return ErrFull
	}
}

// Dequeue returns a channel that will receive items as they become available.
func (q *InMemoryQueue[T]) Dequeue(ctx context.Context) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case item, ok := <-q.items:
				if !ok {
					return
				}
				q.observe(len(q.items))
				select {
				case out <- item:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the current number of queued items.
func (q *InMemoryQueue[T]) Len() int {
	return len(q.items)
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
