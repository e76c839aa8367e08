package loader

import (
	"context"
	"sync"
)

// queue is a thread-safe unbounded FIFO.
//
// The producer enqueues and then calls Close; the consumer drains with Next
// until it reports the queue closed and empty. Signalling uses a channel so
// the consumer can also wait on a context.
type queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	signal chan struct{} // buffered, size 1; closed by Close
}

func newQueue[T any]() *queue[T] {
	return &queue[T]{
		items:  make([]T, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds v to the back of the queue.
// Returns false if the queue is closed.
func (q *queue[T]) Enqueue(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, v)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front item without blocking.
func (q *queue[T]) TryDequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

func (q *queue[T]) popLocked() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}

	v := q.items[0]
	q.items[0] = zero // let GC reclaim the slot

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return v, true
}

// Next blocks until an item is available, the queue is closed and empty
// (ok=false, err=nil), or ctx is done (err=ctx.Err()).
func (q *queue[T]) Next(ctx context.Context) (v T, ok bool, err error) {
	for {
		if err := ctx.Err(); err != nil {
			return v, false, err
		}

		q.mu.Lock()
		v, ok = q.popLocked()
		closed := q.closed
		q.mu.Unlock()

		if ok {
			return v, true, nil
		}
		if closed {
			return v, false, nil
		}

		select {
		case <-ctx.Done():
			return v, false, ctx.Err()
		case <-q.signal:
		}
	}
}

// Len returns the number of queued items.
func (q *queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close signals that nothing more will be enqueued and wakes the consumer.
func (q *queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
