// Package pool runs blocking work off the caller's path on a bounded set of
// workers and hands back futures.
//
// A caller dispatches with Go and suspends only in Future.Await. Any number
// of tasks may be pending; at most Size run at once.
package pool

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// DefaultSize is the worker bound used when New is given a size below one.
const DefaultSize = 16

// Pool bounds how many tasks run concurrently.
type Pool struct {
	sem  *semaphore.Weighted
	size int64
}

// New returns a pool running at most size tasks at once.
func New(size int) *Pool {
	if size < 1 {
		size = DefaultSize
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: int64(size),
	}
}

// Size returns the concurrency bound.
func (p *Pool) Size() int {
	return int(p.size)
}

// Future is the pending result of a task.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(v T, err error) {
	f.val = v
	f.err = err
	close(f.done)
}

// Resolved returns a future that is already complete.
func Resolved[T any](v T, err error) *Future[T] {
	f := newFuture[T]()
	f.resolve(v, err)
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the task finishes or ctx is done.
// Abandoning a future does not cancel its task; the task's own context does.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Go schedules fn on p and returns immediately. fn starts once a worker
// slot is free; if ctx ends first the future fails with ctx.Err().
// A panic in fn fails the future instead of crashing the process.
func Go[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()
	go func() {
		var zero T
		if err := p.sem.Acquire(ctx, 1); err != nil {
			f.resolve(zero, err)
			return
		}
		defer p.sem.Release(1)

		v, err := run(ctx, fn)
		f.resolve(v, err)
	}()
	return f
}

func run[T any](ctx context.Context, fn func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, fmt.Errorf("pool: task panicked: %v", r)
		}
	}()
	return fn(ctx)
}
