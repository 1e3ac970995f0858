// Package workerpool runs CPU-bound jobs (key generation, RSA encryption) on
// a bounded set of goroutines separate from request handling. Every submitted
// job reports through its own single-use result channel.
package workerpool

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Result carries the outcome of a job.
type Result[T any] struct {
	Value T
	Err   error
}

// Pool bounds the number of jobs running at once.
type Pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// New returns a Pool running at most size jobs concurrently.
// A non-positive size means runtime.NumCPU().
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Submit schedules fn and returns immediately. The returned channel is
// buffered and receives exactly one Result. If ctx is done before a slot
// frees up, fn is not run and the Result carries ctx.Err().
func Submit[T any](ctx context.Context, p *Pool, fn func() (T, error)) <-chan Result[T] {
	out := make(chan Result[T], 1)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		if err := p.sem.Acquire(ctx, 1); err != nil {
			out <- Result[T]{Err: err}
			return
		}
		defer p.sem.Release(1)

		v, err := fn()
		out <- Result[T]{Value: v, Err: err}
	}()

	return out
}

// Await blocks until the job reports or ctx is done. An abandoned job still
// runs to completion; its result is dropped.
func Await[T any](ctx context.Context, ch <-chan Result[T]) (T, error) {
	select {
	case r := <-ch:
		return r.Value, r.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Wait blocks until every submitted job has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}
