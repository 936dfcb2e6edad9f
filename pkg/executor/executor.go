// Package executor provides caller-supplied task runners for bulk
// repository operations.
package executor

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Executor runs tasks. Go may block until the task can be scheduled,
// but must not wait for the task to finish.
type Executor interface {
	Go(task func())
}

// Func adapts a function to the Executor interface.
type Func func(task func())

// Go calls f(task).
func (f Func) Go(task func()) { f(task) }

// Goroutine starts one goroutine per task.
type Goroutine struct{}

// Go runs task in a new goroutine.
func (Goroutine) Go(task func()) { go task() }

// Inline runs each task on the calling goroutine. Useful in tests.
type Inline struct{}

// Go runs task synchronously.
func (Inline) Go(task func()) { task() }

// Pool runs at most n tasks at once. Go blocks while the pool is full.
type Pool struct {
	n   int64
	sem *semaphore.Weighted
}

// NewPool creates a pool with n slots. n < 1 is treated as 1.
func NewPool(n int) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{n: int64(n), sem: semaphore.NewWeighted(int64(n))}
}

// Go waits for a free slot and runs task in a new goroutine.
func (p *Pool) Go(task func()) {
	// Background never cancels, so Acquire cannot fail.
	_ = p.sem.Acquire(context.Background(), 1)
	go func() {
		defer p.sem.Release(1)
		task()
	}()
}

// Wait blocks until every running task has finished.
func (p *Pool) Wait(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, p.n); err != nil {
		return err
	}
	p.sem.Release(p.n)
	return nil
}

var (
	_ Executor = Goroutine{}
	_ Executor = Inline{}
	_ Executor = (*Pool)(nil)
	_ Executor = Func(nil)
)
