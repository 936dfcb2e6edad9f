package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

type lockMode uint8

const (
	modeRead lockMode = iota + 1
	modeWrite
)

func (m lockMode) String() string {
	if m == modeWrite {
		return "write"
	}
	return "read"
}

// writerWeight is the full semaphore size; one writer excludes everyone.
const writerWeight = 1 << 30

// rwLock is a timed reader/writer lock. A hold is recorded in the context
// returned by acquire; acquiring again with that context is a no-op as long
// as the hold is live.
type rwLock struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

type hold struct {
	mode     lockMode
	released atomic.Bool
}

type holdKey struct{ l *rwLock }

func newRWLock(timeout time.Duration) *rwLock {
	return &rwLock{sem: semaphore.NewWeighted(writerWeight), timeout: timeout}
}

func noRelease() {}

func (l *rwLock) held(ctx context.Context) *hold {
	h, _ := ctx.Value(holdKey{l}).(*hold)
	if h == nil || h.released.Load() {
		return nil
	}
	return h
}

func (l *rwLock) rlock(ctx context.Context) (context.Context, func(), error) {
	return l.acquire(ctx, modeRead)
}

func (l *rwLock) lock(ctx context.Context) (context.Context, func(), error) {
	return l.acquire(ctx, modeWrite)
}

func (l *rwLock) acquire(ctx context.Context, mode lockMode) (context.Context, func(), error) {
	if h := l.held(ctx); h != nil {
		if mode == modeWrite && h.mode == modeRead {
			return ctx, noRelease, ErrLockUpgrade
		}
		return ctx, noRelease, nil
	}

	weight := int64(1)
	if mode == modeWrite {
		weight = writerWeight
	}

	actx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	if err := l.sem.Acquire(actx, weight); err != nil {
		return ctx, noRelease, fmt.Errorf("%w: acquire %s lock: %w", ErrTimeout, mode, err)
	}

	h := &hold{mode: mode}
	var once sync.Once
	release := func() {
		once.Do(func() {
			h.released.Store(true)
			l.sem.Release(weight)
		})
	}
	return context.WithValue(ctx, holdKey{l}, h), release, nil
}
