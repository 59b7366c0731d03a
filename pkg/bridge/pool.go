package bridge

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/Aman-CERP/searchbridge/internal/errors"
)

// Config configures a Pool.
type Config struct {
	// Workers bounds the number of operations running at once.
	// Zero means GOMAXPROCS.
	Workers int
}

// Stats is a point-in-time view of a pool's activity.
type Stats struct {
	Workers   int   `json:"workers"`
	InFlight  int64 `json:"in_flight"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Pool executes deferred operations on at most Workers goroutines and
// delivers their completions on one dispatcher goroutine.
type Pool struct {
	workers int
	sem     *semaphore.Weighted
	disp    *dispatcher

	mu     sync.RWMutex
	closed bool
	jobs   sync.WaitGroup

	inFlight  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// NewPool creates a pool.
func NewPool(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		workers: workers,
		sem:     semaphore.NewWeighted(int64(workers)),
		disp:    newDispatcher(),
	}
	slog.Debug("bridge_pool_started", slog.Int("workers", workers))
	return p
}

var (
	defaultPool     *Pool
	defaultPoolOnce sync.Once
)

// Default returns the process-wide pool, sized to GOMAXPROCS. It is never
// closed.
func Default() *Pool {
	defaultPoolOnce.Do(func() {
		defaultPool = NewPool(Config{})
	})
	return defaultPool
}

// Workers returns the configured concurrency bound.
func (p *Pool) Workers() int { return p.workers }

// Stats returns current counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.workers,
		InFlight:  p.inFlight.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}

// Close stops accepting work, waits for dispatched operations to finish and
// for their callbacks to be delivered.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.jobs.Wait()
	p.disp.stop()
	slog.Debug("bridge_pool_closed", slog.Int64("completed", p.completed.Load()))
	return nil
}

// Submit dispatches op to the pool and returns immediately. Every retainer
// is retained before hand-off and released after op completes, so op may
// use those handles even if the caller releases its own copies meanwhile.
func Submit[T any](p *Pool, op Op[T], retain ...Retainer) *Promise[T] {
	return submit(p, op, nil, retain)
}

// submit calls onReject, when set, if op is refused without running.
func submit[T any](p *Pool, op Op[T], onReject func(), retain []Retainer) *Promise[T] {
	if p == nil {
		p = Default()
	}
	promise := newPromise[T](p.disp)

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		reject(promise, errors.IllegalState("worker pool is closed"), onReject)
		return promise
	}
	releaseAll, err := retainAll(retain)
	if err != nil {
		p.mu.RUnlock()
		reject(promise, err, onReject)
		return promise
	}
	p.jobs.Add(1)
	p.mu.RUnlock()

	go func() {
		defer p.jobs.Done()
		// Background never cancels, so Acquire cannot fail.
		_ = p.sem.Acquire(context.Background(), 1)
		p.inFlight.Add(1)

		v, err := Run(context.Background(), op)

		p.inFlight.Add(-1)
		p.sem.Release(1)
		releaseAll()

		if err != nil {
			p.failed.Add(1)
		} else {
			p.completed.Add(1)
		}
		promise.settle(v, err)
	}()
	return promise
}

func reject[T any](promise *Promise[T], err error, onReject func()) {
	if onReject != nil {
		onReject()
	}
	promise.settle(*new(T), err)
}

// Reject returns a promise that has already failed with err.
func Reject[T any](p *Pool, err error) *Promise[T] {
	if p == nil {
		p = Default()
	}
	promise := newPromise[T](p.disp)
	promise.settle(*new(T), err)
	return promise
}

// Resolve returns a promise that has already succeeded with v.
func Resolve[T any](p *Pool, v T) *Promise[T] {
	if p == nil {
		p = Default()
	}
	promise := newPromise[T](p.disp)
	promise.settle(v, nil)
	return promise
}

// SubmitWith is the deferred form of a handle operation. h is cloned before
// hand-off and the worker operates on the clone, so the caller may release
// h at once. A refused op releases the clone immediately.
func SubmitWith[H Handle[H], T any](p *Pool, h H, op HandleOp[H, T], retain ...Retainer) *Promise[T] {
	clone, err := h.Clone()
	if err != nil {
		return Reject[T](p, err)
	}
	return submit(p, func(ctx context.Context) (T, error) {
		defer clone.Release()
		return op(ctx, clone)
	}, clone.Release, retain)
}
