package bridge

import (
	"context"
	"sync"
)

// Promise is the pending result of a deferred operation.
type Promise[T any] struct {
	disp *dispatcher
	done chan struct{}

	mu        sync.Mutex
	settled   bool
	value     T
	err       error
	callbacks []func(T, error)
}

func newPromise[T any](d *dispatcher) *Promise[T] {
	return &Promise[T]{disp: d, done: make(chan struct{})}
}

func (p *Promise[T]) settle(v T, err error) {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return
	}
	p.settled = true
	p.value, p.err = v, err
	callbacks := p.callbacks
	p.callbacks = nil
	close(p.done)
	p.mu.Unlock()

	for _, cb := range callbacks {
		p.deliver(cb, v, err)
	}
}

func (p *Promise[T]) deliver(cb func(T, error), v T, err error) {
	p.disp.post(func() { cb(v, err) })
}

// Done is closed once the result is available.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}

// Await blocks until the operation completes or ctx is done. A cancelled
// ctx stops the wait only. The operation itself runs to completion.
func (p *Promise[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then registers fn to receive the result. Callbacks run one at a time on
// the dispatcher goroutine, in completion order.
func (p *Promise[T]) Then(fn func(T, error)) {
	p.mu.Lock()
	if !p.settled {
		p.callbacks = append(p.callbacks, fn)
		p.mu.Unlock()
		return
	}
	v, err := p.value, p.err
	p.mu.Unlock()
	p.deliver(fn, v, err)
}
