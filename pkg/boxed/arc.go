package boxed

import (
	"runtime"
	"sync/atomic"

	"github.com/Aman-CERP/searchbridge/internal/errors"
)

type arcCore[T any] struct {
	value   T
	refs    atomic.Int64
	release func(T)
}

func (c *arcCore[T]) drop() {
	if c.refs.Add(-1) == 0 && c.release != nil {
		c.release(c.value)
	}
}

// Arc is one handle to a reference counted value that is safe to read
// concurrently. It takes no lock.
type Arc[T any] struct {
	core     *arcCore[T]
	released atomic.Bool
	cleanup  runtime.Cleanup
}

// NewArc wraps v. release, if non-nil, runs once when the last handle is
// released.
func NewArc[T any](v T, release func(T)) *Arc[T] {
	core := &arcCore[T]{value: v, release: release}
	core.refs.Store(1)
	return newArcHandle(core)
}

func newArcHandle[T any](core *arcCore[T]) *Arc[T] {
	h := &Arc[T]{core: core}
	h.cleanup = runtime.AddCleanup(h, (*arcCore[T]).drop, core)
	return h
}

// Get returns the value. It fails once this handle has been released.
func (a *Arc[T]) Get() (T, error) {
	defer runtime.KeepAlive(a)
	if a.released.Load() {
		var zero T
		return zero, errors.IllegalState("handle has been released")
	}
	return a.core.value, nil
}

// Clone returns a new handle to the same value.
func (a *Arc[T]) Clone() (*Arc[T], error) {
	defer runtime.KeepAlive(a)
	if a.released.Load() {
		return nil, errors.IllegalState("cannot clone a released handle")
	}
	a.core.refs.Add(1)
	return newArcHandle(a.core), nil
}

// Retain clones the handle and returns the clone's release function.
func (a *Arc[T]) Retain() (func(), error) {
	c, err := a.Clone()
	if err != nil {
		return nil, err
	}
	return c.Release, nil
}

// RefCount returns the number of live handles.
func (a *Arc[T]) RefCount() int64 {
	return a.core.refs.Load()
}

// Release gives up this handle. Releasing twice is a no-op.
func (a *Arc[T]) Release() {
	if !a.released.CompareAndSwap(false, true) {
		return
	}
	a.cleanup.Stop()
	a.core.drop()
}
