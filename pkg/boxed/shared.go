package boxed

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/Aman-CERP/searchbridge/internal/errors"
)

type sharedCore[T any] struct {
	mu       sync.Mutex
	value    T
	poisoned bool

	refs    atomic.Int64
	release func(T)
}

func (c *sharedCore[T]) drop() {
	if c.refs.Add(-1) != 0 {
		return
	}
	if c.release == nil {
		return
	}
	c.mu.Lock()
	v := c.value
	var zero T
	c.value = zero
	c.mu.Unlock()
	c.release(v)
}

// Shared is one handle to a reference counted, mutex-guarded value.
// Cloning a handle never copies the value.
type Shared[T any] struct {
	core     *sharedCore[T]
	released atomic.Bool
	cleanup  runtime.Cleanup
}

// NewShared wraps v. release, if non-nil, runs once when the last handle is
// released.
func NewShared[T any](v T, release func(T)) *Shared[T] {
	core := &sharedCore[T]{value: v, release: release}
	core.refs.Store(1)
	return newSharedHandle(core)
}

func newSharedHandle[T any](core *sharedCore[T]) *Shared[T] {
	h := &Shared[T]{core: core}
	h.cleanup = runtime.AddCleanup(h, (*sharedCore[T]).drop, core)
	return h
}

// Clone returns a new handle to the same value.
func (s *Shared[T]) Clone() (*Shared[T], error) {
	defer runtime.KeepAlive(s)
	if s.released.Load() {
		return nil, errors.IllegalState("cannot clone a released handle")
	}
	s.core.refs.Add(1)
	return newSharedHandle(s.core), nil
}

// Retain clones the handle and returns the clone's release function.
func (s *Shared[T]) Retain() (func(), error) {
	c, err := s.Clone()
	if err != nil {
		return nil, err
	}
	return c.Release, nil
}

// Lock runs fn with the value's lock held. The lock is released when fn
// returns. If fn panics, the panic is returned as an Internal error and the
// box is poisoned.
func (s *Shared[T]) Lock(fn func(*T) error) (err error) {
	defer runtime.KeepAlive(s)
	if s.released.Load() {
		return errors.IllegalState("handle has been released")
	}

	c := s.core
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.poisoned {
		return errors.New(errors.ErrCodeLockPoisoned,
			"lock poisoned: a previous holder panicked while holding it", nil)
	}

	defer func() {
		if r := recover(); r != nil {
			c.poisoned = true
			err = errors.Panicked("locked section", r)
		}
	}()
	return fn(&c.value)
}

// Locked runs fn under the lock of s and returns its result.
func Locked[T, R any](s *Shared[T], fn func(*T) (R, error)) (R, error) {
	var out R
	err := s.Lock(func(v *T) error {
		r, err := fn(v)
		out = r
		return err
	})
	return out, err
}

// Poisoned reports whether a holder panicked while holding the lock.
func (s *Shared[T]) Poisoned() bool {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	return s.core.poisoned
}

// ClearPoison marks the value as usable again. Callers must first restore
// whatever the panicking holder left inconsistent.
func (s *Shared[T]) ClearPoison() {
	s.core.mu.Lock()
	s.core.poisoned = false
	s.core.mu.Unlock()
}

// RefCount returns the number of live handles.
func (s *Shared[T]) RefCount() int64 {
	return s.core.refs.Load()
}

// Released reports whether this handle has been released.
func (s *Shared[T]) Released() bool {
	return s.released.Load()
}

// Release gives up this handle. Releasing twice is a no-op.
func (s *Shared[T]) Release() {
	if !s.released.CompareAndSwap(false, true) {
		return
	}
	s.cleanup.Stop()
	s.core.drop()
}
