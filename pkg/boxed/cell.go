package boxed

import (
	"sync"

	"github.com/Aman-CERP/searchbridge/internal/errors"
)

type cellState int

const (
	cellReady cellState = iota
	cellBorrowed
	cellConsumed
)

// Cell is an exclusively owned value that is either buildable or consumed.
// A Cell is never cloned.
type Cell[T any] struct {
	mu    sync.Mutex
	state cellState
	value T
}

// NewCell wraps v.
func NewCell[T any](v T) *Cell[T] {
	return &Cell[T]{value: v}
}

// Borrow runs fn with mutable access to the value. Borrowing a consumed
// cell, or borrowing again from inside fn, fails with IllegalState.
func (c *Cell[T]) Borrow(fn func(*T) error) error {
	c.mu.Lock()
	switch c.state {
	case cellConsumed:
		c.mu.Unlock()
		return errors.IllegalState("value has already been taken")
	case cellBorrowed:
		c.mu.Unlock()
		return errors.IllegalState("value is already borrowed")
	}
	c.state = cellBorrowed
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state = cellReady
		c.mu.Unlock()
	}()
	return fn(&c.value)
}

// Take consumes the cell and returns its value. Only the first call
// succeeds.
func (c *Cell[T]) Take() (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	switch c.state {
	case cellConsumed:
		return zero, errors.IllegalState("value has already been taken")
	case cellBorrowed:
		return zero, errors.IllegalState("value is borrowed")
	}
	v := c.value
	c.value = zero
	c.state = cellConsumed
	return v, nil
}

// Consumed reports whether Take has succeeded.
func (c *Cell[T]) Consumed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == cellConsumed
}
