package watcher

import (
	"log/slog"
	"sync"
	"time"
)

// CoalesceFunc merges a pending item with a newer one for the same key.
// Returning false drops the key from the pending set.
type CoalesceFunc[E any] func(pending, next E) (E, bool)

// Debouncer coalesces rapid items per key and emits them as one batch once
// no new item has arrived for the debounce window.
type Debouncer[E any] struct {
	window   time.Duration
	key      func(E) string
	coalesce CoalesceFunc[E]
	pending  map[string]E
	order    []string
	mu       sync.Mutex
	output   chan []E
	timer    *time.Timer
	stopped  bool
}

// NewDebouncer creates a debouncer. key groups items; coalesce merges items
// that share a key within the window.
func NewDebouncer[E any](window time.Duration, key func(E) string, coalesce CoalesceFunc[E]) *Debouncer[E] {
	return &Debouncer[E]{
		window:   window,
		key:      key,
		coalesce: coalesce,
		pending:  make(map[string]E),
		output:   make(chan []E, 10),
	}
}

// Latest keeps the newest item for a key.
func Latest[E any](_, next E) (E, bool) { return next, true }

// NewSignal creates a debouncer that collapses every item into a single
// trailing emission, e.g. "reload once commits go quiet".
func NewSignal[E any](window time.Duration) *Debouncer[E] {
	return NewDebouncer(window, func(E) string { return "" }, Latest[E])
}

// NewFileDebouncer creates a debouncer for file events. Events for the same
// path within the window are merged:
//   - CREATE + MODIFY = CREATE (file is still new)
//   - CREATE + DELETE = nothing (file never really existed)
//   - MODIFY + DELETE = DELETE (file is gone)
//   - DELETE + CREATE = MODIFY (file was replaced)
func NewFileDebouncer(window time.Duration) *Debouncer[FileEvent] {
	return NewDebouncer(window, func(e FileEvent) string { return e.Path }, coalesceFileEvents)
}

func coalesceFileEvents(pending, next FileEvent) (FileEvent, bool) {
	switch pending.Operation {
	case OpCreate:
		switch next.Operation {
		case OpModify:
			pending.Timestamp = next.Timestamp
			return pending, true
		case OpDelete:
			return FileEvent{}, false
		}
	case OpDelete:
		if next.Operation == OpCreate {
			next.Operation = OpModify
			return next, true
		}
	}
	return next, true
}

// Add queues an item and restarts the debounce window.
func (d *Debouncer[E]) Add(item E) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	k := d.key(item)
	if existing, ok := d.pending[k]; ok {
		merged, keep := d.coalesce(existing, item)
		if keep {
			d.pending[k] = merged
		} else {
			delete(d.pending, k)
		}
	} else {
		d.pending[k] = item
		d.order = append(d.order, k)
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// Flush emits pending items immediately.
func (d *Debouncer[E]) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.flush()
}

func (d *Debouncer[E]) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		d.order = d.order[:0]
		return
	}

	batch := make([]E, 0, len(d.pending))
	for _, k := range d.order {
		if item, ok := d.pending[k]; ok {
			batch = append(batch, item)
			delete(d.pending, k)
		}
	}
	d.order = d.order[:0]

	select {
	case d.output <- batch:
	default:
		slog.Warn("debouncer_output_full",
			slog.Int("batch_size", len(batch)))
	}
}

// Output returns the channel of debounced batches. Items in a batch keep
// the order in which their keys were first seen.
func (d *Debouncer[E]) Output() <-chan []E {
	return d.output
}

// Stop stops the debouncer and closes the output channel. Pending items
// are discarded. Safe to call multiple times.
func (d *Debouncer[E]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = nil
	close(d.output)
}
