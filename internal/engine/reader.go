package engine

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Aman-CERP/searchbridge/internal/descriptor"
	"github.com/Aman-CERP/searchbridge/internal/errors"
	"github.com/Aman-CERP/searchbridge/internal/watcher"
	"github.com/Aman-CERP/searchbridge/pkg/boxed"
	"github.com/Aman-CERP/searchbridge/pkg/num"
)

// DefaultReloadDelay is how long an auto-reloading reader waits after the
// last commit before it reloads.
const DefaultReloadDelay = 500 * time.Millisecond

// Reader holds the latest loaded snapshot of an index and hands out
// searchers over it. Reader is safe for concurrent use.
type Reader struct {
	idx         *Index
	policy      descriptor.ReloadPolicy
	delay       time.Duration
	mu          sync.Mutex
	current     *boxed.Arc[*Snapshot]
	group       singleflight.Group
	commits     *watcher.Debouncer[num.Opstamp]
	unsubscribe func()
	done        chan struct{}
	closed      bool
}

// Reader opens a reader on the latest commit. Under ReloadOnCommitWithDelay
// the reader reloads by itself once commits have been quiet for delay
// (zero selects DefaultReloadDelay).
func (i *Index) Reader(policy descriptor.ReloadPolicy, delay time.Duration) (*Reader, error) {
	if delay <= 0 {
		delay = DefaultReloadDelay
	}
	snap, err := i.snapshot()
	if err != nil {
		return nil, err
	}

	r := &Reader{
		idx:     i,
		policy:  policy,
		delay:   delay,
		current: boxed.NewArc(snap, (*Snapshot).close),
		done:    make(chan struct{}),
	}

	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		r.current.Release()
		return nil, errors.IllegalState("index is closed")
	}
	i.readers[r] = struct{}{}
	i.mu.Unlock()

	if policy == descriptor.ReloadOnCommitWithDelay {
		r.commits = watcher.NewSignal[num.Opstamp](delay)
		r.unsubscribe = i.onCommit(r.commits.Add)
		go r.autoReload()
	} else {
		close(r.done)
	}
	return r, nil
}

func (r *Reader) autoReload() {
	defer close(r.done)
	for batch := range r.commits.Output() {
		if len(batch) == 0 {
			continue
		}
		if err := r.Reload(); err != nil {
			slog.Warn("reader_auto_reload_failed",
				slog.String("opstamp", batch[len(batch)-1].String()),
				errors.LogAttr(err))
		}
	}
}

// Policy returns the reload policy.
func (r *Reader) Policy() descriptor.ReloadPolicy { return r.policy }

// Delay returns the auto-reload delay.
func (r *Reader) Delay() time.Duration { return r.delay }

// Reload swaps in a snapshot of the latest commit. Concurrent calls share
// one reload. Searchers obtained earlier keep their snapshot.
func (r *Reader) Reload() error {
	_, err, _ := r.group.Do("reload", func() (any, error) {
		r.mu.Lock()
		closed := r.closed
		r.mu.Unlock()
		if closed {
			return nil, errors.IllegalState("reader is closed")
		}

		snap, err := r.idx.snapshot()
		if err != nil {
			return nil, err
		}
		next := boxed.NewArc(snap, (*Snapshot).close)

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			next.Release()
			return nil, errors.IllegalState("reader is closed")
		}
		prev := r.current
		r.current = next
		r.mu.Unlock()

		prev.Release()
		slog.Debug("reader_reloaded",
			slog.String("path", displayPath(r.idx.path)),
			slog.String("opstamp", snap.opstamp.String()))
		return nil, nil
	})
	return err
}

// Searcher returns a handle to the current snapshot. The caller must
// Release it; until then the snapshot stays readable even across reloads.
func (r *Reader) Searcher() (*boxed.Arc[*Snapshot], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.IllegalState("reader is closed")
	}
	return r.current.Clone()
}

// Close stops automatic reloads and releases the reader's snapshot.
// Safe to call multiple times.
func (r *Reader) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	current := r.current
	r.mu.Unlock()

	if r.unsubscribe != nil {
		r.unsubscribe()
	}
	if r.commits != nil {
		r.commits.Stop()
	}
	<-r.done
	current.Release()

	r.idx.mu.Lock()
	delete(r.idx.readers, r)
	r.idx.mu.Unlock()
}
