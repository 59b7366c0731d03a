package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// PollingWatcher finds document changes by comparing directory listings
// taken every interval. It reports single events; DirWatcher batches them.
type PollingWatcher struct {
	interval time.Duration
	opts     Options

	mu      sync.Mutex
	root    string
	last    listing
	stopped bool

	events chan FileEvent
	errors chan error
	stopCh chan struct{}
	ready  chan struct{}
}

// stat is what a listing keeps per file. A document file that changes
// always changes size or modification time.
type stat struct {
	size    int64
	modTime time.Time
}

type listing map[string]stat

// NewPollingWatcher creates a polling watcher for the files opts accepts.
func NewPollingWatcher(interval time.Duration, opts Options) *PollingWatcher {
	opts = opts.WithDefaults()
	return &PollingWatcher{
		interval: interval,
		opts:     opts,
		events:   make(chan FileEvent, opts.EventBufferSize),
		errors:   make(chan error, 10),
		stopCh:   make(chan struct{}),
		ready:    make(chan struct{}),
	}
}

// Start takes the baseline listing, then polls until Stop or ctx is done.
// Files present at Start are not reported.
func (p *PollingWatcher) Start(ctx context.Context, path string) error {
	root, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve watch root: %w", err)
	}
	base, err := list(root, p.opts)
	if err != nil {
		return fmt.Errorf("list watch root: %w", err)
	}
	p.mu.Lock()
	p.root, p.last = root, base
	p.mu.Unlock()
	close(p.ready)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case now := <-ticker.C:
			p.poll(now)
		}
	}
}

// Stop closes the event and error channels. Safe to call twice.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil
	}
	p.stopped = true
	close(p.stopCh)
	close(p.events)
	close(p.errors)
	return nil
}

// Ready is closed once the baseline listing is taken.
func (p *PollingWatcher) Ready() <-chan struct{} { return p.ready }

// Events returns the detected changes.
func (p *PollingWatcher) Events() <-chan FileEvent { return p.events }

// Errors returns listing failures. Polling continues after them.
func (p *PollingWatcher) Errors() <-chan error { return p.errors }

func (p *PollingWatcher) poll(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}

	cur, err := list(p.root, p.opts)
	if err != nil {
		select {
		case p.errors <- fmt.Errorf("list watch root: %w", err):
		default:
		}
		return
	}
	for _, ev := range diff(p.last, cur, now) {
		select {
		case p.events <- ev:
		default:
			slog.Warn("polling_buffer_full", slog.String("path", ev.Path), slog.String("op", ev.Operation.String()))
		}
	}
	p.last = cur
}

func list(root string, opts Options) (listing, error) {
	l := make(listing)
	err := opts.Walk(root, func(rel string, d fs.DirEntry) error {
		if info, err := d.Info(); err == nil {
			l[rel] = stat{size: info.Size(), modTime: info.ModTime()}
		}
		return nil
	})
	return l, err
}

// diff returns the changes from prev to cur ordered by path, so a file's
// events always arrive in the same order.
func diff(prev, cur listing, now time.Time) []FileEvent {
	var events []FileEvent
	for path, s := range cur {
		old, ok := prev[path]
		switch {
		case !ok:
			events = append(events, FileEvent{Path: path, Operation: OpCreate, Timestamp: now})
		case old != s:
			events = append(events, FileEvent{Path: path, Operation: OpModify, Timestamp: now})
		}
	}
	for path := range prev {
		if _, ok := cur[path]; !ok {
			events = append(events, FileEvent{Path: path, Operation: OpDelete, Timestamp: now})
		}
	}
	slices.SortFunc(events, func(a, b FileEvent) int {
		if a.Path < b.Path {
			return -1
		}
		if a.Path > b.Path {
			return 1
		}
		return 0
	})
	return events
}
