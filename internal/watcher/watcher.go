package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Aman-CERP/searchbridge/internal/ignore"
)

// Operation is what happened to a document file.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpDelete
	// OpRename is reported for the old name; the new name arrives as OpCreate.
	OpRename
)

var opNames = [...]string{"CREATE", "MODIFY", "DELETE", "RENAME"}

func (op Operation) String() string {
	if op < 0 || int(op) >= len(opNames) {
		return "UNKNOWN"
	}
	return opNames[op]
}

// FileEvent is one change to an accepted document file. Directories are
// never reported.
type FileEvent struct {
	Path      string // relative to the watched root
	Operation Operation
	Timestamp time.Time
}

// Watcher watches a document directory and emits debounced batches.
type Watcher interface {
	// Start watches path recursively until Stop is called or ctx is done.
	Start(ctx context.Context, path string) error

	// Ready is closed once changes under path are sure to be reported.
	Ready() <-chan struct{}

	// Stop stops the watcher and closes its channels. Safe to call twice.
	Stop() error

	// Events returns debounced event batches.
	Events() <-chan []FileEvent

	// Errors returns non-fatal watcher errors.
	Errors() <-chan error
}

// Options configures a watcher. Zero fields take the DefaultOptions value.
type Options struct {
	DebounceWindow  time.Duration
	PollInterval    time.Duration // used only by the polling fallback
	EventBufferSize int           // batches buffered for the consumer

	// Extensions are the document file extensions, lower case with the dot.
	Extensions []string

	// Ignore drops paths matched by ignore files. Nil ignores nothing.
	Ignore *ignore.Matcher
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  200 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 100,
		Extensions:      []string{".json", ".jsonl", ".ndjson"},
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval == 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	if len(o.Extensions) == 0 {
		o.Extensions = defaults.Extensions
	}
	return o
}

// Accepts reports whether a relative file path is a document file worth
// watching. Hidden files and anything under a hidden directory are skipped.
func (o Options) Accepts(relPath string) bool {
	if relPath == "" || relPath == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(relPath), "/") {
		if strings.HasPrefix(part, ".") {
			return false
		}
	}
	if o.Ignore != nil && o.Ignore.Match(relPath, false) {
		return false
	}
	return slices.Contains(o.Extensions, strings.ToLower(filepath.Ext(relPath)))
}

// SkipsDir reports whether a directory is left out of scanning and
// recursive watching.
func (o Options) SkipsDir(relPath string) bool {
	if relPath == "." {
		return false
	}
	if strings.HasPrefix(filepath.Base(relPath), ".") {
		return true
	}
	return o.Ignore != nil && o.Ignore.Match(relPath, true)
}

// Walk calls fn for every accepted document file under root, in lexical
// order, with its path relative to root. Skipped directories are not
// entered and unreadable entries below root are passed over.
func (o Options) Walk(root string, fn func(rel string, d fs.DirEntry) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			slog.Debug("walk_entry_skipped", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if o.SkipsDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !o.Accepts(rel) {
			return nil
		}
		return fn(rel, d)
	})
}
