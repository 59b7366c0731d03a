package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Aman-CERP/searchbridge/internal/ingest"
)

// PlainRenderer prints a line whenever the progress changes.
type PlainRenderer struct {
	mu   sync.Mutex
	out  io.Writer
	last ingest.ProgressSnapshot
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(context.Context) error { return nil }

// Update implements Renderer. Snapshots that differ from the previous one
// only in elapsed time are not printed.
func (r *PlainRenderer) Update(s ingest.ProgressSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cmp := s
	cmp.ElapsedSeconds = r.last.ElapsedSeconds
	cmp.ProgressPct = r.last.ProgressPct
	if cmp == r.last {
		return
	}
	r.last = s

	switch s.Status {
	case string(ingest.StatusError):
		_, _ = fmt.Fprintf(r.out, "ERROR: %s\n", s.ErrorMessage)
	case string(ingest.StatusWatching):
		_, _ = fmt.Fprintf(r.out, "[WATCH] %d docs indexed, %d rejected, opstamp %s\n",
			s.DocsIndexed, s.DocsRejected, s.LastOpstamp)
	default:
		_, _ = fmt.Fprintf(r.out, "[%s] %d/%d files - %d docs, %d rejected\n",
			stageLabel(s.Stage), s.FilesProcessed, s.FilesTotal, s.DocsIndexed, s.DocsRejected)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(res ingest.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.out, "Complete: %d docs from %d files in %s",
		res.Docs, res.Files, res.Duration.Round(100*time.Millisecond))
	if res.Rejected > 0 {
		_, _ = fmt.Fprintf(r.out, " (%d rejected)", res.Rejected)
	}
	_, _ = fmt.Fprintf(r.out, ", opstamp %v\n", res.Opstamp)
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error { return nil }

var _ Renderer = (*PlainRenderer)(nil)
