package engine

import (
	"log/slog"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/Aman-CERP/searchbridge/internal/errors"
	"github.com/Aman-CERP/searchbridge/pkg/num"
)

// DefaultHeapBudget is used when a writer is opened with a zero budget.
const DefaultHeapBudget uint64 = 50 << 20

// Writer buffers documents for an index and commits them atomically.
// There is at most one Writer per index. Writer is not safe for concurrent
// use; callers serialize access through a lock.
type Writer struct {
	idx          *Index
	budget       uint64
	batch        *bleve.Batch
	pending      int
	pendingBytes uint64
	opstamp      num.Opstamp
	committed    num.Opstamp
	closed       bool
}

// Writer opens the index writer. heapBudget caps the memory held by
// uncommitted documents; zero selects DefaultHeapBudget. A second writer
// on the same index, from this or another process, fails with LockBusy.
func (i *Index) Writer(heapBudget uint64) (*Writer, error) {
	if heapBudget == 0 {
		heapBudget = DefaultHeapBudget
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil, errors.IllegalState("index is closed")
	}
	if err := i.lock.TryLock(); err != nil {
		return nil, err
	}

	raw, err := i.bleve.GetInternal(keyOpstamp)
	if err != nil {
		_ = i.lock.Unlock()
		return nil, errors.StorageError("failed to read index metadata", err)
	}
	stamp, err := decodeOpstamp(raw)
	if err != nil {
		_ = i.lock.Unlock()
		return nil, err
	}

	w := &Writer{
		idx:       i,
		budget:    heapBudget,
		batch:     i.bleve.NewBatch(),
		opstamp:   stamp,
		committed: stamp,
	}
	i.writer = w
	slog.Debug("writer_opened",
		slog.String("path", displayPath(i.path)),
		slog.Uint64("heap_budget", heapBudget),
		slog.String("opstamp", stamp.String()))
	return w, nil
}

// AddDocument parses a JSON document against the schema and buffers it.
// The returned opstamp is strictly greater than every earlier one from
// this index. Buffering beyond the heap budget fails with HeapExhausted
// and leaves the buffer unchanged; commit and retry.
func (w *Writer) AddDocument(data []byte) (num.Opstamp, error) {
	if w.closed {
		return 0, errors.IllegalState("writer is closed")
	}

	next := w.opstamp + 1
	doc, err := w.idx.parseDocument(next.String(), data)
	if err != nil {
		return 0, err
	}

	size := uint64(doc.Size())
	if w.pendingBytes+size > w.budget {
		return 0, errors.Newf(errors.ErrCodeHeapExhausted,
			"document of %d bytes does not fit the writer heap budget (%d of %d bytes used)",
			size, w.pendingBytes, w.budget).
			WithSuggestion("Commit pending documents or open the writer with a larger heap budget")
	}
	if err := w.batch.IndexAdvanced(doc); err != nil {
		return 0, errors.InternalError("failed to buffer document", err)
	}

	w.opstamp = next
	w.pending++
	w.pendingBytes += size
	return next, nil
}

// Commit makes buffered documents durable and visible to readers that
// reload afterwards. It consumes an opstamp, which it returns. On failure
// the buffered documents are discarded and the writer stays usable.
func (w *Writer) Commit() (num.Opstamp, error) {
	if w.closed {
		return 0, errors.IllegalState("writer is closed")
	}

	start := time.Now()
	stamp := w.opstamp + 1
	docs := w.pending
	w.batch.SetInternal(keyOpstamp, encodeOpstamp(stamp))
	err := w.idx.bleve.Batch(w.batch)
	w.opstamp = stamp
	w.reset()
	if err != nil {
		slog.Error("index_commit_failed",
			slog.String("path", displayPath(w.idx.path)),
			slog.Int("docs", docs),
			errors.LogAttr(err))
		return 0, errors.New(errors.ErrCodeCommit, "commit failed: "+err.Error(), err)
	}

	w.committed = stamp
	slog.Info("index_committed",
		slog.String("path", displayPath(w.idx.path)),
		slog.Int("docs", docs),
		slog.String("opstamp", stamp.String()),
		slog.Duration("took", time.Since(start)))
	w.idx.notifyCommit(stamp)
	return stamp, nil
}

// Rollback discards buffered documents and returns the opstamp of the last
// commit. Opstamps keep increasing across a rollback.
func (w *Writer) Rollback() (num.Opstamp, error) {
	if w.closed {
		return 0, errors.IllegalState("writer is closed")
	}
	if w.pending > 0 {
		slog.Debug("writer_rolled_back", slog.Int("docs", w.pending))
	}
	w.reset()
	return w.committed, nil
}

func (w *Writer) reset() {
	w.batch.Reset()
	w.pending = 0
	w.pendingBytes = 0
}

// Pending returns the number of buffered documents.
func (w *Writer) Pending() int { return w.pending }

// PendingBytes returns the estimated memory held by buffered documents.
func (w *Writer) PendingBytes() uint64 { return w.pendingBytes }

// HeapBudget returns the writer's heap budget in bytes.
func (w *Writer) HeapBudget() uint64 { return w.budget }

// Opstamp returns the last opstamp handed out.
func (w *Writer) Opstamp() num.Opstamp { return w.opstamp }

// CommittedOpstamp returns the opstamp of the last successful commit.
func (w *Writer) CommittedOpstamp() num.Opstamp { return w.committed }

// Close discards buffered documents and releases the writer lock.
// Safe to call multiple times.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.reset()

	w.idx.mu.Lock()
	if w.idx.writer == w {
		w.idx.writer = nil
	}
	w.idx.mu.Unlock()
	return w.idx.lock.Unlock()
}
