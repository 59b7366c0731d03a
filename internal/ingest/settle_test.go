package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/searchbridge/internal/errors"
	"github.com/Aman-CERP/searchbridge/pkg/bridge"
	"github.com/Aman-CERP/searchbridge/pkg/searchbridge"
)

// budgetIndex buffers at most capacity small documents between commits. A
// document longer than 40 bytes never fits.
type budgetIndex struct {
	pool     *bridge.Pool
	capacity int
	async    bool

	mu        sync.Mutex
	pending   int
	stamp     searchbridge.Opstamp
	committed int
	commits   int
	applied   []int
}

func newBudgetIndex(t *testing.T, capacity int, async bool) *budgetIndex {
	t.Helper()
	pool := bridge.NewPool(bridge.Config{Workers: 4})
	t.Cleanup(func() { _ = pool.Close() })
	return &budgetIndex{pool: pool, capacity: capacity, async: async}
}

func (f *budgetIndex) add(data []byte) (searchbridge.Opstamp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	weight := 1
	if len(data) > 40 {
		weight = f.capacity + 1
	}
	if f.pending+weight > f.capacity {
		return 0, errors.Newf(errors.ErrCodeHeapExhausted, "buffer holds %d of %d", f.pending, f.capacity)
	}
	var doc struct{ N int }
	if json.Unmarshal(data, &doc) == nil {
		f.applied = append(f.applied, doc.N)
	}
	f.pending += weight
	f.stamp++
	return f.stamp, nil
}

func (f *budgetIndex) AddDocumentAsync(doc any) *searchbridge.Promise[searchbridge.Opstamp] {
	data := doc.(json.RawMessage)
	if f.async {
		return bridge.Submit(f.pool, func(context.Context) (searchbridge.Opstamp, error) {
			return f.add(data)
		})
	}
	stamp, err := f.add(data)
	if err != nil {
		return bridge.Reject[searchbridge.Opstamp](f.pool, err)
	}
	return bridge.Resolve(f.pool, stamp)
}

func (f *budgetIndex) CommitAsync() *searchbridge.Promise[searchbridge.Opstamp] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed += f.pending
	f.pending = 0
	f.commits++
	f.stamp++
	return bridge.Resolve(f.pool, f.stamp)
}

func jsonLines(from, to int) string {
	var sb strings.Builder
	for n := from; n < to; n++ {
		fmt.Fprintf(&sb, "{\"n\": %d}\n", n)
	}
	return sb.String()
}

func TestIngester_FullBufferCommitsOncePerRound(t *testing.T) {
	// Given: twelve documents and a buffer that holds two
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.jsonl"), jsonLines(0, 12))
	idx := newBudgetIndex(t, 2, false)
	g := New(idx, Config{InFlight: 64, CommitEvery: 1000})

	// When: they are ingested in one window
	res, err := g.Run(context.Background(), dir)

	// Then: every document lands, with one commit per full buffer
	require.NoError(t, err)
	assert.Equal(t, 12, res.Docs)
	assert.Equal(t, 0, res.Rejected)
	assert.Equal(t, 12, idx.committed)
	assert.Equal(t, 6, idx.commits)
}

func TestIngester_OversizedDocumentIsRejected(t *testing.T) {
	// Given: a document that cannot fit even an empty buffer
	dir := t.TempDir()
	big := fmt.Sprintf("{\"n\": 99, \"body\": %q}\n", strings.Repeat("x", 64))
	writeFile(t, filepath.Join(dir, "a.jsonl"), jsonLines(0, 2)+big+jsonLines(2, 4))
	idx := newBudgetIndex(t, 2, false)
	g := New(idx, Config{InFlight: 64, CommitEvery: 1000})

	// When: ingested
	res, err := g.Run(context.Background(), dir)

	// Then: the run completes and only that document is rejected
	require.NoError(t, err)
	assert.Equal(t, 4, res.Docs)
	assert.Equal(t, 1, res.Rejected)
	assert.Equal(t, 4, idx.committed)
	assert.Equal(t, 1, g.Progress().Snapshot().DocsRejected)
}

func TestIngester_SingleInFlightKeepsFileOrder(t *testing.T) {
	// Given: two files and an index that applies adds on four workers
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jsonl")
	b := filepath.Join(dir, "b.jsonl")
	writeFile(t, a, jsonLines(0, 10))
	writeFile(t, b, jsonLines(10, 20))
	idx := newBudgetIndex(t, 1000, true)
	g := New(idx, Config{InFlight: 1, ParseWorkers: 2})

	// When: ingested with one add in flight
	res, err := g.IngestFiles(context.Background(), []string{a, b})

	// Then: documents are applied in file order
	require.NoError(t, err)
	assert.Equal(t, 20, res.Docs)
	want := make([]int, 20)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, idx.applied)
}
