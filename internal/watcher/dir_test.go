package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startDirWatcher(t *testing.T, dir string) *DirWatcher {
	t.Helper()
	w, err := New(Options{DebounceWindow: 20 * time.Millisecond, PollInterval: 30 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})
	go func() { _ = w.Start(ctx, dir) }()
	select {
	case <-w.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never became ready")
	}
	return w
}

func collectPaths(t *testing.T, w *DirWatcher, want int) map[string]Operation {
	t.Helper()
	got := make(map[string]Operation)
	deadline := time.After(2 * time.Second)
	for len(got) < want {
		select {
		case batch, ok := <-w.Events():
			if !ok {
				return got
			}
			for _, e := range batch {
				got[filepath.ToSlash(e.Path)] = e.Operation
			}
		case <-deadline:
			return got
		}
	}
	return got
}

func TestDirWatcher_ReportsDocumentFiles(t *testing.T) {
	// Given: a watched directory
	dir := t.TempDir()
	w := startDirWatcher(t, dir)

	// When: a document and a non-document are written
	require.NoError(t, os.WriteFile(filepath.Join(dir, "books.json"), []byte("[]"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	// Then: only the document is reported
	got := collectPaths(t, w, 1)
	assert.Contains(t, got, "books.json")
	assert.NotContains(t, got, "notes.txt")
}

func TestDirWatcher_WatchesNewSubdirectories(t *testing.T) {
	// Given: a watched directory
	dir := t.TempDir()
	w := startDirWatcher(t, dir)

	// When: a subdirectory is created and a document written into it
	sub := filepath.Join(dir, "2024")
	require.NoError(t, os.Mkdir(sub, 0o755))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "feed.jsonl"), []byte("{}"), 0o644))

	// Then: the nested document is reported
	got := collectPaths(t, w, 1)
	assert.Contains(t, got, "2024/feed.jsonl")
}

func TestDirWatcher_StartRejectsFile(t *testing.T) {
	// Given: a plain file
	file := filepath.Join(t.TempDir(), "a.json")
	require.NoError(t, os.WriteFile(file, []byte("[]"), 0o644))
	w, err := New(DefaultOptions())
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	// When: starting on it
	err = w.Start(context.Background(), file)

	// Then: it is rejected
	require.Error(t, err)
}

func TestDirWatcher_StopIsIdempotent(t *testing.T) {
	// Given: a watcher
	w, err := New(DefaultOptions())
	require.NoError(t, err)

	// When: stopping twice
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	// Then: channels are closed
	_, ok := <-w.Events()
	assert.False(t, ok)
	_, ok = <-w.Errors()
	assert.False(t, ok)
	assert.Equal(t, uint64(0), w.DroppedBatches())
}

func TestDirWatcher_StartBlocksUntilStopped(t *testing.T) {
	// Given: a watcher started in the background
	dir := t.TempDir()
	w, err := New(Options{DebounceWindow: 20 * time.Millisecond})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx, dir) }()

	// When: it is ready
	<-w.Ready()

	// Then: Start is still running until ctx ends
	select {
	case err := <-done:
		t.Fatalf("Start returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
