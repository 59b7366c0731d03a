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

func nextEvent(t *testing.T, w *PollingWatcher) FileEvent {
	t.Helper()
	select {
	case event := <-w.Events():
		return event
	case err := <-w.Errors():
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for polling event")
	}
	return FileEvent{}
}

func TestPollingWatcher_DetectsDocumentLifecycle(t *testing.T) {
	// Given: a directory with one document and a polling watcher
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing.json")
	require.NoError(t, os.WriteFile(existing, []byte(`[]`), 0o644))

	w := NewPollingWatcher(30*time.Millisecond, DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx, dir) }()
	time.Sleep(60 * time.Millisecond)

	// When: a document is created
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.jsonl"), []byte(`{}`), 0o644))

	// Then: CREATE is reported
	event := nextEvent(t, w)
	assert.Equal(t, OpCreate, event.Operation)
	assert.Equal(t, "new.jsonl", event.Path)

	// When: the existing document grows
	require.NoError(t, os.WriteFile(existing, []byte(`[{"a": 1}]`), 0o644))

	// Then: MODIFY is reported
	event = nextEvent(t, w)
	assert.Equal(t, OpModify, event.Operation)
	assert.Equal(t, "existing.json", event.Path)

	// When: it is removed
	require.NoError(t, os.Remove(existing))

	// Then: DELETE is reported
	event = nextEvent(t, w)
	assert.Equal(t, OpDelete, event.Operation)

	require.NoError(t, w.Stop())
}

func TestPollingWatcher_IgnoresOtherFiles(t *testing.T) {
	// Given: a running polling watcher
	dir := t.TempDir()
	w := NewPollingWatcher(20*time.Millisecond, DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx, dir) }()
	time.Sleep(40 * time.Millisecond)

	// When: non-document and hidden files appear
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".cache"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cache", "b.json"), []byte("[]"), 0o644))

	// Then: nothing is reported
	select {
	case event := <-w.Events():
		t.Fatalf("unexpected event: %+v", event)
	case <-time.After(150 * time.Millisecond):
	}
	require.NoError(t, w.Stop())
}

func TestPollingWatcher_InvalidRoot(t *testing.T) {
	// Given: a path that does not exist
	w := NewPollingWatcher(time.Second, DefaultOptions())

	// When: starting
	err := w.Start(context.Background(), filepath.Join(t.TempDir(), "missing"))

	// Then: the initial scan fails
	require.Error(t, err)
}

func TestDiff_OrdersEventsByPath(t *testing.T) {
	// Given: two listings a poll apart
	then := time.Unix(100, 0)
	prev := listing{
		"b.json":  {size: 2, modTime: then},
		"c.jsonl": {size: 10, modTime: then},
		"d.json":  {size: 5, modTime: then},
	}
	cur := listing{
		"a.jsonl": {size: 1, modTime: then},
		"b.json":  {size: 2, modTime: then},
		"c.jsonl": {size: 12, modTime: then},
	}
	now := time.Unix(200, 0)

	// When: diffing them
	events := diff(prev, cur, now)

	// Then: one event per changed file, in path order, stamped with now
	require.Len(t, events, 3)
	assert.Equal(t, FileEvent{Path: "a.jsonl", Operation: OpCreate, Timestamp: now}, events[0])
	assert.Equal(t, FileEvent{Path: "c.jsonl", Operation: OpModify, Timestamp: now}, events[1])
	assert.Equal(t, FileEvent{Path: "d.json", Operation: OpDelete, Timestamp: now}, events[2])
}

func TestDiff_TouchWithoutGrowthIsModify(t *testing.T) {
	prev := listing{"a.json": {size: 2, modTime: time.Unix(1, 0)}}
	cur := listing{"a.json": {size: 2, modTime: time.Unix(2, 0)}}

	events := diff(prev, cur, time.Now())

	require.Len(t, events, 1)
	assert.Equal(t, OpModify, events[0].Operation)
}
