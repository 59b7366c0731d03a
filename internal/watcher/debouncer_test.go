package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive[E any](t *testing.T, ch <-chan []E, timeout time.Duration) []E {
	t.Helper()
	select {
	case batch := <-ch:
		return batch
	case <-time.After(timeout):
		t.Fatal("timeout waiting for debounced batch")
		return nil
	}
}

func TestFileDebouncer_SingleEvent_PassesThrough(t *testing.T) {
	// Given: a debouncer with short window
	d := NewFileDebouncer(50 * time.Millisecond)
	defer d.Stop()

	// When: a single event is added
	d.Add(FileEvent{Path: "books.json", Operation: OpCreate, Timestamp: time.Now()})

	// Then: the event passes through after the debounce window
	events := receive(t, d.Output(), 200*time.Millisecond)
	require.Len(t, events, 1)
	assert.Equal(t, "books.json", events[0].Path)
	assert.Equal(t, OpCreate, events[0].Operation)
}

func TestFileDebouncer_Coalescing(t *testing.T) {
	tests := []struct {
		name string
		ops  []Operation
		want []Operation
	}{
		{"modify repeated", []Operation{OpModify, OpModify, OpModify}, []Operation{OpModify}},
		{"create then modify", []Operation{OpCreate, OpModify}, []Operation{OpCreate}},
		{"modify then delete", []Operation{OpModify, OpDelete}, []Operation{OpDelete}},
		{"delete then create", []Operation{OpDelete, OpCreate}, []Operation{OpModify}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a debouncer
			d := NewFileDebouncer(30 * time.Millisecond)
			defer d.Stop()

			// When: the operations arrive within one window
			for _, op := range tt.ops {
				d.Add(FileEvent{Path: "a.json", Operation: op, Timestamp: time.Now()})
			}

			// Then: they merge into the expected operation
			events := receive(t, d.Output(), 300*time.Millisecond)
			got := make([]Operation, len(events))
			for i, e := range events {
				got[i] = e.Operation
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileDebouncer_CreateThenDelete_NoEvent(t *testing.T) {
	// Given: a debouncer
	d := NewFileDebouncer(30 * time.Millisecond)
	defer d.Stop()

	// When: CREATE followed by DELETE for same file
	d.Add(FileEvent{Path: "tmp.json", Operation: OpCreate})
	d.Add(FileEvent{Path: "tmp.json", Operation: OpDelete})

	// Then: nothing is emitted
	select {
	case events := <-d.Output():
		t.Fatalf("unexpected events: %v", events)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestFileDebouncer_DifferentFiles_KeepFirstSeenOrder(t *testing.T) {
	// Given: a debouncer
	d := NewFileDebouncer(30 * time.Millisecond)
	defer d.Stop()

	// When: events for three files arrive
	for _, p := range []string{"c.json", "a.json", "b.json"} {
		d.Add(FileEvent{Path: p, Operation: OpModify})
	}

	// Then: one batch holds all three in arrival order
	events := receive(t, d.Output(), 300*time.Millisecond)
	require.Len(t, events, 3)
	assert.Equal(t, "c.json", events[0].Path)
	assert.Equal(t, "a.json", events[1].Path)
	assert.Equal(t, "b.json", events[2].Path)
}

func TestSignal_CollapsesBurstIntoLatest(t *testing.T) {
	// Given: a signal debouncer
	d := NewSignal[int](40 * time.Millisecond)
	defer d.Stop()

	// When: a burst of values arrives
	for i := 1; i <= 5; i++ {
		d.Add(i)
		time.Sleep(5 * time.Millisecond)
	}

	// Then: a single emission carries the newest value
	batch := receive(t, d.Output(), 300*time.Millisecond)
	assert.Equal(t, []int{5}, batch)
}

func TestDebouncer_Flush_EmitsImmediately(t *testing.T) {
	// Given: a debouncer with a long window
	d := NewSignal[string](time.Hour)
	defer d.Stop()
	d.Add("x")

	// When: flushing
	d.Flush()

	// Then: the pending item is emitted without waiting
	assert.Equal(t, []string{"x"}, receive(t, d.Output(), 100*time.Millisecond))
}

func TestDebouncer_Stop_ClosesOutput(t *testing.T) {
	// Given: a debouncer
	d := NewFileDebouncer(time.Second)

	// When: stopped twice
	d.Stop()
	d.Stop()

	// Then: the output channel is closed and Add is ignored
	d.Add(FileEvent{Path: "late.json"})
	_, ok := <-d.Output()
	assert.False(t, ok)
}
