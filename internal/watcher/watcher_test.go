package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOperation_String(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
		want string
	}{
		{"create", OpCreate, "CREATE"},
		{"modify", OpModify, "MODIFY"},
		{"delete", OpDelete, "DELETE"},
		{"rename", OpRename, "RENAME"},
		{"unknown", Operation(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.op.String())
		})
	}
}

func TestOptions_WithDefaults(t *testing.T) {
	// Given: options with only a custom window
	opts := Options{DebounceWindow: 500 * time.Millisecond}

	// When: applying defaults
	got := opts.WithDefaults()

	// Then: the custom value is kept and the rest defaulted
	assert.Equal(t, 500*time.Millisecond, got.DebounceWindow)
	assert.Equal(t, 5*time.Second, got.PollInterval)
	assert.Equal(t, 100, got.EventBufferSize)
	assert.Equal(t, []string{".json", ".jsonl", ".ndjson"}, got.Extensions)
}

func TestOptions_Accepts(t *testing.T) {
	opts := DefaultOptions()

	tests := []struct {
		path string
		want bool
	}{
		{"books.json", true},
		{"nested/books.JSONL", true},
		{"feed.ndjson", true},
		{"notes.txt", false},
		{".hidden.json", false},
		{".cache/books.json", false},
		{"", false},
		{".", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, opts.Accepts(tt.path))
		})
	}
}
