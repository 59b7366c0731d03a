package ui

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/searchbridge/internal/ingest"
)

func TestNewRenderer_PlainForNonTTY(t *testing.T) {
	r := NewRenderer(Config{Output: &bytes.Buffer{}})

	_, ok := r.(*PlainRenderer)
	assert.True(t, ok)
}

func TestNewTUIRenderer_RejectsNonTTY(t *testing.T) {
	_, err := NewTUIRenderer(Config{Output: &bytes.Buffer{}})
	assert.Error(t, err)
}

func TestIsTTY(t *testing.T) {
	assert.False(t, IsTTY(nil))
	assert.False(t, IsTTY(&bytes.Buffer{}))
}

func TestDetectNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, DetectNoColor())
}

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		42 * time.Second:              "42s",
		2 * time.Minute:               "2m",
		2*time.Minute + 5*time.Second: "2m 5s",
		3*time.Hour + 7*time.Minute:   "3h 7m",
	}
	for d, want := range tests {
		assert.Equal(t, want, formatDuration(d))
	}
}

func TestTruncatePath(t *testing.T) {
	assert.Equal(t, "docs/a.jsonl", truncatePath("docs/a.jsonl", 40))
	assert.Equal(t, ".../books.jsonl", truncatePath("/very/long/path/to/books.jsonl", 16))
	assert.Equal(t, "...", truncatePath("abcdef", 2))
}

func TestPlainRenderer_PrintsOnChangeOnly(t *testing.T) {
	// Given a plain renderer
	var buf bytes.Buffer
	r := NewPlainRenderer(Config{Output: &buf})

	// When the same snapshot arrives twice, differing only in elapsed time
	s := ingest.ProgressSnapshot{Status: "ingesting", Stage: "indexing", FilesTotal: 4, FilesProcessed: 1, DocsIndexed: 10}
	r.Update(s)
	s.ElapsedSeconds = 3
	r.Update(s)
	s.FilesProcessed = 2
	r.Update(s)

	// Then only the two distinct states are printed
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[INDEX] 1/4 files - 10 docs, 0 rejected", lines[0])
	assert.Equal(t, "[INDEX] 2/4 files - 10 docs, 0 rejected", lines[1])
}

func TestPlainRenderer_WatchingAndError(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(Config{Output: &buf})

	r.Update(ingest.ProgressSnapshot{Status: "watching", DocsIndexed: 5, LastOpstamp: "9"})
	r.Update(ingest.ProgressSnapshot{Status: "error", ErrorMessage: "disk full"})

	assert.Contains(t, buf.String(), "[WATCH] 5 docs indexed, 0 rejected, opstamp 9")
	assert.Contains(t, buf.String(), "ERROR: disk full")
}

func TestPlainRenderer_Complete(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(Config{Output: &buf})

	r.Complete(ingest.Result{Files: 2, Docs: 30, Rejected: 1, Opstamp: 31, Duration: 1234 * time.Millisecond})

	assert.Equal(t, "Complete: 30 docs from 2 files in 1.2s (1 rejected), opstamp 31\n", buf.String())
}

func TestTrack_FeedsSnapshots(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(Config{Output: &buf})
	p := ingest.NewProgress()
	p.AddFiles(3)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	Track(ctx, p, r, 10*time.Millisecond)

	assert.Contains(t, buf.String(), "0/3 files")
}

func TestIngestModel_View(t *testing.T) {
	// Given a model fed a snapshot
	m := newIngestModel("/data/books")
	m.styles = NoColorStyles()
	_, _ = m.Update(snapshotMsg{Status: "ingesting", Stage: "indexing", FilesTotal: 4, FilesProcessed: 2, DocsIndexed: 17, ProgressPct: 50, DocsRejected: 1})

	// Then the panel shows the counts and the rejected warning
	view := m.View()
	assert.Contains(t, view, "searchbridge ingest")
	assert.Contains(t, view, "2 / 4 files")
	assert.Contains(t, view, "17 docs")
	assert.Contains(t, view, "50%")
	assert.Contains(t, view, "1 rejected")
}

func TestIngestModel_CompleteQuits(t *testing.T) {
	m := newIngestModel("")
	m.styles = NoColorStyles()

	_, cmd := m.Update(completeMsg{Files: 1, Docs: 3, Opstamp: 4})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, m.View(), "Ingest complete")
}

func TestIngestModel_QuitKeyCallsOnQuit(t *testing.T) {
	m := newIngestModel("")
	called := false
	m.onQuit = func() { called = true }

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	require.NotNil(t, cmd)
	assert.True(t, called)
	assert.Equal(t, "Cancelled.\n", m.View())
}
