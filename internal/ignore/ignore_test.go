package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_Match(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		isDir   bool
		want    bool
	}{
		{name: "exact name", pattern: "old.jsonl", path: "old.jsonl", want: true},
		{name: "name in subdir", pattern: "old.jsonl", path: "a/b/old.jsonl", want: true},
		{name: "other name", pattern: "old.jsonl", path: "new.jsonl"},
		{name: "extension glob", pattern: "*.tmp.json", path: "feed/x.tmp.json", want: true},
		{name: "question mark", pattern: "part?.jsonl", path: "part1.jsonl", want: true},
		{name: "question mark one char", pattern: "part?.jsonl", path: "part12.jsonl"},
		{name: "char class", pattern: "day[0-9].json", path: "day7.json", want: true},
		{name: "dir only matches dir", pattern: "drafts/", path: "drafts", isDir: true, want: true},
		{name: "dir only skips file", pattern: "drafts/", path: "drafts"},
		{name: "dir only matches contents", pattern: "drafts/", path: "x/drafts/a.json", want: true},
		{name: "rooted", pattern: "/archive", path: "archive/a.json", want: true},
		{name: "rooted not nested", pattern: "/archive", path: "x/archive"},
		{name: "inner slash anchors", pattern: "a/b.json", path: "a/b.json", want: true},
		{name: "inner slash not nested", pattern: "a/b.json", path: "x/a/b.json"},
		{name: "double star prefix", pattern: "**/cache", path: "x/y/cache", isDir: true, want: true},
		{name: "double star suffix", pattern: "logs/**", path: "logs/a/b.json", want: true},
		{name: "escaped hash", pattern: `\#x.json`, path: "#x.json", want: true},
		{name: "comment", pattern: "# old.json", path: "old.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			m.Add(tt.pattern, "")
			assert.Equal(t, tt.want, m.Match(tt.path, tt.isDir))
		})
	}
}

func TestMatcher_NegationLaterRuleWins(t *testing.T) {
	// Given: a broad exclusion followed by a re-inclusion
	m := New()
	m.Add("*.jsonl", "")
	m.Add("!keep.jsonl", "")

	// Then: only the re-included file survives
	assert.True(t, m.Match("drop.jsonl", false))
	assert.False(t, m.Match("keep.jsonl", false))
}

func TestMatcher_BaseScopesRules(t *testing.T) {
	m := New()
	m.Add("*.json", "feed")

	assert.True(t, m.Match("feed/a.json", false))
	assert.True(t, m.Match("feed/sub/a.json", false))
	assert.False(t, m.Match("a.json", false))
	assert.False(t, m.Match("feeder/a.json", false))
}

func TestLoad_NestedFiles(t *testing.T) {
	// Given: a root ignore file and one in a subdirectory
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("# root\ndrafts/\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", FileName), []byte("*.json\n"), 0o644))

	// When: loading
	m, err := Load(root)
	require.NoError(t, err)

	// Then: each file applies to its own directory
	assert.Equal(t, 2, m.Len())
	assert.True(t, m.Match("drafts/a.jsonl", false))
	assert.True(t, m.Match(filepath.Join("sub", "a.json"), false))
	assert.False(t, m.Match("a.json", false))
}

func TestLoad_NoFiles(t *testing.T) {
	m, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
	assert.False(t, m.Match("a.json", false))
}

func TestLoad_MissingRoot(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing"))

	assert.Error(t, err)
}
