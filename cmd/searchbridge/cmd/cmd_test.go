package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocs = `{"title":"Sailing the Atlantic","body":"a long voyage across the ocean","tags":"travel","year":2001}
{"title":"Salt and Sea","body":"cooking with sea salt","tags":"food","year":2010}
{"title":"Mountain Paths","body":"hiking in the alps","tags":"travel","year":1999}
{"title":"Broken","year":"not a number"}
`

// inProject runs the test from a fresh project directory with an empty
// user config.
func inProject(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	oldDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldDir) })
	return dir
}

// run executes the CLI with a buffer as stdout, which selects JSON output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, a := newRoot()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	_ = a.teardown()
	return stdout.String(), err
}

func decode[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), s)
	return v
}

// indexedProject initializes a project and ingests sampleDocs.
func indexedProject(t *testing.T) string {
	t.Helper()
	dir := inProject(t)
	_, err := run(t, "init")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs.jsonl"), []byte(sampleDocs), 0o644))
	_, err = run(t, "index", "docs.jsonl")
	require.NoError(t, err)
	return dir
}

func TestRootCmd_ShowsHelp(t *testing.T) {
	// Given: a root command
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	// When: executing with --help
	err := cmd.Execute()

	// Then: usage lists the commands
	require.NoError(t, err)
	for _, name := range []string{"init", "index", "search", "terms", "tokenize", "serve", "logs"} {
		assert.Contains(t, buf.String(), name)
	}
}

func TestInitCmd_WritesTemplatesOnce(t *testing.T) {
	dir := inProject(t)

	// When: init runs twice
	out, err := run(t, "init")
	require.NoError(t, err)
	first := decode[initResult](t, out)

	out, err = run(t, "init")
	require.NoError(t, err)
	second := decode[initResult](t, out)

	// Then: the second run keeps the files
	assert.Len(t, first.Written, 2)
	assert.Empty(t, second.Written)
	assert.Len(t, second.Skipped, 2)
	assert.FileExists(t, filepath.Join(dir, "searchbridge.yaml"))
	assert.FileExists(t, filepath.Join(dir, "schema.json"))
}

func TestIndexCmd_IngestsAndRejects(t *testing.T) {
	dir := inProject(t)
	_, err := run(t, "init")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs.jsonl"), []byte(sampleDocs), 0o644))

	// When: ingesting the sample file
	out, err := run(t, "index", "docs.jsonl")

	// Then: valid documents are counted and the bad one rejected
	require.NoError(t, err)
	res := decode[indexResult](t, out)
	assert.Equal(t, 1, res.Files)
	assert.Equal(t, 3, res.Docs)
	assert.Equal(t, 1, res.Rejected)
	assert.Equal(t, "4", res.Opstamp)
}

func TestSearchCmd_ReturnsHitTriples(t *testing.T) {
	indexedProject(t)

	// When: searching a body term
	out, err := run(t, "search", "ocean")
	require.NoError(t, err)

	// Then: one [score, doc, explanation] triple comes back
	hits := decode[[][]json.RawMessage](t, out)
	require.Len(t, hits, 1)
	require.Len(t, hits[0], 3)
	doc := decode[map[string][]any](t, string(hits[0][1]))
	assert.Equal(t, []any{"Sailing the Atlantic"}, doc["title"])
	assert.Equal(t, "null", string(hits[0][2]))
}

func TestSearchCmd_NoMatchIsEmptyArray(t *testing.T) {
	indexedProject(t)

	out, err := run(t, "search", "submarine")

	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestSearchCmd_BadQueryFails(t *testing.T) {
	indexedProject(t)

	_, err := run(t, "search", "nosuchfield:x")

	assert.Error(t, err)
}

func TestTermsCmd_ListsDictionary(t *testing.T) {
	indexedProject(t)

	out, err := run(t, "terms", "tags")

	require.NoError(t, err)
	res := decode[termsResult](t, out)
	require.Len(t, res.Terms, 2)
	assert.Equal(t, "food", res.Terms[0].Text)
	assert.Equal(t, "travel", res.Terms[1].Text)
	assert.EqualValues(t, 2, res.Terms[1].DocFreq)
	assert.False(t, res.Truncated)
}

func TestTermsCmd_Limit(t *testing.T) {
	indexedProject(t)

	out, err := run(t, "terms", "tags", "--limit", "1")

	require.NoError(t, err)
	res := decode[termsResult](t, out)
	assert.Len(t, res.Terms, 1)
	assert.True(t, res.Truncated)
}

func TestStatusCmd_ReportsCommit(t *testing.T) {
	indexedProject(t)

	out, err := run(t, "status")

	require.NoError(t, err)
	var res struct {
		NumDocs uint64 `json:"num_docs"`
		Opstamp string `json:"opstamp"`
		Fields  []any  `json:"fields"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.EqualValues(t, 3, res.NumDocs)
	assert.Equal(t, "4", res.Opstamp)
	assert.Len(t, res.Fields, 4)
}

func TestStatusCmd_MissingIndexFails(t *testing.T) {
	inProject(t)
	_, err := run(t, "init")
	require.NoError(t, err)

	_, err = run(t, "status")

	assert.Error(t, err)
}

func TestSchemaCmd_FromFile(t *testing.T) {
	inProject(t)
	_, err := run(t, "init")
	require.NoError(t, err)

	out, err := run(t, "schema", "--file", "schema.json")

	require.NoError(t, err)
	assert.Contains(t, out, `"title"`)
	assert.Contains(t, out, `"year"`)
}

func TestTokenizeCmd_Builtin(t *testing.T) {
	inProject(t)

	out, err := run(t, "tokenize", "--tokenizer", "whitespace", "Hello big World")

	require.NoError(t, err)
	res := decode[tokenizeResult](t, out)
	require.Len(t, res.Tokens, 3)
	assert.Equal(t, "whitespace", res.Tokenizer)
	assert.Equal(t, "big", res.Tokens[1].Text)
	assert.Equal(t, 1, res.Tokens[1].Position)
}

func TestConfigCmd_ShowAndPath(t *testing.T) {
	inProject(t)

	out, err := run(t, "config", "show")
	require.NoError(t, err)
	var cfg struct {
		Search struct {
			DefaultLimit int `json:"default_limit"`
		} `json:"search"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, 10, cfg.Search.DefaultLimit)

	out, err = run(t, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join("searchbridge", "config.yaml"))
}

func TestConfigCmd_MissingExplicitFile(t *testing.T) {
	inProject(t)

	_, err := run(t, "--config", "nope.yaml", "status")

	assert.ErrorContains(t, err, "config file not found")
}

func TestLogsCmd_TailsFile(t *testing.T) {
	dir := inProject(t)
	path := filepath.Join(dir, "test.log")
	require.NoError(t, os.WriteFile(path, []byte(`{"time":"2026-03-01T10:00:01.000Z","level":"INFO","msg":"ingest_committed"}`+"\n"), 0o644))

	out, err := run(t, "logs", "--file", path, "-n", "5")

	require.NoError(t, err)
	assert.Contains(t, out, "ingest_committed")
}

func TestVersionCmd(t *testing.T) {
	t.Run("short", func(t *testing.T) {
		out, err := run(t, "version", "--short")
		require.NoError(t, err)
		assert.Equal(t, "dev\n", out)
	})

	t.Run("json when piped", func(t *testing.T) {
		out, err := run(t, "version")
		require.NoError(t, err)
		info := decode[map[string]string](t, out)
		assert.Equal(t, "dev", info["version"])
	})
}

func TestDoctorCmd_FreshProject(t *testing.T) {
	inProject(t)
	_, err := run(t, "init")
	require.NoError(t, err)

	out, err := run(t, "doctor")

	require.NoError(t, err)
	res := decode[doctorResult](t, out)
	assert.NotEqual(t, "failed", res.Status)
	assert.Len(t, res.Checks, 5)
}

func TestDoctorCmd_MissingSchemaFails(t *testing.T) {
	inProject(t)

	_, err := run(t, "doctor")

	assert.ErrorContains(t, err, "system check failed")
}
