package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/searchbridge/internal/ingest"
	"github.com/Aman-CERP/searchbridge/pkg/bridge"
	"github.com/Aman-CERP/searchbridge/pkg/searchbridge"
)

func newTestServer(t *testing.T, docs ...string) *Server {
	t.Helper()
	ctx := context.Background()
	s, err := searchbridge.ParseSchema([]byte(`{
		"title": {"type": "text", "stored": true},
		"tag":   {"type": "string", "stored": true},
		"year":  ["f64", "STORED", "INDEXED"]
	}`))
	require.NoError(t, err)
	pool := bridge.NewPool(bridge.Config{Workers: 2})
	t.Cleanup(func() { _ = pool.Close() })
	idx, err := searchbridge.CreateIndex(searchbridge.IndexOptions{Schema: s, Pool: pool, ReloadOn: searchbridge.ReloadManual})
	require.NoError(t, err)
	defer idx.Release()

	for _, d := range docs {
		_, err := idx.AddDocument(ctx, d)
		require.NoError(t, err)
	}
	_, err = idx.Commit(ctx)
	require.NoError(t, err)
	require.NoError(t, idx.Reload(ctx))

	srv, err := NewServer(idx, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func TestNewServer_RequiresIndex(t *testing.T) {
	_, err := NewServer(nil, Options{})
	assert.Error(t, err)
}

func TestServer_ListTools(t *testing.T) {
	srv := newTestServer(t)

	names := make([]string, 0, 4)
	for _, tool := range srv.ListTools() {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
	}

	assert.Equal(t, []string{"search", "search_terms", "tokenize", "index_status"}, names)
	name, _ := srv.Info()
	assert.Equal(t, ServerName, name)
}

func TestServer_Search(t *testing.T) {
	// Given: an index with two matching documents
	srv := newTestServer(t,
		`{"title": "the sea and the sky", "tag": "nature", "year": 1990}`,
		`{"title": "sea sea sea", "tag": "poetry"}`,
		`{"title": "mountains"}`)

	// When: searching
	res, err := srv.CallTool(context.Background(), "search", map[string]any{"query": "sea", "limit": 5})

	// Then: both hits come back best first with their stored fields
	require.NoError(t, err)
	out := res.(SearchOutput)
	require.Len(t, out.Results, 2)
	assert.GreaterOrEqual(t, out.Results[0].Score, out.Results[1].Score)
	assert.Equal(t, []any{"sea sea sea"}, out.Results[0].Document["title"])
	assert.Nil(t, out.Results[0].Explanation)
}

func TestServer_SearchExplain(t *testing.T) {
	srv := newTestServer(t, `{"title": "sea"}`)

	res, err := srv.CallTool(context.Background(), "search", map[string]any{"query": "sea", "explain": true})

	require.NoError(t, err)
	out := res.(SearchOutput)
	require.Len(t, out.Results, 1)
	assert.NotNil(t, out.Results[0].Explanation)
}

func TestServer_SearchValidation(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]any
		code int
	}{
		{"empty query", map[string]any{"query": "   "}, ErrCodeInvalidParams},
		{"wrong type", map[string]any{"query": 42}, ErrCodeInvalidParams},
		{"unknown field", map[string]any{"query": "nope:x"}, ErrCodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := srv.CallTool(ctx, "search", tt.args)

			var mcpErr *MCPError
			require.ErrorAs(t, err, &mcpErr)
			assert.Equal(t, tt.code, mcpErr.Code)
		})
	}
}

func TestServer_SearchTerms(t *testing.T) {
	// Given: several terms in the title dictionary
	srv := newTestServer(t, `{"title": "sail salt sea ship"}`)

	// When: listing with a pattern and a limit
	res, err := srv.CallTool(context.Background(), "search_terms", map[string]any{"field": "title", "pattern": "s.*", "limit": 2})

	// Then: the first terms in lexical order are returned and truncation is flagged
	require.NoError(t, err)
	out := res.(SearchTermsOutput)
	assert.Equal(t, []searchbridge.Term{{Text: "sail", DocFreq: 1}, {Text: "salt", DocFreq: 1}}, out.Terms)
	assert.True(t, out.Truncated)

	_, err = srv.CallTool(context.Background(), "search_terms", map[string]any{"field": "year"})
	assert.Error(t, err)
}

func TestServer_Tokenize(t *testing.T) {
	srv := newTestServer(t)

	res, err := srv.CallTool(context.Background(), "tokenize", map[string]any{"text": "Hello World"})

	require.NoError(t, err)
	out := res.(TokenizeOutput)
	assert.Equal(t, "default", out.Tokenizer)
	require.Len(t, out.Tokens, 2)
	assert.Equal(t, "hello", out.Tokens[0].Text)

	_, err = srv.CallTool(context.Background(), "tokenize", map[string]any{"text": "x", "tokenizer": "missing"})
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestServer_IndexStatus(t *testing.T) {
	// Given: an index with two documents and an attached ingest
	srv := newTestServer(t, `{"title": "a"}`, `{"title": "b"}`)
	progress := ingest.NewProgress()
	progress.AddFiles(4)
	progress.FileDone()
	srv.SetIngestProgress(progress)

	// When: asking for status
	res, err := srv.CallTool(context.Background(), "index_status", nil)

	// Then: counts, schema and progress are reported
	require.NoError(t, err)
	out := res.(*IndexStatusOutput)
	assert.Equal(t, uint64(2), out.NumDocs)
	assert.Equal(t, ":memory:", out.Path)
	assert.NotEqual(t, "0", out.Opstamp)
	require.Len(t, out.Fields, 3)
	assert.Equal(t, "title", out.Fields[0].Name)
	assert.Equal(t, "default", out.Fields[0].Tokenizer)
	require.NotNil(t, out.Ingest)
	assert.InDelta(t, 25.0, out.Ingest.ProgressPct, 0.001)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"num_docs":2`)
}

func TestServer_IndexStatusReportsQueries(t *testing.T) {
	// Given: a hit, a miss and a failed query
	srv := newTestServer(t, `{"title": "whale"}`)
	ctx := context.Background()
	_, err := srv.CallTool(ctx, "search", map[string]any{"query": "whale"})
	require.NoError(t, err)
	_, err = srv.CallTool(ctx, "search", map[string]any{"query": "kraken"})
	require.NoError(t, err)
	_, err = srv.CallTool(ctx, "search", map[string]any{"query": "nope:x"})
	require.Error(t, err)

	// When: asking for status
	res, err := srv.CallTool(ctx, "index_status", nil)

	// Then: the query statistics are included
	require.NoError(t, err)
	q := res.(*IndexStatusOutput).Queries
	require.NotNil(t, q)
	assert.EqualValues(t, 3, q.TotalQueries)
	assert.EqualValues(t, 1, q.FailedQueries)
	assert.Equal(t, []string{"kraken"}, q.ZeroResultQueries)
	assert.Equal(t, q.TotalQueries, srv.QueryStats().TotalQueries)
}

func TestServer_UnknownTool(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.CallTool(context.Background(), "search_code", nil)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeMethodNotFound, mcpErr.Code)
}

func TestServer_ReadSchema(t *testing.T) {
	srv := newTestServer(t)

	res, err := srv.readSchema(context.Background())

	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, SchemaURI, res.Contents[0].URI)
	assert.Contains(t, res.Contents[0].Text, `"name": "title"`)
}

func TestServer_SurvivesCallerRelease(t *testing.T) {
	// Given: a server built from a handle the caller already released
	srv := newTestServer(t, `{"title": "kept"}`)

	// Then: the server's own handle still answers
	res, err := srv.CallTool(context.Background(), "search", map[string]any{"query": "kept"})
	require.NoError(t, err)
	assert.Len(t, res.(SearchOutput).Results, 1)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 10, clampLimit(0, 10, 1, 50))
	assert.Equal(t, 50, clampLimit(500, 10, 1, 50))
	assert.Equal(t, 7, clampLimit(7, 10, 1, 50))
}
