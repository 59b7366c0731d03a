package mcp

import (
	"github.com/Aman-CERP/searchbridge/internal/ingest"
	"github.com/Aman-CERP/searchbridge/internal/telemetry"
	"github.com/Aman-CERP/searchbridge/pkg/searchbridge"
)

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query   string   `json:"query" jsonschema:"query-string text, e.g. title:sea AND year:1952"`
	Fields  []string `json:"fields,omitempty" jsonschema:"fields searched by unfielded terms, default all text fields"`
	Limit   int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	Explain bool     `json:"explain,omitempty" jsonschema:"include a score explanation per hit"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Results []HitOutput `json:"results" jsonschema:"hits, best first"`
}

// HitOutput is one hit.
type HitOutput struct {
	Score       float64          `json:"score" jsonschema:"relevance score"`
	Document    map[string][]any `json:"document" jsonschema:"stored fields, each a list of values"`
	Explanation any              `json:"explanation,omitempty" jsonschema:"score explanation when requested"`
}

// SearchTermsInput defines the input schema for the search_terms tool.
type SearchTermsInput struct {
	Field   string `json:"field" jsonschema:"text or string field whose dictionary is listed"`
	Pattern string `json:"pattern,omitempty" jsonschema:"regular expression matching whole terms, default all terms"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of terms, default 100"`
}

// SearchTermsOutput defines the output schema for the search_terms tool.
type SearchTermsOutput struct {
	Terms     []searchbridge.Term `json:"terms"`
	Truncated bool                `json:"truncated,omitempty"`
}

// TokenizeInput defines the input schema for the tokenize tool.
type TokenizeInput struct {
	Text      string `json:"text" jsonschema:"text to analyze"`
	Tokenizer string `json:"tokenizer,omitempty" jsonschema:"pipeline name known to the index, default 'default'"`
}

// TokenizeOutput defines the output schema for the tokenize tool.
type TokenizeOutput struct {
	Tokenizer string               `json:"tokenizer"`
	Tokens    []searchbridge.Token `json:"tokens"`
}

// IndexStatusInput defines the input schema for the index_status tool (no parameters).
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	Path    string                   `json:"path"`
	NumDocs uint64                   `json:"num_docs"`
	Opstamp string                   `json:"opstamp"`
	Fields  []FieldInfo              `json:"fields"`
	Queries *telemetry.Snapshot      `json:"queries,omitempty"`
	Ingest  *ingest.ProgressSnapshot `json:"ingest,omitempty"`
}

// FieldInfo describes one schema field.
type FieldInfo struct {
	ID        uint32 `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Stored    bool   `json:"stored,omitempty"`
	Tokenizer string `json:"tokenizer,omitempty"`
}
