package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/searchbridge/internal/analysis"
	sberrors "github.com/Aman-CERP/searchbridge/internal/errors"
	"github.com/Aman-CERP/searchbridge/internal/ingest"
	"github.com/Aman-CERP/searchbridge/internal/telemetry"
	"github.com/Aman-CERP/searchbridge/pkg/bridge"
	"github.com/Aman-CERP/searchbridge/pkg/searchbridge"
	"github.com/Aman-CERP/searchbridge/pkg/version"
)

// ServerName is the implementation name reported to clients.
const ServerName = "searchbridge"

// Limits applied to tool inputs.
const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 100
	DefaultTermsLimit  = 100
	MaxTermsLimit      = 10_000
)

// Options configures a Server.
type Options struct {
	// DefaultLimit is the number of hits returned when the client gives none.
	DefaultLimit int
	// DefaultFields are searched by unfielded query terms.
	DefaultFields []string
}

// Server is the MCP server. It answers tool calls from one open index.
type Server struct {
	mcp    *mcp.Server
	idx    *searchbridge.Index
	opts    Options
	logger  *slog.Logger
	metrics *telemetry.Metrics

	// Ingest progress of a concurrent `index --watch` (nil if none).
	progress *ingest.Progress

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "search",
		Description: "Full-text search over the index. Accepts query-string syntax: field:term, \"phrases\", prefix*, fuzzy~1, AND/OR/NOT and numeric ranges such as year:>=1950.",
	},
	{
		Name:        "search_terms",
		Description: "List the indexed terms of a field with their document frequencies, optionally filtered by a regular expression. Use it to discover spellings before searching.",
	},
	{
		Name:        "tokenize",
		Description: "Show how a tokenizer pipeline splits and normalizes text, with byte and codepoint offsets. Use it to understand why a query does or does not match.",
	},
	{
		Name:        "index_status",
		Description: "Report the number of committed documents, the last commit opstamp, the schema fields, query statistics and any ingest in progress.",
	},
}

// NewServer creates an MCP server for idx. The server keeps its own clone
// of the handle, so the caller may release idx.
func NewServer(idx *searchbridge.Index, opts Options) (*Server, error) {
	if idx == nil {
		return nil, errors.New("index is required")
	}
	clone, err := idx.Clone()
	if err != nil {
		return nil, err
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultSearchLimit
	}

	s := &Server{
		idx:     clone,
		opts:    opts,
		logger:  slog.Default(),
		metrics: telemetry.New(telemetry.Config{}),
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	s.registerResources()
	return s, nil
}

// SetIngestProgress attaches the progress of a concurrent ingest so
// index_status can report it.
func (s *Server) SetIngestProgress(p *ingest.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = p
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

// CallTool invokes a tool by name with JSON-shaped arguments. It serves
// the same handlers the MCP transport does.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return nil, NewInvalidParamsError(err.Error())
	}
	decode := func(v any) error {
		if err := json.Unmarshal(data, v); err != nil {
			return NewInvalidParamsError(fmt.Sprintf("invalid arguments for %s: %v", name, err))
		}
		return nil
	}

	switch name {
	case "search":
		var in SearchInput
		if err := decode(&in); err != nil {
			return nil, err
		}
		return s.search(ctx, in)
	case "search_terms":
		var in SearchTermsInput
		if err := decode(&in); err != nil {
			return nil, err
		}
		return s.searchTerms(ctx, in)
	case "tokenize":
		var in TokenizeInput
		if err := decode(&in); err != nil {
			return nil, err
		}
		return s.tokenize(ctx, in)
	case "index_status":
		return s.indexStatus(ctx)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

// searcher takes a searcher on the pool and awaits it.
func (s *Server) searcher(ctx context.Context) (*searchbridge.Searcher, error) {
	return s.idx.SearcherAsync().Await(ctx)
}

func (s *Server) search(ctx context.Context, in SearchInput) (SearchOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return SearchOutput{}, NewInvalidParamsError("query cannot be empty or whitespace only")
	}
	start := time.Now()
	requestID := generateRequestID()
	limit := clampLimit(in.Limit, s.opts.DefaultLimit, 1, MaxSearchLimit)
	fields := in.Fields
	if len(fields) == 0 {
		fields = s.opts.DefaultFields
	}

	s.logger.Info("search_started",
		slog.String("request_id", requestID),
		slog.String("query", in.Query),
		slog.Int("limit", limit))

	searcher, err := s.searcher(ctx)
	if err != nil {
		return SearchOutput{}, s.failedQuery(telemetry.KindSearch, in.Query, requestID, start, err)
	}
	defer searcher.Release()

	hits, err := searcher.SearchAsync(in.Query, searchbridge.SearchOptions{
		Fields:  fields,
		Top:     float64(limit),
		Explain: in.Explain,
	}).Await(ctx)
	if err != nil {
		return SearchOutput{}, s.failedQuery(telemetry.KindSearch, in.Query, requestID, start, err)
	}

	out := SearchOutput{Results: make([]HitOutput, 0, len(hits))}
	for _, h := range hits {
		ho, err := toHitOutput(h)
		if err != nil {
			return SearchOutput{}, s.failedQuery(telemetry.KindSearch, in.Query, requestID, start, err)
		}
		out.Results = append(out.Results, ho)
	}

	elapsed := time.Since(start)
	s.metrics.Record(telemetry.Event{Kind: telemetry.KindSearch, Query: in.Query, Results: len(out.Results), Latency: elapsed})
	s.logger.Info("search_completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", elapsed),
		slog.Int("result_count", len(out.Results)))
	return out, nil
}

func (s *Server) searchTerms(ctx context.Context, in SearchTermsInput) (SearchTermsOutput, error) {
	if in.Field == "" {
		return SearchTermsOutput{}, NewInvalidParamsError("field parameter is required")
	}
	start := time.Now()
	requestID := generateRequestID()
	limit := clampLimit(in.Limit, DefaultTermsLimit, 1, MaxTermsLimit)

	searcher, err := s.searcher(ctx)
	if err != nil {
		return SearchTermsOutput{}, s.failedQuery(telemetry.KindTerms, in.Field, requestID, start, err)
	}
	defer searcher.Release()

	terms, err := searcher.SearchTermsAsync(in.Field, in.Pattern).Await(ctx)
	if err != nil {
		return SearchTermsOutput{}, s.failedQuery(telemetry.KindTerms, in.Field, requestID, start, err)
	}
	s.metrics.Record(telemetry.Event{Kind: telemetry.KindTerms, Query: in.Field, Results: len(terms), Latency: time.Since(start)})

	out := SearchTermsOutput{Terms: terms}
	if out.Terms == nil {
		out.Terms = []searchbridge.Term{}
	}
	if len(out.Terms) > limit {
		out.Terms = out.Terms[:limit]
		out.Truncated = true
	}
	s.logger.Debug("search_terms_completed",
		slog.String("request_id", requestID),
		slog.String("field", in.Field),
		slog.Int("term_count", len(out.Terms)))
	return out, nil
}

func (s *Server) tokenize(ctx context.Context, in TokenizeInput) (TokenizeOutput, error) {
	name := in.Tokenizer
	if name == "" {
		name = analysis.Default
	}
	tok, err := s.idx.Tokenizer(name)
	if err != nil {
		return TokenizeOutput{}, MapError(err)
	}
	tokens, err := bridge.Submit(s.idx.Pool(), func(context.Context) ([]searchbridge.Token, error) {
		return tok.Tokenize(in.Text), nil
	}).Await(ctx)
	if err != nil {
		return TokenizeOutput{}, MapError(err)
	}
	if tokens == nil {
		tokens = []searchbridge.Token{}
	}
	return TokenizeOutput{Tokenizer: name, Tokens: tokens}, nil
}

func (s *Server) indexStatus(ctx context.Context) (*IndexStatusOutput, error) {
	searcher, err := s.searcher(ctx)
	if err != nil {
		return nil, MapError(err)
	}
	defer searcher.Release()

	n, err := searcher.NumDocs()
	if err != nil {
		return nil, MapError(err)
	}
	stamp, err := searcher.Opstamp()
	if err != nil {
		return nil, MapError(err)
	}

	out := &IndexStatusOutput{
		Path:    s.idx.Path(),
		NumDocs: n,
		Opstamp: stamp.String(),
	}
	if out.Path == "" {
		out.Path = ":memory:"
	}
	for _, f := range s.idx.Schema().Fields() {
		fi := FieldInfo{ID: uint32(f.ID), Name: f.Name, Type: string(f.Type), Stored: f.Stored}
		if f.Type == searchbridge.FieldText {
			fi.Tokenizer = f.TokenizerName()
		}
		out.Fields = append(out.Fields, fi)
	}

	queries := s.metrics.Snapshot()
	out.Queries = &queries

	s.mu.RLock()
	progress := s.progress
	s.mu.RUnlock()
	if progress != nil {
		snap := progress.Snapshot()
		out.Ingest = &snap
	}
	return out, nil
}

func (s *Server) failed(tool, requestID string, start time.Time, err error) error {
	s.logger.Error(tool+"_failed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		sberrors.LogAttr(err))
	return MapError(err)
}

// failedQuery records a failed query before logging it.
func (s *Server) failedQuery(kind telemetry.Kind, query, requestID string, start time.Time, err error) error {
	s.metrics.Record(telemetry.Event{Kind: kind, Query: query, Latency: time.Since(start), Failed: true})
	return s.failed(string(kind), requestID, start, err)
}

// QueryStats returns the statistics of the queries answered so far.
func (s *Server) QueryStats() telemetry.Snapshot {
	return s.metrics.Snapshot()
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description},
		func(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
			out, err := s.search(ctx, in)
			return nil, out, err
		})
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description},
		func(ctx context.Context, _ *mcp.CallToolRequest, in SearchTermsInput) (*mcp.CallToolResult, SearchTermsOutput, error) {
			out, err := s.searchTerms(ctx, in)
			return nil, out, err
		})
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description},
		func(ctx context.Context, _ *mcp.CallToolRequest, in TokenizeInput) (*mcp.CallToolResult, TokenizeOutput, error) {
			out, err := s.tokenize(ctx, in)
			return nil, out, err
		})
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[3].Name, Description: tools[3].Description},
		func(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (*mcp.CallToolResult, *IndexStatusOutput, error) {
			out, err := s.indexStatus(ctx)
			return nil, out, err
		})
	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

// Serve runs the server on the given transport until ctx is done.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "", "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_failed", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp_server_stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases the server's index handle.
func (s *Server) Close() error {
	s.idx.Release()
	return nil
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
