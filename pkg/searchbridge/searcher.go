package searchbridge

import (
	"context"

	"github.com/Aman-CERP/searchbridge/internal/engine"
	"github.com/Aman-CERP/searchbridge/internal/errors"
	"github.com/Aman-CERP/searchbridge/internal/query"
	"github.com/Aman-CERP/searchbridge/internal/schema"
	"github.com/Aman-CERP/searchbridge/pkg/boxed"
	"github.com/Aman-CERP/searchbridge/pkg/bridge"
	"github.com/Aman-CERP/searchbridge/pkg/num"
)

// DefaultTop is the number of hits Search returns when Top is zero.
const DefaultTop = 10

// TopDocsOptions tunes TopDocs.
type TopDocsOptions struct {
	// Explain attaches a score explanation to every hit.
	Explain bool
}

// SearchOptions tunes Search.
type SearchOptions struct {
	// Fields are searched by unfielded clauses. Empty selects the index
	// default fields.
	Fields []string

	// Top is the maximum number of hits. Zero selects DefaultTop.
	Top float64

	// Explain attaches a score explanation to every hit.
	Explain bool
}

// Searcher is an immutable point-in-time view of an index. Searches never
// take a lock and run in parallel with each other and with the writer.
type Searcher struct {
	snap     *boxed.Arc[*engine.Snapshot]
	schema   *schema.Schema
	compiler *query.Compiler
	pool     *bridge.Pool
}

// Clone returns another handle to the same snapshot.
func (s *Searcher) Clone() (*Searcher, error) {
	snap, err := s.snap.Clone()
	if err != nil {
		return nil, err
	}
	return &Searcher{snap: snap, schema: s.schema, compiler: s.compiler, pool: s.pool}, nil
}

// Release gives up this handle. The snapshot is closed when the last
// handle is released.
func (s *Searcher) Release() { s.snap.Release() }

// Opstamp returns the opstamp of the commit the searcher sees.
func (s *Searcher) Opstamp() (Opstamp, error) {
	snap, err := s.snap.Get()
	if err != nil {
		return 0, err
	}
	return snap.Opstamp(), nil
}

// NumDocs returns the number of documents the searcher sees.
func (s *Searcher) NumDocs() (uint64, error) {
	snap, err := s.snap.Get()
	if err != nil {
		return 0, err
	}
	return snap.NumDocs()
}

func topDocsOp(q *Query, limit uint32, opts TopDocsOptions) bridge.HandleOp[*Searcher, []Hit] {
	return func(ctx context.Context, s *Searcher) ([]Hit, error) {
		if q == nil {
			return nil, errors.InvalidArgument("query must not be nil")
		}
		if q.schema != s.schema {
			return nil, errors.InvalidArgument("query was compiled for another index schema")
		}
		snap, err := s.snap.Get()
		if err != nil {
			return nil, err
		}
		hits, err := snap.TopDocs(ctx, q.q, int(limit), opts.Explain)
		if err != nil {
			return nil, err
		}
		out := make([]Hit, 0, len(hits))
		for _, h := range hits {
			hit, err := toHit(h)
			if err != nil {
				return nil, err
			}
			out = append(out, hit)
		}
		return out, nil
	}
}

func searchOp(text string, fields []string, limit uint32, explain bool) bridge.HandleOp[*Searcher, []Hit] {
	return func(ctx context.Context, s *Searcher) ([]Hit, error) {
		q, err := s.compiler.Parse(text, fields)
		if err != nil {
			return nil, err
		}
		return topDocsOp(&Query{q: q, schema: s.schema}, limit, TopDocsOptions{Explain: explain})(ctx, s)
	}
}

func searchTermsOp(field, pattern string) bridge.HandleOp[*Searcher, []Term] {
	return func(_ context.Context, s *Searcher) ([]Term, error) {
		snap, err := s.snap.Get()
		if err != nil {
			return nil, err
		}
		return snap.SearchTerms(field, pattern)
	}
}

func searchLimit(top float64) (uint32, error) {
	if top == 0 {
		return DefaultTop, nil
	}
	return num.ToUint32(top)
}

// TopDocs runs q and returns at most limit hits, best first. limit must be
// a non-negative integer; zero returns no hits.
func (s *Searcher) TopDocs(ctx context.Context, q *Query, limit float64, opts TopDocsOptions) ([]Hit, error) {
	n, err := num.ToUint32(limit)
	if err != nil {
		return nil, err
	}
	return bridge.RunWith(ctx, s, topDocsOp(q, n, opts))
}

// TopDocsAsync is the deferred form of TopDocs.
func (s *Searcher) TopDocsAsync(q *Query, limit float64, opts TopDocsOptions) *Promise[[]Hit] {
	n, err := num.ToUint32(limit)
	if err != nil {
		return bridge.Reject[[]Hit](s.pool, err)
	}
	return bridge.SubmitWith(s.pool, s, topDocsOp(q, n, opts))
}

// Search parses text as a query string and runs it.
func (s *Searcher) Search(ctx context.Context, text string, opts SearchOptions) ([]Hit, error) {
	n, err := searchLimit(opts.Top)
	if err != nil {
		return nil, err
	}
	return bridge.RunWith(ctx, s, searchOp(text, opts.Fields, n, opts.Explain))
}

// SearchAsync is the deferred form of Search.
func (s *Searcher) SearchAsync(text string, opts SearchOptions) *Promise[[]Hit] {
	n, err := searchLimit(opts.Top)
	if err != nil {
		return bridge.Reject[[]Hit](s.pool, err)
	}
	return bridge.SubmitWith(s.pool, s, searchOp(text, opts.Fields, n, opts.Explain))
}

// SearchTerms lists a text or string field's terms, optionally filtered
// by a regular expression that must match the whole term.
func (s *Searcher) SearchTerms(ctx context.Context, field, pattern string) ([]Term, error) {
	return bridge.RunWith(ctx, s, searchTermsOp(field, pattern))
}

// SearchTermsAsync is the deferred form of SearchTerms.
func (s *Searcher) SearchTermsAsync(field, pattern string) *Promise[[]Term] {
	return bridge.SubmitWith(s.pool, s, searchTermsOp(field, pattern))
}
