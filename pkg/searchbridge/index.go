package searchbridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Aman-CERP/searchbridge/internal/descriptor"
	"github.com/Aman-CERP/searchbridge/internal/engine"
	"github.com/Aman-CERP/searchbridge/internal/errors"
	"github.com/Aman-CERP/searchbridge/internal/query"
	"github.com/Aman-CERP/searchbridge/pkg/boxed"
	"github.com/Aman-CERP/searchbridge/pkg/bridge"
	"github.com/Aman-CERP/searchbridge/pkg/num"
)

type (
	// Opstamp identifies a writer operation. It encodes to JSON as a
	// decimal string so no precision is lost.
	Opstamp = num.Opstamp
	// ReloadPolicy is when a reader picks up new commits.
	ReloadPolicy = descriptor.ReloadPolicy
	// Promise is the pending result of an Async operation.
	Promise[T any] = bridge.Promise[T]
)

// Reload policies.
const (
	ReloadOnCommitWithDelay = descriptor.ReloadOnCommitWithDelay
	ReloadManual            = descriptor.ReloadManual
)

// ParseReloadPolicy resolves "commit_with_delay" or "manual".
func ParseReloadPolicy(s string) (ReloadPolicy, error) { return descriptor.ParseReloadPolicy(s) }

// IndexOptions configures CreateIndex and OpenIndex.
type IndexOptions struct {
	// Path is the index directory. Empty creates an in-memory index.
	Path string

	// HeapSize is the writer's buffer budget in bytes. It must be a
	// non-negative integer; zero selects the engine default.
	HeapSize float64

	// Schema is required by CreateIndex. OpenIndex uses it to create the
	// index when absent and otherwise checks it against the stored one.
	Schema *Schema

	// ReloadOn is the reader's reload policy.
	ReloadOn ReloadPolicy

	// ReloadDelay is the pause between a commit and the automatic reload.
	// Zero selects 500ms.
	ReloadDelay time.Duration

	// Pool runs Async operations. Nil selects bridge.Default().
	Pool *bridge.Pool

	// DefaultFields are searched by unfielded query text. Empty selects
	// every text and string field.
	DefaultFields []string

	// QueryCacheSize bounds the parsed-query cache.
	QueryCacheSize int

	// MaxExpansions caps phrase-prefix expansion.
	MaxExpansions int
}

// writerSlot opens the engine writer on first use, so handles that only
// search never take the writer lock.
type writerSlot struct {
	idx    *engine.Index
	budget uint64
	w      *engine.Writer
}

func (s *writerSlot) writer() (*engine.Writer, error) {
	if s.w == nil {
		w, err := s.idx.Writer(s.budget)
		if err != nil {
			return nil, err
		}
		s.w = w
	}
	return s.w, nil
}

// Index is a handle to an open index. Clones share the engine index, its
// writer and its reader. The last released handle closes them.
type Index struct {
	core     *boxed.Arc[*engine.Index]
	writer   *boxed.Shared[writerSlot]
	reader   *boxed.Shared[*engine.Reader]
	compiler *query.Compiler
	schema   *Schema
	pool     *bridge.Pool
}

// CreateIndex creates a new index. An existing index at Path fails with
// IndexExists.
func CreateIndex(opts IndexOptions) (*Index, error) {
	if opts.Schema == nil {
		return nil, errors.InvalidArgument("a schema is required to create an index")
	}
	budget, err := num.ToU53(opts.HeapSize)
	if err != nil {
		return nil, err
	}

	var idx *engine.Index
	if opts.Path == "" {
		idx, err = engine.CreateInMemory(opts.Schema.s)
	} else {
		idx, err = engine.Create(opts.Schema.s, opts.Path)
	}
	if err != nil {
		return nil, err
	}
	return wrapIndex(idx, budget, opts)
}

// OpenIndex opens the index at Path. With a Schema the index is created
// when absent.
func OpenIndex(opts IndexOptions) (*Index, error) {
	if opts.Path == "" {
		return nil, errors.InvalidArgument("a path is required to open an index")
	}
	budget, err := num.ToU53(opts.HeapSize)
	if err != nil {
		return nil, err
	}

	var idx *engine.Index
	if opts.Schema != nil {
		idx, err = engine.OpenOrCreate(opts.Schema.s, opts.Path)
	} else {
		idx, err = engine.Open(opts.Path)
	}
	if err != nil {
		return nil, err
	}
	return wrapIndex(idx, budget, opts)
}

func wrapIndex(idx *engine.Index, budget uint64, opts IndexOptions) (*Index, error) {
	compiler, err := query.NewCompiler(idx.Schema(), query.Options{
		DefaultFields: opts.DefaultFields,
		CacheSize:     opts.QueryCacheSize,
		MaxExpansions: opts.MaxExpansions,
	})
	if err != nil {
		_ = idx.Close()
		return nil, err
	}
	reader, err := idx.Reader(opts.ReloadOn, opts.ReloadDelay)
	if err != nil {
		_ = idx.Close()
		return nil, err
	}

	pool := opts.Pool
	if pool == nil {
		pool = bridge.Default()
	}
	return &Index{
		core: boxed.NewArc(idx, func(i *engine.Index) {
			if err := i.Close(); err != nil {
				slog.Warn("index_close_failed", slog.String("error", err.Error()))
			}
		}),
		writer: boxed.NewShared(writerSlot{idx: idx, budget: budget}, func(s writerSlot) {
			if s.w != nil {
				_ = s.w.Close()
			}
		}),
		reader:   boxed.NewShared(reader, (*engine.Reader).Close),
		compiler: compiler,
		schema:   &Schema{s: idx.Schema()},
		pool:     pool,
	}, nil
}

// Clone returns another handle to the same index.
func (x *Index) Clone() (*Index, error) {
	core, err := x.core.Clone()
	if err != nil {
		return nil, err
	}
	w, err := x.writer.Clone()
	if err != nil {
		core.Release()
		return nil, err
	}
	r, err := x.reader.Clone()
	if err != nil {
		w.Release()
		core.Release()
		return nil, err
	}
	return &Index{core: core, writer: w, reader: r, compiler: x.compiler, schema: x.schema, pool: x.pool}, nil
}

// Release gives up this handle. Safe to call multiple times.
func (x *Index) Release() {
	x.writer.Release()
	x.reader.Release()
	x.core.Release()
}

// Schema returns the index schema.
func (x *Index) Schema() *Schema { return x.schema }

// Path returns the index directory, empty for in-memory indexes.
func (x *Index) Path() string {
	idx, err := x.core.Get()
	if err != nil {
		return ""
	}
	return idx.Path()
}

// Query compiles a structured query against the index schema.
func (x *Index) Query(desc QueryDescriptor) (*Query, error) {
	q, err := x.compiler.Compile(desc)
	if err != nil {
		return nil, err
	}
	return &Query{q: q, schema: x.schema.s}, nil
}

// ParseQuery compiles query-string text searched over fields, or over the
// default fields when fields is empty.
func (x *Index) ParseQuery(text string, fields []string) (*Query, error) {
	q, err := x.compiler.Parse(text, fields)
	if err != nil {
		return nil, err
	}
	return &Query{q: q, schema: x.schema.s}, nil
}

// RegisterTokenizer makes a pipeline available to text fields under name.
func (x *Index) RegisterTokenizer(name string, t *Tokenizer) error {
	if t == nil {
		return errors.InvalidArgument("tokenizer must not be nil")
	}
	idx, err := x.core.Get()
	if err != nil {
		return err
	}
	return idx.RegisterTokenizer(name, t.Descriptor())
}

// Tokenizer looks up a pipeline known to the index: a built-in, one
// declared by the schema or one registered at runtime.
func (x *Index) Tokenizer(name string) (*Tokenizer, error) {
	idx, err := x.core.Get()
	if err != nil {
		return nil, err
	}
	p, ok := idx.Pipeline(name)
	if !ok {
		return nil, errors.UnknownOption("tokenizer", name)
	}
	return &Tokenizer{p: p}, nil
}

// Pool returns the pool that runs the index's Async operations.
func (x *Index) Pool() *bridge.Pool { return x.pool }

// NumDocs returns the number of committed documents.
func (x *Index) NumDocs() (uint64, error) {
	idx, err := x.core.Get()
	if err != nil {
		return 0, err
	}
	return idx.DocCount()
}

// encodeDocument turns a caller value into JSON on the caller's goroutine,
// before any hand-off.
func encodeDocument(doc any) ([]byte, error) {
	switch d := doc.(type) {
	case nil:
		return nil, errors.InvalidArgument("document must not be nil")
	case []byte:
		return d, nil
	case json.RawMessage:
		return d, nil
	case string:
		return []byte(d), nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Newf(errors.ErrCodeDocumentParse, "document is not JSON encodable: %v", err)
	}
	return data, nil
}

func addDocumentOp(data []byte) bridge.HandleOp[*Index, Opstamp] {
	return func(_ context.Context, x *Index) (Opstamp, error) {
		return boxed.Locked(x.writer, func(s *writerSlot) (Opstamp, error) {
			w, err := s.writer()
			if err != nil {
				return 0, err
			}
			return w.AddDocument(data)
		})
	}
}

func commitOp(_ context.Context, x *Index) (Opstamp, error) {
	return boxed.Locked(x.writer, func(s *writerSlot) (Opstamp, error) {
		w, err := s.writer()
		if err != nil {
			return 0, err
		}
		return w.Commit()
	})
}

func rollbackOp(_ context.Context, x *Index) (Opstamp, error) {
	return boxed.Locked(x.writer, func(s *writerSlot) (Opstamp, error) {
		w, err := s.writer()
		if err != nil {
			return 0, err
		}
		return w.Rollback()
	})
}

func reloadOp(_ context.Context, x *Index) (struct{}, error) {
	return struct{}{}, x.reader.Lock(func(r **engine.Reader) error {
		return (*r).Reload()
	})
}

func searcherOp(_ context.Context, x *Index) (*Searcher, error) {
	snap, err := boxed.Locked(x.reader, func(r **engine.Reader) (*boxed.Arc[*engine.Snapshot], error) {
		return (*r).Searcher()
	})
	if err != nil {
		return nil, err
	}
	return &Searcher{snap: snap, schema: x.schema.s, compiler: x.compiler, pool: x.pool}, nil
}

// AddDocument validates doc against the schema and buffers it in the
// writer. doc is JSON text ([]byte, string, json.RawMessage) or any value
// encoding to a JSON object.
func (x *Index) AddDocument(ctx context.Context, doc any) (Opstamp, error) {
	data, err := encodeDocument(doc)
	if err != nil {
		return 0, err
	}
	return bridge.RunWith(ctx, x, addDocumentOp(data))
}

// AddDocumentAsync is the deferred form of AddDocument.
func (x *Index) AddDocumentAsync(doc any) *Promise[Opstamp] {
	data, err := encodeDocument(doc)
	if err != nil {
		return bridge.Reject[Opstamp](x.pool, err)
	}
	return bridge.SubmitWith(x.pool, x, addDocumentOp(data))
}

// Commit makes buffered documents durable. Concurrent commits queue on the
// writer lock.
func (x *Index) Commit(ctx context.Context) (Opstamp, error) {
	return bridge.RunWith(ctx, x, commitOp)
}

// CommitAsync is the deferred form of Commit.
func (x *Index) CommitAsync() *Promise[Opstamp] {
	return bridge.SubmitWith(x.pool, x, commitOp)
}

// Rollback discards buffered documents and returns the last committed
// opstamp.
func (x *Index) Rollback(ctx context.Context) (Opstamp, error) {
	return bridge.RunWith(ctx, x, rollbackOp)
}

// RollbackAsync is the deferred form of Rollback.
func (x *Index) RollbackAsync() *Promise[Opstamp] {
	return bridge.SubmitWith(x.pool, x, rollbackOp)
}

// Reload refreshes the reader to the latest commit.
func (x *Index) Reload(ctx context.Context) error {
	_, err := bridge.RunWith(ctx, x, reloadOp)
	return err
}

// ReloadAsync is the deferred form of Reload.
func (x *Index) ReloadAsync() *Promise[struct{}] {
	return bridge.SubmitWith(x.pool, x, reloadOp)
}

// Searcher returns a point-in-time searcher over the reader's snapshot.
// Release it when done.
func (x *Index) Searcher(ctx context.Context) (*Searcher, error) {
	return bridge.RunWith(ctx, x, searcherOp)
}

// SearcherAsync is the deferred form of Searcher.
func (x *Index) SearcherAsync() *Promise[*Searcher] {
	return bridge.SubmitWith(x.pool, x, searcherOp)
}

// Poisoned reports whether a failure inside the writer or reader lock left
// it poisoned. A poisoned lock fails every later operation with
// LockPoisoned.
func (x *Index) Poisoned() bool {
	return x.writer.Poisoned() || x.reader.Poisoned()
}
