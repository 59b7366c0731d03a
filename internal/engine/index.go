// Package engine owns the bleve index behind a searchbridge handle: the
// on-disk or in-memory index, its single writer, its readers and the
// point-in-time snapshots searches run against.
package engine

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	index "github.com/blevesearch/bleve_index_api"

	"github.com/Aman-CERP/searchbridge/internal/analysis"
	"github.com/Aman-CERP/searchbridge/internal/descriptor"
	"github.com/Aman-CERP/searchbridge/internal/errors"
	"github.com/Aman-CERP/searchbridge/internal/schema"
	"github.com/Aman-CERP/searchbridge/pkg/num"
)

// Internal metadata keys. They live beside the segments and are committed
// atomically with the documents they describe.
var (
	keySchema     = []byte("_searchbridge_schema")
	keyTokenizers = []byte("_searchbridge_tokenizers")
	keyOpstamp    = []byte("_searchbridge_opstamp")
)

// Index is an open bleve index plus the schema it was created with.
// Index is safe for concurrent use.
type Index struct {
	mu        sync.RWMutex
	bleve     bleve.Index
	adv       index.Index
	path      string
	schema    *schema.Schema
	pipelines map[string]*analysis.Pipeline
	runtime   []schema.NamedTokenizer
	mapping   *mapping.IndexMappingImpl
	lock      *writerLock
	readers   map[*Reader]struct{}
	writer    *Writer
	subs      map[int]func(num.Opstamp)
	nextSub   int
	closed    bool
}

// Create creates a new index at path. An index already present at path
// fails with IndexExists.
func Create(s *schema.Schema, path string) (*Index, error) {
	if path == "" {
		return nil, errors.InvalidArgument("index path must not be empty")
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, errors.StorageError("failed to create index directory", err).WithDetail("path", path)
	}

	b, err := bleve.New(path, bareMapping())
	if err == bleve.ErrorIndexPathExists {
		return nil, errors.New(errors.ErrCodeIndexExists, "an index already exists at "+path, err).
			WithSuggestion("Open the existing index or choose another directory")
	}
	if err != nil {
		return nil, errors.StorageError("failed to create index", err).WithDetail("path", path)
	}
	return initialize(b, s, path)
}

// CreateInMemory creates an index that lives only in memory.
func CreateInMemory(s *schema.Schema) (*Index, error) {
	b, err := bleve.NewMemOnly(bareMapping())
	if err != nil {
		return nil, errors.StorageError("failed to create in-memory index", err)
	}
	return initialize(b, s, "")
}

// Open opens an existing index. The schema is read from the index.
func Open(path string) (*Index, error) {
	if path == "" {
		return nil, errors.InvalidArgument("index path must not be empty")
	}
	b, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		return nil, errors.StorageError("no index at "+path, err).
			WithSuggestion("Create the index first")
	}
	if err != nil {
		return nil, errors.StorageError("failed to open index", err).WithDetail("path", path)
	}

	idx, err := load(b, path)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	return idx, nil
}

// OpenOrCreate opens the index at path, creating it when absent. An
// existing index must have been created with an identical schema.
func OpenOrCreate(s *schema.Schema, path string) (*Index, error) {
	if _, err := os.Stat(filepath.Join(path, "index_meta.json")); os.IsNotExist(err) {
		return Create(s, path)
	}
	idx, err := Open(path)
	if err != nil {
		return nil, err
	}
	want, _ := json.Marshal(s)
	have, _ := json.Marshal(idx.schema)
	if string(want) != string(have) {
		_ = idx.Close()
		return nil, errors.InvalidArgument("schema does not match the index at %s", path).
			WithSuggestion("Open the index without a schema or use a new directory")
	}
	return idx, nil
}

// bareMapping is handed to bleve only to create the index: documents are
// analyzed by their own fields and queries by Index.Mapping.
func bareMapping() *mapping.IndexMappingImpl {
	m := bleve.NewIndexMapping()
	m.DefaultMapping.Dynamic = false
	m.StoreDynamic = false
	m.IndexDynamic = false
	return m
}

func initialize(b bleve.Index, s *schema.Schema, path string) (*Index, error) {
	data, err := json.Marshal(s)
	if err != nil {
		_ = b.Close()
		return nil, errors.InternalError("failed to encode schema", err)
	}
	batch := b.NewBatch()
	batch.SetInternal(keySchema, data)
	batch.SetInternal(keyOpstamp, encodeOpstamp(0))
	if err := b.Batch(batch); err != nil {
		_ = b.Close()
		return nil, errors.StorageError("failed to write index metadata", err)
	}

	idx, err := newIndex(b, s, nil, path)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	slog.Info("index_created",
		slog.String("path", displayPath(path)),
		slog.Int("fields", s.Len()))
	return idx, nil
}

func load(b bleve.Index, path string) (*Index, error) {
	data, err := b.GetInternal(keySchema)
	if err != nil {
		return nil, errors.StorageError("failed to read index metadata", err)
	}
	if data == nil {
		return nil, errors.New(errors.ErrCodeCorruptIndex, "index at "+path+" has no schema", nil).
			WithSuggestion("The directory was not created by searchbridge")
	}
	s, err := schema.Unmarshal(data)
	if err != nil {
		return nil, err
	}

	var runtime []schema.NamedTokenizer
	if raw, err := b.GetInternal(keyTokenizers); err != nil {
		return nil, errors.StorageError("failed to read index metadata", err)
	} else if raw != nil {
		if err := json.Unmarshal(raw, &runtime); err != nil {
			return nil, errors.New(errors.ErrCodeCorruptIndex, "stored tokenizers are unreadable", err)
		}
	}

	idx, err := newIndex(b, s, runtime, path)
	if err != nil {
		return nil, err
	}
	slog.Info("index_opened",
		slog.String("path", path),
		slog.Int("fields", s.Len()),
		slog.Int("runtime_tokenizers", len(runtime)))
	return idx, nil
}

func newIndex(b bleve.Index, s *schema.Schema, runtime []schema.NamedTokenizer, path string) (*Index, error) {
	adv, err := b.Advanced()
	if err != nil {
		return nil, errors.StorageError("failed to access index internals", err)
	}
	idx := &Index{
		bleve:     b,
		adv:       adv,
		path:      path,
		schema:    s,
		pipelines: analysis.Builtins(),
		lock:      newWriterLock(path),
		readers:   make(map[*Reader]struct{}),
		subs:      make(map[int]func(num.Opstamp)),
	}
	for _, nt := range s.Tokenizers() {
		p, err := analysis.Compile(nt.Tokenizer)
		if err != nil {
			return nil, err
		}
		idx.pipelines[nt.Name] = p
	}
	for _, nt := range runtime {
		p, err := analysis.Compile(nt.Tokenizer)
		if err != nil {
			return nil, err
		}
		idx.pipelines[nt.Name] = p
		idx.runtime = append(idx.runtime, nt)
	}
	if idx.mapping, err = s.Mapping(idx.pipelines); err != nil {
		return nil, err
	}
	return idx, nil
}

// Path returns the index directory, empty for in-memory indexes.
func (i *Index) Path() string { return i.path }

// Schema returns the index schema.
func (i *Index) Schema() *schema.Schema { return i.schema }

// Mapping returns the mapping queries are analyzed with. It changes when a
// tokenizer is registered.
func (i *Index) Mapping() mapping.IndexMapping {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.mapping
}

// Pipeline looks up a tokenizer pipeline by name.
func (i *Index) Pipeline(name string) (*analysis.Pipeline, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	p, ok := i.pipelines[name]
	return p, ok
}

// RegisterTokenizer makes a pipeline available under name, replacing an
// earlier registration. The registration is persisted with the index so a
// reopened index analyzes text the same way. Built-in names are reserved.
func (i *Index) RegisterTokenizer(name string, desc descriptor.TokenizerDescriptor) error {
	if name == "" {
		return errors.InvalidArgument("tokenizer name must not be empty")
	}
	if _, ok := analysis.Builtins()[name]; ok {
		return errors.InvalidArgument("tokenizer %q is built in and cannot be replaced", name)
	}
	p, err := analysis.Compile(desc)
	if err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return errors.IllegalState("index is closed")
	}

	pipelines := make(map[string]*analysis.Pipeline, len(i.pipelines)+1)
	for k, v := range i.pipelines {
		pipelines[k] = v
	}
	pipelines[name] = p
	m, err := i.schema.Mapping(pipelines)
	if err != nil {
		return err
	}

	runtime := make([]schema.NamedTokenizer, 0, len(i.runtime)+1)
	for _, nt := range i.runtime {
		if nt.Name != name {
			runtime = append(runtime, nt)
		}
	}
	runtime = append(runtime, schema.NamedTokenizer{Name: name, Tokenizer: desc})
	data, err := json.Marshal(runtime)
	if err != nil {
		return errors.InternalError("failed to encode tokenizers", err)
	}
	if err := i.bleve.SetInternal(keyTokenizers, data); err != nil {
		return errors.StorageError("failed to persist tokenizer", err)
	}

	i.pipelines = pipelines
	i.mapping = m
	i.runtime = runtime
	slog.Debug("tokenizer_registered", slog.String("name", name))
	return nil
}

// DocCount returns the number of committed documents.
func (i *Index) DocCount() (uint64, error) {
	n, err := i.bleve.DocCount()
	if err != nil {
		return 0, errors.StorageError("failed to count documents", err)
	}
	return n, nil
}

// CommittedOpstamp returns the opstamp of the last successful commit.
func (i *Index) CommittedOpstamp() (num.Opstamp, error) {
	raw, err := i.bleve.GetInternal(keyOpstamp)
	if err != nil {
		return 0, errors.StorageError("failed to read index metadata", err)
	}
	return decodeOpstamp(raw)
}

// Closed reports whether Close has been called.
func (i *Index) Closed() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.closed
}

// Close closes readers, rolls back and closes an open writer, and closes
// the bleve index. Snapshots already handed out keep working until they
// are released. Safe to call multiple times.
func (i *Index) Close() error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil
	}
	i.closed = true
	readers := make([]*Reader, 0, len(i.readers))
	for r := range i.readers {
		readers = append(readers, r)
	}
	w := i.writer
	i.subs = map[int]func(num.Opstamp){}
	i.mu.Unlock()

	for _, r := range readers {
		r.Close()
	}
	if w != nil {
		_ = w.Close()
	}
	if err := i.bleve.Close(); err != nil {
		return errors.StorageError("failed to close index", err)
	}
	slog.Debug("index_closed", slog.String("path", displayPath(i.path)))
	return nil
}

// onCommit subscribes fn to successful commits. The returned func
// unsubscribes.
func (i *Index) onCommit(fn func(num.Opstamp)) func() {
	i.mu.Lock()
	defer i.mu.Unlock()
	id := i.nextSub
	i.nextSub++
	i.subs[id] = fn
	return func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		delete(i.subs, id)
	}
}

func (i *Index) notifyCommit(stamp num.Opstamp) {
	i.mu.RLock()
	fns := make([]func(num.Opstamp), 0, len(i.subs))
	for _, fn := range i.subs {
		fns = append(fns, fn)
	}
	i.mu.RUnlock()
	for _, fn := range fns {
		fn(stamp)
	}
}

func encodeOpstamp(o num.Opstamp) []byte {
	return strconv.AppendUint(nil, uint64(o), 10)
}

func decodeOpstamp(raw []byte) (num.Opstamp, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	v, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, errors.New(errors.ErrCodeCorruptIndex, "stored opstamp is unreadable", err)
	}
	return num.Opstamp(v), nil
}

func displayPath(path string) string {
	if path == "" {
		return ":memory:"
	}
	return path
}
