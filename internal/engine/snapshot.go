package engine

import (
	"context"
	"log/slog"
	"regexp"
	"slices"

	"github.com/blevesearch/bleve/v2/document"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/collector"
	index "github.com/blevesearch/bleve_index_api"

	"github.com/Aman-CERP/searchbridge/internal/descriptor"
	"github.com/Aman-CERP/searchbridge/internal/errors"
	"github.com/Aman-CERP/searchbridge/internal/query"
	"github.com/Aman-CERP/searchbridge/internal/schema"
	"github.com/Aman-CERP/searchbridge/pkg/num"
)

// Snapshot is a point-in-time view of the committed index. It is immutable
// and safe for concurrent searches. Commits made after it was taken are
// not visible through it.
type Snapshot struct {
	reader  index.IndexReader
	schema  *schema.Schema
	mapping mapping.IndexMapping
	opstamp num.Opstamp
}

// Hit is one search result.
type Hit struct {
	Score       float64
	DocID       string
	Doc         *Document
	Explanation *search.Explanation
}

// Document is a stored document with its values in schema order.
type Document struct {
	ID     string
	Fields []FieldValues
}

// FieldValues holds the stored values of one field: strings for text and
// string fields, float64 for numeric fields.
type FieldValues struct {
	Field  schema.Field
	Values []any
}

// Term is a dictionary entry.
type Term struct {
	Text    string `json:"term"`
	DocFreq uint64 `json:"doc_freq"`
}

func (i *Index) snapshot() (*Snapshot, error) {
	r, err := i.adv.Reader()
	if err != nil {
		return nil, errors.New(errors.ErrCodeReload, "failed to open index reader", err)
	}
	raw, err := r.GetInternal(keyOpstamp)
	if err != nil {
		_ = r.Close()
		return nil, errors.New(errors.ErrCodeReload, "failed to read index metadata", err)
	}
	stamp, err := decodeOpstamp(raw)
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	return &Snapshot{
		reader:  r,
		schema:  i.schema,
		mapping: i.Mapping(),
		opstamp: stamp,
	}, nil
}

func (s *Snapshot) close() {
	if err := s.reader.Close(); err != nil {
		slog.Warn("snapshot_close_failed", slog.String("error", err.Error()))
	}
}

// Schema returns the schema of the snapshot's index.
func (s *Snapshot) Schema() *schema.Schema { return s.schema }

// Opstamp returns the opstamp of the commit the snapshot reflects.
func (s *Snapshot) Opstamp() num.Opstamp { return s.opstamp }

// NumDocs returns the number of documents in the snapshot.
func (s *Snapshot) NumDocs() (uint64, error) {
	n, err := s.reader.DocCount()
	if err != nil {
		return 0, errors.New(errors.ErrCodeSearch, "failed to count documents", err)
	}
	return n, nil
}

// TopDocs runs q and returns at most limit hits, best first. Equal scores
// keep the order in which the engine matched the documents. A limit of
// zero returns no hits.
func (s *Snapshot) TopDocs(ctx context.Context, q *query.Query, limit int, explain bool) ([]Hit, error) {
	if limit < 0 {
		return nil, errors.InvalidArgument("limit must not be negative")
	}
	total, err := s.NumDocs()
	if err != nil {
		return nil, err
	}
	if uint64(limit) > total {
		limit = int(total)
	}
	if limit == 0 {
		return []Hit{}, nil
	}

	searcher, err := q.Native().Searcher(ctx, s.reader, s.mapping, search.SearcherOptions{Explain: explain})
	if err != nil {
		return nil, searchErr(err)
	}
	defer func() { _ = searcher.Close() }()

	coll := collector.NewTopNCollector(limit, 0, search.SortOrder{&search.SortScore{Desc: true}})
	if err := coll.Collect(ctx, searcher, s.reader); err != nil {
		return nil, searchErr(err)
	}

	matches := coll.Results()
	slices.SortStableFunc(matches, func(a, b *search.DocumentMatch) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		case a.HitNumber < b.HitNumber:
			return -1
		case a.HitNumber > b.HitNumber:
			return 1
		}
		return 0
	})

	hits := make([]Hit, 0, len(matches))
	for _, m := range matches {
		doc, err := s.Doc(m.ID)
		if err != nil {
			return nil, err
		}
		hits = append(hits, Hit{Score: m.Score, DocID: m.ID, Doc: doc, Explanation: m.Expl})
	}
	return hits, nil
}

// Doc loads the stored fields of a document.
func (s *Snapshot) Doc(id string) (*Document, error) {
	d, err := s.reader.Document(id)
	if err != nil {
		return nil, searchErr(err)
	}
	if d == nil {
		return nil, errors.InvalidArgument("no document with id %s", id)
	}

	values := make(map[schema.FieldID][]any)
	d.VisitFields(func(f index.Field) {
		field, ok := s.schema.FieldByEngineName(f.Name())
		if !ok {
			return
		}
		switch v := f.(type) {
		case *document.TextField:
			values[field.ID] = append(values[field.ID], v.Text())
		case *document.NumericField:
			if n, err := v.Number(); err == nil {
				values[field.ID] = append(values[field.ID], n)
			}
		}
	})

	out := &Document{ID: id}
	for _, f := range s.schema.Fields() {
		if vs, ok := values[f.ID]; ok {
			out.Fields = append(out.Fields, FieldValues{Field: f, Values: vs})
		}
	}
	return out, nil
}

// SearchTerms lists the terms of a field's dictionary in lexical order.
// A non-empty pattern is a regular expression that must match the whole
// term.
func (s *Snapshot) SearchTerms(fieldName, pattern string) ([]Term, error) {
	f, ok := s.schema.Field(fieldName)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeQueryBuild, "unknown field %q", fieldName).WithDetail("field", fieldName)
	}
	if f.Type == descriptor.FieldNumeric {
		return nil, errors.InvalidArgument("field %q is numeric; its terms are not listed", fieldName)
	}

	var (
		dict   index.FieldDict
		filter *regexp.Regexp
		err    error
	)
	switch rr, native := s.reader.(index.IndexReaderRegexp); {
	case pattern == "":
		dict, err = s.reader.FieldDict(f.EngineName())
	case native:
		if _, cerr := regexp.Compile(pattern); cerr != nil {
			return nil, errors.Newf(errors.ErrCodeQueryBuild, "invalid term pattern %q: %v", pattern, cerr)
		}
		dict, err = rr.FieldDictRegexp(f.EngineName(), pattern)
	default:
		if filter, err = regexp.Compile("^(?:" + pattern + ")$"); err != nil {
			return nil, errors.Newf(errors.ErrCodeQueryBuild, "invalid term pattern %q: %v", pattern, err)
		}
		dict, err = s.reader.FieldDict(f.EngineName())
	}
	if err != nil {
		return nil, searchErr(err)
	}
	defer func() { _ = dict.Close() }()

	var terms []Term
	for {
		entry, err := dict.Next()
		if err != nil {
			return nil, searchErr(err)
		}
		if entry == nil {
			break
		}
		if filter != nil && !filter.MatchString(entry.Term) {
			continue
		}
		terms = append(terms, Term{Text: entry.Term, DocFreq: entry.Count})
	}
	return terms, nil
}

func searchErr(err error) error {
	return errors.Wrapf(errors.ErrCodeSearch, err, "search failed")
}
