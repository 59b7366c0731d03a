package query

import (
	"context"

	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	bq "github.com/blevesearch/bleve/v2/search/query"
	index "github.com/blevesearch/bleve_index_api"
)

// phrasePrefixQuery matches a phrase whose last term is a prefix. The
// prefix is expanded against the dictionary of the reader the query runs
// on, so each searcher snapshot sees its own expansion.
type phrasePrefixQuery struct {
	Terms         []string `json:"terms"`
	Prefix        string   `json:"prefix"`
	FieldVal      string   `json:"field"`
	MaxExpansions int      `json:"max_expansions"`
}

func newPhrasePrefix(terms []string, field string, maxExpansions int) *phrasePrefixQuery {
	return &phrasePrefixQuery{
		Terms:         append([]string(nil), terms[:len(terms)-1]...),
		Prefix:        terms[len(terms)-1],
		FieldVal:      field,
		MaxExpansions: maxExpansions,
	}
}

func (q *phrasePrefixQuery) SetField(f string) { q.FieldVal = f }

func (q *phrasePrefixQuery) Field() string { return q.FieldVal }

func (q *phrasePrefixQuery) Searcher(ctx context.Context, i index.IndexReader, m mapping.IndexMapping, options search.SearcherOptions) (search.Searcher, error) {
	expansions, err := q.expand(i)
	if err != nil {
		return nil, err
	}
	if len(expansions) == 0 {
		return bq.NewMatchNoneQuery().Searcher(ctx, i, m, options)
	}

	positions := make([][]string, 0, len(q.Terms)+1)
	for _, t := range q.Terms {
		positions = append(positions, []string{t})
	}
	positions = append(positions, expansions)
	return bq.NewMultiPhraseQuery(positions, q.FieldVal).Searcher(ctx, i, m, options)
}

func (q *phrasePrefixQuery) expand(i index.IndexReader) ([]string, error) {
	dict, err := i.FieldDictPrefix(q.FieldVal, []byte(q.Prefix))
	if err != nil {
		return nil, err
	}
	defer func() { _ = dict.Close() }()

	var out []string
	for len(out) < q.MaxExpansions {
		entry, err := dict.Next()
		if err != nil {
			return nil, err
		}
		if entry == nil {
			break
		}
		out = append(out, entry.Term)
	}
	return out, nil
}
