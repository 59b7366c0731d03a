package query

import (
	"encoding/json"
	"fmt"

	bq "github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/searchbridge/internal/errors"
	"github.com/Aman-CERP/searchbridge/internal/schema"
)

// rewriter maps a parsed query-string tree onto engine field names.
// Fielded leaves are renamed, and unfielded leaves become a disjunction of
// one copy per default field.
type rewriter struct {
	schema   *schema.Schema
	defaults []schema.FieldID
	used     map[schema.FieldID]struct{}
}

func (r *rewriter) rewrite(q bq.Query) (bq.Query, error) {
	switch v := q.(type) {
	case *bq.BooleanQuery:
		out := *v
		var err error
		if out.Must, err = r.rewriteOptional(v.Must); err != nil {
			return nil, err
		}
		if out.Should, err = r.rewriteOptional(v.Should); err != nil {
			return nil, err
		}
		if out.MustNot, err = r.rewriteOptional(v.MustNot); err != nil {
			return nil, err
		}
		return &out, nil

	case *bq.ConjunctionQuery:
		out := *v
		out.Conjuncts = make([]bq.Query, len(v.Conjuncts))
		for i, c := range v.Conjuncts {
			rc, err := r.rewrite(c)
			if err != nil {
				return nil, err
			}
			out.Conjuncts[i] = rc
		}
		return &out, nil

	case *bq.DisjunctionQuery:
		out := *v
		out.Disjuncts = make([]bq.Query, len(v.Disjuncts))
		for i, d := range v.Disjuncts {
			rd, err := r.rewrite(d)
			if err != nil {
				return nil, err
			}
			out.Disjuncts[i] = rd
		}
		return &out, nil

	case bq.FieldableQuery:
		return r.rewriteLeaf(v)
	}
	// Match-all, match-none and other field-less queries pass through.
	return q, nil
}

func (r *rewriter) rewriteOptional(q bq.Query) (bq.Query, error) {
	if q == nil {
		return nil, nil
	}
	return r.rewrite(q)
}

func (r *rewriter) rewriteLeaf(q bq.FieldableQuery) (bq.Query, error) {
	if name := q.Field(); name != "" {
		f, ok := r.schema.Field(name)
		if !ok {
			return nil, buildErr("unknown field %q in query", name).WithDetail("field", name)
		}
		if !f.Searchable() {
			return nil, buildErr("field %q is not indexed", name).WithDetail("field", name)
		}
		r.used[f.ID] = struct{}{}
		c, err := cloneLeaf(q)
		if err != nil {
			return nil, err
		}
		c.SetField(f.EngineName())
		return c, nil
	}

	if len(r.defaults) == 1 {
		return r.onField(q, r.defaults[0])
	}
	disjuncts := make([]bq.Query, 0, len(r.defaults))
	for _, id := range r.defaults {
		c, err := r.onField(q, id)
		if err != nil {
			return nil, err
		}
		disjuncts = append(disjuncts, c)
	}
	return bq.NewDisjunctionQuery(disjuncts), nil
}

func (r *rewriter) onField(q bq.FieldableQuery, id schema.FieldID) (bq.Query, error) {
	c, err := cloneLeaf(q)
	if err != nil {
		return nil, err
	}
	c.SetField(schema.EngineName(id))
	r.used[id] = struct{}{}
	return c, nil
}

// cloneLeaf copies a leaf so that setting its field leaves the original
// untouched.
func cloneLeaf(q bq.FieldableQuery) (bq.FieldableQuery, error) {
	switch v := q.(type) {
	case *bq.MatchQuery:
		c := *v
		return &c, nil
	case *bq.MatchPhraseQuery:
		c := *v
		return &c, nil
	case *bq.TermQuery:
		c := *v
		return &c, nil
	case *bq.FuzzyQuery:
		c := *v
		return &c, nil
	case *bq.RegexpQuery:
		c := *v
		return &c, nil
	case *bq.WildcardQuery:
		c := *v
		return &c, nil
	case *bq.PrefixQuery:
		c := *v
		return &c, nil
	case *bq.NumericRangeQuery:
		c := *v
		return &c, nil
	case *bq.TermRangeQuery:
		c := *v
		return &c, nil
	}

	// Anything else goes through its JSON form.
	data, err := json.Marshal(q)
	if err != nil {
		return nil, errors.New(errors.ErrCodeQueryBuild, fmt.Sprintf("cannot copy %T", q), err)
	}
	parsed, err := bq.ParseQuery(data)
	if err != nil {
		return nil, errors.New(errors.ErrCodeQueryBuild, fmt.Sprintf("cannot copy %T", q), err)
	}
	fq, ok := parsed.(bq.FieldableQuery)
	if !ok {
		return nil, buildErr("unsupported query clause %T", q)
	}
	return fq, nil
}
