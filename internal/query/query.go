// Package query compiles query descriptors into immutable bleve queries
// that address fields by id.
package query

import (
	"encoding/json"
	"regexp"
	"slices"
	"strconv"
	"strings"

	bq "github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/searchbridge/internal/descriptor"
	"github.com/Aman-CERP/searchbridge/internal/errors"
	"github.com/Aman-CERP/searchbridge/internal/schema"
)

// DefaultMaxExpansions bounds how many terms the last word of a
// phrase-prefix query expands to.
const DefaultMaxExpansions = 50

// MaxFuzzyDistance is the largest edit distance the engine supports.
const MaxFuzzyDistance = 2

// Query is a compiled, immutable query. It is safe to share between
// goroutines and searchers.
type Query struct {
	typ    descriptor.QueryType
	fields []schema.FieldID
	native bq.Query
}

// Type returns the query type.
func (q *Query) Type() descriptor.QueryType { return q.typ }

// Fields returns the ids of every field the query reads.
func (q *Query) Fields() []schema.FieldID {
	return append([]schema.FieldID(nil), q.fields...)
}

// Native returns the bleve query.
func (q *Query) Native() bq.Query { return q.native }

// String renders the engine query as JSON, for logs and explanations.
func (q *Query) String() string {
	data, err := json.Marshal(q.native)
	if err != nil {
		return string(q.typ)
	}
	return string(data)
}

// Compile builds a query from a descriptor.
func (c *Compiler) Compile(desc descriptor.QueryDescriptor) (*Query, error) {
	fields := make(map[schema.FieldID]struct{})
	native, err := c.compile(desc, fields, "query")
	if err != nil {
		return nil, err
	}
	q := &Query{typ: desc.Type, native: native}
	for id := range fields {
		q.fields = append(q.fields, id)
	}
	slices.Sort(q.fields)
	return q, nil
}

func (c *Compiler) compile(desc descriptor.QueryDescriptor, used map[schema.FieldID]struct{}, where string) (bq.Query, error) {
	switch desc.Type {
	case descriptor.QueryAll:
		return bq.NewMatchAllQuery(), nil

	case descriptor.QueryTerm:
		f, err := c.field(desc.Field, where, used)
		if err != nil {
			return nil, err
		}
		return termQuery(f, desc.Value, where)

	case descriptor.QueryPhrase, descriptor.QueryPhrasePrefix:
		f, err := c.field(desc.Field, where, used)
		if err != nil {
			return nil, err
		}
		if len(desc.Terms) == 0 {
			return nil, buildErr("%s: %s query needs at least one term", where, desc.Type)
		}
		if f.Type == descriptor.FieldNumeric {
			return nil, buildErr("%s: field %q is numeric", where, f.Name)
		}
		if len(desc.Terms) > 1 && !f.HasPositions() {
			return nil, buildErr("%s: field %q is not indexed with positions", where, f.Name)
		}
		if desc.Type == descriptor.QueryPhrase {
			if len(desc.Terms) == 1 {
				return fielded(bq.NewTermQuery(desc.Terms[0]), f), nil
			}
			return bq.NewPhraseQuery(desc.Terms, f.EngineName()), nil
		}
		limit := desc.MaxExpansions
		if limit <= 0 {
			limit = c.maxExpansions
		}
		return newPhrasePrefix(desc.Terms, f.EngineName(), limit), nil

	case descriptor.QueryFuzzy:
		f, err := c.field(desc.Field, where, used)
		if err != nil {
			return nil, err
		}
		if f.Type == descriptor.FieldNumeric {
			return nil, buildErr("%s: fuzzy query on numeric field %q", where, f.Name)
		}
		term, ok := desc.Value.(string)
		if !ok || term == "" {
			return nil, buildErr("%s: fuzzy query needs a string value", where)
		}
		if desc.Distance > MaxFuzzyDistance {
			return nil, buildErr("%s: fuzzy distance %d exceeds %d", where, desc.Distance, MaxFuzzyDistance)
		}
		fq := bq.NewFuzzyQuery(term)
		fq.SetFuzziness(int(desc.Distance))
		fq.SetPrefix(desc.PrefixLength)
		return fielded(fq, f), nil

	case descriptor.QueryRegex:
		f, err := c.field(desc.Field, where, used)
		if err != nil {
			return nil, err
		}
		if f.Type == descriptor.FieldNumeric {
			return nil, buildErr("%s: regex query on numeric field %q", where, f.Name)
		}
		if _, err := regexp.Compile(desc.Pattern); err != nil || desc.Pattern == "" {
			return nil, errors.New(errors.ErrCodeQueryBuild,
				where+": invalid regular expression "+strconv.Quote(desc.Pattern), err)
		}
		return fielded(bq.NewRegexpQuery(desc.Pattern), f), nil

	case descriptor.QueryParse:
		parsed, ids, err := c.parse(desc.Query, desc.Fields)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			used[id] = struct{}{}
		}
		return parsed, nil

	case descriptor.QueryBoolean:
		must, err := c.compileAll(desc.Must, used, where+".must")
		if err != nil {
			return nil, err
		}
		should, err := c.compileAll(desc.Should, used, where+".should")
		if err != nil {
			return nil, err
		}
		mustNot, err := c.compileAll(desc.MustNot, used, where+".must_not")
		if err != nil {
			return nil, err
		}
		if len(must)+len(should)+len(mustNot) == 0 {
			return nil, buildErr("%s: boolean query has no clauses", where)
		}
		return bq.NewBooleanQuery(must, should, mustNot), nil
	}
	return nil, errors.UnknownOption("query type", string(desc.Type))
}

func (c *Compiler) compileAll(descs []descriptor.QueryDescriptor, used map[schema.FieldID]struct{}, where string) ([]bq.Query, error) {
	if len(descs) == 0 {
		return nil, nil
	}
	out := make([]bq.Query, 0, len(descs))
	for i, d := range descs {
		q, err := c.compile(d, used, where+"["+strconv.Itoa(i)+"]")
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func (c *Compiler) field(name, where string, used map[schema.FieldID]struct{}) (schema.Field, error) {
	if name == "" {
		return schema.Field{}, buildErr("%s: missing field", where)
	}
	f, ok := c.schema.Field(name)
	if !ok {
		return schema.Field{}, buildErr("%s: unknown field %q", where, name).WithDetail("field", name)
	}
	if !f.Searchable() {
		return schema.Field{}, buildErr("%s: field %q is not indexed", where, name).WithDetail("field", name)
	}
	used[f.ID] = struct{}{}
	return f, nil
}

// termQuery matches the raw term. Text values are not analyzed. A term on
// a numeric field becomes an inclusive single-value range.
func termQuery(f schema.Field, value any, where string) (bq.Query, error) {
	if f.Type == descriptor.FieldNumeric {
		var v float64
		switch x := value.(type) {
		case float64:
			v = x
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err != nil {
				return nil, buildErr("%s: %q is not a number for field %q", where, x, f.Name)
			}
			v = parsed
		default:
			return nil, buildErr("%s: numeric field %q needs a number", where, f.Name)
		}
		inclusive := true
		rq := bq.NewNumericRangeInclusiveQuery(&v, &v, &inclusive, &inclusive)
		rq.SetField(f.EngineName())
		return rq, nil
	}

	switch x := value.(type) {
	case string:
		return fielded(bq.NewTermQuery(x), f), nil
	case float64:
		return fielded(bq.NewTermQuery(strconv.FormatFloat(x, 'f', -1, 64)), f), nil
	case bool:
		return fielded(bq.NewTermQuery(strconv.FormatBool(x)), f), nil
	}
	return nil, buildErr("%s: term query needs a value", where)
}

func fielded[Q bq.FieldableQuery](q Q, f schema.Field) Q {
	q.SetField(f.EngineName())
	return q
}

func buildErr(format string, args ...any) *errors.BridgeError {
	return errors.Newf(errors.ErrCodeQueryBuild, format, args...)
}
