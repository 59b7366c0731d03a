package descriptor

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/searchbridge/internal/errors"
)

// QueryType selects the query shape.
type QueryType string

const (
	QueryTerm         QueryType = "term"
	QueryPhrase       QueryType = "phrase"
	QueryPhrasePrefix QueryType = "phrase_prefix"
	QueryFuzzy        QueryType = "fuzzy"
	QueryRegex        QueryType = "regex"
	QueryParse        QueryType = "parse"
	QueryBoolean      QueryType = "boolean"
	QueryAll          QueryType = "all"
)

// ParseQueryType resolves a query type name.
func ParseQueryType(s string) (QueryType, error) {
	switch normalize(s) {
	case "term":
		return QueryTerm, nil
	case "phrase":
		return QueryPhrase, nil
	case "phrase_prefix":
		return QueryPhrasePrefix, nil
	case "fuzzy", "fuzzy_term":
		return QueryFuzzy, nil
	case "regex", "regexp":
		return QueryRegex, nil
	case "parse", "query_string":
		return QueryParse, nil
	case "boolean", "bool":
		return QueryBoolean, nil
	case "all", "match_all":
		return QueryAll, nil
	}
	return "", errors.UnknownOption("query type", s)
}

// QueryDescriptor declares a query. Fields that do not apply to Type are
// ignored.
type QueryDescriptor struct {
	Type QueryType `json:"type"`

	// Field is the target of term, phrase, phrase_prefix, fuzzy and regex.
	Field string `json:"field,omitempty"`
	// Value is the term for term and fuzzy queries: a string, or a number
	// for numeric fields.
	Value any `json:"value,omitempty"`
	// Terms are the phrase terms.
	Terms []string `json:"terms,omitempty"`

	Distance       uint8 `json:"distance,omitempty"`
	Transpositions bool  `json:"transpositions,omitempty"`
	PrefixLength   int   `json:"prefix_length,omitempty"`

	Pattern string `json:"pattern,omitempty"`

	// Query is the query-string text of a parse query, parsed over Fields.
	Query  string   `json:"query,omitempty"`
	Fields []string `json:"fields,omitempty"`

	MaxExpansions int `json:"max_expansions,omitempty"`

	Must    []QueryDescriptor `json:"must,omitempty"`
	Should  []QueryDescriptor `json:"should,omitempty"`
	MustNot []QueryDescriptor `json:"must_not,omitempty"`
}

// DefaultFuzzyDistance is the edit distance of a fuzzy descriptor that
// names none. An explicit 0 is kept and matches the term exactly.
const DefaultFuzzyDistance = 1

// ParseQuery parses a query descriptor.
func ParseQuery(data []byte) (QueryDescriptor, error) {
	root, err := parseRoot(data, "query")
	if err != nil {
		return QueryDescriptor{}, err
	}
	return parseQueryNode(root, "query")
}

func parseQueryNode(n *yaml.Node, where string) (QueryDescriptor, error) {
	var q QueryDescriptor
	hasDistance := false
	entries, err := pairs(n, where, errors.ErrCodeInvalidArgument)
	if err != nil {
		return q, err
	}

	for _, e := range entries {
		key := where + "." + e.key
		if isNull(e.value) {
			continue
		}
		switch normalize(e.key) {
		case "type":
			var s string
			if s, err = scalarString(e.value, key); err == nil {
				q.Type, err = ParseQueryType(s)
			}
		case "field":
			q.Field, err = scalarString(e.value, key)
		case "value", "term":
			q.Value, err = scalarValue(e.value, key)
		case "terms":
			q.Terms, err = stringList(e.value, key)
		case "distance":
			var v uint64
			v, err = scalarUint(e.value, 8, key)
			q.Distance, hasDistance = uint8(v), true
		case "transpositions", "transposition_cost_one":
			q.Transpositions, err = scalarBool(e.value, key)
		case "prefix_length", "prefix":
			var v uint64
			v, err = scalarUint(e.value, 16, key)
			q.PrefixLength = int(v)
		case "pattern", "regex":
			q.Pattern, err = scalarString(e.value, key)
		case "query", "text":
			q.Query, err = scalarString(e.value, key)
		case "fields":
			q.Fields, err = stringList(e.value, key)
		case "max_expansions":
			var v uint64
			v, err = scalarUint(e.value, 32, key)
			q.MaxExpansions = int(v)
		case "must":
			q.Must, err = parseClauses(e.value, key)
		case "should":
			q.Should, err = parseClauses(e.value, key)
		case "must_not":
			q.MustNot, err = parseClauses(e.value, key)
		default:
			return q, errors.UnknownOption("query option", e.key)
		}
		if err != nil {
			return q, err
		}
	}
	if q.Type == "" {
		return q, errors.InvalidArgument("%s: missing query type", where)
	}
	if q.Type == QueryFuzzy && !hasDistance {
		q.Distance = DefaultFuzzyDistance
	}
	return q, nil
}

func parseClauses(n *yaml.Node, where string) ([]QueryDescriptor, error) {
	n = resolve(n)
	if n.Kind == yaml.MappingNode {
		q, err := parseQueryNode(n, where)
		if err != nil {
			return nil, err
		}
		return []QueryDescriptor{q}, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, errors.InvalidArgument("%s: expected a list of queries", where)
	}
	out := make([]QueryDescriptor, 0, len(n.Content))
	for i, c := range n.Content {
		q, err := parseQueryNode(c, fmt.Sprintf("%s[%d]", where, i))
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}
