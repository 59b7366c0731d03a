package searchbridge

import (
	"github.com/Aman-CERP/searchbridge/internal/descriptor"
	"github.com/Aman-CERP/searchbridge/internal/query"
	"github.com/Aman-CERP/searchbridge/internal/schema"
)

type (
	// QueryDescriptor is a structured query.
	QueryDescriptor = descriptor.QueryDescriptor
	// QueryType names a query kind.
	QueryType = descriptor.QueryType
)

// Query types.
const (
	QueryTerm         = descriptor.QueryTerm
	QueryPhrase       = descriptor.QueryPhrase
	QueryPhrasePrefix = descriptor.QueryPhrasePrefix
	QueryFuzzy        = descriptor.QueryFuzzy
	QueryRegex        = descriptor.QueryRegex
	QueryParse        = descriptor.QueryParse
	QueryBoolean      = descriptor.QueryBoolean
	QueryAll          = descriptor.QueryAll
)

// Query is an immutable compiled query. It is bound to the schema it was
// compiled against and runs only on searchers of indexes with that schema.
type Query struct {
	q      *query.Query
	schema *schema.Schema
}

// Type returns the query kind.
func (q *Query) Type() QueryType { return q.q.Type() }

// Fields returns the ids of the fields the query reads.
func (q *Query) Fields() []FieldID { return q.q.Fields() }

// String returns the engine query as JSON.
func (q *Query) String() string { return q.q.String() }

// ParseQueryDescriptor decodes a JSON or YAML query descriptor.
func ParseQueryDescriptor(data []byte) (QueryDescriptor, error) {
	return descriptor.ParseQuery(data)
}
