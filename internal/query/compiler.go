package query

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	bq "github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/searchbridge/internal/descriptor"
	"github.com/Aman-CERP/searchbridge/internal/errors"
	"github.com/Aman-CERP/searchbridge/internal/schema"
)

// DefaultCacheSize is the number of parsed query strings kept per compiler.
const DefaultCacheSize = 256

// Options configures a Compiler.
type Options struct {
	// DefaultFields are searched by unfielded clauses of parsed queries
	// when the caller names none. Empty means every text and string field.
	DefaultFields []string
	// CacheSize bounds the parsed query cache. Zero selects the default.
	CacheSize int
	// MaxExpansions is the phrase-prefix expansion limit. Zero selects the
	// default.
	MaxExpansions int
}

type parsedEntry struct {
	native bq.Query
	fields []schema.FieldID
}

// Compiler turns descriptors into queries against one schema. It is safe
// for concurrent use.
type Compiler struct {
	schema        *schema.Schema
	defaults      []schema.FieldID
	maxExpansions int
	cache         *lru.Cache[string, parsedEntry]
}

// NewCompiler creates a compiler for s.
func NewCompiler(s *schema.Schema, opts Options) (*Compiler, error) {
	c := &Compiler{schema: s, maxExpansions: opts.MaxExpansions}
	if c.maxExpansions <= 0 {
		c.maxExpansions = DefaultMaxExpansions
	}
	if len(opts.DefaultFields) > 0 {
		ids, err := c.resolveFields(opts.DefaultFields)
		if err != nil {
			return nil, err
		}
		c.defaults = ids
	} else {
		for _, f := range s.Fields() {
			if f.Type != descriptor.FieldNumeric {
				c.defaults = append(c.defaults, f.ID)
			}
		}
	}

	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, parsedEntry](size)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err)
	}
	c.cache = cache
	return c, nil
}

// Schema returns the schema queries are compiled against.
func (c *Compiler) Schema() *schema.Schema { return c.schema }

// Parse compiles query-string text searched over fields. Unfielded clauses
// are searched in every listed field. An empty list selects the compiler's
// default fields.
func (c *Compiler) Parse(text string, fields []string) (*Query, error) {
	return c.Compile(descriptor.QueryDescriptor{
		Type:   descriptor.QueryParse,
		Query:  text,
		Fields: fields,
	})
}

func (c *Compiler) resolveFields(names []string) ([]schema.FieldID, error) {
	ids := make([]schema.FieldID, 0, len(names))
	for _, name := range names {
		f, ok := c.schema.Field(name)
		if !ok {
			return nil, buildErr("unknown field %q", name).WithDetail("field", name)
		}
		if !f.Searchable() {
			return nil, buildErr("field %q is not indexed", name).WithDetail("field", name)
		}
		ids = append(ids, f.ID)
	}
	return ids, nil
}

func (c *Compiler) parse(text string, fieldNames []string) (bq.Query, []schema.FieldID, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, buildErr("query text is empty")
	}
	defaults := c.defaults
	if len(fieldNames) > 0 {
		ids, err := c.resolveFields(fieldNames)
		if err != nil {
			return nil, nil, err
		}
		defaults = ids
	}
	if len(defaults) == 0 {
		return nil, nil, buildErr("no fields to search")
	}

	key := cacheKey(defaults, text)
	if e, ok := c.cache.Get(key); ok {
		return e.native, e.fields, nil
	}

	tree, err := bq.NewQueryStringQuery(text).Parse()
	if err != nil {
		return nil, nil, errors.New(errors.ErrCodeQueryBuild, "cannot parse query "+quote(text), err)
	}
	rw := &rewriter{schema: c.schema, defaults: defaults, used: make(map[schema.FieldID]struct{})}
	native, err := rw.rewrite(tree)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]schema.FieldID, 0, len(rw.used))
	for id := range rw.used {
		ids = append(ids, id)
	}

	c.cache.Add(key, parsedEntry{native: native, fields: ids})
	return native, ids, nil
}

func cacheKey(fields []schema.FieldID, text string) string {
	var sb strings.Builder
	for _, id := range fields {
		sb.WriteString(schema.EngineName(id))
		sb.WriteByte(',')
	}
	sb.WriteByte(0)
	sb.WriteString(text)
	return sb.String()
}

func quote(s string) string {
	if len(s) > 80 {
		s = s[:80] + "..."
	}
	return "\"" + s + "\""
}
