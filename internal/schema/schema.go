// Package schema holds the immutable, ordered field list of an index and
// derives the bleve mapping used to analyze queries against it.
package schema

import (
	"encoding/json"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/Aman-CERP/searchbridge/internal/analysis"
	"github.com/Aman-CERP/searchbridge/internal/descriptor"
	"github.com/Aman-CERP/searchbridge/internal/errors"
)

// FieldID is a field's position in declaration order.
type FieldID uint32

// Field is one declared field.
type Field struct {
	ID   FieldID              `json:"id"`
	Name string               `json:"name"`
	Type descriptor.FieldType `json:"type"`
	descriptor.FieldOptions
}

// EngineName is the name the field is indexed under. User names are never
// handed to the engine, so names such as "_id" cannot collide with bleve's
// reserved fields.
func (f Field) EngineName() string {
	return EngineName(f.ID)
}

// EngineName formats the engine name of a field id.
func EngineName(id FieldID) string {
	return "f" + strconv.FormatUint(uint64(id), 10)
}

// TokenizerName returns the pipeline name of a text field.
func (f Field) TokenizerName() string {
	if f.FieldOptions.Tokenizer == "" {
		return analysis.Default
	}
	return f.FieldOptions.Tokenizer
}

// IndexDetail returns the effective index detail of a text field.
func (f Field) IndexDetail() descriptor.IndexDetail {
	if f.Index == "" {
		return descriptor.IndexWithFreqsAndPositions
	}
	return f.Index
}

// HasPositions reports whether phrase queries can run on the field.
func (f Field) HasPositions() bool {
	return f.Type == descriptor.FieldText && f.IndexDetail().HasPositions()
}

// Searchable reports whether the field has an inverted index.
func (f Field) Searchable() bool {
	return f.Type != descriptor.FieldNumeric || f.Indexed
}

// Schema is an immutable ordered set of fields plus the tokenizer pipelines
// declared with it.
type Schema struct {
	fields     []Field
	byName     map[string]FieldID
	tokenizers map[string]descriptor.TokenizerDescriptor
	order      []string
}

// Fields returns the fields in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.fields) }

// Field looks a field up by name.
func (s *Schema) Field(name string) (Field, bool) {
	id, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[id], true
}

// FieldByID looks a field up by id.
func (s *Schema) FieldByID(id FieldID) (Field, bool) {
	if int(id) >= len(s.fields) {
		return Field{}, false
	}
	return s.fields[id], true
}

// FieldByEngineName maps an engine name back to its field.
func (s *Schema) FieldByEngineName(name string) (Field, bool) {
	if len(name) < 2 || name[0] != 'f' {
		return Field{}, false
	}
	id, err := strconv.ParseUint(name[1:], 10, 32)
	if err != nil {
		return Field{}, false
	}
	return s.FieldByID(FieldID(id))
}

// Tokenizers returns the pipeline descriptors declared with the schema, in
// declaration order.
func (s *Schema) Tokenizers() []NamedTokenizer {
	out := make([]NamedTokenizer, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, NamedTokenizer{Name: name, Tokenizer: s.tokenizers[name]})
	}
	return out
}

// NamedTokenizer pairs a pipeline name with its descriptor.
type NamedTokenizer struct {
	Name      string                         `json:"name"`
	Tokenizer descriptor.TokenizerDescriptor `json:"tokenizer"`
}

// Mapping builds the bleve mapping for query analysis. pipelines resolves
// tokenizer names. A text field whose pipeline is missing is left out of
// the mapping and its queries fail until the pipeline is registered.
func (s *Schema) Mapping(pipelines map[string]*analysis.Pipeline) (*mapping.IndexMappingImpl, error) {
	m := bleve.NewIndexMapping()
	m.DefaultMapping.Dynamic = false
	m.DefaultMapping.Enabled = true
	m.StoreDynamic = false
	m.IndexDynamic = false
	m.DefaultAnalyzer = keyword.Name

	registered := make(map[string]bool)
	for _, f := range s.fields {
		var fm *mapping.FieldMapping
		switch f.Type {
		case descriptor.FieldText:
			name := f.TokenizerName()
			p, ok := pipelines[name]
			if !ok {
				continue
			}
			if !registered[name] {
				if err := p.Register(m, name); err != nil {
					return nil, err
				}
				registered[name] = true
			}
			fm = bleve.NewTextFieldMapping()
			fm.Analyzer = name
			fm.IncludeTermVectors = f.HasPositions()
		case descriptor.FieldString:
			fm = bleve.NewKeywordFieldMapping()
		case descriptor.FieldNumeric:
			fm = bleve.NewNumericFieldMapping()
			fm.Index = f.Indexed
			fm.DocValues = f.Fast
		}
		fm.Store = f.Stored
		fm.IncludeInAll = false
		m.DefaultMapping.AddFieldMappingsAt(f.EngineName(), fm)
	}
	return m, nil
}

type persisted struct {
	Version    int              `json:"version"`
	Fields     []Field          `json:"fields"`
	Tokenizers []NamedTokenizer `json:"tokenizers,omitempty"`
}

// MarshalJSON encodes the schema for storage in the index metadata.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(persisted{Version: 1, Fields: s.fields, Tokenizers: s.Tokenizers()})
}

// Unmarshal decodes a schema written by MarshalJSON.
func Unmarshal(data []byte) (*Schema, error) {
	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.New(errors.ErrCodeCorruptIndex, "stored schema is unreadable", err)
	}
	b := NewBuilder()
	for _, nt := range p.Tokenizers {
		b.AddTokenizer(nt.Name, nt.Tokenizer)
	}
	for i, f := range p.Fields {
		if f.ID != FieldID(i) {
			return nil, errors.Newf(errors.ErrCodeCorruptIndex, "stored schema has field %q at id %d, expected %d", f.Name, f.ID, i)
		}
		if err := b.AddField(f.Name, f.Type, f.FieldOptions); err != nil {
			return nil, err
		}
	}
	return b.Build()
}
