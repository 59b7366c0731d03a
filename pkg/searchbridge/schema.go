package searchbridge

import (
	"github.com/Aman-CERP/searchbridge/internal/descriptor"
	"github.com/Aman-CERP/searchbridge/internal/errors"
	"github.com/Aman-CERP/searchbridge/internal/schema"
	"github.com/Aman-CERP/searchbridge/pkg/boxed"
)

type (
	// SchemaDescriptor is an ordered list of field declarations.
	SchemaDescriptor = descriptor.SchemaDescriptor
	// FieldDescriptor declares one field.
	FieldDescriptor = descriptor.FieldDescriptor
	// FieldOptions are the flags and text options of a field.
	FieldOptions = descriptor.FieldOptions
	// Field is a compiled field with its id.
	Field = schema.Field
	// FieldID is a field's position in declaration order.
	FieldID = schema.FieldID
)

// Field types.
const (
	FieldText    = descriptor.FieldText
	FieldString  = descriptor.FieldString
	FieldNumeric = descriptor.FieldNumeric
)

// Schema is an immutable compiled schema.
type Schema struct {
	s *schema.Schema
}

// NewSchema compiles a descriptor. tokenizers declares named pipelines that
// travel with the schema and may be nil.
func NewSchema(desc SchemaDescriptor, tokenizers map[string]TokenizerDescriptor) (*Schema, error) {
	s, err := schema.Compile(desc, tokenizers)
	if err != nil {
		return nil, err
	}
	return &Schema{s: s}, nil
}

// ParseSchema compiles a JSON or YAML schema descriptor. Field ids follow
// the order in which fields appear in the document.
func ParseSchema(data []byte) (*Schema, error) {
	desc, err := descriptor.ParseSchema(data)
	if err != nil {
		return nil, err
	}
	return NewSchema(desc, nil)
}

// Fields returns the fields in declaration order.
func (s *Schema) Fields() []Field { return s.s.Fields() }

// FieldID returns the id of a named field.
func (s *Schema) FieldID(name string) (FieldID, error) {
	f, ok := s.s.Field(name)
	if !ok {
		return 0, errors.InvalidArgument("unknown field %q", name)
	}
	return f.ID, nil
}

// MarshalJSON encodes the compiled schema.
func (s *Schema) MarshalJSON() ([]byte, error) { return s.s.MarshalJSON() }

// SchemaBuilder declares fields one at a time. It is single-use: Build
// consumes it and every later call fails with IllegalState.
type SchemaBuilder struct {
	cell *boxed.Cell[*schema.Builder]
}

// NewSchemaBuilder returns an empty builder.
func NewSchemaBuilder() *SchemaBuilder {
	return &SchemaBuilder{cell: boxed.NewCell(schema.NewBuilder())}
}

func (b *SchemaBuilder) with(fn func(*schema.Builder) error) error {
	return b.cell.Borrow(func(sb **schema.Builder) error { return fn(*sb) })
}

// AddTextField declares an analyzed text field.
func (b *SchemaBuilder) AddTextField(name string, opts FieldOptions) error {
	return b.with(func(sb *schema.Builder) error { return sb.AddTextField(name, opts) })
}

// AddStringField declares an untokenized keyword field.
func (b *SchemaBuilder) AddStringField(name string, opts FieldOptions) error {
	return b.with(func(sb *schema.Builder) error { return sb.AddStringField(name, opts) })
}

// AddNumericField declares a float64 field.
func (b *SchemaBuilder) AddNumericField(name string, opts FieldOptions) error {
	return b.with(func(sb *schema.Builder) error { return sb.AddNumericField(name, opts) })
}

// AddTokenizer declares a named pipeline that travels with the schema.
func (b *SchemaBuilder) AddTokenizer(name string, desc TokenizerDescriptor) error {
	return b.with(func(sb *schema.Builder) error {
		sb.AddTokenizer(name, desc)
		return nil
	})
}

// Build compiles the declared fields and consumes the builder.
func (b *SchemaBuilder) Build() (*Schema, error) {
	sb, err := b.cell.Take()
	if err != nil {
		return nil, err
	}
	s, err := sb.Build()
	if err != nil {
		return nil, err
	}
	return &Schema{s: s}, nil
}
