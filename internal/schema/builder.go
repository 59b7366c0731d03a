package schema

import (
	"maps"
	"slices"

	"github.com/Aman-CERP/searchbridge/internal/analysis"
	"github.com/Aman-CERP/searchbridge/internal/descriptor"
	"github.com/Aman-CERP/searchbridge/internal/errors"
)

// Builder accumulates fields. Ids are assigned in call order.
type Builder struct {
	fields     []Field
	byName     map[string]FieldID
	tokenizers map[string]descriptor.TokenizerDescriptor
	order      []string
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		byName:     make(map[string]FieldID),
		tokenizers: make(map[string]descriptor.TokenizerDescriptor),
	}
}

// AddField declares a field. A name that was already declared fails with
// DuplicateField and leaves the builder unchanged.
func (b *Builder) AddField(name string, typ descriptor.FieldType, opts descriptor.FieldOptions) error {
	if name == "" {
		return errors.InvalidArgument("field name must not be empty")
	}
	if _, dup := b.byName[name]; dup {
		return errors.Newf(errors.ErrCodeDuplicateField, "field %q is already declared", name).
			WithDetail("name", name)
	}
	switch typ {
	case descriptor.FieldText:
		if opts.Index != "" {
			if _, err := descriptor.ParseIndexDetail(string(opts.Index)); err != nil {
				return err
			}
		}
	case descriptor.FieldString, descriptor.FieldNumeric:
		if opts.Tokenizer != "" {
			return errors.InvalidArgument("field %q: only text fields take a tokenizer", name)
		}
	default:
		return errors.UnknownOption("field type", string(typ))
	}
	if typ != descriptor.FieldNumeric {
		// Text and string fields always have an inverted index.
		opts.Indexed = true
	}

	id := FieldID(len(b.fields))
	b.fields = append(b.fields, Field{ID: id, Name: name, Type: typ, FieldOptions: opts})
	b.byName[name] = id
	return nil
}

// AddTextField declares an analyzed text field.
func (b *Builder) AddTextField(name string, opts descriptor.FieldOptions) error {
	return b.AddField(name, descriptor.FieldText, opts)
}

// AddStringField declares an untokenized keyword field.
func (b *Builder) AddStringField(name string, opts descriptor.FieldOptions) error {
	return b.AddField(name, descriptor.FieldString, opts)
}

// AddNumericField declares a float64 field.
func (b *Builder) AddNumericField(name string, opts descriptor.FieldOptions) error {
	return b.AddField(name, descriptor.FieldNumeric, opts)
}

// AddTokenizer declares a named pipeline that travels with the schema.
// Declaring a name again replaces the earlier descriptor.
func (b *Builder) AddTokenizer(name string, desc descriptor.TokenizerDescriptor) {
	if _, ok := b.tokenizers[name]; !ok {
		b.order = append(b.order, name)
	}
	b.tokenizers[name] = desc
}

// Build freezes the builder into a Schema. The builder may keep being used;
// later additions do not affect schemas already built.
func (b *Builder) Build() (*Schema, error) {
	if len(b.fields) == 0 {
		return nil, errors.InvalidArgument("schema has no fields")
	}
	s := &Schema{
		fields:     make([]Field, len(b.fields)),
		byName:     make(map[string]FieldID, len(b.byName)),
		tokenizers: make(map[string]descriptor.TokenizerDescriptor, len(b.tokenizers)),
		order:      append([]string(nil), b.order...),
	}
	copy(s.fields, b.fields)
	for k, v := range b.byName {
		s.byName[k] = v
	}
	for k, v := range b.tokenizers {
		if _, err := analysis.Compile(v); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidArgument, err, "tokenizer %q", k)
		}
		s.tokenizers[k] = v
	}
	return s, nil
}

// Compile builds a schema from a descriptor plus named tokenizer
// descriptors.
func Compile(desc descriptor.SchemaDescriptor, tokenizers map[string]descriptor.TokenizerDescriptor) (*Schema, error) {
	b := NewBuilder()
	for _, name := range slices.Sorted(maps.Keys(tokenizers)) {
		b.AddTokenizer(name, tokenizers[name])
	}
	for _, f := range desc.Fields {
		if err := b.AddField(f.Name, f.Type, f.FieldOptions); err != nil {
			return nil, err
		}
	}
	return b.Build()
}
