package descriptor

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/searchbridge/internal/errors"
)

// FieldType is the value type of a schema field.
type FieldType string

const (
	// FieldText is analyzed full text.
	FieldText FieldType = "text"
	// FieldString is an untokenized keyword.
	FieldString FieldType = "string"
	// FieldNumeric is a float64 value. "f64" is accepted as an alias.
	FieldNumeric FieldType = "numeric"
)

// ParseFieldType resolves a field type name.
func ParseFieldType(s string) (FieldType, error) {
	switch normalize(s) {
	case "text":
		return FieldText, nil
	case "string", "str", "keyword":
		return FieldString, nil
	case "numeric", "f64", "float", "number":
		return FieldNumeric, nil
	}
	return "", errors.UnknownOption("field type", s)
}

// IndexDetail is how much is recorded for each term of a text field.
type IndexDetail string

const (
	// IndexBasic records which documents hold a term.
	IndexBasic IndexDetail = "basic"
	// IndexWithFreqs also records term frequencies, used for scoring.
	IndexWithFreqs IndexDetail = "with_freqs"
	// IndexWithFreqsAndPositions also records positions. Phrase queries
	// need it.
	IndexWithFreqsAndPositions IndexDetail = "with_freqs_and_positions"
)

// ParseIndexDetail resolves an index detail name.
func ParseIndexDetail(s string) (IndexDetail, error) {
	switch normalize(s) {
	case "basic":
		return IndexBasic, nil
	case "with_freqs", "with_frequencies":
		return IndexWithFreqs, nil
	case "with_freqs_and_positions", "with_frequencies_and_positions", "positions":
		return IndexWithFreqsAndPositions, nil
	}
	return "", errors.UnknownOption("index detail", s)
}

// HasPositions reports whether phrase queries are possible.
func (d IndexDetail) HasPositions() bool {
	return d == IndexWithFreqsAndPositions
}

// FieldOptions are the per-field flags and analysis settings.
type FieldOptions struct {
	Stored  bool `json:"stored,omitempty"`
	Indexed bool `json:"indexed,omitempty"`
	Fast    bool `json:"fast,omitempty"`

	// Tokenizer names the pipeline for text fields. Empty means "default".
	Tokenizer string `json:"tokenizer,omitempty"`
	// Index is the index detail for text fields. Empty means positions.
	Index IndexDetail `json:"index,omitempty"`
}

// FieldDescriptor declares one field.
type FieldDescriptor struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
	FieldOptions
}

// SchemaDescriptor is an ordered list of field declarations.
type SchemaDescriptor struct {
	Fields []FieldDescriptor `json:"fields"`
}

// ApplyFlag sets the option named by flag.
func (o *FieldOptions) ApplyFlag(flag string) error {
	switch normalize(flag) {
	case "stored":
		o.Stored = true
	case "indexed":
		o.Indexed = true
	case "fast":
		o.Fast = true
	case "text":
		// "TEXT" in the list form is the type, handled by the caller.
	default:
		return errors.UnknownOption("field flag", flag)
	}
	return nil
}

// ParseSchema parses a schema descriptor. The top level maps field names,
// in declaration order, to either an options mapping
//
//	title: {type: text, flags: [STORED], tokenizer: en_stem, index: WITH_FREQS_AND_POSITIONS}
//
// or a flag list whose first element is the type
//
//	title: [TEXT, STORED]
//
// Declaring the same field name twice fails with DuplicateField. Silently
// keeping the last declaration would renumber every later field.
func ParseSchema(data []byte) (SchemaDescriptor, error) {
	root, err := parseRoot(data, "schema")
	if err != nil {
		return SchemaDescriptor{}, err
	}
	entries, err := pairs(root, "schema", errors.ErrCodeDuplicateField)
	if err != nil {
		return SchemaDescriptor{}, err
	}

	desc := SchemaDescriptor{Fields: make([]FieldDescriptor, 0, len(entries))}
	for _, e := range entries {
		if e.key == "" {
			return SchemaDescriptor{}, errors.InvalidArgument("schema: field name must not be empty")
		}
		fd, err := parseField(e.key, e.value)
		if err != nil {
			return SchemaDescriptor{}, err
		}
		desc.Fields = append(desc.Fields, fd)
	}
	return desc, nil
}

func parseField(name string, n *yaml.Node) (FieldDescriptor, error) {
	where := fmt.Sprintf("field %q", name)
	fd := FieldDescriptor{Name: name}

	n = resolve(n)
	switch n.Kind {
	case yaml.SequenceNode:
		list, err := stringList(n, where)
		if err != nil {
			return fd, err
		}
		if len(list) == 0 {
			return fd, errors.InvalidArgument("%s: missing field type", where)
		}
		if fd.Type, err = ParseFieldType(list[0]); err != nil {
			return fd, err
		}
		for _, flag := range list[1:] {
			if err := fd.ApplyFlag(flag); err != nil {
				return fd, err
			}
		}
		return fd, nil

	case yaml.ScalarNode:
		t, err := scalarString(n, where)
		if err != nil {
			return fd, err
		}
		fd.Type, err = ParseFieldType(t)
		return fd, err
	}

	entries, err := pairs(n, where, errors.ErrCodeInvalidArgument)
	if err != nil {
		return fd, err
	}
	for _, e := range entries {
		key := where + "." + e.key
		switch normalize(e.key) {
		case "type":
			s, err := scalarString(e.value, key)
			if err != nil {
				return fd, err
			}
			if fd.Type, err = ParseFieldType(s); err != nil {
				return fd, err
			}
		case "flags":
			flags, err := stringList(e.value, key)
			if err != nil {
				return fd, err
			}
			for _, flag := range flags {
				if err := fd.ApplyFlag(flag); err != nil {
					return fd, err
				}
			}
		case "stored", "indexed", "fast":
			b, err := scalarBool(e.value, key)
			if err != nil {
				return fd, err
			}
			if b {
				_ = fd.ApplyFlag(e.key)
			}
		case "tokenizer":
			if fd.Tokenizer, err = scalarString(e.value, key); err != nil {
				return fd, err
			}
		case "index":
			s, err := scalarString(e.value, key)
			if err != nil {
				return fd, err
			}
			if fd.Index, err = ParseIndexDetail(s); err != nil {
				return fd, err
			}
		default:
			return fd, errors.UnknownOption("field option", e.key)
		}
	}
	if fd.Type == "" {
		return fd, errors.InvalidArgument("%s: missing field type", where)
	}
	return fd, nil
}
