package engine

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/document"
	index "github.com/blevesearch/bleve_index_api"

	"github.com/Aman-CERP/searchbridge/internal/descriptor"
	"github.com/Aman-CERP/searchbridge/internal/errors"
	"github.com/Aman-CERP/searchbridge/internal/schema"
)

// parseDocument validates a JSON object against the schema and builds the
// engine document. Keys that are not schema fields are ignored, null values
// are skipped and arrays make a field multi-valued.
func (i *Index) parseDocument(id string, data []byte) (*document.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, parseErr("document is not valid JSON: %v", err)
	}
	if obj == nil {
		return nil, parseErr("document must be a JSON object")
	}
	if dec.More() {
		return nil, parseErr("document has trailing data after the JSON object")
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	doc := document.NewDocument(id)
	for _, f := range i.schema.Fields() {
		raw, ok := obj[f.Name]
		if !ok || raw == nil {
			continue
		}
		opts := indexingOptions(f)
		if opts == 0 {
			continue
		}

		values, multi := raw.([]any)
		if !multi {
			values = []any{raw}
		}
		var az analysis.Analyzer
		if f.Type != descriptor.FieldNumeric {
			var err error
			if az, err = i.analyzerFor(f); err != nil {
				return nil, err
			}
		}

		for pos, v := range values {
			if v == nil {
				continue
			}
			var arrayPositions []uint64
			if multi {
				arrayPositions = []uint64{uint64(pos)}
			}
			field, err := buildField(f, v, arrayPositions, opts, az)
			if err != nil {
				return nil, err
			}
			doc.AddField(field)
		}
	}
	return doc, nil
}

func buildField(f schema.Field, v any, arrayPositions []uint64, opts index.FieldIndexingOptions, az analysis.Analyzer) (document.Field, error) {
	switch f.Type {
	case descriptor.FieldNumeric:
		n, ok := v.(json.Number)
		if !ok {
			return nil, parseErr("field %q expects a number, got %s", f.Name, jsonKind(v)).WithDetail("field", f.Name)
		}
		x, err := n.Float64()
		if err != nil {
			return nil, parseErr("field %q: %v", f.Name, err).WithDetail("field", f.Name)
		}
		return document.NewNumericFieldWithIndexingOptions(f.EngineName(), arrayPositions, x, opts), nil
	default:
		s, ok := v.(string)
		if !ok {
			return nil, parseErr("field %q expects a string, got %s", f.Name, jsonKind(v)).WithDetail("field", f.Name)
		}
		return document.NewTextFieldCustom(f.EngineName(), arrayPositions, []byte(s), opts, az), nil
	}
}

// analyzerFor must be called with i.mu held.
func (i *Index) analyzerFor(f schema.Field) (analysis.Analyzer, error) {
	if f.Type == descriptor.FieldString {
		return i.mapping.AnalyzerNamed(keyword.Name), nil
	}
	p, ok := i.pipelines[f.TokenizerName()]
	if !ok {
		return nil, errors.UnknownOption("tokenizer", f.TokenizerName()).
			WithDetail("field", f.Name).
			WithSuggestion("Register the tokenizer on the index before adding documents")
	}
	return p.Analyzer(), nil
}

// indexingOptions maps field flags and index detail to bleve options.
func indexingOptions(f schema.Field) index.FieldIndexingOptions {
	var opts index.FieldIndexingOptions
	if f.Stored {
		opts |= index.StoreField
	}
	if f.Fast {
		opts |= index.DocValues
	}
	switch f.Type {
	case descriptor.FieldText:
		opts |= index.IndexField
		switch f.IndexDetail() {
		case descriptor.IndexBasic:
			opts |= index.SkipFreqNorm
		case descriptor.IndexWithFreqsAndPositions:
			opts |= index.IncludeTermVectors
		}
	case descriptor.FieldString:
		opts |= index.IndexField
	case descriptor.FieldNumeric:
		if f.Indexed {
			opts |= index.IndexField
		}
	}
	return opts
}

func jsonKind(v any) string {
	switch v.(type) {
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	case []any:
		return "a nested array"
	case map[string]any:
		return "an object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func parseErr(format string, args ...any) *errors.BridgeError {
	return errors.Newf(errors.ErrCodeDocumentParse, format, args...)
}
