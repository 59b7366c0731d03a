package searchbridge

import (
	"github.com/Aman-CERP/searchbridge/internal/analysis"
	"github.com/Aman-CERP/searchbridge/internal/descriptor"
	"github.com/Aman-CERP/searchbridge/internal/errors"
)

type (
	// TokenizerDescriptor configures a pipeline: a base tokenizer followed
	// by optional filters applied in a fixed order.
	TokenizerDescriptor = descriptor.TokenizerDescriptor
	// Token is one emitted token with byte and codepoint offsets.
	Token = analysis.Token
)

// Tokenizer is an immutable compiled pipeline.
type Tokenizer struct {
	p *analysis.Pipeline
}

// NewTokenizer compiles a pipeline descriptor.
func NewTokenizer(desc TokenizerDescriptor) (*Tokenizer, error) {
	p, err := analysis.Compile(desc)
	if err != nil {
		return nil, err
	}
	return &Tokenizer{p: p}, nil
}

// ParseTokenizer compiles a JSON or YAML pipeline descriptor.
func ParseTokenizer(data []byte) (*Tokenizer, error) {
	desc, err := descriptor.ParseTokenizer(data)
	if err != nil {
		return nil, err
	}
	return NewTokenizer(desc)
}

// BuiltinTokenizer returns one of the pipelines every index knows:
// default, raw, en_stem or whitespace.
func BuiltinTokenizer(name string) (*Tokenizer, error) {
	p, ok := analysis.Builtins()[name]
	if !ok {
		return nil, errors.UnknownOption("tokenizer", name)
	}
	return &Tokenizer{p: p}, nil
}

// Tokenize runs the pipeline over text.
func (t *Tokenizer) Tokenize(text string) []Token { return t.p.Tokenize(text) }

// Terms returns only the token texts.
func (t *Tokenizer) Terms(text string) []string { return t.p.Terms(text) }

// Descriptor returns the descriptor the pipeline was compiled from.
func (t *Tokenizer) Descriptor() TokenizerDescriptor { return t.p.Descriptor() }
