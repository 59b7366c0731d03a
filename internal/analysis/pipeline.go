// Package analysis compiles tokenizer descriptors into bleve analyzers and
// exposes the resulting token streams with byte and character offsets.
package analysis

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/whitespace"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"

	"github.com/Aman-CERP/searchbridge/internal/descriptor"
	"github.com/Aman-CERP/searchbridge/internal/errors"
)

// DefaultMaxTokenLength is the token length limit of the built-in "default"
// pipeline.
const DefaultMaxTokenLength = 40

// Names of the pipelines every schema provides.
const (
	Default    = "default"
	Raw        = "raw"
	EnStem     = "en_stem"
	Whitespace = "whitespace"
)

// Token is one analyzed token.
type Token struct {
	Text string `json:"text"`
	// Byte offsets into the input.
	OffsetFrom int `json:"offset_from"`
	OffsetTo   int `json:"offset_to"`
	// Code point offsets into the input.
	CharFrom int `json:"char_from"`
	CharTo   int `json:"char_to"`
	// Position is 0-based.
	Position       int `json:"position"`
	PositionLength int `json:"position_length"`
}

type filterDef struct {
	name   string
	config map[string]interface{} // nil for filters registered globally
}

// Pipeline is a compiled tokenizer: a base tokenizer followed by filters in
// a fixed order. It is immutable and safe for concurrent use.
type Pipeline struct {
	desc      descriptor.TokenizerDescriptor
	tokenizer string
	filters   []filterDef
	analyzer  analysis.Analyzer
}

// Compile builds a pipeline. Filters are always applied in this order,
// whichever subset is enabled:
//
//	remove long → ASCII alphanumeric only → ASCII folding → lower case → stemmer → stop words
//
// Each filter sees the output of the previous one, so for example stop
// words are matched against stemmed, lower-cased terms.
func Compile(desc descriptor.TokenizerDescriptor) (*Pipeline, error) {
	p := &Pipeline{desc: desc}

	switch desc.Tokenizer {
	case "", descriptor.TokenizerSimple, "default":
		p.tokenizer = SimpleTokenizerName
	case descriptor.TokenizerWhitespace:
		p.tokenizer = whitespace.Name
	case descriptor.TokenizerRaw, "keyword", single.Name:
		p.tokenizer = single.Name
	default:
		return nil, errors.UnknownOption("tokenizer", desc.Tokenizer)
	}

	if desc.MaxTokenLength > 0 {
		p.filters = append(p.filters, filterDef{
			name: RemoveLongName + "_" + strconv.Itoa(desc.MaxTokenLength),
			config: map[string]interface{}{
				"type": RemoveLongName,
				"max":  float64(desc.MaxTokenLength),
			},
		})
	}
	if desc.AlphanumOnly {
		p.filters = append(p.filters, filterDef{name: AlnumOnlyName})
	}
	if desc.ASCIIFolding {
		p.filters = append(p.filters, filterDef{name: ASCIIFoldName})
	}
	if desc.LowerCase {
		p.filters = append(p.filters, filterDef{name: lowercase.Name})
	}
	if desc.Stemmer != "" {
		lang, err := lookupLanguage(desc.Stemmer)
		if err != nil {
			return nil, err
		}
		p.filters = append(p.filters, filterDef{name: lang.stemmer})
	}
	if desc.StopWords != "" {
		lang, err := lookupLanguage(desc.StopWords)
		if err != nil {
			return nil, err
		}
		p.filters = append(p.filters, filterDef{name: lang.stop})
	}

	cache := registry.NewCache()
	for _, f := range p.filters {
		if f.config == nil {
			continue
		}
		if _, err := cache.DefineTokenFilter(f.name, f.config); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInternal, err, "define token filter %s", f.name)
		}
	}
	a, err := cache.DefineAnalyzer("pipeline", p.analyzerConfig())
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInternal, err, "define analyzer")
	}
	p.analyzer = a
	return p, nil
}

// MustCompile is Compile for descriptors known to be valid.
func MustCompile(desc descriptor.TokenizerDescriptor) *Pipeline {
	p, err := Compile(desc)
	if err != nil {
		panic(fmt.Sprintf("analysis: %v", err))
	}
	return p
}

func (p *Pipeline) analyzerConfig() map[string]interface{} {
	cfg := map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": p.tokenizer,
	}
	if len(p.filters) > 0 {
		names := make([]interface{}, len(p.filters))
		for i, f := range p.filters {
			names[i] = f.name
		}
		cfg["token_filters"] = names
	}
	return cfg
}

// Descriptor returns the descriptor the pipeline was compiled from.
func (p *Pipeline) Descriptor() descriptor.TokenizerDescriptor { return p.desc }

// FilterNames returns the bleve filter names in application order.
func (p *Pipeline) FilterNames() []string {
	out := make([]string, len(p.filters))
	for i, f := range p.filters {
		out[i] = f.name
	}
	return out
}

// Analyzer returns the bleve analyzer.
func (p *Pipeline) Analyzer() analysis.Analyzer { return p.analyzer }

// Register installs the pipeline into m as a custom analyzer called name.
func (p *Pipeline) Register(m *mapping.IndexMappingImpl, name string) error {
	for _, f := range p.filters {
		if f.config == nil {
			continue
		}
		if _, exists := m.CustomAnalysis.TokenFilters[f.name]; exists {
			continue
		}
		if err := m.AddCustomTokenFilter(f.name, f.config); err != nil {
			return errors.Wrapf(errors.ErrCodeInternal, err, "register token filter %s", f.name)
		}
	}
	if err := m.AddCustomAnalyzer(name, p.analyzerConfig()); err != nil {
		return errors.Wrapf(errors.ErrCodeInternal, err, "register analyzer %s", name)
	}
	return nil
}

// Tokenize analyzes text. Character offsets are derived from the byte
// offsets by walking the UTF-8 encoding of text.
func (p *Pipeline) Tokenize(text string) []Token {
	stream := p.analyzer.Analyze([]byte(text))
	chars := charIndex(text)

	out := make([]Token, 0, len(stream))
	for _, t := range stream {
		out = append(out, Token{
			Text:           string(t.Term),
			OffsetFrom:     t.Start,
			OffsetTo:       t.End,
			CharFrom:       chars(t.Start),
			CharTo:         chars(t.End),
			Position:       t.Position - 1,
			PositionLength: 1,
		})
	}
	return out
}

// Terms returns only the token texts.
func (p *Pipeline) Terms(text string) []string {
	stream := p.analyzer.Analyze([]byte(text))
	out := make([]string, len(stream))
	for i, t := range stream {
		out[i] = string(t.Term)
	}
	return out
}

// charIndex returns a function mapping a byte offset of s to the number of
// code points before it. Offsets inside a multi-byte sequence map to the
// code point that contains them.
func charIndex(s string) func(int) int {
	if isASCII([]byte(s)) {
		return func(b int) int { return b }
	}
	idx := make([]int, len(s)+1)
	n := 0
	for i := 0; i < len(s); {
		_, size := utf8.DecodeRuneInString(s[i:])
		for j := 0; j < size; j++ {
			idx[i+j] = n
		}
		i += size
		n++
	}
	idx[len(s)] = n
	return func(b int) int {
		if b < 0 {
			return 0
		}
		if b > len(s) {
			return n
		}
		return idx[b]
	}
}

// Builtins returns the pipelines available to every schema.
func Builtins() map[string]*Pipeline {
	return map[string]*Pipeline{
		Default: MustCompile(descriptor.TokenizerDescriptor{
			MaxTokenLength: DefaultMaxTokenLength,
			LowerCase:      true,
		}),
		Raw: MustCompile(descriptor.TokenizerDescriptor{Tokenizer: descriptor.TokenizerRaw}),
		EnStem: MustCompile(descriptor.TokenizerDescriptor{
			MaxTokenLength: DefaultMaxTokenLength,
			LowerCase:      true,
			Stemmer:        "en",
		}),
		Whitespace: MustCompile(descriptor.TokenizerDescriptor{Tokenizer: descriptor.TokenizerWhitespace}),
	}
}
