package descriptor

import (
	"github.com/Aman-CERP/searchbridge/internal/errors"
)

// Base tokenizer names.
const (
	TokenizerSimple     = "simple"
	TokenizerWhitespace = "whitespace"
	TokenizerRaw        = "raw"
)

// TokenizerDescriptor configures a tokenizer pipeline. Zero values disable
// the corresponding filter.
type TokenizerDescriptor struct {
	Tokenizer      string `json:"tokenizer,omitempty" yaml:"tokenizer,omitempty"`
	MaxTokenLength int    `json:"max_token_length,omitempty" yaml:"max_token_length,omitempty"`
	AlphanumOnly   bool   `json:"alphanum_only,omitempty" yaml:"alphanum_only,omitempty"`
	ASCIIFolding   bool   `json:"ascii_folding,omitempty" yaml:"ascii_folding,omitempty"`
	LowerCase      bool   `json:"lower_case,omitempty" yaml:"lower_case,omitempty"`
	Stemmer        string `json:"stemmer,omitempty" yaml:"stemmer,omitempty"`
	StopWords      string `json:"stop_words,omitempty" yaml:"stop_words,omitempty"`
}

// ParseTokenizer parses a tokenizer pipeline descriptor such as
//
//	{"tokenizer": "simple", "max_token_length": 40, "lower_case": true, "stemmer": "english"}
func ParseTokenizer(data []byte) (TokenizerDescriptor, error) {
	var desc TokenizerDescriptor
	root, err := parseRoot(data, "tokenizer")
	if err != nil {
		return desc, err
	}
	entries, err := pairs(root, "tokenizer", errors.ErrCodeInvalidArgument)
	if err != nil {
		return desc, err
	}

	for _, e := range entries {
		key := "tokenizer." + e.key
		if isNull(e.value) {
			continue
		}
		switch normalize(e.key) {
		case "tokenizer", "base":
			desc.Tokenizer, err = scalarString(e.value, key)
		case "max_token_length", "remove_long":
			var v uint64
			v, err = scalarUint(e.value, 16, key)
			desc.MaxTokenLength = int(v)
		case "alphanum_only", "alpha_num_only":
			desc.AlphanumOnly, err = scalarBool(e.value, key)
		case "ascii_folding":
			desc.ASCIIFolding, err = scalarBool(e.value, key)
		case "lower_case", "lowercase", "lower_caser":
			desc.LowerCase, err = scalarBool(e.value, key)
		case "stemmer":
			desc.Stemmer, err = scalarString(e.value, key)
		case "stop_words", "stopwords":
			desc.StopWords, err = scalarString(e.value, key)
		default:
			return desc, errors.UnknownOption("tokenizer option", e.key)
		}
		if err != nil {
			return desc, err
		}
	}
	return desc, nil
}
