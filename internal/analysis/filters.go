package analysis

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/character"
	"github.com/blevesearch/bleve/v2/registry"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// SimpleTokenizerName splits on every character that is neither a
	// letter nor a digit.
	SimpleTokenizerName = "searchbridge_simple"

	// RemoveLongName drops tokens whose UTF-8 length reaches "max" bytes.
	RemoveLongName = "searchbridge_remove_long"

	// AlnumOnlyName drops tokens holding anything but ASCII letters and
	// digits.
	AlnumOnlyName = "searchbridge_alnum_only"

	// ASCIIFoldName maps letters to their closest ASCII form.
	ASCIIFoldName = "searchbridge_ascii_fold"
)

func init() {
	_ = registry.RegisterTokenizer(SimpleTokenizerName, simpleTokenizerConstructor)
	_ = registry.RegisterTokenFilter(RemoveLongName, removeLongConstructor)
	_ = registry.RegisterTokenFilter(AlnumOnlyName, alnumOnlyConstructor)
	_ = registry.RegisterTokenFilter(ASCIIFoldName, asciiFoldConstructor)
}

func simpleTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return character.NewCharacterTokenizer(func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsNumber(r)
	}), nil
}

func removeLongConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	limit := 0
	switch v := config["max"].(type) {
	case float64:
		limit = int(v)
	case int:
		limit = v
	}
	return &removeLongFilter{limit: limit}, nil
}

// removeLongFilter keeps tokens strictly shorter than limit bytes.
type removeLongFilter struct {
	limit int
}

func (f *removeLongFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	if f.limit <= 0 {
		return input
	}
	out := input[:0]
	for _, tok := range input {
		if len(tok.Term) < f.limit {
			out = append(out, tok)
		}
	}
	return out
}

func alnumOnlyConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return alnumOnlyFilter{}, nil
}

type alnumOnlyFilter struct{}

func (alnumOnlyFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	out := input[:0]
	for _, tok := range input {
		if isASCIIAlnum(tok.Term) {
			out = append(out, tok)
		}
	}
	return out
}

func isASCIIAlnum(term []byte) bool {
	for _, b := range term {
		if !('a' <= b && b <= 'z' || 'A' <= b && b <= 'Z' || '0' <= b && b <= '9') {
			return false
		}
	}
	return true
}

func asciiFoldConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return asciiFoldFilter{}, nil
}

type asciiFoldFilter struct{}

// Letters that do not decompose into base letter plus marks.
var foldSpecial = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "Æ", "AE", "œ", "oe", "Œ", "OE",
	"ø", "o", "Ø", "O", "đ", "d", "Đ", "D", "ł", "l", "Ł", "L",
	"þ", "th", "Þ", "TH", "ð", "d", "Ð", "D", "ı", "i",
)

func (asciiFoldFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	for _, tok := range input {
		if isASCII(tok.Term) {
			continue
		}
		tok.Term = []byte(fold(string(tok.Term)))
	}
	return input
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return foldSpecial.Replace(folded)
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
