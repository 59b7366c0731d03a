package cmd

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/searchbridge/internal/analysis"
	"github.com/Aman-CERP/searchbridge/pkg/searchbridge"
)

func newTokenizeCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "tokenize <text>",
		Short: "Show how a tokenizer splits text",
		Long: `Run a tokenizer pipeline over text and print each token with its
position and its byte and code point offsets.

Built-in tokenizers work without an index. Custom tokenizers declared in
the schema are looked up in the configured index.`,
		Example: `  searchbridge tokenize "Café au lait"
  searchbridge tokenize --tokenizer raw "Café au lait"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := resolveTokenizer(a, name)
			if err != nil {
				return err
			}
			return printTokens(cmd, a, name, tok.Tokenize(strings.Join(args, " ")))
		},
	}

	cmd.Flags().StringVarP(&name, "tokenizer", "t", analysis.Default, "Tokenizer name")

	return cmd
}

func resolveTokenizer(a *app, name string) (*searchbridge.Tokenizer, error) {
	tok, err := searchbridge.BuiltinTokenizer(name)
	if err == nil || !searchbridge.IsUnknownOption(err) {
		return tok, err
	}
	idx, oerr := a.openIndex(false)
	if oerr != nil {
		return nil, err
	}
	defer idx.Release()
	return idx.Tokenizer(name)
}

type tokenizeResult struct {
	Tokenizer string               `json:"tokenizer"`
	Tokens    []searchbridge.Token `json:"tokens"`
}

func printTokens(cmd *cobra.Command, a *app, name string, tokens []searchbridge.Token) error {
	out := a.out(cmd)
	if out.JSON() {
		if tokens == nil {
			tokens = []searchbridge.Token{}
		}
		return out.Encode(tokenizeResult{Tokenizer: name, Tokens: tokens})
	}
	rows := make([][]string, len(tokens))
	for i, t := range tokens {
		rows[i] = []string{
			strconv.Itoa(t.Position),
			strconv.Quote(t.Text),
			strconv.Itoa(t.OffsetFrom) + ".." + strconv.Itoa(t.OffsetTo),
			strconv.Itoa(t.CharFrom) + ".." + strconv.Itoa(t.CharTo),
		}
	}
	out.Table([]string{"POS", "TOKEN", "BYTES", "CHARS"}, rows)
	return nil
}
