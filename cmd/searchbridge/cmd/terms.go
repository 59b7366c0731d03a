package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/searchbridge/pkg/searchbridge"
)

func newTermsCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "terms <field> [pattern]",
		Short: "List the indexed terms of a field",
		Long: `List the terms in a field's dictionary in lexical order with their
document frequencies. The optional pattern is a regular expression that
must match the whole term.`,
		Example: `  searchbridge terms title
  searchbridge terms title 'sa.*' --limit 20`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := ""
			if len(args) == 2 {
				pattern = args[1]
			}
			return runTerms(cmd.Context(), cmd, a, args[0], pattern, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Maximum number of terms; 0 lists all")

	return cmd
}

type termsResult struct {
	Field     string              `json:"field"`
	Terms     []searchbridge.Term `json:"terms"`
	Truncated bool                `json:"truncated"`
}

func runTerms(ctx context.Context, cmd *cobra.Command, a *app, field, pattern string, limit int) error {
	idx, err := a.openIndex(false)
	if err != nil {
		return err
	}
	defer idx.Release()

	searcher, err := idx.Searcher(ctx)
	if err != nil {
		return err
	}
	defer searcher.Release()

	terms, err := searcher.SearchTerms(ctx, field, pattern)
	if err != nil {
		return err
	}

	res := termsResult{Field: field, Terms: terms}
	if res.Terms == nil {
		res.Terms = []searchbridge.Term{}
	}
	if limit > 0 && len(res.Terms) > limit {
		res.Terms = res.Terms[:limit]
		res.Truncated = true
	}

	out := a.out(cmd)
	if out.JSON() {
		return out.Encode(res)
	}
	if len(res.Terms) == 0 {
		out.Warningf("No terms in %s", field)
		return nil
	}
	rows := make([][]string, len(res.Terms))
	for i, t := range res.Terms {
		rows[i] = []string{t.Text, strconv.FormatUint(t.DocFreq, 10)}
	}
	out.Table([]string{"TERM", "DOCS"}, rows)
	if res.Truncated {
		out.Statusf("", "... limited to %d terms", limit)
	}
	return nil
}
