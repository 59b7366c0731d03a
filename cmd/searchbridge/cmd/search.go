package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/searchbridge/internal/output"
	"github.com/Aman-CERP/searchbridge/pkg/searchbridge"
)

type searchOptions struct {
	limit   int
	fields  []string
	explain bool
}

func newSearchCmd(a *app) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index",
		Long: `Search the index with the query-string syntax.

  word               match in the default fields
  field:word         match in one field
  "a phrase"         exact phrase
  prefix*            prefix match
  word~1             fuzzy match within one edit
  +must -mustnot     required and excluded clauses
  a AND b, a OR b    boolean operators
  year:>=1950        numeric range

Results are printed best first. With --json each hit is a
[score, document, explanation] triple.`,
		Example: `  searchbridge search "old man sea"
  searchbridge search 'title:sail* AND year:<1960' --limit 5
  searchbridge search whale --fields body --explain --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("limit") {
				opts.limit = a.cfg.Search.DefaultLimit
			}
			return runSearch(cmd.Context(), cmd, a, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", searchbridge.DefaultTop, "Maximum number of results (default: search.default_limit)")
	cmd.Flags().StringSliceVarP(&opts.fields, "fields", "f", nil, "Fields searched by unfielded terms (default: search.default_fields)")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Attach a score explanation to each hit")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, a *app, query string, opts searchOptions) error {
	start := time.Now()
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

	hits, err := searcher.Search(ctx, query, searchbridge.SearchOptions{
		Fields:  opts.fields,
		Top:     float64(opts.limit),
		Explain: opts.explain,
	})
	if err != nil {
		return err
	}
	slog.Info("search_completed",
		slog.String("query", query),
		slog.Int("results", len(hits)),
		slog.Duration("duration", time.Since(start)))

	out := a.out(cmd)
	if out.JSON() {
		if hits == nil {
			hits = []searchbridge.Hit{}
		}
		return out.Encode(hits)
	}
	printHits(cmd, out, query, hits)
	return nil
}

func printHits(cmd *cobra.Command, out *output.Writer, query string, hits []searchbridge.Hit) {
	if len(hits) == 0 {
		out.Warningf("No results for %q", query)
		return
	}
	w := cmd.OutOrStdout()
	for i, h := range hits {
		_, _ = fmt.Fprintf(w, "%d. score %.4f\n", i+1, h.Score)
		for pair := h.Doc.Oldest(); pair != nil; pair = pair.Next() {
			_, _ = fmt.Fprintf(w, "   %s: %s\n", pair.Key, formatValues(pair.Value))
		}
		if len(h.Explanation) > 0 {
			_, _ = fmt.Fprintf(w, "   explanation: %s\n", h.Explanation)
		}
	}
}

func formatValues(vs []any) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		switch v := v.(type) {
		case string:
			parts[i] = v
		default:
			parts[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(parts, " | ")
}
