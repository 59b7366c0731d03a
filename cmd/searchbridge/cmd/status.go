package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/searchbridge/pkg/searchbridge"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the index document count, last commit and fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd, a)
		},
	}
}

type statusResult struct {
	Path    string               `json:"path"`
	NumDocs uint64               `json:"num_docs"`
	Opstamp searchbridge.Opstamp `json:"opstamp"`
	Fields  []searchbridge.Field `json:"fields"`
}

func runStatus(ctx context.Context, cmd *cobra.Command, a *app) error {
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

	n, err := searcher.NumDocs()
	if err != nil {
		return err
	}
	stamp, err := searcher.Opstamp()
	if err != nil {
		return err
	}
	res := statusResult{Path: idx.Path(), NumDocs: n, Opstamp: stamp, Fields: idx.Schema().Fields()}

	out := a.out(cmd)
	if out.JSON() {
		return out.Encode(res)
	}
	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "Index:     %s\n", res.Path)
	_, _ = fmt.Fprintf(w, "Documents: %d\n", res.NumDocs)
	_, _ = fmt.Fprintf(w, "Opstamp:   %s\n\n", res.Opstamp)
	rows := make([][]string, 0, len(res.Fields))
	for _, f := range res.Fields {
		rows = append(rows, fieldRow(f))
	}
	out.Table([]string{"ID", "NAME", "TYPE", "FLAGS", "TOKENIZER"}, rows)
	return nil
}
