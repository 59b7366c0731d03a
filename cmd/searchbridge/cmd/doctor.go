package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/searchbridge/internal/preflight"
)

func newDoctorCmd(a *app) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the index can be created, written and served",
		Long: `Run diagnostics against the configured index:

  - Disk space (100 MB minimum, warns below twice index.heap_size)
  - Write permissions on the index directory
  - File descriptor limit (1024 minimum)
  - Schema descriptor validity
  - Whether another process holds the index writer

Exits with an error when a required check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, a, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show details for passing checks")
	return cmd
}

type doctorResult struct {
	Status string                  `json:"status"`
	Checks []preflight.CheckResult `json:"checks"`
}

func runDoctor(cmd *cobra.Command, a *app, verbose bool) error {
	c := preflight.New(preflight.Options{
		IndexPath:  a.cfg.Index.Path,
		SchemaPath: a.cfg.Index.Schema,
		HeapSize:   a.cfg.Index.HeapSize,
	})
	results := c.RunAll(cmd.Context())

	out := a.out(cmd)
	if out.JSON() {
		if err := out.Encode(doctorResult{Status: preflight.Summary(results), Checks: results}); err != nil {
			return err
		}
	} else {
		preflight.PrintResults(cmd.OutOrStdout(), results, verbose)
	}

	if preflight.HasCriticalFailures(results) {
		return fmt.Errorf("system check failed")
	}
	return nil
}
