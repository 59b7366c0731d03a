package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/searchbridge/internal/logging"
	"github.com/Aman-CERP/searchbridge/internal/ui"
)

type logsOptions struct {
	lines   int
	follow  bool
	level   string
	grep    string
	file    string
	noColor bool
}

func newLogsCmd(a *app) *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View searchbridge logs",
		Long: `Show the last lines of the searchbridge log, or follow it as it grows.

The log file is --file, else logging.file from the configuration, else
~/.searchbridge/logs/searchbridge.log (where serve writes).`,
		Example: `  searchbridge logs -n 100
  searchbridge logs -f --level warn
  searchbridge logs --grep ingest_`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, a, opts)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	f.BoolVarP(&opts.follow, "follow", "f", false, "Follow new entries")
	f.StringVar(&opts.level, "level", "", "Minimum level (debug|info|warn|error)")
	f.StringVar(&opts.grep, "grep", "", "Only entries matching this regular expression")
	f.StringVar(&opts.file, "file", "", "Log file to read")
	f.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	return cmd
}

func runLogs(cmd *cobra.Command, a *app, opts logsOptions) error {
	explicit := opts.file
	if explicit == "" {
		explicit = a.cfg.Logging.File
	}
	path, err := logging.FindLogFile(explicit)
	if err != nil {
		return err
	}

	cfg := logging.ViewerConfig{
		Level: opts.level,
		Color: !opts.noColor && !ui.DetectNoColor() && ui.IsTTY(cmd.OutOrStdout()),
	}
	if opts.grep != "" {
		if cfg.Pattern, err = regexp.Compile(opts.grep); err != nil {
			return fmt.Errorf("invalid --grep pattern: %w", err)
		}
	}
	v := logging.NewViewer(cfg, cmd.OutOrStdout())

	entries, err := v.Tail(path, opts.lines)
	if err != nil {
		return err
	}
	v.Print(entries)
	if !opts.follow {
		return nil
	}

	ctx := cmd.Context()
	ch := make(chan logging.Entry, 64)
	done := make(chan error, 1)
	go func() {
		done <- v.Follow(ctx, path, ch)
		close(ch)
	}()
	for e := range ch {
		v.Print([]logging.Entry{e})
	}
	if err := <-done; err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
