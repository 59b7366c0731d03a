package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/searchbridge/internal/ingest"
	"github.com/Aman-CERP/searchbridge/internal/ui"
)

type indexOptions struct {
	watch       bool
	plain       bool
	commitEvery int
}

func newIndexCmd(a *app) *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index <source>",
		Short: "Ingest document files into the index",
		Long: `Ingest documents from a file or directory into the configured index.

Directories are walked recursively; .json files hold one object or an array
of objects, .jsonl and .ndjson files hold one object per line. The index is
created from index.schema when it does not exist yet.

Documents that do not match the schema are skipped and counted as rejected.
With --watch, files created or appended to afterwards are ingested as they
change until interrupted.`,
		Example: `  searchbridge index ./docs
  searchbridge index books.jsonl --commit-every 1000
  searchbridge index ./feed --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), cmd, a, args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Keep ingesting files as they change")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "Print plain progress lines instead of the interactive panel")
	cmd.Flags().IntVar(&opts.commitEvery, "commit-every", 0, "Documents between commits (default: ingest.commit_every)")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, a *app, source string, opts indexOptions) error {
	idx, err := a.openIndex(true)
	if err != nil {
		return err
	}
	defer idx.Release()

	cfg := a.ingestConfig()
	if opts.commitEvery > 0 {
		cfg.CommitEvery = opts.commitEvery
	}
	g := ingest.New(idx, cfg)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		r         ui.Renderer
		stopTrack = func() {}
	)
	if !a.json {
		r = ui.NewRenderer(ui.Config{Output: cmd.OutOrStdout(), ForcePlain: opts.plain, Source: source})
		if tr, ok := r.(*ui.TUIRenderer); ok {
			tr.OnQuit(cancel)
		}
		if err := r.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = r.Stop() }()

		trackCtx, cancelTrack := context.WithCancel(ctx)
		tracked := make(chan struct{})
		go func() {
			defer close(tracked)
			ui.Track(trackCtx, g.Progress(), r, 250*time.Millisecond)
		}()
		stopTrack = func() {
			cancelTrack()
			<-tracked
		}
		defer stopTrack()
	}

	if opts.watch {
		slog.Info("index_watch_started", slog.String("source", source), slog.String("index", a.cfg.Index.Path))
		err := g.Watch(ctx, source)
		if err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	}

	res, err := g.Run(ctx, source)
	if err != nil {
		return err
	}
	stopTrack()
	if r != nil {
		r.Update(g.Progress().Snapshot())
		r.Complete(res)
		return nil
	}
	return a.out(cmd).Encode(indexResult{
		Source:   source,
		Index:    a.cfg.Index.Path,
		Files:    res.Files,
		Docs:     res.Docs,
		Rejected: res.Rejected,
		Opstamp:  res.Opstamp.String(),
		Duration: res.Duration.String(),
	})
}

type indexResult struct {
	Source   string `json:"source"`
	Index    string `json:"index"`
	Files    int    `json:"files"`
	Docs     int    `json:"docs"`
	Rejected int    `json:"rejected"`
	Opstamp  string `json:"opstamp"`
	Duration string `json:"duration"`
}
