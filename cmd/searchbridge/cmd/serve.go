package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/searchbridge/internal/ingest"
	"github.com/Aman-CERP/searchbridge/internal/mcp"
)

func newServeCmd(a *app) *cobra.Command {
	var watchDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start an MCP server over stdio exposing the search, search_terms,
tokenize and index_status tools and the searchbridge://schema resource.

stdout carries the protocol, so logs go to logging.file, falling back to
~/.searchbridge/logs/searchbridge.log, and never to the terminal.

An index is held open by one process at a time. To keep ingesting while
serving, pass --watch: the directory is ingested and then watched from
inside the server process, and index_status reports its progress.`,
		Example: `  searchbridge serve
  searchbridge serve --watch ./feed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), a, watchDir)
		},
	}

	cmd.Flags().StringVarP(&watchDir, "watch", "w", "", "Ingest and watch this directory while serving")

	return cmd
}

func runServe(ctx context.Context, a *app, watchDir string) error {
	idx, err := a.openIndex(true)
	if err != nil {
		slog.Error("serve_open_failed", slog.String("error", err.Error()))
		return err
	}
	defer idx.Release()

	srv, err := mcp.NewServer(idx, mcp.Options{
		DefaultLimit:  a.cfg.Search.DefaultLimit,
		DefaultFields: a.cfg.Search.DefaultFields,
	})
	if err != nil {
		return err
	}
	defer func() { _ = srv.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	watched := make(chan struct{})
	defer func() {
		cancel()
		<-watched
	}()

	if watchDir == "" {
		close(watched)
	} else {
		g := ingest.New(idx, a.ingestConfig())
		srv.SetIngestProgress(g.Progress())
		go func() {
			defer close(watched)
			if err := g.Watch(ctx, watchDir); err != nil && ctx.Err() == nil {
				slog.Error("serve_ingest_stopped", slog.String("dir", watchDir), slog.String("error", err.Error()))
			}
		}()
	}

	return srv.Serve(ctx, a.cfg.Server.Transport)
}
