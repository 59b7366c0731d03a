package ingest

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/Aman-CERP/searchbridge/internal/errors"
	"github.com/Aman-CERP/searchbridge/internal/watcher"
)

// Watch ingests root, then keeps ingesting files that are created or grow
// until ctx is done. Removing a file leaves its documents in the index.
func (g *Ingester) Watch(ctx context.Context, root string) error {
	if _, err := g.Run(ctx, root); err != nil {
		return err
	}

	w, err := watcher.New(g.cfg.Watch)
	if err != nil {
		return err
	}
	started := make(chan error, 1)
	go func() { started <- w.Start(ctx, root) }()
	defer func() { _ = w.Stop() }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-started:
		return watchEnded(ctx, err)
	case <-w.Ready():
	}

	g.progress.SetStatus(StatusWatching)
	slog.Info("ingest_watching", slog.String("root", root), slog.String("mode", w.Mode()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-started:
			return watchEnded(ctx, err)
		case err, ok := <-w.Errors():
			if ok {
				slog.Warn("watcher_error", errors.LogAttr(err))
			}
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			files := changedFiles(root, batch)
			if len(files) == 0 {
				continue
			}
			res, err := g.IngestFiles(ctx, files)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if errors.IsFatal(err) {
					g.progress.SetError(err.Error())
					return err
				}
				slog.Warn("ingest_batch_failed", slog.Int("files", len(files)), errors.LogAttr(err))
				continue
			}
			slog.Info("ingest_batch_completed",
				slog.Int("files", res.Files),
				slog.Int("docs", res.Docs),
				slog.String("opstamp", res.Opstamp.String()))
		}
	}
}

// watchEnded maps the result of a watcher's Start. Cancellation is a clean
// stop.
func watchEnded(ctx context.Context, err error) error {
	if err == nil || ctx.Err() != nil {
		return nil
	}
	return err
}

// changedFiles returns the absolute paths of files created or modified in
// a batch, in lexical order.
func changedFiles(root string, batch []watcher.FileEvent) []string {
	var files []string
	for _, ev := range batch {
		switch ev.Operation {
		case watcher.OpCreate, watcher.OpModify:
			files = append(files, filepath.Join(root, ev.Path))
		default:
			slog.Debug("document_file_removed", slog.String("path", ev.Path))
		}
	}
	slices.Sort(files)
	return slices.Compact(files)
}
