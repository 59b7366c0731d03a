package ingest

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/searchbridge/internal/errors"
	"github.com/Aman-CERP/searchbridge/internal/ignore"
	"github.com/Aman-CERP/searchbridge/internal/watcher"
	"github.com/Aman-CERP/searchbridge/pkg/searchbridge"
)

// Defaults for Config.
const (
	DefaultCommitEvery = 10_000
	DefaultInFlight    = 64
)

// Index is the part of an index an Ingester writes to.
type Index interface {
	AddDocumentAsync(doc any) *searchbridge.Promise[searchbridge.Opstamp]
	CommitAsync() *searchbridge.Promise[searchbridge.Opstamp]
}

// Config configures an Ingester.
type Config struct {
	// CommitEvery is the number of accepted documents between commits.
	CommitEvery int

	// ParseWorkers is the number of files read in parallel.
	// Default: GOMAXPROCS
	ParseWorkers int

	// InFlight bounds the adds submitted but not yet settled.
	InFlight int

	// Watch configures the file watcher and the accepted extensions.
	Watch watcher.Options
}

func (c Config) withDefaults() Config {
	if c.CommitEvery <= 0 {
		c.CommitEvery = DefaultCommitEvery
	}
	if c.ParseWorkers <= 0 {
		c.ParseWorkers = runtime.GOMAXPROCS(0)
	}
	if c.InFlight <= 0 {
		c.InFlight = DefaultInFlight
	}
	c.Watch = c.Watch.WithDefaults()
	return c
}

// Result summarizes an ingest run.
type Result struct {
	Files    int
	Docs     int
	Rejected int
	Opstamp  searchbridge.Opstamp
	Duration time.Duration
}

// Ingester loads document files into an index.
type Ingester struct {
	idx      Index
	cfg      Config
	progress *Progress
	retry    errors.RetryConfig

	// seen counts the records already ingested per file, so a file that
	// grows is ingested from where it left off.
	seen        map[string]int
	sinceCommit int
	opstamp     searchbridge.Opstamp
}

// New creates an Ingester writing to idx.
func New(idx Index, cfg Config) *Ingester {
	return &Ingester{
		idx:      idx,
		cfg:      cfg.withDefaults(),
		progress: NewProgress(),
		retry:    errors.DefaultRetryConfig(),
		seen:     make(map[string]int),
	}
}

// Progress returns the run's progress tracker.
func (g *Ingester) Progress() *Progress { return g.progress }

// Run ingests every document file under root and commits.
func (g *Ingester) Run(ctx context.Context, root string) (Result, error) {
	g.progress.SetStage(StageScanning)
	if err := g.loadIgnore(root); err != nil {
		g.progress.SetError(err.Error())
		return Result{}, err
	}
	files, err := Scan(root, g.cfg.Watch)
	if err != nil {
		g.progress.SetError(err.Error())
		return Result{}, err
	}
	slog.Info("ingest_started", slog.String("root", root), slog.Int("files", len(files)))

	res, err := g.IngestFiles(ctx, files)
	if err != nil {
		g.progress.SetError(err.Error())
		return res, err
	}
	g.progress.SetStatus(StatusReady)
	slog.Info("ingest_completed",
		slog.Int("files", res.Files),
		slog.Int("docs", res.Docs),
		slog.Int("rejected", res.Rejected),
		slog.String("opstamp", res.Opstamp.String()),
		slog.Duration("duration", res.Duration))
	return res, nil
}

// loadIgnore reads the ignore files under a root directory unless the
// caller supplied a matcher.
func (g *Ingester) loadIgnore(root string) error {
	if g.cfg.Watch.Ignore != nil {
		return nil
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil
	}
	m, err := ignore.Load(root)
	if err != nil {
		return errors.StorageError("failed to read ignore files", err).WithDetail("path", root)
	}
	if m.Len() > 0 {
		slog.Debug("ingest_ignore_loaded", slog.String("root", root), slog.Int("rules", m.Len()))
	}
	g.cfg.Watch.Ignore = m
	return nil
}

type parsed struct {
	records []Record
	err     error
}

// IngestFiles ingests the given files and commits. Files are read in
// parallel and their documents submitted in file order. Up to InFlight adds
// run at once, so opstamps follow file order only when InFlight is 1.
func (g *Ingester) IngestFiles(ctx context.Context, files []string) (Result, error) {
	start := time.Now()
	res := Result{Files: len(files)}
	g.progress.AddFiles(len(files))
	g.progress.SetStage(StageParsing)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ready := make([]chan parsed, len(files))
	for i := range ready {
		ready[i] = make(chan parsed, 1)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		var eg errgroup.Group
		eg.SetLimit(g.cfg.ParseWorkers)
		for i, path := range files {
			if ctx.Err() != nil {
				break
			}
			eg.Go(func() error {
				records, err := ReadFile(path)
				ready[i] <- parsed{records: records, err: err}
				return nil
			})
		}
		_ = eg.Wait()
	}()
	defer func() { <-done }()

	var window []pendingAdd
	for i, path := range files {
		var p parsed
		select {
		case p = <-ready[i]:
		case <-ctx.Done():
			return res, ctx.Err()
		}
		g.progress.SetStage(StageIndexing)

		if p.err != nil {
			if !stderrors.Is(p.err, errors.ErrDocumentParse) {
				return res, p.err
			}
			slog.Warn("document_file_rejected", slog.String("path", path), slog.String("error", p.err.Error()))
			res.Rejected++
			g.progress.DocRejected()
			g.progress.FileDone()
			continue
		}

		records := p.records
		if n := g.seen[path]; n > 0 && n <= len(records) {
			records = records[n:]
		}
		g.seen[path] = len(p.records)

		for _, rec := range records {
			window = append(window, pendingAdd{rec: rec, p: g.idx.AddDocumentAsync(rec.Data)})
			if len(window) < g.cfg.InFlight && g.sinceCommit+len(window) < g.cfg.CommitEvery {
				continue
			}
			if err := g.settle(ctx, window, &res); err != nil {
				return res, err
			}
			window = window[:0]
			if g.sinceCommit >= g.cfg.CommitEvery {
				if err := g.commit(ctx); err != nil {
					return res, err
				}
			}
		}
		g.progress.FileDone()
	}

	if err := g.settle(ctx, window, &res); err != nil {
		return res, err
	}
	if err := g.commit(ctx); err != nil {
		return res, err
	}
	res.Opstamp = g.opstamp
	res.Duration = time.Since(start)
	return res, nil
}

type pendingAdd struct {
	rec Record
	p   *searchbridge.Promise[searchbridge.Opstamp]
}

// settle awaits every pending add. Rejected documents are counted and
// logged. Adds that found the writer buffer full are retried together after
// one commit, for as long as each round admits some of them.
func (g *Ingester) settle(ctx context.Context, window []pendingAdd, res *Result) error {
	full, err := g.await(ctx, window, res)
	for err == nil && len(full) > 0 {
		if err = g.commit(ctx); err != nil {
			break
		}
		for i := range full {
			full[i].p = g.idx.AddDocumentAsync(full[i].rec.Data)
		}
		var again []pendingAdd
		if again, err = g.await(ctx, full, res); err == nil && len(again) == len(full) {
			return g.settleOneByOne(ctx, again, res)
		}
		full = again
	}
	return err
}

// settleOneByOne adds documents alone on a freshly committed buffer. A
// document that still does not fit is larger than the budget and rejected.
func (g *Ingester) settleOneByOne(ctx context.Context, adds []pendingAdd, res *Result) error {
	for _, pa := range adds {
		if g.sinceCommit > 0 {
			if err := g.commit(ctx); err != nil {
				return err
			}
		}
		_, err := g.idx.AddDocumentAsync(pa.rec.Data).Await(ctx)
		if stderrors.Is(err, errors.ErrHeapExhausted) {
			g.reject(pa.rec, err, res)
			continue
		}
		if err := g.record(pa.rec, err, res); err != nil {
			return err
		}
	}
	return nil
}

// await settles adds and returns those refused for a full buffer.
func (g *Ingester) await(ctx context.Context, adds []pendingAdd, res *Result) ([]pendingAdd, error) {
	var full []pendingAdd
	for _, pa := range adds {
		_, err := pa.p.Await(ctx)
		if stderrors.Is(err, errors.ErrHeapExhausted) {
			full = append(full, pa)
			continue
		}
		if err := g.record(pa.rec, err, res); err != nil {
			return nil, err
		}
	}
	return full, nil
}

// record counts the outcome of one add. Errors that are not about the
// document itself are returned.
func (g *Ingester) record(rec Record, err error, res *Result) error {
	switch {
	case err == nil:
		res.Docs++
		g.sinceCommit++
		g.progress.DocIndexed()
	case stderrors.Is(err, errors.ErrDocumentParse), stderrors.Is(err, errors.ErrInvalidArgument),
		stderrors.Is(err, errors.ErrUnknownOption):
		g.reject(rec, err, res)
	default:
		return err
	}
	return nil
}

func (g *Ingester) reject(rec Record, err error, res *Result) {
	res.Rejected++
	g.progress.DocRejected()
	slog.Warn("document_rejected",
		slog.String("path", rec.Path),
		slog.Int("line", rec.Line),
		errors.LogAttr(err))
}

func (g *Ingester) commit(ctx context.Context) error {
	g.progress.SetStage(StageCommitting)
	stamp, err := errors.RetryWithResult(ctx, g.retry, func() (searchbridge.Opstamp, error) {
		return g.idx.CommitAsync().Await(ctx)
	})
	if err != nil {
		return err
	}
	g.opstamp = stamp
	g.sinceCommit = 0
	g.progress.Committed(stamp.String())
	g.progress.SetStage(StageIndexing)
	slog.Debug("ingest_committed", slog.String("opstamp", stamp.String()))
	return nil
}
