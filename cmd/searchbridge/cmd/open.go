package cmd

import (
	"os"

	"github.com/Aman-CERP/searchbridge/internal/errors"
	"github.com/Aman-CERP/searchbridge/internal/ingest"
	"github.com/Aman-CERP/searchbridge/internal/watcher"
	"github.com/Aman-CERP/searchbridge/pkg/searchbridge"
)

// loadSchema reads the schema descriptor named by index.schema. It returns
// nil when none is configured.
func (a *app) loadSchema() (*searchbridge.Schema, error) {
	path := a.cfg.Index.Schema
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ConfigError("failed to read schema file "+path, err).
			WithSuggestion("Run 'searchbridge init' to write a starter schema.json")
	}
	return searchbridge.ParseSchema(data)
}

// indexOptions maps the configuration to index options.
func (a *app) indexOptions() (searchbridge.IndexOptions, error) {
	policy, err := a.cfg.ReloadPolicy()
	if err != nil {
		return searchbridge.IndexOptions{}, err
	}
	return searchbridge.IndexOptions{
		Path:           a.cfg.Index.Path,
		HeapSize:       float64(a.cfg.Index.HeapSize),
		ReloadOn:       policy,
		ReloadDelay:    a.cfg.ReloadDelay(),
		Pool:           a.pool(),
		DefaultFields:  a.cfg.Search.DefaultFields,
		QueryCacheSize: a.cfg.Search.QueryCacheSize,
		MaxExpansions:  a.cfg.Search.MaxExpansions,
	}, nil
}

// openIndex opens the configured index. With create set the index is
// created from the configured schema when absent.
func (a *app) openIndex(create bool) (*searchbridge.Index, error) {
	opts, err := a.indexOptions()
	if err != nil {
		return nil, err
	}
	if create {
		if opts.Schema, err = a.loadSchema(); err != nil {
			return nil, err
		}
	}
	return searchbridge.OpenIndex(opts)
}

// ingestConfig maps the configuration to ingest options.
func (a *app) ingestConfig() ingest.Config {
	return ingest.Config{
		CommitEvery:  a.cfg.Ingest.CommitEvery,
		ParseWorkers: a.cfg.Ingest.ParseWorkers,
		InFlight:     a.cfg.Ingest.InFlight,
		Watch: watcher.Options{
			DebounceWindow: a.cfg.WatchDebounce(),
			PollInterval:   a.cfg.PollInterval(),
		},
	}
}
