// Package searchbridge is the handle API over the search engine.
//
// Every engine object is reached through a handle. Schemas, tokenizers,
// queries and searchers are immutable and may be shared freely. An Index
// owns the engine index, a lock-guarded writer and a lock-guarded reader.
// Handles are released explicitly with Release or, failing that, when the
// garbage collector finds them unreachable.
//
// Each operation that touches the engine comes in two forms with identical
// outcomes: a blocking form that runs on the calling goroutine, and an
// Async form that runs on a worker pool and returns a Promise whose
// callbacks are delivered one at a time on the pool's dispatcher goroutine.
// The Async form clones the handle before hand-off, so releasing the
// caller's handle does not disturb work in flight.
//
//	s, _ := searchbridge.ParseSchema([]byte(`{"title": {"type": "text", "stored": true}}`))
//	idx, _ := searchbridge.CreateIndex(searchbridge.IndexOptions{Path: dir, Schema: s})
//	defer idx.Release()
//
//	idx.AddDocument(ctx, map[string]any{"title": "The Old Man and the Sea"})
//	idx.Commit(ctx)
//	idx.Reload(ctx)
//
//	searcher, _ := idx.Searcher(ctx)
//	defer searcher.Release()
//	hits, _ := searcher.Search(ctx, "sea", searchbridge.SearchOptions{Top: 10})
package searchbridge
