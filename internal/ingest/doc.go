// Package ingest loads JSON documents from a directory into an index.
//
// Files ending in .json hold either one document object or an array of
// them. Files ending in .jsonl or .ndjson hold one document per line.
// Documents are handed to the index through its deferred forms and
// committed every Config.CommitEvery documents and once at the end.
//
// Watch keeps a directory under observation and ingests files as they are
// created or modified.
package ingest
