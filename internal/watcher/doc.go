// Package watcher watches a directory of JSON documents and emits debounced
// batches of file events, and provides the generic Debouncer the engine uses
// to delay automatic reader reloads.
//
// Watching uses fsnotify, falling back to polling where fsnotify cannot be
// initialised (some network mounts and container volumes).
//
// Usage:
//
//	w, err := watcher.New(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go w.Start(ctx, "/path/to/docs")
//	<-w.Ready()
//	for batch := range w.Events() {
//	    for _, event := range batch {
//	        // ingest event.Path
//	    }
//	}
package watcher
