package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/Aman-CERP/searchbridge/internal/engine"
	"github.com/Aman-CERP/searchbridge/pkg/searchbridge"
)

// CheckSchema parses the schema descriptor. A missing schema only matters
// while the index does not exist.
func (c *Checker) CheckSchema() CheckResult {
	result := CheckResult{Name: "schema"}
	exists := indexExists(c.opts.IndexPath)
	result.Required = !exists

	if c.opts.SchemaPath == "" {
		if exists {
			result.Status = StatusPass
			result.Message = "not configured; the index stores its own schema"
			return result
		}
		result.Status = StatusFail
		result.Message = "index.schema is not set and the index does not exist"
		result.Details = "Run 'searchbridge init' to write a starter schema.json"
		return result
	}

	data, err := os.ReadFile(c.opts.SchemaPath)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot read %s", c.opts.SchemaPath)
		result.Details = err.Error()
		return result
	}
	schema, err := searchbridge.ParseSchema(data)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s is not a valid schema", c.opts.SchemaPath)
		result.Details = err.Error()
		return result
	}
	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s defines %d fields", c.opts.SchemaPath, len(schema.Fields()))
	return result
}

// CheckWriterLock reports whether another process holds the index writer,
// which blocks `index` and `serve --watch`.
func (c *Checker) CheckWriterLock() CheckResult {
	result := CheckResult{Name: "writer_lock"}
	if !indexExists(c.opts.IndexPath) {
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%s will be created on first index", c.opts.IndexPath)
		return result
	}

	lock := flock.New(filepath.Join(c.opts.IndexPath, engine.WriterLockFile))
	ok, err := lock.TryLock()
	switch {
	case err != nil:
		result.Status = StatusWarn
		result.Message = "cannot test the writer lock"
		result.Details = err.Error()
	case !ok:
		result.Status = StatusWarn
		result.Message = "another process is writing to the index"
		result.Details = "Stop the running 'index --watch' or 'serve --watch' before ingesting"
	default:
		_ = lock.Unlock()
		result.Status = StatusPass
		result.Message = "free"
	}
	return result
}

func indexExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
