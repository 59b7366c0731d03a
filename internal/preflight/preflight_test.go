package preflight

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/searchbridge/internal/engine"
)

func writeSchema(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCheckStatus_String(t *testing.T) {
	assert.Equal(t, "PASS", StatusPass.String())
	assert.Equal(t, "WARN", StatusWarn.String())
	assert.Equal(t, "FAIL", StatusFail.String())
	assert.Equal(t, "UNKNOWN", CheckStatus(9).String())
}

func TestCheckResult_EncodesStatusAsText(t *testing.T) {
	data, err := json.Marshal(CheckResult{Name: "x", Status: StatusWarn})

	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"warn"`)
}

func TestSummary(t *testing.T) {
	pass := CheckResult{Status: StatusPass, Required: true}
	warn := CheckResult{Status: StatusWarn}
	optionalFail := CheckResult{Status: StatusFail}
	requiredFail := CheckResult{Status: StatusFail, Required: true}

	assert.Equal(t, "ready", Summary([]CheckResult{pass}))
	assert.Equal(t, "ready_with_warnings", Summary([]CheckResult{pass, warn}))
	assert.Equal(t, "ready_with_warnings", Summary([]CheckResult{optionalFail}))
	assert.Equal(t, "failed", Summary([]CheckResult{warn, requiredFail}))
	assert.True(t, HasCriticalFailures([]CheckResult{pass, requiredFail}))
	assert.False(t, HasCriticalFailures([]CheckResult{pass, optionalFail}))
}

func TestRunAll_FreshProject(t *testing.T) {
	// Given: a valid schema and an index that does not exist yet
	dir := t.TempDir()
	c := New(Options{
		IndexPath:  filepath.Join(dir, "index"),
		SchemaPath: writeSchema(t, dir, `{"title": {"type": "text", "stored": true}}`),
	})

	// When: running every check
	results := c.RunAll(context.Background())

	// Then: nothing critical fails and each check reports once
	require.Len(t, results, 5)
	assert.False(t, HasCriticalFailures(results))
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"disk_space", "write_permissions", "file_descriptors", "schema", "writer_lock"}, names)
}

func TestCheckSchema(t *testing.T) {
	t.Run("invalid schema is critical before creation", func(t *testing.T) {
		dir := t.TempDir()
		c := New(Options{IndexPath: filepath.Join(dir, "index"), SchemaPath: writeSchema(t, dir, `{"title": {"type": "bogus"}}`)})

		r := c.CheckSchema()

		assert.Equal(t, StatusFail, r.Status)
		assert.True(t, r.IsCritical())
	})

	t.Run("missing schema with existing index passes", func(t *testing.T) {
		dir := t.TempDir()
		c := New(Options{IndexPath: dir})

		assert.Equal(t, StatusPass, c.CheckSchema().Status)
	})

	t.Run("missing schema without index fails", func(t *testing.T) {
		c := New(Options{IndexPath: filepath.Join(t.TempDir(), "index")})

		assert.True(t, c.CheckSchema().IsCritical())
	})
}

func TestCheckWriterLock_Held(t *testing.T) {
	// Given: another holder of the writer lock
	dir := t.TempDir()
	held := flock.New(filepath.Join(dir, engine.WriterLockFile))
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer func() { _ = held.Unlock() }()

	// When: checking
	r := New(Options{IndexPath: dir}).CheckWriterLock()

	// Then: a warning is reported
	assert.Equal(t, StatusWarn, r.Status)
}

func TestCheckWriterLock_Free(t *testing.T) {
	r := New(Options{IndexPath: t.TempDir()}).CheckWriterLock()

	assert.Equal(t, StatusPass, r.Status)
}

func TestCheckWritePermissions_UsesExistingParent(t *testing.T) {
	dir := t.TempDir()

	r := New(Options{IndexPath: filepath.Join(dir, "a", "b")}).CheckWritePermissions()

	assert.Equal(t, StatusPass, r.Status)
	assert.Contains(t, r.Message, dir)
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	PrintResults(&buf, []CheckResult{
		{Name: "disk_space", Status: StatusPass, Message: "1.0 GB free", Details: "hidden"},
		{Name: "writer_lock", Status: StatusWarn, Message: "busy", Details: "stop it"},
	}, false)

	out := buf.String()
	assert.Contains(t, out, "[PASS] disk_space: 1.0 GB free")
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "stop it")
	assert.Contains(t, out, "Status: READY_WITH_WARNINGS")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 bytes", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "100.0 MB", formatBytes(MinDiskSpaceBytes))
}
