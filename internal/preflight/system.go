package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// MinDiskSpaceBytes is the free space below which indexing fails (100MB).
const MinDiskSpaceBytes = 100 * 1024 * 1024

// MinFileDescriptors is the descriptor limit below which segment merges
// may run out of files.
const MinFileDescriptors = 1024

// CheckDiskSpace checks the free space on the volume holding the index.
// Less than twice the writer heap budget is a warning.
func (c *Checker) CheckDiskSpace() CheckResult {
	result := CheckResult{Name: "disk_space", Required: true}

	dir := existingAncestor(c.opts.IndexPath)
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to check disk space: %v", err)
		return result
	}
	avail := stat.Bavail * uint64(stat.Bsize)
	result.Message = fmt.Sprintf("%s free at %s", formatBytes(avail), dir)

	switch {
	case avail < MinDiskSpaceBytes:
		result.Status = StatusFail
		result.Details = "At least 100 MB must be free"
	case c.opts.HeapSize > 0 && avail < 2*uint64(c.opts.HeapSize):
		result.Status = StatusWarn
		result.Details = fmt.Sprintf("Less than twice index.heap_size (%s)", formatBytes(uint64(c.opts.HeapSize)))
	default:
		result.Status = StatusPass
	}
	return result
}

// CheckWritePermissions checks that the index directory, or the directory
// it will be created in, is writable.
func (c *Checker) CheckWritePermissions() CheckResult {
	result := CheckResult{Name: "write_permissions", Required: true}

	dir := existingAncestor(c.opts.IndexPath)
	f, err := os.CreateTemp(dir, ".searchbridge-preflight-*")
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot write to %s", dir)
		result.Details = err.Error()
		return result
	}
	_ = f.Close()
	_ = os.Remove(f.Name())

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s is writable", dir)
	return result
}

// CheckFileDescriptors checks the open file limit.
func (c *Checker) CheckFileDescriptors() CheckResult {
	result := CheckResult{Name: "file_descriptors"}

	var limit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("failed to check file descriptor limit: %v", err)
		return result
	}
	result.Message = fmt.Sprintf("%d (minimum: %d)", limit.Cur, MinFileDescriptors)
	if limit.Cur < MinFileDescriptors {
		result.Status = StatusWarn
		result.Details = "Run 'ulimit -n 10240' to raise the limit"
		return result
	}
	result.Status = StatusPass
	return result
}

// existingAncestor returns path or its nearest existing parent.
func existingAncestor(path string) string {
	if path == "" {
		path = "."
	}
	path = filepath.Clean(path)
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}
