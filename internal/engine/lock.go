package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/Aman-CERP/searchbridge/internal/errors"
)

// WriterLockFile is created inside the index directory and held for the
// lifetime of a Writer.
const WriterLockFile = ".writer.lock"

// writerLock guards the single logical writer of an index. On-disk indexes
// use a cross-process flock; in-memory indexes only need an in-process flag.
type writerLock struct {
	mu     sync.Mutex
	path   string
	flock  *flock.Flock
	locked bool
}

func newWriterLock(dir string) *writerLock {
	l := &writerLock{}
	if dir != "" {
		l.path = filepath.Join(dir, WriterLockFile)
		l.flock = flock.New(l.path)
	}
	return l
}

// TryLock acquires the lock without blocking. A lock held by another
// writer, in this process or another, fails with LockBusy.
func (l *writerLock) TryLock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.locked {
		return l.busy()
	}
	if l.flock == nil {
		l.locked = true
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return errors.StorageError("failed to create lock directory", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return errors.StorageError(fmt.Sprintf("failed to acquire %s", l.path), err)
	}
	if !acquired {
		return l.busy()
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. Safe to call on an unlocked lock.
func (l *writerLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.locked {
		return nil
	}
	l.locked = false
	if l.flock == nil {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return errors.StorageError(fmt.Sprintf("failed to release %s", l.path), err)
	}
	return nil
}

// IsLocked reports whether this process holds the lock.
func (l *writerLock) IsLocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.locked
}

func (l *writerLock) busy() *errors.BridgeError {
	err := errors.New(errors.ErrCodeLockBusy, "index already has an open writer", nil)
	if l.path != "" {
		err = err.WithDetail("lock", l.path)
	}
	return err.WithSuggestion("Release the other writer or wait for it to finish")
}
