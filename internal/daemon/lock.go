package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrRunInProgress is returned when another process or job holds the run lock.
var ErrRunInProgress = errors.New("another vinylscout sync or sweep is already running")

// RunLock is a held run lock.
type RunLock struct {
	lock *flock.Flock
}

// AcquireRunLock takes the single-writer lock at path without blocking. Each
// call opens its own lock file handle, so two jobs in one process exclude
// each other the same way two processes do.
func AcquireRunLock(path string) (*RunLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	return &RunLock{lock: lock}, nil
}

// Release unlocks and closes the lock file.
func (l *RunLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
