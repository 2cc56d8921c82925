package repack

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFile is the name of the per-directory lock file.
const LockFile = ".texpak.lock"

// ErrLocked is returned when another process holds the directory lock.
var ErrLocked = errors.New("repack: directory is locked by another texpak process")

// LockDir takes the exclusive lock for dir. The returned function releases it.
func LockDir(dir string) (func() error, error) {
	lock := flock.New(filepath.Join(dir, LockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("repack: acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return lock.Unlock, nil
}
