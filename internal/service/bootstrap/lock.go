package bootstrap

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFilename guards an install root against concurrent bootstrap runs.
const LockFilename = ".boundless-server.lock"

// ErrAlreadyRunning is returned when another bootstrap holds the install root.
var ErrAlreadyRunning = errors.New("another bootstrap is running in this install root")

// acquireLock takes the advisory lock of root without blocking.
func acquireLock(root string) (*flock.Flock, error) {
	lock := flock.New(filepath.Join(root, LockFilename))

	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", lock.Path(), err)
	}

	if !locked {
		return nil, fmt.Errorf("%s: %w", lock.Path(), ErrAlreadyRunning)
	}

	return lock, nil
}
