package store

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	engerrors "github.com/engramhq/engram/internal/errors"
)

// lockFileName is the advisory lock file created at the root of a local
// store. §5 declares multiple orchestrators pointed at the same on-disk
// store unsupported; the lock turns that into a clear failure instead of
// silent corruption.
const lockFileName = ".engram.lock"

// storeLock wraps an advisory, non-blocking exclusive file lock over a
// local store's base path.
type storeLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

func newStoreLock(basePath string) *storeLock {
	lockPath := filepath.Join(basePath, lockFileName)
	return &storeLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// acquire takes the lock without blocking. A second process already holding
// it gets a TransportError rather than waiting or corrupting the store.
func (l *storeLock) acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return engerrors.TransportError("create lock directory", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return engerrors.TransportError("acquire store lock", err)
	}
	if !acquired {
		return engerrors.TransportError("store already locked by another process: "+l.path, nil)
	}

	l.locked = true
	return nil
}

// release is safe to call multiple times or on an unlocked storeLock.
func (l *storeLock) release() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return engerrors.TransportError("release store lock", err)
	}
	l.locked = false
	return nil
}
