package store

import (
	"context"
	"time"

	"github.com/gofrs/flock"
)

// FileLock is an exclusive lock on a file path, shared across processes
type FileLock interface {
	// TryLockContext attempts to acquire the lock, retrying until ctx is done
	TryLockContext(ctx context.Context, retryInterval time.Duration) (bool, error)
	Unlock() error
}

// FileLockFactory creates FileLock instances
type FileLockFactory interface {
	New(path string) FileLock
}

// FlockFactory creates locks backed by github.com/gofrs/flock
type FlockFactory struct{}

// New implements FileLockFactory
func (FlockFactory) New(path string) FileLock {
	return flock.New(path)
}

// lockRetryInterval is how often a busy lock is retried
const lockRetryInterval = 50 * time.Millisecond

// withFileLock runs fn while holding the lock at path
func withFileLock(ctx context.Context, factory FileLockFactory, path string, fn func() error) error {
	lock := factory.New(path)
	locked, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return err
	}
	if !locked {
		return ErrLocked
	}
	defer func() { _ = lock.Unlock() }()

	return fn()
}
