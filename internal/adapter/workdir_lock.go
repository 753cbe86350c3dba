package adapter

import (
	"fmt"
	"sync"

	"github.com/gofrs/flock"

	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

const lockSuffix = ".stagecheck.lock"

// WorkdirLocker guards working copies against concurrent harness processes
// that were pointed at the same --workdir.
type WorkdirLocker struct {
	mu    sync.Mutex
	locks map[string]*flock.Flock
}

// NewWorkdirLocker constructs an empty locker.
func NewWorkdirLocker() *WorkdirLocker {
	return &WorkdirLocker{locks: make(map[string]*flock.Flock)}
}

// Lock takes an exclusive lock next to dir without blocking.
func (l *WorkdirLocker) Lock(dir m.Path) error {
	filename := string(dir) + lockSuffix

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.locks[filename]; ok {
		return fmt.Errorf("working copy %s is already in use by this run", dir)
	}

	locker := flock.New(filename)

	ok, err := locker.TryLock()
	if err != nil {
		_ = locker.Close()
		return fmt.Errorf("lock working copy %s: %w", dir, err)
	}

	if !ok {
		_ = locker.Close()
		return fmt.Errorf("working copy %s is locked by another process", dir)
	}

	l.locks[filename] = locker

	return nil
}

// Unlock releases the lock for dir, if held.
func (l *WorkdirLocker) Unlock(dir m.Path) {
	filename := string(dir) + lockSuffix

	l.mu.Lock()
	defer l.mu.Unlock()

	locker, ok := l.locks[filename]
	if !ok {
		return
	}

	delete(l.locks, filename)

	_ = locker.Unlock()
	_ = locker.Close()
}
