// Package lock provides cross-process mutual exclusion over a plugin store
// via an atomically created lock file.
package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/mortise-dev/mortise/internal/application/errors"
	"github.com/mortise-dev/mortise/internal/application/ports"
)

// FileName is the lock file's name under the store root.
const FileName = ".lock"

// defaultPollInterval is how often a blocked acquire re-checks the lock.
const defaultPollInterval = 50 * time.Millisecond

// ownerInfo is the metadata written into the lock file. The token ties a
// release back to the acquire that created the file, so a handle never
// deletes a lock reclaimed by somebody else.
type ownerInfo struct {
	Token      string    `json:"token"`
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// FileLock serializes store mutation across goroutines and processes.
// Acquisition creates the lock file with O_CREATE|O_EXCL; an existing file
// older than the staleness threshold is presumed abandoned and reclaimed.
type FileLock struct {
	path   string
	wait   time.Duration
	stale  time.Duration
	poll   time.Duration
	logger *slog.Logger
}

var _ ports.StoreLock = (*FileLock)(nil)

// NewFileLock creates a lock at path with the given wait timeout and
// staleness threshold.
func NewFileLock(path string, wait, stale time.Duration, logger *slog.Logger) *FileLock {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileLock{
		path:   path,
		wait:   wait,
		stale:  stale,
		poll:   defaultPollInterval,
		logger: logger,
	}
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

// Acquire blocks until the lock is held, an abandoned lock is reclaimed, the
// wait timeout elapses, or ctx is cancelled.
func (l *FileLock) Acquire(ctx context.Context) (ports.LockHandle, error) {
	deadline := time.Now().Add(l.wait)

	for {
		handle, err := l.tryAcquire()
		if err != nil {
			return nil, apperrors.NewLockAcquireError(l.path, l.wait, err, false)
		}
		if handle != nil {
			return handle, nil
		}

		if l.reclaimIfStale() {
			continue
		}

		if time.Now().After(deadline) {
			return nil, apperrors.NewLockAcquireError(l.path, l.wait, nil, true)
		}

		select {
		case <-ctx.Done():
			return nil, apperrors.NewLockAcquireError(l.path, l.wait, ctx.Err(), false)
		case <-time.After(l.poll):
		}
	}
}

// tryAcquire attempts the atomic create. A nil handle with nil error means
// the lock is currently held by someone else.
func (l *FileLock) tryAcquire() (*fileLockHandle, error) {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, nil
		}
		return nil, err
	}

	owner := ownerInfo{
		Token:      uuid.NewString(),
		PID:        os.Getpid(),
		AcquiredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(owner)
	if err == nil {
		_, err = f.Write(data)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// Leave no half-written lock behind.
		_ = os.Remove(l.path)
		return nil, fmt.Errorf("failed to write lock owner metadata: %w", err)
	}

	return &fileLockHandle{lock: l, token: owner.Token}, nil
}

// reclaimIfStale removes the lock file when its age exceeds the staleness
// threshold. The owner is presumed dead; the next acquire attempt races
// fairly for the freed lock.
func (l *FileLock) reclaimIfStale() bool {
	info, err := os.Stat(l.path)
	if err != nil {
		// Already gone: the holder released between our attempts.
		return os.IsNotExist(err)
	}
	age := time.Since(info.ModTime())
	if age <= l.stale {
		return false
	}
	l.logger.Warn("reclaiming abandoned store lock",
		"path", l.path, "age", age, "threshold", l.stale)
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		l.logger.Warn("failed to reclaim stale lock", "path", l.path, "error", err)
		return false
	}
	return true
}

// fileLockHandle is one held acquisition. Release is idempotent per handle.
type fileLockHandle struct {
	lock     *FileLock
	token    string
	released bool
}

// Release deletes the lock file, but only while it still carries this
// handle's token: a lock reclaimed by another process must not be deleted
// out from under its new holder.
func (h *fileLockHandle) Release() error {
	if h.released {
		return nil
	}
	h.released = true

	data, err := os.ReadFile(h.lock.path)
	if err != nil {
		if os.IsNotExist(err) {
			// Reclaimed and released by someone else; nothing to do.
			return nil
		}
		return apperrors.NewLockReleaseError(h.lock.path, err)
	}

	var owner ownerInfo
	if err := json.Unmarshal(data, &owner); err == nil && owner.Token != h.token {
		return apperrors.NewLockReleaseError(h.lock.path,
			fmt.Errorf("lock was reclaimed by another owner (pid %d)", owner.PID))
	}

	if err := os.Remove(h.lock.path); err != nil && !os.IsNotExist(err) {
		return apperrors.NewLockReleaseError(h.lock.path, err)
	}
	return nil
}
