//go:build windows

package lockfile

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/sys/windows"

	"github.com/calvinalkan/lockfile/pkg/fs"
)

// ExclusiveLockProvider takes LockFileEx exclusive locks over the whole
// file, failing immediately on contention.
//
// Unlike flock, these locks are mandatory: other handles get
// ERROR_LOCK_VIOLATION on reads and writes while the lock is held.
type ExclusiveLockProvider struct{}

// DefaultProvider returns the [LockProvider] for this platform.
func DefaultProvider() LockProvider {
	return ExclusiveLockProvider{}
}

// Exclusive always returns true.
func (ExclusiveLockProvider) Exclusive() bool { return true }

// Acquire locks f without blocking.
func (ExclusiveLockProvider) Acquire(f fs.File) (LockToken, error) {
	handle := windows.Handle(f.Fd())

	err := windows.LockFileEx(
		handle,
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0,
		math.MaxUint32,
		math.MaxUint32,
		&windows.Overlapped{},
	)
	if err != nil {
		if errors.Is(err, windows.ERROR_LOCK_VIOLATION) || errors.Is(err, windows.ERROR_IO_PENDING) {
			return nil, fmt.Errorf("%w: %s", ErrLockUnavailable, f.Name())
		}

		return nil, fmt.Errorf("LockFileEx %s: %w", f.Name(), err)
	}

	return &onceToken{release: func() error {
		err := windows.UnlockFileEx(handle, 0, math.MaxUint32, math.MaxUint32, &windows.Overlapped{})
		if err != nil {
			return fmt.Errorf("unlocking %s: %w", f.Name(), err)
		}

		return nil
	}}, nil
}

var _ LockProvider = ExclusiveLockProvider{}
