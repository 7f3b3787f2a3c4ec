//go:build unix

package lockfile

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/calvinalkan/lockfile/pkg/fs"
)

// ExclusiveLockProvider takes flock(2) exclusive locks (LOCK_EX|LOCK_NB).
//
// flock is advisory and belongs to the open file description, so two
// handles opened separately on the same path exclude each other even
// inside one process. Cooperating processes must all go through flock for
// it to have effect.
type ExclusiveLockProvider struct {
	flock func(fd int, how int) error
}

// DefaultProvider returns the [LockProvider] for this platform.
func DefaultProvider() LockProvider {
	return ExclusiveLockProvider{}
}

// Exclusive always returns true.
func (ExclusiveLockProvider) Exclusive() bool { return true }

// Acquire locks f without blocking.
func (p ExclusiveLockProvider) Acquire(f fs.File) (LockToken, error) {
	flock := p.flock
	if flock == nil {
		flock = unix.Flock
	}

	fd := int(f.Fd())

	err := flockRetryEINTR(flock, fd, unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		if isWouldBlock(err) {
			return nil, fmt.Errorf("%w: %s", ErrLockUnavailable, f.Name())
		}

		return nil, fmt.Errorf("flock %s: %w", f.Name(), err)
	}

	return &onceToken{release: func() error {
		if err := flockRetryEINTR(flock, fd, unix.LOCK_UN); err != nil {
			return fmt.Errorf("unlocking %s: %w", f.Name(), err)
		}

		return nil
	}}, nil
}

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN)
}

// flockRetryEINTR wraps flock, retrying on EINTR.
//
// EINTR means a signal interrupted the syscall before it completed; it did
// not fail and just needs to be retried. Retries are capped so a signal
// storm cannot spin forever.
func flockRetryEINTR(flock func(fd int, how int) error, fd int, how int) error {
	const maxEINTRRetries = 10000

	var err error
	for range maxEINTRRetries {
		err = flock(fd, how)
		if err == nil || !errors.Is(err, unix.EINTR) {
			return err
		}
	}

	return err
}

var _ LockProvider = ExclusiveLockProvider{}
