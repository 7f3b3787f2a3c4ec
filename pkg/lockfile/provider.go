package lockfile

import (
	"sync"

	"github.com/calvinalkan/lockfile/pkg/fs"
)

// LockProvider brokers the exclusive-open primitive of the host OS.
//
// Two implementations exist: [ExclusiveLockProvider] on platforms with a
// native lock (unix, windows) and [AdvisoryNoOpProvider] everywhere else.
// [DefaultProvider] picks the right one for the build target.
type LockProvider interface {
	// Exclusive reports whether tokens from this provider actually keep
	// other handles out. When false, [LockFile.IsLocked] is false and
	// concurrent external mutation is possible.
	Exclusive() bool

	// Acquire takes the lock on f without waiting.
	//
	// Returns an error wrapping [ErrLockUnavailable] if another handle holds
	// it. On error f is left open; the caller closes it.
	Acquire(f fs.File) (LockToken, error)
}

// LockToken is a held lock.
type LockToken interface {
	// Release drops the lock. It must be called before the file is closed.
	// Release is idempotent: calls after the first return nil.
	Release() error
}

// AdvisoryNoOpProvider is the [LockProvider] for platforms without a native
// exclusive lock. Acquire always succeeds and nothing is enforced.
//
// It is also useful in tests to exercise the degraded path on any platform.
type AdvisoryNoOpProvider struct{}

// Exclusive always returns false.
func (AdvisoryNoOpProvider) Exclusive() bool { return false }

// Acquire returns a token that guards nothing.
func (AdvisoryNoOpProvider) Acquire(fs.File) (LockToken, error) {
	return noopToken{}, nil
}

type noopToken struct{}

func (noopToken) Release() error { return nil }

// onceToken wraps a release func so it runs at most once.
type onceToken struct {
	mu      sync.Mutex
	release func() error
}

func (t *onceToken) Release() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.release == nil {
		return nil
	}

	release := t.release
	t.release = nil

	return release()
}

// Compile-time interface checks.
var (
	_ LockProvider = AdvisoryNoOpProvider{}
	_ LockToken    = noopToken{}
	_ LockToken    = (*onceToken)(nil)
)
