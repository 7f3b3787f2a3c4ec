//go:build !unix && !windows

package lockfile

// DefaultProvider returns the [LockProvider] for this platform.
//
// No native exclusive lock exists here, so files are opened advisory-only.
func DefaultProvider() LockProvider {
	return AdvisoryNoOpProvider{}
}
