package lockfile

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by lockfile operations.
//
// Callers should use [errors.Is] to check error types:
//
//	f, err := lockfile.Open("data.txt", "rw", lockfile.Options{})
//	if errors.Is(err, lockfile.ErrLockUnavailable) {
//	    // someone else holds the file
//	}
//
// None of these are retried internally.
var (
	// ErrConfig indicates invalid construction arguments, for example a
	// filename without a mode, or a non-positive chunk size.
	ErrConfig = errors.New("lockfile: invalid configuration")

	// ErrInvalidFilename indicates the filename is empty or contains
	// characters the platform does not allow. Wraps [ErrConfig].
	ErrInvalidFilename = fmt.Errorf("%w: invalid filename", ErrConfig)

	// ErrInvalidMode indicates an unrecognized mode string.
	// Valid modes: w, wb, r, rb, a, ab, rw, rwb.
	ErrInvalidMode = errors.New("lockfile: invalid mode")

	// ErrFileNotFound indicates a read mode (r, rb) was used on a missing file.
	ErrFileNotFound = errors.New("lockfile: file not found")

	// ErrLockUnavailable indicates the exclusive lock is held by another
	// handle or process. Contention is reported immediately, never awaited.
	ErrLockUnavailable = errors.New("lockfile: lock unavailable")

	// ErrModeMismatch indicates text data was passed to a binary handle or
	// the other way round.
	ErrModeMismatch = errors.New("lockfile: mode mismatch")

	// ErrNotWritable indicates a write on a handle opened for reading only.
	ErrNotWritable = errors.New("lockfile: not writable")

	// ErrNotReadable indicates a read on a handle opened for writing only.
	ErrNotReadable = errors.New("lockfile: not readable")

	// ErrInvalidSeek indicates the resulting cursor position would be negative.
	ErrInvalidSeek = errors.New("lockfile: invalid seek")

	// ErrEncoding indicates text could not be decoded or encoded and no
	// fallback encoding was left to try, or the declared encoding is unknown.
	ErrEncoding = errors.New("lockfile: encoding error")

	// ErrHandleClosed indicates an operation on a closed or never opened
	// [LockFile].
	//
	// This is a programming error.
	ErrHandleClosed = errors.New("lockfile: handle closed")

	// ErrAlreadyOpen indicates [LockFile.Open] was called while a file is
	// still open on the same [LockFile]. Close it first.
	ErrAlreadyOpen = errors.New("lockfile: already open")
)
