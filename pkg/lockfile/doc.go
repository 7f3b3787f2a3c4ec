// Package lockfile opens files under an exclusive OS lock and exposes
// mode-aware read, write and seek operations.
//
// # Modes
//
// A file is opened with one of eight modes:
//
//	w   wb   truncate or create, write only
//	r   rb   must exist, read only
//	a   ab   create if missing, keep content, cursor at end, write only
//	rw  rwb  create if missing, keep content, cursor at start, read and write
//
// The "b" variants move raw bytes ([LockFile.Read], [LockFile.Write]). The
// others move text ([LockFile.ReadString], [LockFile.WriteString]), counted
// in characters and converted through an encoding.
//
// # Locking
//
// On unix (flock) and windows (LockFileEx) the lock is taken right after the
// file is opened and held until [LockFile.Close]. A second open of the same
// file fails at once with [ErrLockUnavailable]; nothing waits or retries.
// Elsewhere no native lock exists: files open in advisory-only mode and
// [LockFile.IsLocked] reports false.
//
// # Encodings
//
// Text modes use [Options.Encoding] when set. Otherwise they use UTF-8, and,
// on platforms with a real lock, fall back to ISO-8859-1 when the bytes are
// not valid UTF-8.
//
// # Chunking
//
// Reads and writes are split into calls of at most [MaxDataPerIteration]
// bytes (default [DefaultMaxDataPerIteration]). The limit is process-wide
// and never changes results.
//
// # Example
//
//	f, err := lockfile.Open("notes.txt", "a", lockfile.Options{})
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//
//	if _, err := f.WriteString("another line\n"); err != nil {
//	    return err
//	}
package lockfile
