package lockfile

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"unicode/utf8"

	"github.com/calvinalkan/lockfile/pkg/fs"
)

// Options configures how a [LockFile] opens files.
//
// The zero value is ready to use.
type Options struct {
	// FS is the filesystem files are opened through. Default: [fs.NewReal].
	FS fs.FS

	// Provider takes the exclusive lock. Default: [DefaultProvider].
	Provider LockProvider

	// Encoding is the declared text encoding (IANA name or alias). When set
	// it is used unconditionally and failures are fatal. When empty, text is
	// UTF-8, with an ISO-8859-1 fallback if Provider is exclusive.
	// Ignored in binary modes.
	Encoding string

	// Perm is used when a mode creates the file. Default: 0o666 (before umask).
	Perm os.FileMode

	// SyncOnClose fsyncs writable files in [LockFile.Close] before the lock
	// is released.
	SyncOnClose bool
}

func (o Options) withDefaults() Options {
	if o.FS == nil {
		o.FS = fs.NewReal()
	}

	if o.Provider == nil {
		o.Provider = DefaultProvider()
	}

	if o.Perm == 0 {
		o.Perm = 0o666
	}

	return o
}

// Capabilities are fixed when a file is opened and never change while it
// stays open. All fields are false on a closed [LockFile].
type Capabilities struct {
	Writable bool
	Readable bool
	Binary   bool

	// Locked is true only if the lock provider actually excludes other
	// handles. False means advisory-only: external writers are not stopped.
	Locked bool
}

// LockFile is an open file guarded by an exclusive lock for its whole
// lifetime.
//
// A LockFile owns exactly one OS handle at a time. It is not safe for
// concurrent use; callers sharing one across goroutines must synchronize.
//
// Always pair a successful open with [LockFile.Close]:
//
//	f, err := lockfile.Open("data.txt", "rw", lockfile.Options{})
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
type LockFile struct {
	opts Options

	name  string
	mode  Mode
	file  fs.File
	token LockToken
	caps  Capabilities
	text  *negotiator
}

// New creates a [LockFile].
//
// If filename and mode are both empty, the returned LockFile is unopened and
// [LockFile.Open] must be called before use. If both are set, the file is
// opened. If only one is set, New fails with [ErrConfig] without touching
// the filesystem.
func New(filename, mode string, opts Options) (*LockFile, error) {
	lf := &LockFile{opts: opts.withDefaults()}

	if (filename == "") != (mode == "") {
		return nil, fmt.Errorf("%w: filename and mode must be given together (filename=%q, mode=%q)", ErrConfig, filename, mode)
	}

	if filename == "" {
		return lf, nil
	}

	if err := lf.Open(filename, mode); err != nil {
		return nil, err
	}

	return lf, nil
}

// Open opens filename with mode and returns the locked file.
// It is the same as calling [New] with both arguments set.
func Open(filename, mode string, opts Options) (*LockFile, error) {
	if filename == "" || mode == "" {
		return nil, fmt.Errorf("%w: filename and mode are required (filename=%q, mode=%q)", ErrConfig, filename, mode)
	}

	return New(filename, mode, opts)
}

// Open opens filename on an unopened or closed LockFile.
//
// The lock is taken right after the OS open and before any destructive step,
// so a contended "w" open never truncates the holder's data. If anything
// fails, the handle is closed, the lock released and lf is left unopened.
func (lf *LockFile) Open(filename, mode string) error {
	if lf.file != nil {
		return fmt.Errorf("%w: close %s first", ErrAlreadyOpen, lf.name)
	}

	if lf.opts.FS == nil || lf.opts.Provider == nil {
		lf.opts = lf.opts.withDefaults()
	}

	m, err := ParseMode(mode)
	if err != nil {
		return err
	}

	if err := validateFilename(filename); err != nil {
		return err
	}

	traits := modeTable[m]

	var text *negotiator
	if !traits.binary {
		text, err = newNegotiator(lf.opts.Encoding, lf.opts.Provider.Exclusive())
		if err != nil {
			return err
		}
	}

	file, err := lf.opts.FS.OpenFile(filename, traits.openFlag(), lf.opts.Perm)
	if err != nil {
		if traits.mustExist && errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s: %w", ErrFileNotFound, filename, err)
		}

		return fmt.Errorf("opening %s: %w", filename, err)
	}

	token, err := lf.opts.Provider.Acquire(file)
	if err != nil {
		_ = file.Close()

		return err
	}

	if err := prepare(file, traits); err != nil {
		return errors.Join(
			fmt.Errorf("preparing %s: %w", filename, err),
			token.Release(),
			file.Close(),
		)
	}

	lf.name = filename
	lf.mode = m
	lf.file = file
	lf.token = token
	lf.text = text
	lf.caps = Capabilities{
		Writable: traits.writable,
		Readable: traits.readable,
		Binary:   traits.binary,
		Locked:   lf.opts.Provider.Exclusive(),
	}

	return nil
}

// prepare applies the destructive parts of a mode. Only call with the lock held.
func prepare(file fs.File, traits modeTraits) error {
	if traits.truncate {
		if err := file.Truncate(0); err != nil {
			return fmt.Errorf("truncate: %w", err)
		}
	}

	if traits.cursorEnd {
		if _, err := file.Seek(0, io.SeekEnd); err != nil {
			return fmt.Errorf("seek to end: %w", err)
		}
	}

	return nil
}

// Close releases the lock and closes the file.
//
// Close is idempotent: calling it on a closed or never opened LockFile
// returns nil. The lock is released and the handle closed even if the
// optional sync fails; all failures are joined (see [errors.Join]).
func (lf *LockFile) Close() error {
	if lf.file == nil {
		return nil
	}

	var syncErr error
	if lf.opts.SyncOnClose && lf.caps.Writable {
		if err := lf.file.Sync(); err != nil {
			syncErr = fmt.Errorf("syncing %s: %w", lf.name, err)
		}
	}

	releaseErr := lf.token.Release()

	var closeErr error
	if err := lf.file.Close(); err != nil {
		closeErr = fmt.Errorf("closing %s: %w", lf.name, err)
	}

	lf.name = ""
	lf.mode = 0
	lf.file = nil
	lf.token = nil
	lf.text = nil
	lf.caps = Capabilities{}

	return errors.Join(syncErr, releaseErr, closeErr)
}

// Write writes p at the cursor. Binary modes only; text modes must use
// [LockFile.WriteString].
//
// Data is written in slices of at most [MaxDataPerIteration] bytes.
// Returns the number of bytes written.
func (lf *LockFile) Write(p []byte) (int, error) {
	if err := lf.checkOpen(); err != nil {
		return 0, err
	}

	if !lf.caps.Binary {
		return 0, fmt.Errorf("%w: %s is open in text mode %q, use WriteString", ErrModeMismatch, lf.name, lf.mode)
	}

	if !lf.caps.Writable {
		return 0, fmt.Errorf("%w: %s (mode %q)", ErrNotWritable, lf.name, lf.mode)
	}

	return lf.write(p)
}

// WriteString encodes s and writes it at the cursor. Text modes only;
// binary modes must use [LockFile.Write].
//
// Returns the number of encoded bytes written.
func (lf *LockFile) WriteString(s string) (int, error) {
	if err := lf.checkOpen(); err != nil {
		return 0, err
	}

	if lf.caps.Binary {
		return 0, fmt.Errorf("%w: %s is open in binary mode %q, use Write", ErrModeMismatch, lf.name, lf.mode)
	}

	if !lf.caps.Writable {
		return 0, fmt.Errorf("%w: %s (mode %q)", ErrNotWritable, lf.name, lf.mode)
	}

	pos, err := lf.CursorPosition()
	if err != nil {
		return 0, err
	}

	data, err := lf.text.encode(s, pos == 0)
	if err != nil {
		return 0, err
	}

	return lf.write(data)
}

func (lf *LockFile) write(p []byte) (int, error) {
	n, err := writeChunked(lf.file, p, MaxDataPerIteration())
	if err != nil {
		return n, fmt.Errorf("writing %s: %w", lf.name, err)
	}

	return n, nil
}

// Read reads up to n bytes from the cursor. Binary modes only; text modes
// must use [LockFile.ReadString].
//
//   - n >= 0: at most n bytes.
//   - n == -1: everything up to EOF.
//   - n < -1: everything up to EOF except the last -n-1 bytes.
//
// Reading past EOF is not an error; the result is shorter or empty.
func (lf *LockFile) Read(n int) ([]byte, error) {
	if err := lf.checkOpen(); err != nil {
		return nil, err
	}

	if !lf.caps.Binary {
		return nil, fmt.Errorf("%w: %s is open in text mode %q, use ReadString", ErrModeMismatch, lf.name, lf.mode)
	}

	if !lf.caps.Readable {
		return nil, fmt.Errorf("%w: %s (mode %q)", ErrNotReadable, lf.name, lf.mode)
	}

	avail, err := lf.remaining()
	if err != nil {
		return nil, err
	}

	data, err := readChunked(lf.file, unitsToTake(n, avail), MaxDataPerIteration())
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", lf.name, err)
	}

	return data, nil
}

// ReadString reads up to n characters from the cursor and decodes them.
// Text modes only; binary modes must use [LockFile.Read].
//
// n follows the same convention as [LockFile.Read] but counts characters.
// Only the bytes behind the returned characters are consumed: the cursor
// advances by exactly that many bytes, byte order marks included. For n >= 0
// the file is decoded a chunk at a time and reading stops once n characters
// are decoded; n < 0 decodes the whole rest of the file.
//
// Each candidate encoding is tried from the starting position. If none of
// them can decode the data, the cursor is left where it was.
func (lf *LockFile) ReadString(n int) (string, error) {
	if err := lf.checkOpen(); err != nil {
		return "", err
	}

	if lf.caps.Binary {
		return "", fmt.Errorf("%w: %s is open in binary mode %q, use Read", ErrModeMismatch, lf.name, lf.mode)
	}

	if !lf.caps.Readable {
		return "", fmt.Errorf("%w: %s (mode %q)", ErrNotReadable, lf.name, lf.mode)
	}

	if n == 0 {
		return "", nil
	}

	start, err := lf.CursorPosition()
	if err != nil {
		return "", err
	}

	var lastErr error

	for i, codec := range lf.text.codecs {
		if i > 0 {
			if err := lf.seekTo(start); err != nil {
				return "", err
			}
		}

		text, consumed, err := lf.readText(codec, start, n)
		if err == nil {
			if err := lf.seekTo(start + consumed); err != nil {
				return "", err
			}

			return text, nil
		}

		if !errors.Is(err, ErrEncoding) {
			return "", errors.Join(fmt.Errorf("reading %s: %w", lf.name, err), lf.seekTo(start))
		}

		lastErr = err
	}

	return "", errors.Join(lastErr, lf.seekTo(start))
}

// readText decodes n characters with codec, starting at start, and returns
// them with the number of bytes they occupy. n < -1 needs the total count
// first, so the kept prefix is measured in a second pass.
func (lf *LockFile) readText(codec Codec, start int64, n int) (string, int64, error) {
	chunk := MaxDataPerIteration()

	r := newTextReader(lf.file, codec, chunk)

	if n >= 0 {
		text, err := r.read(int64(n))

		return text, r.consumed, err
	}

	all, err := r.read(-1)
	if err != nil {
		return "", 0, err
	}

	total := int64(utf8.RuneCountInString(all))

	keep := unitsToTake(n, total)
	if keep == total {
		return all, r.consumed, nil
	}

	if err := lf.seekTo(start); err != nil {
		return "", 0, err
	}

	r = newTextReader(lf.file, codec, chunk)

	text, err := r.read(keep)

	return text, r.consumed, err
}

// unitsToTake resolves a read count against avail units.
func unitsToTake(n int, avail int64) int64 {
	if n >= 0 {
		return min(int64(n), avail)
	}

	return max(avail+int64(n)+1, 0)
}

// remaining returns the bytes between the cursor and EOF (0 past EOF).
func (lf *LockFile) remaining() (int64, error) {
	pos, err := lf.CursorPosition()
	if err != nil {
		return 0, err
	}

	size, err := lf.Size()
	if err != nil {
		return 0, err
	}

	return max(size-pos, 0), nil
}

func (lf *LockFile) seekTo(pos int64) error {
	if _, err := lf.file.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("seeking %s: %w", lf.name, err)
	}

	return nil
}

// Seek moves the cursor by offset bytes relative to whence and returns the
// new absolute position.
//
// Offsets are bytes in text modes too. Positions past EOF are allowed.
// Returns an error wrapping [ErrInvalidSeek] if the result would be negative;
// the cursor is then left unchanged.
func (lf *LockFile) Seek(offset int64, whence Whence) (int64, error) {
	if err := lf.checkOpen(); err != nil {
		return 0, err
	}

	var anchor int64

	switch whence {
	case SeekBegin:
	case SeekCurrent:
		pos, err := lf.CursorPosition()
		if err != nil {
			return 0, err
		}

		anchor = pos
	case SeekEnd:
		size, err := lf.Size()
		if err != nil {
			return 0, err
		}

		anchor = size
	default:
		return 0, fmt.Errorf("%w: unknown whence %d", ErrInvalidSeek, int(whence))
	}

	if offset > 0 && anchor > math.MaxInt64-offset {
		return 0, fmt.Errorf("%w: %d from %s overflows", ErrInvalidSeek, offset, whence)
	}

	target := anchor + offset
	if target < 0 {
		return 0, fmt.Errorf("%w: %d from %s (%d) is before the start of %s", ErrInvalidSeek, offset, whence, anchor, lf.name)
	}

	pos, err := lf.file.Seek(target, io.SeekStart)
	if err != nil {
		return 0, fmt.Errorf("seeking %s: %w", lf.name, err)
	}

	return pos, nil
}

// SeekAbsolute moves the cursor to pos. Same as Seek(pos, SeekBegin).
func (lf *LockFile) SeekAbsolute(pos int64) (int64, error) {
	return lf.Seek(pos, SeekBegin)
}

// CursorPosition returns the current byte offset, asking the OS each time.
func (lf *LockFile) CursorPosition() (int64, error) {
	if err := lf.checkOpen(); err != nil {
		return 0, err
	}

	pos, err := lf.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("seeking %s: %w", lf.name, err)
	}

	return pos, nil
}

// Size returns the current on-disk size in bytes. It is never cached.
func (lf *LockFile) Size() (int64, error) {
	if err := lf.checkOpen(); err != nil {
		return 0, err
	}

	info, err := lf.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", lf.name, err)
	}

	return info.Size(), nil
}

// Sync commits written data to stable storage. See [os.File.Sync].
func (lf *LockFile) Sync() error {
	if err := lf.checkOpen(); err != nil {
		return err
	}

	if err := lf.file.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", lf.name, err)
	}

	return nil
}

// IsWritable reports whether the open mode allows writes.
func (lf *LockFile) IsWritable() bool { return lf.caps.Writable }

// IsReadable reports whether the open mode allows reads.
func (lf *LockFile) IsReadable() bool { return lf.caps.Readable }

// IsBinary reports whether the file was opened in a binary mode.
func (lf *LockFile) IsBinary() bool { return lf.caps.Binary }

// IsLocked reports whether other handles are actually kept out. False on
// platforms where only advisory access is possible.
func (lf *LockFile) IsLocked() bool { return lf.caps.Locked }

// Capabilities returns all capability flags at once.
func (lf *LockFile) Capabilities() Capabilities { return lf.caps }

// Name returns the filename passed to Open, or "" when closed.
func (lf *LockFile) Name() string { return lf.name }

// Mode returns the open mode, or 0 when closed.
func (lf *LockFile) Mode() Mode { return lf.mode }

// Encodings returns the candidate text encodings in the order they are
// tried. Nil for binary modes and closed files.
func (lf *LockFile) Encodings() []string {
	if lf.text == nil {
		return nil
	}

	return lf.text.names()
}

// String returns "File: <name> | Size: <n> Bytes".
func (lf *LockFile) String() string {
	if lf.file == nil {
		return "File: (closed)"
	}

	size, err := lf.Size()
	if err != nil {
		return fmt.Sprintf("File: %s | Size: ? Bytes", lf.name)
	}

	return fmt.Sprintf("File: %s | Size: %d Bytes", lf.name, size)
}

func (lf *LockFile) checkOpen() error {
	if lf.file == nil {
		return ErrHandleClosed
	}

	return nil
}

var _ fmt.Stringer = (*LockFile)(nil)
