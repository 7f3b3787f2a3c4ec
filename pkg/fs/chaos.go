package fs

import (
	"errors"
	"io"
	"io/fs"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
)

// ChaosConfig controls fault injection probabilities.
// Each rate is a float64 from 0.0 (never) to 1.0 (always).
//
// The zero value disables all fault injection. Partially initialized configs
// only inject faults for the specified rates; unset fields default to 0.0.
type ChaosConfig struct {
	// OpenFailRate controls how often FS.OpenFile fails, returning EACCES,
	// EIO, EMFILE or ENFILE.
	OpenFailRate float64

	// ReadFailRate controls how often File.Read fails entirely, returning
	// zero bytes and EIO.
	ReadFailRate float64

	// PartialReadRate controls how often File.Read returns a short read
	// (n < len(p), err == nil) by limiting the underlying read size. This is
	// valid io.Reader behavior and tests that callers loop until done.
	PartialReadRate float64

	// WriteFailRate controls how often File.Write fails entirely, writing zero
	// bytes and returning EIO, ENOSPC or EDQUOT.
	WriteFailRate float64

	// PartialWriteRate controls how often File.Write writes only a prefix and
	// then fails with EIO.
	PartialWriteRate float64

	// SeekFailRate controls how often File.Seek fails, returning position 0
	// and EIO.
	SeekFailRate float64

	// FileStatFailRate controls how often File.Stat fails with EIO.
	FileStatFailRate float64

	// TruncateFailRate controls how often File.Truncate fails with EIO or EROFS.
	TruncateFailRate float64

	// SyncFailRate controls how often File.Sync fails with EIO or ENOSPC.
	SyncFailRate float64

	// CloseFailRate controls how often File.Close reports an error. The
	// underlying file is always closed to avoid descriptor leaks.
	CloseFailRate float64
}

// ChaosMode controls how [Chaos] behaves.
type ChaosMode uint8

const (
	// ChaosModeActive enables fault-rate injection.
	// This is the default mode for a new [Chaos].
	ChaosModeActive ChaosMode = iota

	// ChaosModeNoOp passes every operation directly to the underlying FS.
	ChaosModeNoOp
)

// ChaosStats contains counts of injected faults.
type ChaosStats struct {
	OpenFails     int64
	ReadFails     int64
	PartialReads  int64
	WriteFails    int64
	PartialWrites int64
	SeekFails     int64
	FileStatFails int64
	TruncateFails int64
	SyncFails     int64
	CloseFails    int64
}

// chaosError marks an error as intentionally injected by [Chaos].
//
// It wraps an [*fs.PathError] carrying a real [syscall.Errno] so errors.Is
// and helpers like [os.IsPermission] keep working.
type chaosError struct {
	Err error
}

func (e *chaosError) Error() string {
	return "chaos: " + e.Err.Error()
}

func (e *chaosError) Unwrap() error {
	return e.Err
}

// IsChaosErr reports whether err (or any wrapped error) was injected by [Chaos].
// Returns false if err is nil.
func IsChaosErr(err error) bool {
	var injected *chaosError

	return errors.As(err, &injected)
}

// Chaos wraps an [FS] and injects random failures for testing.
//
// Chaos never injects ENOENT (any os.IsNotExist result originates from the
// wrapped [FS]). Each call independently decides whether to inject; there is
// no sticky per-path fault state.
//
// Partial reads return n < len(p) with a nil error. Partial writes return
// n > 0 with a non-nil error. Injected Close failures still close the
// underlying file.
type Chaos struct {
	fs     FS
	config ChaosConfig
	mode   atomic.Uint32

	rngMu sync.Mutex
	rng   *rand.Rand

	openFails     atomic.Int64
	readFails     atomic.Int64
	partialReads  atomic.Int64
	writeFails    atomic.Int64
	partialWrites atomic.Int64
	seekFails     atomic.Int64
	fileStatFails atomic.Int64
	truncateFails atomic.Int64
	syncFails     atomic.Int64
	closeFails    atomic.Int64
}

// NewChaos creates a new [Chaos] filesystem wrapping the given [FS].
// The seed controls random fault injection for reproducibility.
// Panics if underlying or config is nil.
func NewChaos(underlying FS, seed int64, config *ChaosConfig) *Chaos {
	if underlying == nil {
		panic("underlying fs is nil")
	}

	if config == nil {
		panic("chaos config is nil")
	}

	return &Chaos{
		fs:     underlying,
		config: *config,
		rng:    rand.New(rand.NewPCG(uint64(seed), uint64(seed))),
	}
}

// SetMode updates [Chaos] behavior. Safe to call concurrently.
func (c *Chaos) SetMode(m ChaosMode) { c.mode.Store(uint32(m)) }

// Stats returns the current fault injection counts.
func (c *Chaos) Stats() ChaosStats {
	return ChaosStats{
		OpenFails:     c.openFails.Load(),
		ReadFails:     c.readFails.Load(),
		PartialReads:  c.partialReads.Load(),
		WriteFails:    c.writeFails.Load(),
		PartialWrites: c.partialWrites.Load(),
		SeekFails:     c.seekFails.Load(),
		FileStatFails: c.fileStatFails.Load(),
		TruncateFails: c.truncateFails.Load(),
		SyncFails:     c.syncFails.Load(),
		CloseFails:    c.closeFails.Load(),
	}
}

// TotalFaults returns the total number of injected faults, short reads included.
func (c *Chaos) TotalFaults() int64 {
	s := c.Stats()

	return s.OpenFails + s.ReadFails + s.PartialReads + s.WriteFails + s.PartialWrites +
		s.SeekFails + s.FileStatFails + s.TruncateFails + s.SyncFails + s.CloseFails
}

// OpenFile opens a file with fault injection. The returned [File] injects
// faults on its own operations too.
func (c *Chaos) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	if c.should(c.config.OpenFailRate) {
		c.openFails.Add(1)

		return nil, c.pathError("open", path, syscall.EACCES, syscall.EIO, syscall.EMFILE, syscall.ENFILE)
	}

	f, err := c.fs.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}

	return &chaosFile{file: f, chaos: c, path: path}, nil
}

// A passthrough wrapper for the underlying [FS.ReadFile].
func (c *Chaos) ReadFile(path string) ([]byte, error) {
	return c.fs.ReadFile(path)
}

// A passthrough wrapper for the underlying [FS.WriteFileAtomic].
func (c *Chaos) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return c.fs.WriteFileAtomic(path, data, perm)
}

// A passthrough wrapper for the underlying [FS.MkdirAll].
func (c *Chaos) MkdirAll(path string, perm os.FileMode) error {
	return c.fs.MkdirAll(path, perm)
}

// A passthrough wrapper for the underlying [FS.Stat].
func (c *Chaos) Stat(path string) (os.FileInfo, error) {
	return c.fs.Stat(path)
}

// A passthrough wrapper for the underlying [FS.Exists].
func (c *Chaos) Exists(path string) (bool, error) {
	return c.fs.Exists(path)
}

// A passthrough wrapper for the underlying [FS.Remove].
func (c *Chaos) Remove(path string) error {
	return c.fs.Remove(path)
}

func (c *Chaos) should(rate float64) bool {
	if ChaosMode(c.mode.Load()) == ChaosModeNoOp || rate <= 0 {
		return false
	}

	c.rngMu.Lock()
	defer c.rngMu.Unlock()

	return c.rng.Float64() < rate
}

// randIntn returns a value in [0, n). Panics if n <= 0.
func (c *Chaos) randIntn(n int) int {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()

	return c.rng.IntN(n)
}

func (c *Chaos) pathError(op, path string, choices ...syscall.Errno) error {
	errno := choices[c.randIntn(len(choices))]

	return &chaosError{Err: &fs.PathError{Op: op, Path: path, Err: errno}}
}

// chaosFile wraps a [File] and injects faults on each call.
type chaosFile struct {
	file  File
	chaos *Chaos
	path  string
}

func (f *chaosFile) Read(p []byte) (int, error) {
	c := f.chaos

	if len(p) > 0 && c.should(c.config.ReadFailRate) {
		c.readFails.Add(1)

		return 0, c.pathError("read", f.path, syscall.EIO)
	}

	if len(p) > 1 && c.should(c.config.PartialReadRate) {
		c.partialReads.Add(1)
		p = p[:c.randIntn(len(p)-1)+1]
	}

	return f.file.Read(p)
}

func (f *chaosFile) Write(p []byte) (int, error) {
	c := f.chaos

	if len(p) > 0 && c.should(c.config.WriteFailRate) {
		c.writeFails.Add(1)

		return 0, c.pathError("write", f.path, syscall.EIO, syscall.ENOSPC, syscall.EDQUOT)
	}

	if len(p) > 1 && c.should(c.config.PartialWriteRate) {
		c.partialWrites.Add(1)

		n, err := f.file.Write(p[:c.randIntn(len(p)-1)+1])
		if err != nil {
			return n, err
		}

		return n, c.pathError("write", f.path, syscall.EIO)
	}

	return f.file.Write(p)
}

func (f *chaosFile) Seek(offset int64, whence int) (int64, error) {
	c := f.chaos

	if c.should(c.config.SeekFailRate) {
		c.seekFails.Add(1)

		return 0, c.pathError("seek", f.path, syscall.EIO)
	}

	return f.file.Seek(offset, whence)
}

func (f *chaosFile) Stat() (os.FileInfo, error) {
	c := f.chaos

	if c.should(c.config.FileStatFailRate) {
		c.fileStatFails.Add(1)

		return nil, c.pathError("stat", f.path, syscall.EIO)
	}

	return f.file.Stat()
}

func (f *chaosFile) Truncate(size int64) error {
	c := f.chaos

	if c.should(c.config.TruncateFailRate) {
		c.truncateFails.Add(1)

		return c.pathError("truncate", f.path, syscall.EIO, syscall.EROFS)
	}

	return f.file.Truncate(size)
}

func (f *chaosFile) Sync() error {
	c := f.chaos

	if c.should(c.config.SyncFailRate) {
		c.syncFails.Add(1)

		return c.pathError("sync", f.path, syscall.EIO, syscall.ENOSPC)
	}

	return f.file.Sync()
}

func (f *chaosFile) Close() error {
	c := f.chaos

	err := f.file.Close()
	if err != nil {
		return err
	}

	if c.should(c.config.CloseFailRate) {
		c.closeFails.Add(1)

		return c.pathError("close", f.path, syscall.EIO)
	}

	return nil
}

func (f *chaosFile) Name() string { return f.file.Name() }

func (f *chaosFile) Fd() uintptr { return f.file.Fd() }

// Compile-time interface checks.
var (
	_ FS        = (*Chaos)(nil)
	_ File      = (*chaosFile)(nil)
	_ io.Reader = (*chaosFile)(nil)
)
