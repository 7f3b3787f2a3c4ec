package lockfile

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/calvinalkan/lockfile/pkg/fs"
)

func tempPath(t *testing.T, name string) string {
	t.Helper()

	return filepath.Join(t.TempDir(), name)
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()

	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("setup WriteFile(%q): %v", path, err)
	}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%q): %v", path, err)
	}

	return data
}

func mustOpen(t *testing.T, path, mode string, opts Options) *LockFile {
	t.Helper()

	f, err := Open(path, mode, opts)
	if err != nil {
		t.Fatalf("Open(%q, %q): %v", path, mode, err)
	}

	t.Cleanup(func() { _ = f.Close() })

	return f
}

func mustClose(t *testing.T, f *LockFile) {
	t.Helper()

	if err := f.Close(); err != nil {
		t.Fatalf("Close(): %v", err)
	}
}

func requireExclusive(t *testing.T) {
	t.Helper()

	if !DefaultProvider().Exclusive() {
		t.Skip("no exclusive lock on this platform")
	}
}

// trackingFS records every file it opens so tests can check they were closed.
type trackingFS struct {
	fs.FS

	mu    sync.Mutex
	files []*trackedFile
}

func newTrackingFS() *trackingFS {
	return &trackingFS{FS: fs.NewReal()}
}

func (t *trackingFS) OpenFile(path string, flag int, perm os.FileMode) (fs.File, error) {
	f, err := t.FS.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}

	tf := &trackedFile{File: f}

	t.mu.Lock()
	t.files = append(t.files, tf)
	t.mu.Unlock()

	return tf, nil
}

func (t *trackingFS) openCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, f := range t.files {
		if !f.closed {
			n++
		}
	}

	return n
}

// bytesRead sums what was read through every opened file.
func (t *trackingFS) bytesRead() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var n int64
	for _, f := range t.files {
		n += f.read.Load()
	}

	return n
}

type trackedFile struct {
	fs.File

	closed bool
	read   atomic.Int64
}

func (f *trackedFile) Read(p []byte) (int, error) {
	n, err := f.File.Read(p)
	f.read.Add(int64(n))

	return n, err
}

func (f *trackedFile) Close() error {
	f.closed = true

	return f.File.Close()
}

// stubProvider fails or succeeds on demand and counts releases.
type stubProvider struct {
	exclusive  bool
	acquireErr error

	mu       sync.Mutex
	releases int
}

func (p *stubProvider) Exclusive() bool { return p.exclusive }

func (p *stubProvider) Acquire(fs.File) (LockToken, error) {
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}

	return &onceToken{release: func() error {
		p.mu.Lock()
		p.releases++
		p.mu.Unlock()

		return nil
	}}, nil
}

func (p *stubProvider) releaseCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.releases
}
