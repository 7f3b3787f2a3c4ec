package lockfile

import (
	"bytes"
	"errors"
	"io"
	"os"
	"slices"
	"testing"

	"github.com/calvinalkan/lockfile/pkg/fs"
)

// countingFile records the size of every Read and Write call.
type countingFile struct {
	fs.File

	reads  []int
	writes []int
}

func (f *countingFile) Read(p []byte) (int, error) {
	f.reads = append(f.reads, len(p))
	return f.File.Read(p)
}

func (f *countingFile) Write(p []byte) (int, error) {
	f.writes = append(f.writes, len(p))
	return f.File.Write(p)
}

func openCounting(t *testing.T) *countingFile {
	t.Helper()

	f, err := fs.NewReal().OpenFile(tempPath(t, "c"), os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}

	t.Cleanup(func() { _ = f.Close() })

	return &countingFile{File: f}
}

func Test_WriteChunked_Splits_Into_Calls_Of_At_Most_Chunk_Bytes(t *testing.T) {
	t.Parallel()

	f := openCounting(t)
	data := bytes.Repeat([]byte{'x'}, 10)

	n, err := writeChunked(f, data, 4)
	if err != nil {
		t.Fatalf("writeChunked: %v", err)
	}

	if n != 10 {
		t.Fatalf("n=%d, want 10", n)
	}

	if got, want := f.writes, []int{4, 4, 2}; !slices.Equal(got, want) {
		t.Fatalf("write sizes=%v, want %v", got, want)
	}
}

func Test_ReadChunked_Stops_At_EOF_Without_Error(t *testing.T) {
	t.Parallel()

	f := openCounting(t)

	if _, err := f.File.Write([]byte("abcdefg")); err != nil {
		t.Fatalf("setup Write: %v", err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}

	got, err := readChunked(f, 100, 3)
	if err != nil {
		t.Fatalf("readChunked: %v", err)
	}

	if string(got) != "abcdefg" {
		t.Fatalf("got %q, want %q", got, "abcdefg")
	}

	for _, size := range f.reads {
		if size > 3 {
			t.Fatalf("read of %d bytes exceeds chunk size 3", size)
		}
	}
}

func Test_ReadChunked_Returns_Empty_When_Count_Is_Zero(t *testing.T) {
	t.Parallel()

	f := openCounting(t)

	got, err := readChunked(f, 0, 8)
	if err != nil {
		t.Fatalf("readChunked: %v", err)
	}

	if got == nil || len(got) != 0 {
		t.Fatalf("got %v, want empty non-nil slice", got)
	}

	if len(f.reads) != 0 {
		t.Fatalf("reads=%v, want none", f.reads)
	}
}

// shortWriter accepts at most one byte per call without reporting an error.
type shortWriter struct {
	fs.File
}

func (shortWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	return 1, nil
}

func Test_WriteChunked_Returns_ErrShortWrite_When_Writer_Underreports(t *testing.T) {
	t.Parallel()

	n, err := writeChunked(shortWriter{}, []byte("abc"), 10)
	if !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("err=%v, want %v", err, io.ErrShortWrite)
	}

	if n != 1 {
		t.Fatalf("n=%d, want 1", n)
	}
}

func Test_SetMaxDataPerIteration_Returns_ErrConfig_When_Below_One(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, -1, -100000} {
		if err := SetMaxDataPerIteration(n); !errors.Is(err, ErrConfig) {
			t.Fatalf("SetMaxDataPerIteration(%d): err=%v, want %v", n, err, ErrConfig)
		}
	}

	if MaxDataPerIteration() < 1 {
		t.Fatalf("rejected value leaked into MaxDataPerIteration()=%d", MaxDataPerIteration())
	}
}
