package lockfile

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/calvinalkan/lockfile/pkg/fs"
)

// DefaultMaxDataPerIteration is the default number of bytes moved per
// internal read or write call.
const DefaultMaxDataPerIteration = 100000

var maxDataPerIteration atomic.Int64

func init() {
	maxDataPerIteration.Store(DefaultMaxDataPerIteration)
}

// MaxDataPerIteration returns the process-wide per-call transfer limit.
func MaxDataPerIteration() int {
	return int(maxDataPerIteration.Load())
}

// SetMaxDataPerIteration changes the process-wide per-call transfer limit.
//
// It only changes how reads and writes are batched, never their results.
// Returns an error wrapping [ErrConfig] if n < 1.
func SetMaxDataPerIteration(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: max data per iteration must be >= 1, got %d", ErrConfig, n)
	}

	maxDataPerIteration.Store(int64(n))

	return nil
}

// writeChunked writes all of p in slices of at most chunk bytes.
// Returns the number of bytes written before any error.
func writeChunked(f fs.File, p []byte, chunk int) (int, error) {
	written := 0

	for written < len(p) {
		start := written
		end := min(start+chunk, len(p))

		n, err := f.Write(p[start:end])
		written += n

		if err != nil {
			return written, err
		}

		if n < end-start {
			return written, io.ErrShortWrite
		}
	}

	return written, nil
}

// readChunked reads up to n bytes in slices of at most chunk bytes.
// Hitting EOF early is not an error; the result is just shorter.
func readChunked(f fs.File, n int64, chunk int) ([]byte, error) {
	if n <= 0 {
		return []byte{}, nil
	}

	buf := make([]byte, n)
	var got int64

	for got < n {
		end := min(got+int64(chunk), n)

		m, err := io.ReadFull(f, buf[got:end])
		got += int64(m)

		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}

			return nil, err
		}
	}

	return buf[:got], nil
}
