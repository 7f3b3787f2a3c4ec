package lockfile

import "fmt"

// Whence is the anchor a [LockFile.Seek] offset is relative to.
type Whence int

const (
	SeekBegin Whence = iota
	SeekCurrent
	SeekEnd
)

// ParseWhence resolves "begin", "current" or "end".
func ParseWhence(s string) (Whence, error) {
	switch s {
	case "begin":
		return SeekBegin, nil
	case "current":
		return SeekCurrent, nil
	case "end":
		return SeekEnd, nil
	default:
		return 0, fmt.Errorf("%w: unknown startpoint %q (valid: begin, current, end)", ErrInvalidSeek, s)
	}
}

func (w Whence) String() string {
	switch w {
	case SeekBegin:
		return "begin"
	case SeekCurrent:
		return "current"
	case SeekEnd:
		return "end"
	default:
		return fmt.Sprintf("Whence(%d)", int(w))
	}
}
