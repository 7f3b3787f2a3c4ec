package lockfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// Codec converts between file bytes and text.
type Codec interface {
	// Name returns the canonical encoding name, for example "UTF-8".
	Name() string
	Decode(b []byte) (string, error)
	Encode(s string) ([]byte, error)

	// NewDecoder returns a fresh transformer from file bytes to UTF-8.
	NewDecoder() transform.Transformer
}

// utf8Codec is strict: invalid input is an error, never U+FFFD.
type utf8Codec struct{}

func (utf8Codec) Name() string { return "UTF-8" }

func (utf8Codec) Decode(b []byte) (string, error) {
	out, _, err := transform.Bytes(encoding.UTF8Validator, b)
	if err != nil {
		return "", err
	}

	return string(out), nil
}

func (utf8Codec) Encode(s string) ([]byte, error) {
	out, _, err := transform.String(encoding.UTF8Validator, s)
	if err != nil {
		return nil, err
	}

	return []byte(out), nil
}

func (utf8Codec) NewDecoder() transform.Transformer { return encoding.UTF8Validator }

// textCodec adapts any x/text encoding.
type textCodec struct {
	name string
	enc  encoding.Encoding
}

func (c textCodec) Name() string { return c.name }

func (c textCodec) Decode(b []byte) (string, error) {
	out, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}

	return string(out), nil
}

func (c textCodec) Encode(s string) ([]byte, error) {
	return c.enc.NewEncoder().Bytes([]byte(s))
}

func (c textCodec) NewDecoder() transform.Transformer { return c.enc.NewDecoder() }

// byteOrderMark returns the bytes c puts in front of every encoded string,
// for example FE FF for "UTF-16". It is nil for encodings without one.
func byteOrderMark(c Codec) []byte {
	one, err := c.Encode("a")
	if err != nil {
		return nil
	}

	two, err := c.Encode("aa")
	if err != nil {
		return nil
	}

	n := len(one) - (len(two) - len(one))
	if n <= 0 {
		return nil
	}

	return one[:n]
}

var latin1Codec Codec = textCodec{name: "ISO-8859-1", enc: charmap.ISO8859_1}

// LookupCodec resolves an IANA encoding name or alias (case-insensitive).
// UTF-8 names resolve to a strict codec that rejects invalid input.
//
// Returns an error wrapping [ErrEncoding] for unknown or unsupported names.
func LookupCodec(name string) (Codec, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown encoding %q", ErrEncoding, name)
	}

	if enc == nil {
		return nil, fmt.Errorf("%w: unsupported encoding %q", ErrEncoding, name)
	}

	canonical, err := ianaindex.MIME.Name(enc)
	if err != nil {
		canonical, err = ianaindex.IANA.Name(enc)
		if err != nil {
			canonical = name
		}
	}

	if strings.EqualFold(canonical, "UTF-8") {
		return utf8Codec{}, nil
	}

	return textCodec{name: canonical, enc: enc}, nil
}

// negotiator tries its codecs in order and keeps the first success.
type negotiator struct {
	codecs []Codec
	marks  [][]byte
}

// newNegotiator builds the candidate list.
//
//   - declared != "": that codec only, failures are fatal.
//   - declared == "" and fallback: UTF-8, then ISO-8859-1 (which cannot fail
//     to decode).
//   - otherwise: UTF-8 only.
func newNegotiator(declared string, fallback bool) (*negotiator, error) {
	var codecs []Codec

	switch {
	case declared != "":
		codec, err := LookupCodec(declared)
		if err != nil {
			return nil, err
		}

		codecs = []Codec{codec}
	case fallback:
		codecs = []Codec{utf8Codec{}, latin1Codec}
	default:
		codecs = []Codec{utf8Codec{}}
	}

	marks := make([][]byte, len(codecs))
	for i, c := range codecs {
		marks[i] = byteOrderMark(c)
	}

	return &negotiator{codecs: codecs, marks: marks}, nil
}

// encode encodes s with the first codec that can represent it. A byte order
// mark is only kept when atStart is true, so appended text never carries one.
func (n *negotiator) encode(s string, atStart bool) ([]byte, error) {
	var lastErr error

	for i, codec := range n.codecs {
		b, err := codec.Encode(s)
		if err == nil {
			if !atStart {
				b = bytes.TrimPrefix(b, n.marks[i])
			}

			return b, nil
		}

		lastErr = fmt.Errorf("encoding as %s: %w", codec.Name(), err)
	}

	return nil, fmt.Errorf("%w: %w", ErrEncoding, lastErr)
}

// names lists the candidate codec names in order.
func (n *negotiator) names() []string {
	out := make([]string, 0, len(n.codecs))
	for _, c := range n.codecs {
		out = append(out, c.Name())
	}

	return out
}

// textReader decodes characters from r a chunk at a time and counts the
// source bytes behind the characters it has returned. Bytes read ahead but
// not yet decoded are not counted.
type textReader struct {
	r     io.Reader
	codec Codec
	dec   transform.Transformer
	chunk []byte

	src      []byte
	eof      bool
	consumed int64
}

func newTextReader(r io.Reader, codec Codec, chunk int) *textReader {
	return &textReader{r: r, codec: codec, dec: codec.NewDecoder(), chunk: make([]byte, chunk)}
}

// read decodes up to limit characters, or everything up to EOF if limit < 0.
// Decoding failures wrap [ErrEncoding]; read errors are returned as is.
func (t *textReader) read(limit int64) (string, error) {
	var (
		out  []byte
		got  int64
		grow int
	)

	var dst []byte

	for limit < 0 || got < limit {
		if len(t.src) == 0 {
			if t.eof {
				break
			}

			if err := t.fill(); err != nil {
				return "", err
			}

			continue
		}

		// k bytes of output hold at most k characters. When a single character
		// does not fit, the buffer grows one byte at a time until it does.
		size := len(t.src)*utf8.UTFMax + utf8.UTFMax
		if limit >= 0 {
			size = int(min(limit-got, int64(size)))
		}

		size = max(size, grow)

		if cap(dst) < size {
			dst = make([]byte, size)
		}

		nDst, nSrc, err := t.dec.Transform(dst[:size], t.src, t.eof)
		out = append(out, dst[:nDst]...)
		got += int64(utf8.RuneCount(dst[:nDst]))
		t.src = t.src[nSrc:]
		t.consumed += int64(nSrc)

		switch {
		case err == nil:
			grow = 0

			if nDst == 0 && nSrc == 0 {
				if t.eof {
					t.src = nil
					continue
				}

				if err := t.fill(); err != nil {
					return "", err
				}
			}
		case errors.Is(err, transform.ErrShortDst):
			if nDst > 0 {
				grow = 0
				continue
			}

			grow = size + 1
			if grow > 4*utf8.UTFMax {
				return "", fmt.Errorf("%w: decoding as %s: character does not fit", ErrEncoding, t.codec.Name())
			}
		case errors.Is(err, transform.ErrShortSrc):
			if limit >= 0 && got >= limit {
				continue
			}

			if t.eof {
				return "", fmt.Errorf("%w: decoding as %s: incomplete character at end of file", ErrEncoding, t.codec.Name())
			}

			if err := t.fill(); err != nil {
				return "", err
			}
		default:
			return "", fmt.Errorf("%w: decoding as %s: %w", ErrEncoding, t.codec.Name(), err)
		}
	}

	return string(out), nil
}

// fill appends up to one chunk of file data to the pending source bytes.
func (t *textReader) fill() error {
	n, err := io.ReadFull(t.r, t.chunk)
	t.src = append(t.src, t.chunk[:n]...)

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		t.eof = true

		return nil
	}

	return err
}
