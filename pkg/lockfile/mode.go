package lockfile

import (
	"fmt"
	"os"
)

// Mode is one of the eight access modes a [LockFile] can be opened with.
//
// The zero value is not a valid mode; use [ParseMode].
type Mode uint8

const (
	ModeWriteText Mode = iota + 1
	ModeWriteBinary
	ModeReadText
	ModeReadBinary
	ModeAppendText
	ModeAppendBinary
	ModeReadWriteText
	ModeReadWriteBinary
)

// modeTraits describes what opening with a mode does.
//
// Truncate and CursorEnd are applied after the lock is held, never before.
type modeTraits struct {
	literal   string
	binary    bool
	truncate  bool
	create    bool
	mustExist bool
	cursorEnd bool
	readable  bool
	writable  bool
}

// modeTable is the single source of truth for mode behavior.
var modeTable = map[Mode]modeTraits{
	ModeWriteText:       {literal: "w", truncate: true, create: true, writable: true},
	ModeWriteBinary:     {literal: "wb", binary: true, truncate: true, create: true, writable: true},
	ModeReadText:        {literal: "r", mustExist: true, readable: true},
	ModeReadBinary:      {literal: "rb", binary: true, mustExist: true, readable: true},
	ModeAppendText:      {literal: "a", create: true, cursorEnd: true, writable: true},
	ModeAppendBinary:    {literal: "ab", binary: true, create: true, cursorEnd: true, writable: true},
	ModeReadWriteText:   {literal: "rw", create: true, readable: true, writable: true},
	ModeReadWriteBinary: {literal: "rwb", binary: true, create: true, readable: true, writable: true},
}

var modesByLiteral = func() map[string]Mode {
	m := make(map[string]Mode, len(modeTable))
	for mode, traits := range modeTable {
		m[traits.literal] = mode
	}

	return m
}()

// ParseMode resolves a mode literal. Matching is case-sensitive.
//
// Returns an error wrapping [ErrInvalidMode] for anything other than
// w, wb, r, rb, a, ab, rw, rwb.
func ParseMode(s string) (Mode, error) {
	mode, ok := modesByLiteral[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q (valid modes: w, wb, r, rb, a, ab, rw, rwb)", ErrInvalidMode, s)
	}

	return mode, nil
}

// String returns the mode literal, or "Mode(n)" for invalid values.
func (m Mode) String() string {
	traits, ok := modeTable[m]
	if !ok {
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}

	return traits.literal
}

// Binary reports whether the mode reads and writes raw bytes.
func (m Mode) Binary() bool { return modeTable[m].binary }

// Readable reports whether the mode allows reads.
func (m Mode) Readable() bool { return modeTable[m].readable }

// Writable reports whether the mode allows writes.
func (m Mode) Writable() bool { return modeTable[m].writable }

// openFlag returns the os.OpenFile flags for the mode.
//
// O_TRUNC is never included: truncation must wait until the lock is held.
// O_APPEND is never included either, so seeks keep working in append modes.
func (s modeTraits) openFlag() int {
	var flag int

	switch {
	case s.readable && s.writable:
		flag = os.O_RDWR
	case s.writable:
		flag = os.O_WRONLY
	default:
		flag = os.O_RDONLY
	}

	if s.create {
		flag |= os.O_CREATE
	}

	return flag
}
