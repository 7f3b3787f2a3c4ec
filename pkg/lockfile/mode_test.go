package lockfile

import (
	"errors"
	"os"
	"testing"
)

func Test_ParseMode_Resolves_Every_Literal_With_Expected_Behavior(t *testing.T) {
	t.Parallel()

	cases := []struct {
		literal  string
		mode     Mode
		flag     int
		binary   bool
		readable bool
		writable bool
	}{
		{"w", ModeWriteText, os.O_WRONLY | os.O_CREATE, false, false, true},
		{"wb", ModeWriteBinary, os.O_WRONLY | os.O_CREATE, true, false, true},
		{"r", ModeReadText, os.O_RDONLY, false, true, false},
		{"rb", ModeReadBinary, os.O_RDONLY, true, true, false},
		{"a", ModeAppendText, os.O_WRONLY | os.O_CREATE, false, false, true},
		{"ab", ModeAppendBinary, os.O_WRONLY | os.O_CREATE, true, false, true},
		{"rw", ModeReadWriteText, os.O_RDWR | os.O_CREATE, false, true, true},
		{"rwb", ModeReadWriteBinary, os.O_RDWR | os.O_CREATE, true, true, true},
	}

	for _, tc := range cases {
		m, err := ParseMode(tc.literal)
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", tc.literal, err)
		}

		if m != tc.mode {
			t.Fatalf("ParseMode(%q)=%v, want %v", tc.literal, m, tc.mode)
		}

		if got := m.String(); got != tc.literal {
			t.Fatalf("%v.String()=%q, want %q", tc.mode, got, tc.literal)
		}

		if m.Binary() != tc.binary || m.Readable() != tc.readable || m.Writable() != tc.writable {
			t.Fatalf("%q: binary=%v readable=%v writable=%v, want %v %v %v",
				tc.literal, m.Binary(), m.Readable(), m.Writable(), tc.binary, tc.readable, tc.writable)
		}

		if got := modeTable[m].openFlag(); got != tc.flag {
			t.Fatalf("%q: openFlag()=%#x, want %#x", tc.literal, got, tc.flag)
		}
	}
}

func Test_Mode_OpenFlag_Never_Truncates_Or_Appends(t *testing.T) {
	t.Parallel()

	for m, traits := range modeTable {
		flag := traits.openFlag()

		if flag&os.O_TRUNC != 0 {
			t.Fatalf("%v: open flag includes O_TRUNC", m)
		}

		if flag&os.O_APPEND != 0 {
			t.Fatalf("%v: open flag includes O_APPEND", m)
		}
	}
}

func Test_ParseMode_Returns_ErrInvalidMode_When_Literal_Is_Unknown(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "R", "RW", "w+", "a+", "br", "rbw", "t", "rt"} {
		m, err := ParseMode(s)
		if !errors.Is(err, ErrInvalidMode) {
			t.Fatalf("ParseMode(%q): err=%v, want %v", s, err, ErrInvalidMode)
		}

		if m != 0 {
			t.Fatalf("ParseMode(%q)=%v, want zero Mode", s, m)
		}
	}
}

func Test_Mode_String_Is_Descriptive_When_Value_Is_Invalid(t *testing.T) {
	t.Parallel()

	if got, want := Mode(0).String(), "Mode(0)"; got != want {
		t.Fatalf("Mode(0).String()=%q, want %q", got, want)
	}

	if Mode(42).Readable() || Mode(42).Writable() {
		t.Fatalf("invalid Mode reports capabilities")
	}
}

func Test_ParseWhence_Resolves_Names(t *testing.T) {
	t.Parallel()

	for _, w := range []Whence{SeekBegin, SeekCurrent, SeekEnd} {
		got, err := ParseWhence(w.String())
		if err != nil {
			t.Fatalf("ParseWhence(%q): %v", w.String(), err)
		}

		if got != w {
			t.Fatalf("ParseWhence(%q)=%v, want %v", w.String(), got, w)
		}
	}

	if _, err := ParseWhence("middle"); !errors.Is(err, ErrInvalidSeek) {
		t.Fatalf("ParseWhence(middle): err=%v, want %v", err, ErrInvalidSeek)
	}
}
