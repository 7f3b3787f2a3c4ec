package cli_test

import (
	"testing"

	"github.com/calvinalkan/lockfile/internal/cli"
)

func Test_Cat_Prints_Whole_File_When_No_Flags(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("notes.txt", "first line\nsecond ✓\n")

	stdout, stderr, code := c.Run("cat", "notes.txt")

	if got, want := code, 0; got != want {
		t.Fatalf("exitCode=%d, want=%d (stderr=%s)", got, want, stderr)
	}

	if got, want := stdout, "first line\nsecond ✓\n"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}
}

func Test_Cat_Counts_Characters_When_Text_Mode(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("f", "äöüxyz")

	if got, want := c.MustRun("cat", "-n", "3", "f"), "äöü"; got != want {
		t.Errorf("cat -n 3=%q, want=%q", got, want)
	}

	if got, want := c.MustRun("cat", "-n", "-3", "f"), "äöüx"; got != want {
		t.Errorf("cat -n -3=%q, want=%q", got, want)
	}
}

func Test_Cat_Seeks_Before_Reading_When_Offset_Given(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("f", "0123456789")

	if got, want := c.MustRun("cat", "-b", "--offset", "2", "-n", "3", "f"), "234"; got != want {
		t.Errorf("cat --offset 2=%q, want=%q", got, want)
	}

	if got, want := c.MustRun("cat", "-b", "--whence", "end", "--offset=-3", "f"), "789"; got != want {
		t.Errorf("cat --whence end=%q, want=%q", got, want)
	}
}

func Test_Cat_Fails_When_File_Is_Missing(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("cat", "absent.txt")

	cli.AssertContains(t, stderr, "file not found")
}

func Test_Cat_Fails_When_Seek_Is_Invalid(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("f", "abc")

	cli.AssertContains(t, c.MustFail("cat", "--whence", "middle", "f"), "invalid seek")
	cli.AssertContains(t, c.MustFail("cat", "--offset=-1", "f"), "invalid seek")
}

func Test_Cat_Fails_When_Declared_Encoding_Is_Unknown(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("f", "abc")

	cli.AssertContains(t, c.MustFail("cat", "-e", "no-such-charset", "f"), "encoding")
}

func Test_Cat_Decodes_Latin1_When_Bytes_Are_Not_UTF8(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("f", "caf\xe9")

	stdout := c.MustRun("cat", "-e", "iso-8859-1", "f")

	if got, want := stdout, "café"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}
}
