package cli_test

import (
	"testing"

	"github.com/calvinalkan/lockfile/internal/cli"
)

func Test_Write_Appends_Stdin_When_Default_Mode(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("log.txt", "one\n")

	stdout, stderr, code := c.RunWithInput("two\n", "write", "log.txt")

	if got, want := code, 0; got != want {
		t.Fatalf("exitCode=%d, want=%d (stderr=%s)", got, want, stderr)
	}

	cli.AssertContains(t, stdout, "wrote 4 bytes to log.txt")

	if got, want := c.ReadFile("log.txt"), "one\ntwo\n"; got != want {
		t.Errorf("content=%q, want=%q", got, want)
	}
}

func Test_Write_Truncates_When_Mode_Is_W(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("f", "old content that is long")

	_, stderr, code := c.RunWithInput("new", "write", "-m", "w", "f")
	if code != 0 {
		t.Fatalf("exitCode=%d (stderr=%s)", code, stderr)
	}

	if got, want := c.ReadFile("f"), "new"; got != want {
		t.Errorf("content=%q, want=%q", got, want)
	}
}

func Test_Write_Overwrites_In_Place_When_Offset_Given(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("f", "0123456789")

	_, stderr, code := c.RunWithInput("AB", "write", "-m", "rwb", "--offset", "4", "f")
	if code != 0 {
		t.Fatalf("exitCode=%d (stderr=%s)", code, stderr)
	}

	if got, want := c.ReadFile("f"), "0123AB6789"; got != want {
		t.Errorf("content=%q, want=%q", got, want)
	}
}

func Test_Write_Encodes_When_Encoding_Declared(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	_, stderr, code := c.RunWithInput("über", "write", "-m", "w", "-e", "latin1", "f")
	if code != 0 {
		t.Fatalf("exitCode=%d (stderr=%s)", code, stderr)
	}

	if got, want := c.ReadFile("f"), "\xfcber"; got != want {
		t.Errorf("content=%q, want=%q", got, want)
	}
}

func Test_Write_Fails_When_Mode_Is_Read_Only(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("f", "x")

	stdout, stderr, code := c.RunWithInput("data", "write", "-m", "r", "f")

	if got, want := code, 1; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	if stdout != "" {
		t.Errorf("stdout=%q, want empty", stdout)
	}

	cli.AssertContains(t, stderr, "not writable")

	if got, want := c.ReadFile("f"), "x"; got != want {
		t.Errorf("content=%q, want=%q", got, want)
	}
}

func Test_Write_Fails_When_Mode_Is_Unknown(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	_, stderr, code := c.RunWithInput("data", "write", "-m", "x+", "f")

	if got, want := code, 1; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	cli.AssertContains(t, stderr, "invalid mode")
}
