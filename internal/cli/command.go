package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/lockfile/pkg/lockfile"
)

// Exit codes returned by [Run]. Scripts can retry on ExitBusy.
const (
	ExitOK = 0
	// ExitFailure covers I/O, encoding and config errors, and warnings.
	ExitFailure = 1
	// ExitUsage means bad flags, a missing argument or an unknown command.
	ExitUsage = 2
	// ExitBusy means another process holds the file's lock.
	ExitBusy = 3
)

// errUsage marks errors caused by how a command was invoked.
var errUsage = errors.New("usage")

// errArgRequired is returned when a command is missing a positional argument.
var errArgRequired = fmt.Errorf("%w: missing argument", errUsage)

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errUsage):
		return ExitUsage
	case errors.Is(err, lockfile.ErrLockUnavailable):
		return ExitBusy
	default:
		return ExitFailure
	}
}

const modeHelp = `Modes:
  r, rb     read from the start; the file must exist
  w, wb     write; created if missing, truncated once the lock is held
  a, ab     write at the end; created if missing
  rw, rwb   read and write from the start; created if missing
  Modes ending in "b" move raw bytes, the others move text.`

const exitHelp = `Exit codes:
  0  success
  1  failure or warning
  2  invalid usage
  3  the file is locked by another process`

// Command is one lockfile subcommand: its flags, help text and handler.
type Command struct {
	// Flags holds the command's flags. A "mode" flag adds the mode table to
	// the help output.
	Flags *flag.FlagSet

	// Usage follows "lockfile" in help, starting with the command name,
	// for example "cat <file> [flags]".
	Usage string

	// Short is the one-line summary in the command list.
	Short string

	// Long is shown by "lockfile <cmd> --help". Short is used if empty.
	Long string

	// Exec runs the command after flags are parsed. Locked files must be
	// closed before it returns.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

// HelpLine returns the command's line in the global command list.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-32s %s", c.Usage, c.Short)
}

// PrintHelp prints usage, description, flags, the mode table for commands
// that open files with a mode, and the exit codes.
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: lockfile", c.Usage)
	o.Println()

	if c.Long != "" {
		o.Println(c.Long)
	} else {
		o.Println(c.Short)
	}

	if c.Flags != nil && c.Flags.HasFlags() {
		var buf strings.Builder

		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		c.Flags.SetOutput(&strings.Builder{})

		o.Println()
		o.Println("Flags:")
		o.Printf("%s", buf.String())
	}

	if c.Flags != nil && c.Flags.Lookup("mode") != nil {
		o.Println()
		o.Println(modeHelp)
	}

	o.Println()
	o.Println(exitHelp)
}

// Run parses flags, runs Exec and returns the exit code. Errors are printed
// to stderr; usage errors also point at the command's help.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{})

	if err := c.Flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o)
			return ExitOK
		}

		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(o.Stderr())

		return ExitUsage
	}

	err := c.Exec(ctx, o, c.Flags.Args())
	if err != nil {
		o.ErrPrintln("error:", err)

		if errors.Is(err, errUsage) {
			o.ErrPrintln(fmt.Sprintf("Run \"lockfile %s --help\" for usage.", c.Name()))
		}

		return exitCode(err)
	}

	return o.Finish()
}
