package cli

import (
	"context"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/lockfile/internal/config"
	"github.com/calvinalkan/lockfile/pkg/fs"
	"github.com/calvinalkan/lockfile/pkg/lockfile"
)

// WriteCmd returns the write command.
func WriteCmd(cfg *config.Config, fsys fs.FS) *Command {
	flags := flag.NewFlagSet("write", flag.ContinueOnError)
	mode := flags.StringP("mode", "m", "a", "Open mode: w, wb, a, ab, rw or rwb")
	offset := flags.Int64("offset", 0, "Byte offset to write at (from the start of the file)")
	encoding := flags.StringP("encoding", "e", "", "Declared text encoding (overrides config)")

	return &Command{
		Flags: flags,
		Usage: "write <file> [flags]",
		Short: "Write stdin to a file while holding its lock",
		Long: `Read all of stdin, then open <file> under an exclusive lock and write it.
The default mode "a" appends; "w" truncates first. Text modes encode stdin
(which must be UTF-8) with the negotiated or declared encoding.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			var off *int64
			if flags.Changed("offset") {
				off = offset
			}

			return execWrite(o, cfg, fsys, args, *mode, off, *encoding)
		},
	}
}

func execWrite(o *IO, cfg *config.Config, fsys fs.FS, args []string, mode string, offset *int64, encoding string) (err error) {
	m, err := lockfile.ParseMode(mode)
	if err != nil {
		return err
	}

	if !m.Writable() {
		return fmt.Errorf("%w: mode %q cannot write", lockfile.ErrNotWritable, mode)
	}

	var input []byte

	if in := o.In(); in != nil {
		input, err = io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
	}

	f, err := openFile(o, cfg, fsys, args, mode, encoding)
	if err != nil {
		return err
	}
	defer closeInto(f, &err)

	if offset != nil {
		if _, err := f.SeekAbsolute(*offset); err != nil {
			return err
		}
	}

	var n int
	if m.Binary() {
		n, err = f.Write(input)
	} else {
		n, err = f.WriteString(string(input))
	}

	if err != nil {
		return err
	}

	o.Printf("wrote %d bytes to %s\n", n, args[0])

	return nil
}
