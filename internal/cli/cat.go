package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/lockfile/internal/config"
	"github.com/calvinalkan/lockfile/pkg/fs"
	"github.com/calvinalkan/lockfile/pkg/lockfile"
)

// CatCmd returns the cat command.
func CatCmd(cfg *config.Config, fsys fs.FS) *Command {
	flags := flag.NewFlagSet("cat", flag.ContinueOnError)
	count := flags.IntP("count", "n", -1, "Units to read (bytes with -b, else characters); -1 reads all, -k drops the last k-1")
	offset := flags.Int64("offset", 0, "Byte offset to seek to before reading")
	whence := flags.String("whence", "begin", "Offset anchor: begin, current or end")
	binary := flags.BoolP("binary", "b", false, "Read raw bytes (mode rb)")
	encoding := flags.StringP("encoding", "e", "", "Declared text encoding (overrides config)")

	return &Command{
		Flags: flags,
		Usage: "cat <file> [flags]",
		Short: "Print a file while holding its lock",
		Long: `Open <file> read-only under an exclusive lock, optionally seek, and print
up to -n units to stdout. Fails at once if another process holds the lock.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			return execCat(o, cfg, fsys, args, catOptions{
				count:    *count,
				offset:   *offset,
				whence:   *whence,
				binary:   *binary,
				encoding: *encoding,
			})
		},
	}
}

type catOptions struct {
	count    int
	offset   int64
	whence   string
	binary   bool
	encoding string
}

func execCat(o *IO, cfg *config.Config, fsys fs.FS, args []string, opts catOptions) (err error) {
	whence, err := lockfile.ParseWhence(opts.whence)
	if err != nil {
		return err
	}

	mode := "r"
	if opts.binary {
		mode = "rb"
	}

	f, err := openFile(o, cfg, fsys, args, mode, opts.encoding)
	if err != nil {
		return err
	}
	defer closeInto(f, &err)

	if opts.offset != 0 || whence != lockfile.SeekBegin {
		if _, err := f.Seek(opts.offset, whence); err != nil {
			return err
		}
	}

	if opts.binary {
		data, err := f.Read(opts.count)
		if err != nil {
			return err
		}

		_, _ = o.Write(data)

		return nil
	}

	text, err := f.ReadString(opts.count)
	if err != nil {
		return err
	}

	o.Printf("%s", text)

	return nil
}
