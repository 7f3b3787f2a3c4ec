package cli

import (
	"context"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/lockfile/internal/config"
	"github.com/calvinalkan/lockfile/pkg/fs"
)

// HoldCmd returns the hold command.
func HoldCmd(cfg *config.Config, fsys fs.FS) *Command {
	flags := flag.NewFlagSet("hold", flag.ContinueOnError)
	mode := flags.StringP("mode", "m", "rw", "Open mode")

	return &Command{
		Flags: flags,
		Usage: "hold <file> [flags]",
		Short: "Hold a file's lock until stdin closes",
		Long: `Open <file> under an exclusive lock and keep it until stdin reaches EOF or
the process receives SIGINT/SIGTERM. Prints "locked <file>" once the lock is
held, or "advisory <file>" where the platform has no exclusive lock. On a
signal stdin is closed before the lock is released.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execHold(ctx, o, cfg, fsys, args, *mode)
		},
	}
}

func execHold(ctx context.Context, o *IO, cfg *config.Config, fsys fs.FS, args []string, mode string) (err error) {
	f, err := openFile(o, cfg, fsys, args, mode, "")
	if err != nil {
		return err
	}
	defer closeInto(f, &err)

	state := "locked"
	if !f.IsLocked() {
		state = "advisory"
	}

	o.Println(state, args[0])

	done := make(chan struct{})

	in := o.In()
	if in != nil {
		go func() {
			_, _ = io.Copy(io.Discard, in)
			close(done)
		}()
	}

	select {
	case <-done:
	case <-ctx.Done():
		// Closing stdin ends the copy for pipes and files. A read blocked on
		// a terminal is not interrupted, but the process exits right after.
		if c, ok := in.(io.Closer); ok {
			_ = c.Close()
		}
	}

	o.Println("released", args[0])

	return nil
}
