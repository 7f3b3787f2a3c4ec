package cli

import (
	"context"
	"runtime"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/lockfile/internal/config"
	"github.com/calvinalkan/lockfile/pkg/fs"
	"github.com/calvinalkan/lockfile/pkg/lockfile"
)

// StatCmd returns the stat command.
func StatCmd(cfg *config.Config, fsys fs.FS) *Command {
	return &Command{
		Flags: flag.NewFlagSet("stat", flag.ContinueOnError),
		Usage: "stat <file>",
		Short: "Show size and lock state of a file",
		Long:  "Open <file> read-only under an exclusive lock and print its size and lock state.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			return execStat(o, cfg, fsys, args)
		},
	}
}

func execStat(o *IO, cfg *config.Config, fsys fs.FS, args []string) (err error) {
	f, err := openFile(o, cfg, fsys, args, "rb", "")
	if err != nil {
		return err
	}
	defer closeInto(f, &err)

	size, err := f.Size()
	if err != nil {
		return err
	}

	o.Printf("name=%s\n", f.Name())
	o.Printf("size=%d\n", size)
	o.Printf("locked=%t\n", f.IsLocked())

	return nil
}

// ProbeCmd returns the probe command.
func ProbeCmd(cfg *config.Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("probe", flag.ContinueOnError),
		Usage: "probe",
		Short: "Show platform lock capability",
		Long:  "Print whether this platform provides exclusive locks and the effective I/O chunk size.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			return execProbe(o, cfg)
		},
	}
}

func execProbe(o *IO, cfg *config.Config) error {
	provider, err := cfg.Provider()
	if err != nil {
		return err
	}

	o.Printf("platform=%s/%s\n", runtime.GOOS, runtime.GOARCH)
	o.Printf("exclusive=%t\n", lockfile.DefaultProvider().Exclusive())
	o.Printf("lock=%s (exclusive=%t)\n", cfg.Lock, provider.Exclusive())
	o.Printf("max_data_per_iteration=%d\n", cfg.MaxDataPerIteration)

	return nil
}
