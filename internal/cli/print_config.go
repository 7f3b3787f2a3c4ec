package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/lockfile/internal/config"
	"github.com/calvinalkan/lockfile/pkg/fs"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(cfg *config.Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			return execPrintConfig(io, cfg)
		},
	}
}

func execPrintConfig(io *IO, cfg *config.Config) error {
	io.Println("effective_cwd=" + cfg.EffectiveCwd)
	io.Println(config.Format(*cfg))

	io.Println("")
	io.Println("# sources")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		io.Println("(defaults only)")
	} else {
		if cfg.Sources.Global != "" {
			io.Println("global_config=" + cfg.Sources.Global)
		}

		if cfg.Sources.Project != "" {
			io.Println("project_config=" + cfg.Sources.Project)
		}
	}

	return nil
}

// InitConfigCmd returns the init-config command.
func InitConfigCmd(cfg *config.Config, fsys fs.FS, env map[string]string) *Command {
	flags := flag.NewFlagSet("init-config", flag.ContinueOnError)
	global := flags.BoolP("global", "g", false, "Write the global config instead of "+config.FileName)

	return &Command{
		Flags: flags,
		Usage: "init-config [path] [flags]",
		Short: "Write a commented default config file",
		Long: `Write the default configuration, with comments, to [path]. Without a path
it goes to ` + config.FileName + ` in the working directory, or with --global to
$XDG_CONFIG_HOME/lockfile/config.json. Existing files are never overwritten.`,
		Exec: func(_ context.Context, io *IO, args []string) error {
			return execInitConfig(io, cfg, fsys, env, args, *global)
		},
	}
}

func execInitConfig(io *IO, cfg *config.Config, fsys fs.FS, env map[string]string, args []string, global bool) error {
	var path string

	switch {
	case len(args) > 1:
		return fmt.Errorf("unexpected arguments: %v", args[1:])
	case len(args) == 1 && global:
		return fmt.Errorf("%w: --global and a path are mutually exclusive", errUsage)
	case len(args) == 1:
		path = resolvePath(cfg, args[0])
	case global:
		path = config.GlobalPath(env)
		if path == "" {
			return errors.New("cannot locate global config: neither XDG_CONFIG_HOME nor HOME is set")
		}
	default:
		path = filepath.Join(cfg.EffectiveCwd, config.FileName)
	}

	if err := config.WriteDefault(fsys, path); err != nil {
		return err
	}

	io.Println("wrote", path)

	return nil
}
