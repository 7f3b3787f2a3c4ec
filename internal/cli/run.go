package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/lockfile/internal/config"
	"github.com/calvinalkan/lockfile/pkg/fs"
)

// Run is the main entry point. Returns exit code.
//
// sigCh may be nil. When it delivers a signal the command context is
// cancelled, which releases a held lock.
func Run(stdin io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globals := flag.NewFlagSet("lockfile", flag.ContinueOnError)
	globals.SetInterspersed(false)
	globals.SetOutput(&strings.Builder{})

	workDir := globals.StringP("cwd", "C", "", "Run as if started in `dir`")
	configPath := globals.StringP("config", "c", "", "Use specified config `file`")
	help := globals.BoolP("help", "h", false, "Show help")

	if len(args) > 0 {
		args = args[1:]
	}

	if err := globals.Parse(args); err != nil {
		fprintln(errOut, "error:", err)
		fprintln(errOut)
		printUsage(errOut, globals, nil)

		return ExitUsage
	}

	rest := globals.Args()

	if *help || len(rest) == 0 {
		printUsage(out, globals, nil)

		return ExitOK
	}

	fsys := fs.NewReal()

	cfg, err := config.Load(config.LoadInput{
		FS:         fsys,
		WorkDir:    *workDir,
		ConfigPath: *configPath,
		Env:        env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return ExitFailure
	}

	commands := allCommands(&cfg, fsys, env)

	name := rest[0]

	cmd, ok := commands[name]
	if !ok {
		fprintln(errOut, "error: unknown command:", name)
		fprintln(errOut)
		printUsage(errOut, globals, commands)

		return ExitUsage
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	return cmd.Run(ctx, NewIO(stdin, out, errOut), rest[1:])
}

// commandOrder is the order commands appear in help.
var commandOrder = []string{"cat", "write", "hold", "stat", "shell", "probe", "print-config", "init-config"}

func allCommands(cfg *config.Config, fsys fs.FS, env map[string]string) map[string]*Command {
	list := []*Command{
		CatCmd(cfg, fsys),
		WriteCmd(cfg, fsys),
		HoldCmd(cfg, fsys),
		StatCmd(cfg, fsys),
		ShellCmd(cfg, fsys, env),
		ProbeCmd(cfg),
		PrintConfigCmd(cfg),
		InitConfigCmd(cfg, fsys, env),
	}

	m := make(map[string]*Command, len(list))
	for _, c := range list {
		m[c.Name()] = c
	}

	return m
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, globals *flag.FlagSet, commands map[string]*Command) {
	if commands == nil {
		cfg := config.Default()
		commands = allCommands(&cfg, fs.NewReal(), nil)
	}

	fprintln(w, `lockfile - open files under an exclusive lock

Usage: lockfile [flags] <command> [args]

Global flags:`)

	var buf strings.Builder
	globals.SetOutput(&buf)
	globals.PrintDefaults()
	globals.SetOutput(&strings.Builder{})
	_, _ = io.WriteString(w, buf.String())

	fprintln(w)
	fprintln(w, "Commands:")

	for _, name := range commandOrder {
		fprintln(w, commands[name].HelpLine())
	}

	fprintln(w)
	fprintln(w, `Run "lockfile <command> --help" for command flags.`)
	fprintln(w)
	fprintln(w, exitHelp)
}
