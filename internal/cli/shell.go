package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/lockfile/internal/config"
	"github.com/calvinalkan/lockfile/pkg/fs"
	"github.com/calvinalkan/lockfile/pkg/lockfile"
)

const historyFileName = ".lockfile_history"

// ShellCmd returns the shell command.
func ShellCmd(cfg *config.Config, fsys fs.FS, env map[string]string) *Command {
	flags := flag.NewFlagSet("shell", flag.ContinueOnError)
	mode := flags.StringP("mode", "m", "rw", "Open mode")
	encoding := flags.StringP("encoding", "e", "", "Declared text encoding (overrides config)")

	return &Command{
		Flags: flags,
		Usage: "shell <file> [flags]",
		Short: "Interactive session on a locked file",
		Long: `Open <file> under an exclusive lock and read commands until "exit" or EOF.
The lock is held for the whole session. Type "help" inside for commands.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execShell(ctx, o, cfg, fsys, env, args, *mode, *encoding)
		},
	}
}

// lineReader is the part of [liner.State] the shell uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// scanReader reads lines from a non-interactive stdin.
type scanReader struct {
	sc *bufio.Scanner
}

func (r *scanReader) Prompt(string) (string, error) {
	if r.sc.Scan() {
		return r.sc.Text(), nil
	}

	if err := r.sc.Err(); err != nil {
		return "", err
	}

	return "", io.EOF
}

func (*scanReader) AppendHistory(string) {}

func execShell(ctx context.Context, o *IO, cfg *config.Config, fsys fs.FS, env map[string]string, args []string, mode, encoding string) (err error) {
	f, err := openFile(o, cfg, fsys, args, mode, encoding)
	if err != nil {
		return err
	}
	defer closeInto(f, &err)

	in := o.In()
	if in == nil {
		in = strings.NewReader("")
	}

	var lines lineReader

	if file, ok := in.(*os.File); ok && file == os.Stdin {
		state := liner.NewLiner()
		defer state.Close()

		state.SetCtrlCAborts(true)
		state.SetCompleter(completeShell)

		history := ""
		if home := env["HOME"]; home != "" {
			history = filepath.Join(home, historyFileName)
		}

		loadHistory(state, history)
		defer saveHistory(state, history)

		lines = state
	} else {
		lines = &scanReader{sc: bufio.NewScanner(in)}
	}

	sh := &shell{f: f, o: o}

	o.Printf("%s (mode %s, locked=%t)\n", f.Name(), f.Mode(), f.IsLocked())
	o.Println("Type 'help' for available commands.")

	for ctx.Err() == nil {
		line, err := lines.Prompt("lockfile> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lines.AppendHistory(line)

		if sh.exec(line) {
			break
		}
	}

	o.Println("Bye!")

	return nil
}

func loadHistory(state *liner.State, path string) {
	if path == "" {
		return
	}

	if f, err := os.Open(path); err == nil {
		_, _ = state.ReadHistory(f)
		_ = f.Close()
	}
}

func saveHistory(state *liner.State, path string) {
	if path == "" {
		return
	}

	if f, err := os.Create(path); err == nil {
		_, _ = state.WriteHistory(f)
		_ = f.Close()
	}
}

var shellCommands = []string{"read", "write", "seek", "pos", "size", "info", "help", "exit"}

func completeShell(line string) []string {
	var out []string

	for _, c := range shellCommands {
		if strings.HasPrefix(c, strings.ToLower(line)) {
			out = append(out, c)
		}
	}

	return out
}

// shell runs single commands against an open file.
type shell struct {
	f *lockfile.LockFile
	o *IO
}

// exec runs one command line. Returns true when the session should end.
func (s *shell) exec(line string) bool {
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	var err error

	switch strings.ToLower(name) {
	case "exit", "quit", "q":
		return true
	case "help", "?":
		s.printHelp()
	case "read":
		err = s.read(rest)
	case "write":
		err = s.write(rest)
	case "seek":
		err = s.seek(rest)
	case "pos":
		var pos int64
		if pos, err = s.f.CursorPosition(); err == nil {
			s.o.Printf("pos=%d\n", pos)
		}
	case "size":
		var size int64
		if size, err = s.f.Size(); err == nil {
			s.o.Printf("size=%d\n", size)
		}
	case "info":
		s.info()
	default:
		s.o.Printf("unknown command: %s (type 'help' for commands)\n", name)
	}

	if err != nil {
		s.o.Println("error:", err)
	}

	return false
}

func (s *shell) read(arg string) error {
	n := -1

	if arg != "" {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid count %q", arg)
		}

		n = v
	}

	if s.f.IsBinary() {
		data, err := s.f.Read(n)
		if err != nil {
			return err
		}

		s.o.Printf("%q\n", data)

		return nil
	}

	text, err := s.f.ReadString(n)
	if err != nil {
		return err
	}

	s.o.Printf("%q\n", text)

	return nil
}

// write writes arg as-is, or unquoted if it is a Go string literal.
func (s *shell) write(arg string) error {
	text := arg

	if strings.HasPrefix(arg, `"`) {
		unquoted, err := strconv.Unquote(arg)
		if err != nil {
			return fmt.Errorf("invalid quoted text: %w", err)
		}

		text = unquoted
	}

	var (
		n   int
		err error
	)

	if s.f.IsBinary() {
		n, err = s.f.Write([]byte(text))
	} else {
		n, err = s.f.WriteString(text)
	}

	if err != nil {
		return err
	}

	s.o.Printf("wrote %d bytes\n", n)

	return nil
}

func (s *shell) seek(arg string) error {
	fields := strings.Fields(arg)
	if len(fields) == 0 || len(fields) > 2 {
		return errors.New("usage: seek <offset> [begin|current|end]")
	}

	offset, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid offset %q", fields[0])
	}

	whence := lockfile.SeekBegin
	if len(fields) == 2 {
		whence, err = lockfile.ParseWhence(fields[1])
		if err != nil {
			return err
		}
	}

	pos, err := s.f.Seek(offset, whence)
	if err != nil {
		return err
	}

	s.o.Printf("pos=%d\n", pos)

	return nil
}

func (s *shell) info() {
	caps := s.f.Capabilities()

	s.o.Println(s.f.String())
	s.o.Printf("mode=%s readable=%t writable=%t binary=%t locked=%t\n",
		s.f.Mode(), caps.Readable, caps.Writable, caps.Binary, caps.Locked)

	if enc := s.f.Encodings(); len(enc) > 0 {
		s.o.Printf("encodings=%s\n", strings.Join(enc, ","))
	}
}

func (s *shell) printHelp() {
	s.o.Println(`Commands:
  read [n]                   Read n units (default -1: everything)
  write <text>               Write text ("quoted" text allows \n escapes)
  seek <off> [whence]        Move the cursor (whence: begin, current, end)
  pos                        Show the cursor position
  size                       Show the file size
  info                       Show mode, capabilities and encodings
  help                       Show this help
  exit                       Release the lock and quit`)
}
