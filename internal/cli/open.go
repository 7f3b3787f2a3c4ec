package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/calvinalkan/lockfile/internal/config"
	"github.com/calvinalkan/lockfile/pkg/fs"
	"github.com/calvinalkan/lockfile/pkg/lockfile"
)

// resolvePath makes p absolute against the effective working directory.
func resolvePath(cfg *config.Config, p string) string {
	if filepath.IsAbs(p) || cfg.EffectiveCwd == "" {
		return p
	}

	return filepath.Join(cfg.EffectiveCwd, p)
}

// openFile opens the file named by the first argument with mode. A non-empty
// encoding overrides the configured one.
func openFile(o *IO, cfg *config.Config, fsys fs.FS, args []string, mode, encoding string) (*lockfile.LockFile, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: <file>", errArgRequired)
	}

	if len(args) > 1 {
		return nil, fmt.Errorf("%w: unexpected arguments: %v", errUsage, args[1:])
	}

	opts, err := cfg.Apply(fsys)
	if err != nil {
		return nil, err
	}

	if encoding != "" {
		opts.Encoding = encoding
	}

	f, err := lockfile.Open(resolvePath(cfg, args[0]), mode, opts)
	if err != nil {
		return nil, err
	}

	if !f.IsLocked() && cfg.Lock == config.LockAuto {
		o.Warn("no exclusive lock on this platform", "other processes can modify "+args[0]+" concurrently")
	}

	return f, nil
}

// closeInto closes f and joins its error into *errp.
func closeInto(f *lockfile.LockFile, errp *error) {
	*errp = errors.Join(*errp, f.Close())
}
