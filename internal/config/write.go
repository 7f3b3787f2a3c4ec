package config

import (
	"fmt"
	"path/filepath"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/lockfile/pkg/fs"
)

const defaultFile = `{
// Bytes moved per internal read or write call. Never changes results.
"max_data_per_iteration": 100000,
// Declared text encoding (IANA name). Empty means UTF-8 with an
// ISO-8859-1 fallback where exclusive locks exist.
"encoding": "",
// One of "auto", "exclusive", "advisory".
"lock": "auto",
// fsync writable files before the lock is released.
"sync_on_close": false,
}
`

// DefaultFile returns the commented default config, formatted.
func DefaultFile() ([]byte, error) {
	v, err := hujson.Parse([]byte(defaultFile))
	if err != nil {
		return nil, fmt.Errorf("parsing default config: %w", err)
	}

	v.Format()

	return v.Pack(), nil
}

// WriteDefault writes the default config to path atomically. The parent
// directory is created if needed. Fails with [ErrConfigExists] rather than
// overwrite an existing file.
func WriteDefault(fsys fs.FS, path string) error {
	exists, err := fsys.Exists(path)
	if err != nil {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	if exists {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	data, err := DefaultFile()
	if err != nil {
		return err
	}

	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}

	if err := fsys.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}
