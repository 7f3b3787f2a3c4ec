// Package config loads lockfile settings from JSONC files.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/lockfile/pkg/fs"
	"github.com/calvinalkan/lockfile/pkg/lockfile"
)

// Error variables for config loading.
var (
	ErrConfigFileNotFound   = errors.New("config file not found")
	ErrConfigFileRead       = errors.New("cannot read config file")
	ErrConfigInvalid        = errors.New("invalid config file")
	ErrConfigExists         = errors.New("config file already exists")
	ErrChunkSizeInvalid     = errors.New("max_data_per_iteration must be >= 1")
	ErrUnknownLockPolicy    = errors.New("lock must be one of auto, exclusive, advisory")
	ErrExclusiveUnavailable = errors.New("exclusive locking is not available on this platform")
)

// LockPolicy selects the lock provider.
type LockPolicy string

const (
	// LockAuto uses the platform default provider.
	LockAuto LockPolicy = "auto"
	// LockExclusive requires a real exclusive lock and fails where none exists.
	LockExclusive LockPolicy = "exclusive"
	// LockAdvisory never takes a lock.
	LockAdvisory LockPolicy = "advisory"
)

// FileName is the project config file name.
const FileName = ".lockfile.json"

// Config holds all configuration options.
type Config struct {
	MaxDataPerIteration int        `json:"max_data_per_iteration"`
	Encoding            string     `json:"encoding"`
	Lock                LockPolicy `json:"lock"`
	SyncOnClose         bool       `json:"sync_on_close"`

	// EffectiveCwd is the absolute working directory (from -C or os.Getwd).
	EffectiveCwd string `json:"-"`

	// Sources tracks which config files were loaded (for diagnostics).
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project or explicit config if loaded, empty otherwise
}

// Patch is a partial config. Nil fields leave the base value alone, so an
// explicit false or "" in a file still overrides a lower layer.
type Patch struct {
	MaxDataPerIteration *int    `json:"max_data_per_iteration"`
	Encoding            *string `json:"encoding"`
	Lock                *string `json:"lock"`
	SyncOnClose         *bool   `json:"sync_on_close"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		MaxDataPerIteration: lockfile.DefaultMaxDataPerIteration,
		Lock:                LockAuto,
	}
}

// GlobalPath returns the global config file path.
// Uses $XDG_CONFIG_HOME/lockfile/config.json if set, otherwise
// ~/.config/lockfile/config.json. Returns "" if neither variable is set.
func GlobalPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "lockfile", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "lockfile", "config.json")
	}

	return ""
}

// LoadInput holds the inputs for [Load].
type LoadInput struct {
	FS         fs.FS             // filesystem to read from; nil means fs.NewReal()
	WorkDir    string            // -C flag value; if empty, os.Getwd() is used
	ConfigPath string            // -c flag value; must exist when set
	Env        map[string]string // environment variables
	Overrides  Patch             // CLI flag values
}

// Load loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config
// 3. Project config file (.lockfile.json, if it exists)
// 4. Explicit config file via ConfigPath (replaces 3)
// 5. CLI overrides.
func Load(input LoadInput) (Config, error) {
	fsys := input.FS
	if fsys == nil {
		fsys = fs.NewReal()
	}

	workDir := input.WorkDir
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	} else if !filepath.IsAbs(workDir) {
		abs, err := filepath.Abs(workDir)
		if err != nil {
			return Config{}, fmt.Errorf("resolving %s: %w", workDir, err)
		}

		workDir = abs
	}

	cfg := Default()

	if path := GlobalPath(input.Env); path != "" {
		patch, loaded, err := loadFile(fsys, path, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg = patch.apply(cfg)
			cfg.Sources.Global = path
		}
	}

	projectPath := filepath.Join(workDir, FileName)
	mustExist := false

	if input.ConfigPath != "" {
		projectPath = input.ConfigPath
		if !filepath.IsAbs(projectPath) {
			projectPath = filepath.Join(workDir, projectPath)
		}

		mustExist = true
	}

	patch, loaded, err := loadFile(fsys, projectPath, mustExist)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg = patch.apply(cfg)
		cfg.Sources.Project = projectPath
	}

	cfg = input.Overrides.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir

	return cfg, nil
}

// loadFile reads and parses one config file. If mustExist is false a
// missing file is not an error and loaded is false.
func loadFile(fsys fs.FS, path string, mustExist bool) (Patch, bool, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if mustExist {
				return Patch{}, false, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
			}

			return Patch{}, false, nil
		}

		return Patch{}, false, fmt.Errorf("%w %s: %w", ErrConfigFileRead, path, err)
	}

	patch, err := Parse(data)
	if err != nil {
		return Patch{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return patch, true, nil
}

// Parse decodes a JSONC document. Comments and trailing commas are
// allowed; unknown keys are rejected.
func Parse(data []byte) (Patch, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Patch{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()

	var patch Patch

	if err := dec.Decode(&patch); err != nil {
		return Patch{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return patch, nil
}

func (p Patch) apply(base Config) Config {
	if p.MaxDataPerIteration != nil {
		base.MaxDataPerIteration = *p.MaxDataPerIteration
	}

	if p.Encoding != nil {
		base.Encoding = *p.Encoding
	}

	if p.Lock != nil {
		base.Lock = LockPolicy(*p.Lock)
	}

	if p.SyncOnClose != nil {
		base.SyncOnClose = *p.SyncOnClose
	}

	return base
}

// Validate checks value ranges. Encodings are checked at open time.
func (c Config) Validate() error {
	if c.MaxDataPerIteration < 1 {
		return fmt.Errorf("%w, got %d", ErrChunkSizeInvalid, c.MaxDataPerIteration)
	}

	switch c.Lock {
	case LockAuto, LockExclusive, LockAdvisory:
	default:
		return fmt.Errorf("%w, got %q", ErrUnknownLockPolicy, c.Lock)
	}

	return nil
}

// Provider returns the lock provider selected by c.Lock.
func (c Config) Provider() (lockfile.LockProvider, error) {
	switch c.Lock {
	case LockAdvisory:
		return lockfile.AdvisoryNoOpProvider{}, nil
	case LockExclusive:
		p := lockfile.DefaultProvider()
		if !p.Exclusive() {
			return nil, ErrExclusiveUnavailable
		}

		return p, nil
	case LockAuto, "":
		return lockfile.DefaultProvider(), nil
	default:
		return nil, fmt.Errorf("%w, got %q", ErrUnknownLockPolicy, c.Lock)
	}
}

// Apply sets the process-wide chunk size and returns the options to open
// files with.
func (c Config) Apply(fsys fs.FS) (lockfile.Options, error) {
	provider, err := c.Provider()
	if err != nil {
		return lockfile.Options{}, err
	}

	if err := lockfile.SetMaxDataPerIteration(c.MaxDataPerIteration); err != nil {
		return lockfile.Options{}, err
	}

	return lockfile.Options{
		FS:          fsys,
		Provider:    provider,
		Encoding:    c.Encoding,
		SyncOnClose: c.SyncOnClose,
	}, nil
}

// Format renders c as key=value lines.
func Format(c Config) string {
	var b strings.Builder

	b.WriteString("max_data_per_iteration=" + strconv.Itoa(c.MaxDataPerIteration) + "\n")

	enc := c.Encoding
	if enc == "" {
		enc = "(negotiate)"
	}

	b.WriteString("encoding=" + enc + "\n")
	b.WriteString("lock=" + string(c.Lock) + "\n")
	b.WriteString("sync_on_close=" + strconv.FormatBool(c.SyncOnClose))

	return b.String()
}
