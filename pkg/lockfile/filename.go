package lockfile

import (
	"fmt"
	"runtime"
	"strings"
)

var windowsReservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true, "CLOCK$": true,
	"COM0": true, "COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT0": true, "LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true,
	"LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// validateFilename rejects names the platform cannot open as a plain file.
func validateFilename(name string) error {
	return validateFilenameFor(runtime.GOOS, name)
}

func validateFilenameFor(goos, name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidFilename)
	}

	for _, r := range name {
		if r < 0x20 {
			return fmt.Errorf("%w: %q contains control character %U", ErrInvalidFilename, name, r)
		}
	}

	if goos != "windows" {
		return nil
	}

	rest := strings.TrimPrefix(name, windowsDrive(name))

	parts := strings.FieldsFunc(rest, func(r rune) bool { return r == '\\' || r == '/' })
	for _, part := range parts {
		if strings.ContainsAny(part, `<>:"|?*`) {
			return fmt.Errorf("%w: %q contains a reserved character", ErrInvalidFilename, name)
		}

		stem, _, _ := strings.Cut(part, ".")
		if windowsReservedNames[strings.ToUpper(strings.TrimSpace(stem))] {
			return fmt.Errorf("%w: %q uses reserved device name %q", ErrInvalidFilename, name, stem)
		}
	}

	return nil
}

// windowsDrive returns the "X:" prefix of name, if any. It does not depend
// on the build target so windows rules can be checked anywhere.
func windowsDrive(name string) string {
	if len(name) >= 2 && name[1] == ':' {
		c := name[0] | 0x20
		if c >= 'a' && c <= 'z' {
			return name[:2]
		}
	}

	return ""
}
