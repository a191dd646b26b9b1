package manifest

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned for paths that are absolute or leave the install root.
var ErrUnsafePath = errors.New("path escapes install root")

// CleanPath validates a root-relative slash path and returns it in OS form.
// Backslashes are treated as separators so Windows-style traversal is caught too.
func CleanPath(p string) (string, error) {
	slashed := strings.ReplaceAll(p, `\`, "/")
	if strings.TrimSpace(slashed) == "" {
		return "", fmt.Errorf("empty path: %w", ErrUnsafePath)
	}

	if path.IsAbs(slashed) || hasDriveLetter(slashed) {
		return "", fmt.Errorf("%q: %w", p, ErrUnsafePath)
	}

	cleaned := path.Clean(slashed)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%q: %w", p, ErrUnsafePath)
	}

	native := filepath.FromSlash(cleaned)
	if filepath.IsAbs(native) || filepath.VolumeName(native) != "" {
		return "", fmt.Errorf("%q: %w", p, ErrUnsafePath)
	}

	return native, nil
}

// hasDriveLetter reports whether p starts with a Windows drive designator such as "C:".
func hasDriveLetter(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}

	c := p[0]

	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
