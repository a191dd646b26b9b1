package manifest

import (
	"path/filepath"
	"strings"
)

// ModsDirectory is the root-relative directory holding server mods.
const ModsDirectory = "mods"

// ExclusionRules is a set of path prefixes whose files are never materialized.
type ExclusionRules []string

// Excludes reports whether the slash path starts with any rule prefix.
func (r ExclusionRules) Excludes(p string) bool {
	for _, prefix := range r {
		if prefix != "" && strings.HasPrefix(p, prefix) {
			return true
		}
	}

	return false
}

// ShouldMaterialize decides whether an entry is downloaded on a dedicated server.
// Only server-required files under mods/ are kept, minus anything matching an exclusion prefix.
func ShouldMaterialize(entry *Entry, rules ExclusionRules) bool {
	if entry == nil {
		return false
	}

	cleaned, err := CleanPath(entry.Path)
	if err != nil {
		return false
	}

	slashed := filepath.ToSlash(cleaned)
	if !strings.HasPrefix(slashed, ModsDirectory+"/") {
		return false
	}

	if entry.ServerSupport() != Required {
		return false
	}

	return !rules.Excludes(slashed)
}
