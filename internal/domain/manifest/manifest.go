package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

// DescriptorFilename is the manifest descriptor location at the archive root.
const DescriptorFilename = "modrinth.index.json"

// Support states whether a file is needed on one side of the game.
type Support string

const (
	// Required files must be installed.
	Required Support = "required"
	// Optional files may be installed.
	Optional Support = "optional"
	// Unsupported files must not be installed.
	Unsupported Support = "unsupported"
)

var (
	// ErrMissingDescriptor is returned when the archive has no manifest descriptor.
	ErrMissingDescriptor = errors.New("manifest descriptor not found")
	// ErrMalformed is returned when the descriptor cannot be decoded or is inconsistent.
	ErrMalformed = errors.New("malformed manifest")
)

// Manifest is the declarative list of files that make up a package version.
type Manifest struct {
	// FormatVersion is the descriptor schema version.
	FormatVersion int `json:"formatVersion"`
	// Game is the game the package targets.
	Game string `json:"game"`
	// VersionID is the package version identifier.
	VersionID string `json:"versionId"`
	// Name is the human readable package name.
	Name string `json:"name"`
	// Files is the ordered list of downloadable files.
	Files []Entry `json:"files"`
	// Dependencies maps runtime components (game, loader) to versions.
	Dependencies map[string]string `json:"dependencies"`
}

// Entry describes one file of the package.
type Entry struct {
	// Path is the install-root relative destination.
	Path string `json:"path"`
	// Hashes maps digest algorithm names to hex digests.
	Hashes map[string]string `json:"hashes"`
	// Env states on which side the file is needed; nil means both.
	Env *Environment `json:"env,omitempty"`
	// Downloads lists source URLs, the first one is primary.
	Downloads []string `json:"downloads"`
	// FileSize is the expected size in bytes.
	FileSize int64 `json:"fileSize"`
}

// Environment holds per-side support flags of an entry.
type Environment struct {
	Client Support `json:"client"`
	Server Support `json:"server"`
}

// ServerSupport returns the server side flag, defaulting to Required when unset.
func (e *Entry) ServerSupport() Support {
	if e.Env == nil || e.Env.Server == "" {
		return Required
	}

	return e.Env.Server
}

// Parse decodes a manifest descriptor and validates every entry.
// Any entry with an unsafe path or no download source makes the whole manifest malformed.
func Parse(r io.Reader) (*Manifest, error) {
	var m Manifest

	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode descriptor: %w: %w", ErrMalformed, err)
	}

	for i := range m.Files {
		entry := &m.Files[i]

		if _, err := CleanPath(entry.Path); err != nil {
			return nil, fmt.Errorf("file #%d: %w: %w", i, ErrMalformed, err)
		}

		if len(entry.Downloads) == 0 {
			return nil, fmt.Errorf("file #%d %q has no downloads: %w", i, entry.Path, ErrMalformed)
		}
	}

	return &m, nil
}

// Load reads and parses the descriptor stored at name within fsys.
func Load(fsys afero.Fs, name string) (*Manifest, error) {
	file, err := fsys.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrMissingDescriptor)
		}

		return nil, fmt.Errorf("open descriptor: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	return Parse(file)
}
