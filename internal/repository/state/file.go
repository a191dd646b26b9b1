package state

import (
	"bytes"
	"context"
	"crypto"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/vaporvee/boundless-server/internal/logger"

	// Ensure SHA256 is available for the pre-swap checksum.
	_ "crypto/sha256"
)

// DefaultFilename is the marker file name at the install root.
const DefaultFilename = "boundless-server.json"

const (
	// defaultFileMode is the permission of the marker file.
	defaultFileMode os.FileMode = 0o644

	// checksumFunction validates the new marker contents before it replaces the old one.
	checksumFunction = crypto.SHA256
)

// SyncState is the persisted synchronization marker.
type SyncState struct {
	// Updated is true once a bootstrap pass finished every step.
	Updated bool `json:"updated"`
}

// FileRepository persists the marker as JSON on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON marker file.
	path string
	// mu serializes access to the marker file.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when the marker file does not exist yet.
	ErrNotFound = errors.New("state not found")
	// errStateIsNotSet is returned when Save receives nil.
	errStateIsNotSet = errors.New("state is not set")
)

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the marker file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the marker from disk.
func (r *FileRepository) Load(_ context.Context) (*SyncState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state SyncState
	if err = json.Unmarshal(contents, &state); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	return &state, nil
}

// Save atomically replaces the marker on disk.
// The new contents are written beside the target, verified, then renamed into place.
func (r *FileRepository) Save(_ context.Context, state *SyncState) error {
	if state == nil {
		return errStateIsNotSet
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	// The swap renames the current file aside, so a target must exist.
	if _, err = os.Stat(r.path); errors.Is(err, os.ErrNotExist) {
		if err = os.WriteFile(r.path, nil, defaultFileMode); err != nil {
			return fmt.Errorf("create state file: %w", err)
		}
	}

	hasher := checksumFunction.New()
	_, _ = hasher.Write(data)

	options := goupdate.Options{
		TargetPath: r.path,
		TargetMode: defaultFileMode,
		Checksum:   hasher.Sum(nil),
		Hash:       checksumFunction,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	return nil
}

// IsSynchronized reports whether a previous pass completed.
// A missing, unreadable or malformed marker counts as not synchronized.
func (r *FileRepository) IsSynchronized(ctx context.Context) bool {
	state, err := r.Load(ctx)

	switch {
	case err == nil:
		return state.Updated
	case errors.Is(err, ErrNotFound):
		logger.DebugKV(ctx, "Synchronization marker not found", "path", r.path)
	default:
		logger.WarnKV(ctx, "Ignoring unreadable synchronization marker", "path", r.path, "error", err)
	}

	return false
}

// MarkSynchronized records that the current pass completed.
func (r *FileRepository) MarkSynchronized(ctx context.Context) error {
	if err := r.Save(ctx, &SyncState{Updated: true}); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Server update marked as complete", "path", r.path)

	return nil
}
