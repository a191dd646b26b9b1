package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"

	"github.com/vaporvee/boundless-server/internal/domain/manifest"
	"github.com/vaporvee/boundless-server/internal/logger"
)

const (
	defaultDirMode  os.FileMode = 0o755
	defaultFileMode os.FileMode = 0o644
)

// ErrExtractionFailed wraps every extraction failure.
var ErrExtractionFailed = errors.New("extraction failed")

// Extract unpacks the zip archive at archivePath into destRoot, both relative to fsys.
// Existing files are overwritten. Symbolic link entries are skipped.
func Extract(ctx context.Context, fsys afero.Fs, archivePath, destRoot string) error {
	archiveFile, err := fsys.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open %s: %w: %w", archivePath, ErrExtractionFailed, err)
	}

	defer func() {
		_ = archiveFile.Close()
	}()

	info, err := archiveFile.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w: %w", archivePath, ErrExtractionFailed, err)
	}

	reader, err := zip.NewReader(archiveFile, info.Size())
	if err != nil {
		return fmt.Errorf("read %s: %w: %w", archivePath, ErrExtractionFailed, err)
	}

	targets, err := resolveTargets(reader.File, destRoot)
	if err != nil {
		return err
	}

	for i, entry := range reader.File {
		target := targets[i]

		switch {
		case target == "":
			logger.DebugKV(ctx, "Skipping archive root entry", "entry", entry.Name)
		case entry.Mode()&os.ModeSymlink != 0:
			logger.WarnKV(ctx, "Skipping symbolic link in archive", "entry", entry.Name)
		case isDirectory(entry):
			if err = fsys.MkdirAll(target, defaultDirMode); err != nil {
				return fmt.Errorf("create %s: %w: %w", target, ErrExtractionFailed, err)
			}
		default:
			if err = writeEntry(fsys, entry, target); err != nil {
				return fmt.Errorf("write %s: %w: %w", target, ErrExtractionFailed, err)
			}
		}
	}

	logger.DebugKV(ctx, "Archive extracted", "archive", archivePath, "entries", len(reader.File))

	return nil
}

// resolveTargets maps every entry to its destination and rejects unsafe names up front.
// Entries naming the archive root itself map to an empty target.
func resolveTargets(entries []*zip.File, destRoot string) ([]string, error) {
	targets := make([]string, len(entries))

	for i, entry := range entries {
		if isRootEntry(entry.Name) {
			continue
		}

		rel, err := manifest.CleanPath(entry.Name)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w: %w", entry.Name, ErrExtractionFailed, err)
		}

		targets[i] = filepath.Join(destRoot, rel)
	}

	return targets, nil
}

// isRootEntry reports names such as "./" that clean to the archive root.
func isRootEntry(name string) bool {
	slashed := strings.ReplaceAll(name, `\`, "/")

	return strings.TrimSpace(slashed) != "" && path.Clean(slashed) == "."
}

func isDirectory(entry *zip.File) bool {
	return strings.HasSuffix(entry.Name, "/") || entry.FileInfo().IsDir()
}

func writeEntry(fsys afero.Fs, entry *zip.File, target string) error {
	if err := fsys.MkdirAll(filepath.Dir(target), defaultDirMode); err != nil {
		return err
	}

	source, err := entry.Open()
	if err != nil {
		return err
	}

	defer func() {
		_ = source.Close()
	}()

	output, err := fsys.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, defaultFileMode)
	if err != nil {
		return err
	}

	//nolint:gosec // Archives come from the configured registry and are size-checked by zip headers.
	if _, err = io.Copy(output, source); err != nil {
		_ = output.Close()

		return err
	}

	return output.Close()
}
