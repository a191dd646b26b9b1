package overrides

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/vaporvee/boundless-server/internal/logger"
)

// DefaultRoot is the override directory produced by package extraction.
const DefaultRoot = "overrides"

const (
	defaultDirMode  os.FileMode = 0o755
	defaultFileMode os.FileMode = 0o644
)

// Subtrees are the override directories merged onto the install root.
//
//nolint:gochecknoglobals // Fixed list of server-relevant override folders.
var Subtrees = []string{"mods", "config"}

// Merge copies every regular file of the known subtrees under overrideRoot to the same
// relative path under workingRoot, overwriting existing files, then removes overrideRoot.
// A missing overrideRoot or missing subtrees are not an error.
func Merge(ctx context.Context, fsys afero.Fs, overrideRoot, workingRoot string) error {
	copied := 0

	for _, subtree := range Subtrees {
		source := filepath.Join(overrideRoot, subtree)

		isDir, err := afero.IsDir(fsys, source)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", source, err)
		}

		if !isDir {
			logger.DebugKV(ctx, "Override subtree not present", "path", source)
			continue
		}

		n, err := copyTree(ctx, fsys, source, filepath.Join(workingRoot, subtree))
		if err != nil {
			return err
		}

		copied += n
	}

	if err := fsys.RemoveAll(overrideRoot); err != nil {
		return fmt.Errorf("remove %s: %w", overrideRoot, err)
	}

	logger.InfoKV(ctx, "Overrides merged", "files", copied)

	return nil
}

func copyTree(ctx context.Context, fsys afero.Fs, source, destination string) (int, error) {
	copied := 0

	err := afero.Walk(fsys, source, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}

		target := filepath.Join(destination, rel)

		switch {
		case info.IsDir():
			return fsys.MkdirAll(target, defaultDirMode)
		case !info.Mode().IsRegular():
			logger.WarnKV(ctx, "Skipping non-regular override", "path", path)

			return nil
		}

		if err = copyFile(fsys, path, target); err != nil {
			return err
		}

		copied++

		logger.DebugKV(ctx, "Copied override", "path", target)

		return nil
	})
	if err != nil {
		return copied, fmt.Errorf("copy %s: %w", source, err)
	}

	return copied, nil
}

func copyFile(fsys afero.Fs, source, target string) error {
	if err := fsys.MkdirAll(filepath.Dir(target), defaultDirMode); err != nil {
		return err
	}

	input, err := fsys.Open(source)
	if err != nil {
		return err
	}

	defer func() {
		_ = input.Close()
	}()

	output, err := fsys.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, defaultFileMode)
	if err != nil {
		return err
	}

	if _, err = io.Copy(output, input); err != nil {
		_ = output.Close()

		return err
	}

	return output.Close()
}
