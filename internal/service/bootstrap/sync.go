package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/vaporvee/boundless-server/internal/archive"
	"github.com/vaporvee/boundless-server/internal/config"
	"github.com/vaporvee/boundless-server/internal/domain/manifest"
	"github.com/vaporvee/boundless-server/internal/integrity"
	"github.com/vaporvee/boundless-server/internal/logger"
	"github.com/vaporvee/boundless-server/internal/overrides"
	"github.com/vaporvee/boundless-server/internal/registry"
	"github.com/vaporvee/boundless-server/internal/transport/download"
)

const (
	// InstallerFilename is where the loader installer is downloaded.
	InstallerFilename = "installer.jar"

	// installerLogFilename is written by the installer next to itself.
	installerLogFilename = InstallerFilename + ".log"

	// ArchiveFilename is where the package archive is downloaded.
	ArchiveFilename = "temp.mrpack"
)

// Installer runs the loader installer.
type Installer interface {
	Install(ctx context.Context, installerPath string) error
}

// Registry resolves the package version to install.
type Registry interface {
	LatestFile(ctx context.Context, project, channel string) (*registry.Version, *registry.File, error)
}

// Tracker persists whether a pass completed.
type Tracker interface {
	IsSynchronized(ctx context.Context) bool
	MarkSynchronized(ctx context.Context) error
}

// Report summarizes the manifest stage of a pass.
type Report struct {
	// Version is the resolved package version.
	Version string
	// Downloaded lists the manifest paths written and verified.
	Downloaded []string
	// Skipped counts entries the filter excluded.
	Skipped int
	// Failed lists the manifest paths that could not be downloaded.
	Failed []string
}

// Synchronizer runs one synchronization pass over an install root.
type Synchronizer struct {
	// cfg holds channel, project, exclusions and loader settings.
	cfg *config.Config
	// fs is the install root.
	fs afero.Fs
	// downloader fetches the installer, archive and manifest files.
	downloader *download.Downloader
	// registry resolves the archive URL.
	registry Registry
	// installer runs the loader installer.
	installer Installer
	// tracker persists completion.
	tracker Tracker
	// stage is the last stage reached in the current pass.
	stage Stage
	// report is filled while processing the manifest.
	report Report
}

// NewSynchronizer wires a Synchronizer from its collaborators.
func NewSynchronizer(
	cfg *config.Config,
	fsys afero.Fs,
	downloader *download.Downloader,
	reg Registry,
	installer Installer,
	tracker Tracker,
) *Synchronizer {
	return &Synchronizer{
		cfg:        cfg,
		fs:         fsys,
		downloader: downloader,
		registry:   reg,
		installer:  installer,
		tracker:    tracker,
	}
}

// Stage returns the last stage reached.
func (s *Synchronizer) Stage() Stage {
	return s.stage
}

// Report returns the manifest summary of the last pass.
func (s *Synchronizer) Report() Report {
	return s.report
}

// Sync brings the install root up to date unless a previous pass already completed.
// A failing step aborts the pass before the completion marker is written, so the
// next run starts over from the beginning.
func (s *Synchronizer) Sync(ctx context.Context) error {
	if s.tracker.IsSynchronized(ctx) {
		logger.Info(ctx, "Server is already updated, skipping download and installation steps")

		s.stage = Completed

		return nil
	}

	s.stage = NotStarted
	s.report = Report{}

	steps := []struct {
		stage Stage
		run   func(context.Context) error
	}{
		{InstallerFetched, s.installLoader},
		{ArchiveDownloaded, s.fetchArchive},
		{ManifestProcessed, s.processManifest},
		{OverridesMerged, s.mergeOverrides},
		{Completed, s.tracker.MarkSynchronized},
	}

	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			logger.ErrorKV(ctx, "Synchronization aborted", "reached", s.stage, "failed", step.stage, "error", err)

			return fmt.Errorf("%s: %w", step.stage, err)
		}

		s.stage = step.stage
		logger.DebugKV(ctx, "Stage reached", "stage", s.stage)
	}

	return nil
}

// installLoader downloads the loader installer, runs it and removes its leftovers.
func (s *Synchronizer) installLoader(ctx context.Context) error {
	installerURL := s.cfg.InstallerURL()

	logger.InfoKV(ctx, "Downloading loader installer", "url", installerURL)

	size, err := s.downloader.Get(ctx, installerURL, InstallerFilename)
	if err != nil {
		return fmt.Errorf("download installer: %w", err)
	}

	logger.InfoKV(ctx, "Installer downloaded", "path", InstallerFilename, "bytes", size)

	if err = s.installer.Install(ctx, InstallerFilename); err != nil {
		return err
	}

	s.removeQuietly(ctx, InstallerFilename, installerLogFilename)

	return nil
}

// fetchArchive resolves the newest package file, downloads and unpacks it.
func (s *Synchronizer) fetchArchive(ctx context.Context) error {
	version, file, err := s.registry.LatestFile(ctx, s.cfg.Registry.Project, s.cfg.Channel)
	if err != nil {
		return fmt.Errorf("resolve package: %w", err)
	}

	s.report.Version = version.VersionNumber

	logger.InfoKV(ctx, "Downloading package archive", "url", file.URL, "version", version.VersionNumber)

	if digests := supportedDigests(file.Hashes); len(digests) > 0 {
		outcome := s.downloader.Fetch(ctx, []string{file.URL}, ArchiveFilename, digests)
		if !outcome.Success {
			return fmt.Errorf("download archive: %w", outcome.Err)
		}
	} else {
		logger.Warn(ctx, "Registry did not publish digests, archive is not verified")

		if _, err = s.downloader.Get(ctx, file.URL, ArchiveFilename); err != nil {
			return fmt.Errorf("download archive: %w", err)
		}
	}

	return archive.Extract(ctx, s.fs, ArchiveFilename, ".")
}

// processManifest downloads every entry the filter keeps.
// Entry failures are collected and reported without aborting the pass.
func (s *Synchronizer) processManifest(ctx context.Context) error {
	m, err := manifest.Load(s.fs, manifest.DescriptorFilename)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Processing package manifest", "name", m.Name, "version", m.VersionID, "files", len(m.Files))

	var (
		rules    = manifest.ExclusionRules(s.cfg.Exclusions)
		failures error
	)

	for i := range m.Files {
		entry := &m.Files[i]

		if !manifest.ShouldMaterialize(entry, rules) {
			s.report.Skipped++
			logger.DebugKV(ctx, "Skipping file", "path", entry.Path)

			continue
		}

		logger.InfoKV(ctx, "Downloading mod", "path", entry.Path)

		outcome := s.downloader.Fetch(ctx, entry.Downloads, entry.Path, entry.Hashes)
		if !outcome.Success {
			logger.ErrorKV(ctx, "Failed to download file after retries",
				"path", entry.Path, "attempts", outcome.Attempts, "error", outcome.Err)

			s.report.Failed = append(s.report.Failed, entry.Path)
			failures = multierr.Append(failures, fmt.Errorf("%s: %w", entry.Path, outcome.Err))

			continue
		}

		s.report.Downloaded = append(s.report.Downloaded, entry.Path)
	}

	if failures != nil {
		logger.WarnKV(ctx, "Some files were skipped after failed downloads",
			"failed", len(multierr.Errors(failures)), "error", failures)
	}

	logger.InfoKV(ctx, "Manifest processed",
		"downloaded", len(s.report.Downloaded), "skipped", s.report.Skipped, "failed", len(s.report.Failed))

	return nil
}

// mergeOverrides applies the override tree and removes the archive and descriptor.
func (s *Synchronizer) mergeOverrides(ctx context.Context) error {
	if err := overrides.Merge(ctx, s.fs, overrides.DefaultRoot, "."); err != nil {
		return fmt.Errorf("merge overrides: %w", err)
	}

	s.removeQuietly(ctx, ArchiveFilename, manifest.DescriptorFilename)

	return nil
}

// removeQuietly deletes scratch files, logging anything but a missing file.
func (s *Synchronizer) removeQuietly(ctx context.Context, names ...string) {
	for _, name := range names {
		if err := s.fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.WarnKV(ctx, "Unable to delete file", "path", name, "error", err)
		}
	}
}

// supportedDigests keeps the digests the verifier understands.
func supportedDigests(hashes map[string]string) map[string]string {
	digests := make(map[string]string, len(hashes))

	for algorithm, value := range hashes {
		if integrity.Supported(algorithm) && value != "" {
			digests[algorithm] = value
		}
	}

	return digests
}
