package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/vaporvee/boundless-server/internal/config"
	"github.com/vaporvee/boundless-server/internal/logger"
	"github.com/vaporvee/boundless-server/internal/registry"
	"github.com/vaporvee/boundless-server/internal/repository/state"
	"github.com/vaporvee/boundless-server/internal/service/launcher"
	"github.com/vaporvee/boundless-server/internal/transport/download"
)

// errUnknownInstallerLevel is returned for an unparsable loader log level.
var errUnknownInstallerLevel = errors.New("unknown installer log level")

// Options are inputs accepted by the bootstrap entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// InstallRoot overrides the configured install root when set.
	InstallRoot string
	// LogLevel overrides the configured log level when set.
	LogLevel string
	// Args are the arguments forwarded by the hosting panel.
	Args []string
}

// Run synchronizes the install root if needed and then runs the server until it exits.
// The returned code is the server exit status, or 1 when the server never started.
func Run(ctx context.Context, opts *Options) (int, error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "boundless-server")

	cfg, err := loadConfig(opts)
	if err != nil {
		return 1, err
	}

	root, err := filepath.Abs(cfg.InstallRoot)
	if err != nil {
		return 1, fmt.Errorf("resolve install root: %w", err)
	}

	if err = os.MkdirAll(root, 0o755); err != nil {
		return 1, fmt.Errorf("create install root: %w", err)
	}

	lock, err := acquireLock(root)
	if err != nil {
		return 1, err
	}

	defer func() {
		_ = lock.Unlock()
	}()

	fsys := afero.NewBasePathFs(afero.NewOsFs(), root)

	noGUI, err := launcher.CaptureArgs(ctx, fsys, opts.Args)
	if err != nil {
		logger.ErrorKV(ctx, "Unable to capture JVM arguments", "error", err)
	}

	runnerOpts, err := runnerOptions(cfg)
	if err != nil {
		return 1, err
	}

	runner := launcher.NewRunner(cfg.Java, root, runnerOpts...)

	synchronizer := NewSynchronizer(
		cfg,
		fsys,
		download.New(fsys,
			download.WithMaxAttempts(cfg.MaxAttempts),
			download.WithTimeout(cfg.Timeout),
			download.WithUserAgent(cfg.Registry.UserAgent),
		),
		registry.NewClient(cfg.Registry.URL,
			registry.WithUserAgent(cfg.Registry.UserAgent),
			registry.WithTimeout(cfg.Timeout),
		),
		runner,
		state.NewFileRepository(filepath.Join(root, state.DefaultFilename)),
	)

	logger.InfoKV(ctx, "Bootstrapping server", "root", root, "project", cfg.Registry.Project, "channel", cfg.Channel, "log_level", logger.Level())

	if err = synchronizer.Sync(ctx); err != nil {
		return 1, err
	}

	var extra []string
	if noGUI {
		extra = append(extra, "nogui")
	}

	return runner.LaunchServer(ctx, launcher.CurrentServerArgsFile(cfg.Loader.ServerVersion), extra...)
}

// loadConfig reads settings and applies command line overrides.
func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.InstallRoot != "" {
		cfg.InstallRoot = opts.InstallRoot
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	if err = logger.SetLevelName(cfg.LogLevel); err != nil {
		return nil, err
	}

	return cfg, nil
}

// runnerOptions maps loader settings onto launcher options.
func runnerOptions(cfg *config.Config) ([]launcher.Option, error) {
	if cfg.Loader.LogLevel == "" {
		return nil, nil
	}

	level, ok := logger.ParseLogLevel(cfg.Loader.LogLevel)
	if !ok {
		return nil, fmt.Errorf("%q: %w", cfg.Loader.LogLevel, errUnknownInstallerLevel)
	}

	return []launcher.Option{launcher.WithInstallerLevel(level)}, nil
}
