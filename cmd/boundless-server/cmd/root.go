package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vaporvee/boundless-server/internal/config"
	"github.com/vaporvee/boundless-server/internal/logger"
	"github.com/vaporvee/boundless-server/internal/service/bootstrap"
	"github.com/vaporvee/boundless-server/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// installRoot overrides the configured install root.
	installRoot string
	// logLevel overrides the configured log level.
	logLevel string
	// exitCode is the server exit status propagated to the process.
	exitCode int

	// rootCmd represents the base command for synchronizing and starting the server.
	rootCmd = &cobra.Command{
		Use:   "boundless-server [flags] [-- server-args...]",
		Short: "Install the modpack server and start it",
		Long: "Installs the mod loader, downloads the newest modpack release with its server mods " +
			"and launches the server. Arguments after -- are JVM options up to nogui.",
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &bootstrap.Options{
				ConfigPath:  configPath,
				InstallRoot: installRoot,
				LogLevel:    logLevel,
				Args:        args,
			}

			code, err := bootstrap.Run(ctx, options)
			exitCode = code

			if err != nil {
				logger.ErrorKV(ctx, "Bootstrap failed", "error", err)
			}

			return err
		},
	}
)

// Execute runs the boundless-server CLI and exits with the server exit status.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	err := rootCmd.Execute()

	_ = logger.Logger().Sync()

	if err != nil && exitCode == 0 {
		exitCode = 1
	}

	os.Exit(exitCode)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&installRoot, "root", "r", "", "install root directory (overrides configuration)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides configuration)")
}
