// Package cmd implements the arbor command-line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arborlabs/arbor/internal/config"
	"github.com/arborlabs/arbor/internal/observability"
	"github.com/arborlabs/arbor/internal/server/handlers"
)

// versionInfo carries build metadata injected at link time via main.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata for version reporting.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	handlers.SetVersionInfo(version, commit, buildDate)
}

var (
	// logLevel overrides the configured log level.
	logLevel string

	// appConfig is the loaded application configuration.
	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Recursive tree inventory for remote content stores",
	Long: `Arbor expands path specs against remote tree backends and emits a
flat, sorted inventory of every reachable file.

Backends: S3-compatible object stores, Microsoft Graph drives, Google
Drive folders, and GitHub repositories.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		level := cfg.Logging.Level
		if logLevel != "" {
			level = logLevel
		}
		if err := observability.Init(level, cfg.Logging.Profile); err != nil {
			return err
		}

		appConfig = cfg
		observability.CLILogger.Debug("configuration loaded",
			zap.Int("roots", len(cfg.Roots)),
			zap.String("log_level", level))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug|info|warn|error)")
}

// ExecuteContext runs the CLI under the given context and returns the
// exit error, if any.
func ExecuteContext(ctx context.Context) error {
	defer observability.Sync()
	return rootCmd.ExecuteContext(ctx)
}
