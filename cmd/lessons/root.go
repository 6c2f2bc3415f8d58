// Package main provides the CLI entrypoint for lessons.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/config"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/core"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose          bool
		configPath       string
		daemonConfigPath string
		bus              string
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "lessons",
	Short: "Class schedule lesson row tools",
	Long: `lessons works with the class schedule lesson row shown by lessonsd.

It reconciles schedule snapshots offline, computes overlay positions,
talks to a running lessonsd over D-Bus and previews the lesson row in
the terminal.

Running lessons without a subcommand launches the preview.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPreview(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/lessons-displayer/config.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.daemonConfigPath, "daemon-config", "",
		"Path to lessonsd config, read for excluded activities (default: ~/.config/lessons-displayer/lessonsd.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.bus, "bus", "session",
		"D-Bus bus lessonsd listens on (session, system)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// getConfig returns the global config instance.
func getConfig() *config.Config {
	if cfg == nil {
		return config.DefaultConfig()
	}
	return cfg
}

// newReconciler uses the daemon's excluded activities so offline output
// matches what the overlay shows. An unreadable daemon config falls back
// to the defaults.
func newReconciler(extra []string) *core.Reconciler {
	excluded := config.DefaultDaemonConfig().Lessons.ExcludedActivities

	path := globalOpts.daemonConfigPath
	if path == "" {
		var err error
		if path, err = config.DaemonConfigPath(); err != nil {
			logger.Debug("no daemon config path", "error", err)
		}
	}
	if path != "" {
		if dcfg, err := config.LoadDaemonConfigFrom(path); err != nil {
			logger.Warn("failed to read daemon config, using default exclusions", "path", path, "error", err)
		} else {
			excluded = dcfg.Lessons.ExcludedActivities
		}
	}
	if len(extra) > 0 {
		excluded = slices.Concat(excluded, extra)
	}
	return core.NewReconciler(excluded)
}

func main() {
	Execute()
}
