// Package main is the entry point for the lessonsd overlay daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/config"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/daemon"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/display"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/store"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/theme"
)

const (
	appID   = "io.github.yersmagit.LessonsDisplayer"
	appName = "lessonsd"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	verbose := flag.Bool("verbose", false, "Log at debug level")
	headless := flag.Bool("headless", false, "Run without a window; masks and layers are only logged")
	snapshot := flag.String("snapshot", "", "Read host data from this snapshot file instead of D-Bus")
	configPath := flag.String("config", "", "Config file (default ~/.config/lessons-displayer/lessonsd.toml)")
	flag.Parse()

	if *showVersion {
		println(appName, "version", version)
		os.Exit(0)
	}

	path, cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
	if *snapshot != "" {
		cfg.Host.Source = config.SourceFile
		cfg.Host.SnapshotPath = *snapshot
	}

	logger, logFile, err := setupLogging(cfg.Log, *verbose)
	if err != nil {
		logger.Warn("log file disabled", "error", err)
	}
	slog.SetDefault(logger)

	logger.Info("starting lessonsd", "version", version, "config", path,
		"source", cfg.Host.Source, "headless", *headless)

	var status int
	if *headless {
		status = runHeadless(path, cfg, logger)
	} else {
		status = runDaemon(path, cfg, logger)
	}
	if status != 0 {
		logger.Error("lessonsd exited with error", "status", status)
	}
	_ = logFile.Close()
	os.Exit(status)
}

func loadConfig(path string) (string, *config.DaemonConfig, error) {
	if path == "" {
		var err error
		if path, err = config.DaemonConfigPath(); err != nil {
			return "", nil, fmt.Errorf("failed to get config path: %w", err)
		}
	}
	cfg, err := config.LoadDaemonConfigFrom(path)
	if err != nil {
		return path, nil, err
	}
	return path, cfg, nil
}

// newPlugin builds the plugin on top of a started host bridge.
func newPlugin(cfg *config.DaemonConfig, bridge *hostBridge, st *store.Store, j *store.Journal, w daemon.Window,
	d daemon.Dispatcher, det theme.Detector, notifier *daemon.InternalNotifier, logger *slog.Logger,
) (*daemon.Plugin, error) {
	statePath, err := store.StateFilePath()
	if err != nil {
		logger.Warn("published state disabled", "error", err)
		statePath = ""
	}
	return daemon.NewPlugin(daemon.Options{
		Config:     cfg,
		Host:       bridge.Host(),
		Window:     w,
		Dispatcher: d,
		Detector:   det,
		Store:      st,
		StatePath:  statePath,
		Journal:    j,
		Notifier:   notifier,
		Logger:     logger,
	})
}

// openJournal opens the lesson journal, or returns nil when it is
// disabled or cannot be opened.
func openJournal(cfg *config.DaemonConfig, logger *slog.Logger) *store.Journal {
	if cfg.Lessons.JournalLimit == 0 {
		return nil
	}
	path, err := store.JournalPath()
	if err != nil {
		logger.Warn("journal disabled", "error", err)
		return nil
	}
	j, err := store.OpenJournal(path, cfg.Lessons.JournalLimit)
	if err != nil {
		logger.Warn("journal disabled", "path", path, "error", err)
		return nil
	}
	return j
}

// runDaemon runs the overlay inside a libadwaita application. Everything
// touching the plugin runs on the GTK main loop.
func runDaemon(path string, cfg *config.DaemonConfig, logger *slog.Logger) int {
	app := adw.NewApplication(appID, 0)

	var (
		bridge        *hostBridge
		journal       *store.Journal
		plugin        *daemon.Plugin
		themeLoader   *theme.Loader
		configWatcher *daemon.ConfigWatcher
		st            *store.Store
		running       atomic.Bool
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
		glib.IdleAdd(func() {
			app.Quit()
		})
	}()

	app.ConnectActivate(func() {
		if running.Load() {
			logger.Warn("application already running")
			return
		}
		running.Store(true)

		st = store.NewStore(cfg.Overlay.DefaultWidth)

		var err error
		bridge, err = startHost(ctx, cfg, st, logger)
		if err != nil {
			logger.Error("failed to connect to host", "error", err)
			app.Quit()
			return
		}
		notifier := newNotifier(bridge.session, logger)

		themeLoader = theme.NewLoader(display.Post, logger)
		if err := themeLoader.Load(cfg.Theme.Name); err != nil {
			logger.Warn("failed to load theme", "theme", cfg.Theme.Name, "error", err)
			notifier.NotifyThemeError(err)
		}
		themeLoader.Apply(nil)
		themeLoader.StartHotReload(ctx, cfg.Timers.ConfigPoll.Duration())

		overlay := display.NewOverlay(&app.Application, cfg.Overlay, logger)
		det := newDetector(cfg.Theme, bridge.session, true, logger)
		journal = openJournal(cfg, logger)
		plugin, err = newPlugin(cfg, bridge, st, journal, overlay, display.GLibDispatcher{}, det, notifier, logger)
		if err != nil {
			logger.Error("failed to create plugin", "error", err)
			app.Quit()
			return
		}
		if err := plugin.OnLoad(ctx); err != nil {
			logger.Error("failed to load plugin", "error", err)
			app.Quit()
			return
		}

		// The window may not exist yet while content loads.
		app.Hold()

		current := cfg
		configWatcher = watchConfig(ctx, path, cfg, display.GLibDispatcher{}, notifier,
			func(newConfig *config.DaemonConfig) {
				plugin.ApplyConfig(newConfig)
				if newConfig.Theme.Name != current.Theme.Name {
					if err := themeLoader.Load(newConfig.Theme.Name); err != nil {
						logger.Warn("failed to load new theme", "theme", newConfig.Theme.Name, "error", err)
						notifier.NotifyThemeError(err)
					} else {
						themeLoader.StartHotReload(ctx, newConfig.Timers.ConfigPoll.Duration())
					}
				}
				current = newConfig
			}, logger)

		logger.Info("lessonsd ready", "namespace", cfg.Overlay.Namespace)
	})

	app.ConnectShutdown(func() {
		logger.Info("application shutting down")
		if configWatcher != nil {
			configWatcher.Stop()
		}
		if themeLoader != nil {
			themeLoader.StopHotReload()
		}
		if plugin != nil {
			plugin.OnUnload()
		}
		if bridge != nil {
			bridge.Stop()
		}
		if journal != nil {
			_ = journal.Close()
		}
		if st != nil {
			_ = st.Close()
		}
		running.Store(false)
	})

	// GApplication would try to handle our flags as files to open.
	status := app.Run([]string{os.Args[0]})
	cancel()

	if status == 0 {
		logger.Info("lessonsd stopped")
	}
	return status
}
