package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	godbus "github.com/godbus/dbus/v5"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/adapter/input"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/config"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/daemon"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/dbus"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/host"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/store"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/theme"
)

// hostBridge feeds host data into an in-memory host: over D-Bus from the
// schedule application, or from a watched snapshot file.
type hostBridge struct {
	logger  *slog.Logger
	mem     *host.Memory
	conn    *godbus.Conn
	session *godbus.Conn
	service *dbus.Service
	watcher *store.FileWatcher
}

// startHost connects the bridge. A missing bus is fatal only for the dbus
// source; the file source keeps working without the overlay service.
func startHost(ctx context.Context, cfg *config.DaemonConfig, st *store.Store, logger *slog.Logger) (*hostBridge, error) {
	b := &hostBridge{logger: logger, mem: host.NewMemory()}
	fromBus := cfg.Host.Source == config.SourceDBus

	conn, err := dbus.Connect(cfg.Host.Bus)
	switch {
	case err != nil && fromBus:
		return nil, err
	case err != nil:
		logger.Warn("D-Bus unavailable, overlay service disabled", "bus", cfg.Host.Bus, "error", err)
	default:
		b.conn = conn
		svc := dbus.NewService(b.mem, st, logger)
		if err := svc.Start(conn); err != nil {
			if fromBus {
				return nil, fmt.Errorf("failed to start overlay service: %w", err)
			}
			logger.Warn("overlay service disabled", "error", err)
		} else {
			b.service = svc
			logger.Info("overlay service started", "bus", cfg.Host.Bus, "name", dbus.BusName)
		}
	}

	b.session = b.conn
	if cfg.Host.Bus == "system" {
		if b.session, err = dbus.Connect("session"); err != nil {
			logger.Warn("session bus unavailable, portal and notifications disabled", "error", err)
		}
	}

	if cfg.Host.Source == config.SourceFile {
		if err := b.watchSnapshot(ctx, cfg.Host.SnapshotPath); err != nil {
			b.Stop()
			return nil, err
		}
	}
	return b, nil
}

func (b *hostBridge) watchSnapshot(ctx context.Context, path string) error {
	src := input.NewFileAdapter(path)
	load := func() {
		snap, err := src.Load(ctx)
		if err != nil {
			b.logger.Warn("failed to load snapshot", "path", path, "error", err)
			return
		}
		b.mem.ApplySnapshot(*snap)
		b.logger.Debug("snapshot applied", "path", path, "entries", len(snap.Today))
	}
	load()

	w, err := store.NewFileWatcher(path, func(string) { load() }, b.logger)
	if err != nil {
		return fmt.Errorf("failed to watch snapshot: %w", err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to watch snapshot: %w", err)
	}
	b.watcher = w
	b.logger.Info("watching snapshot file", "path", path)
	return nil
}

// Host returns the host the plugin reads from.
func (b *hostBridge) Host() *host.Memory { return b.mem }

func (b *hostBridge) Stop() {
	if b.watcher != nil {
		if err := b.watcher.Stop(); err != nil {
			b.logger.Debug("error stopping snapshot watcher", "error", err)
		}
	}
	if b.service != nil {
		if err := b.service.Stop(); err != nil {
			b.logger.Debug("error stopping overlay service", "error", err)
		}
	}
}

// newDetector picks the theme source. A forced color scheme wins; the
// adwaita detector needs a running GTK application.
func newDetector(cfg config.ThemeConfig, session *godbus.Conn, withGTK bool, logger *slog.Logger) theme.Detector {
	switch config.ColorScheme(cfg.ColorScheme) {
	case config.ColorSchemeLight:
		return theme.StaticDetector(false)
	case config.ColorSchemeDark:
		return theme.StaticDetector(true)
	}
	if cfg.Detector == config.DetectorAdwaita {
		if withGTK {
			return theme.AdwaitaDetector{}
		}
		logger.Warn("adwaita detector needs GTK, using portal")
	}
	if session == nil {
		logger.Warn("no session bus for the settings portal, assuming light theme")
		return theme.StaticDetector(false)
	}
	return theme.NewPortalDetector(session)
}

// newNotifier delivers operator notifications to the desktop notification
// daemon without blocking the caller.
func newNotifier(session *godbus.Conn, logger *slog.Logger) *daemon.InternalNotifier {
	n := daemon.NewInternalNotifier(logger)
	if session == nil {
		n.SetEnabled(false)
		return n
	}
	n.SetNotifyHandler(func(note *dbus.Notification) error {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if _, err := dbus.SendNotification(ctx, session, note); err != nil {
				logger.Debug("desktop notification failed", "summary", note.Summary, "error", err)
			}
		}()
		return nil
	})
	return n
}

// watchConfig hot-reloads the daemon config. apply runs on the dispatcher.
func watchConfig(
	ctx context.Context,
	path string,
	cfg *config.DaemonConfig,
	d daemon.Dispatcher,
	notifier *daemon.InternalNotifier,
	apply func(*config.DaemonConfig),
	logger *slog.Logger,
) *daemon.ConfigWatcher {
	w := daemon.NewConfigWatcher(path, logger)
	w.SetPollInterval(cfg.Timers.ConfigPoll.Duration())
	w.SetReloadCallback(func(newConfig *config.DaemonConfig) {
		d.Dispatch(func() {
			apply(newConfig)
			notifier.NotifyConfigReloaded()
		})
	})
	w.SetErrorCallback(func(err error) {
		d.Dispatch(func() { notifier.NotifyConfigError(err) })
	})
	if err := w.Start(ctx, cfg); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}
	return w
}
