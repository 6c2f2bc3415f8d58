package main

import (
	"context"
	"errors"
	"log/slog"
	"syscall"

	"github.com/oklog/run"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/config"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/daemon"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/store"
)

// runHeadless runs the plugin on a plain event loop with a window that only
// records masks and layers. The loop, the signal handler and the config
// watcher run as one group; the first to return stops the others.
func runHeadless(path string, cfg *config.DaemonConfig, logger *slog.Logger) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.NewStore(cfg.Overlay.DefaultWidth)
	defer func() { _ = st.Close() }()

	bridge, err := startHost(ctx, cfg, st, logger)
	if err != nil {
		logger.Error("failed to connect to host", "error", err)
		return 1
	}
	defer bridge.Stop()

	screen, _ := bridge.Host().Screen()
	window := daemon.NewHeadlessWindow(cfg.Overlay.ContentHeight, screen, logger)
	notifier := newNotifier(bridge.session, logger)
	det := newDetector(cfg.Theme, bridge.session, false, logger)

	journal := openJournal(cfg, logger)
	if journal != nil {
		defer func() { _ = journal.Close() }()
	}

	loop := daemon.NewLoop()
	plugin, err := newPlugin(cfg, bridge, st, journal, window, loop, det, notifier, logger)
	if err != nil {
		logger.Error("failed to create plugin", "error", err)
		return 1
	}

	loop.Dispatch(func() {
		if err := plugin.OnLoad(ctx); err != nil {
			logger.Error("failed to load plugin", "error", err)
			loop.Stop()
		}
	})

	var g run.Group
	{
		loopCtx, stop := context.WithCancel(ctx)
		g.Add(func() error {
			return loop.Run(loopCtx)
		}, func(error) {
			loop.Stop()
			stop()
		})
	}
	{
		g.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))
	}
	{
		watcher := watchConfig(ctx, path, cfg, loop, notifier, plugin.ApplyConfig, logger)
		watchCtx, stop := context.WithCancel(ctx)
		g.Add(func() error {
			<-watchCtx.Done()
			return nil
		}, func(error) {
			stop()
			watcher.Stop()
		})
	}

	err = g.Run()
	// The loop has returned; the plugin is only touched from here on.
	plugin.OnUnload()

	var sigErr run.SignalError
	switch {
	case errors.As(err, &sigErr):
		logger.Info("received signal, shutting down", "signal", sigErr.Signal)
	case err != nil && !errors.Is(err, context.Canceled):
		logger.Error("headless loop failed", "error", err)
		return 1
	}
	logger.Info("lessonsd stopped")
	return 0
}
