package daemon

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/config"
)

// fileStamp identifies one version of the config file on disk.
type fileStamp struct {
	modTime time.Time
	size    int64
}

func stampOf(info os.FileInfo) fileStamp {
	return fileStamp{modTime: info.ModTime(), size: info.Size()}
}

// ConfigWatcher reloads the daemon config when its file changes. Polling
// runs on a Ticker with an inline dispatcher, so callbacks are invoked on
// the ticker goroutine and must dispatch onto the event loop themselves.
type ConfigWatcher struct {
	logger *slog.Logger
	path   string
	ticker *Ticker

	mu       sync.Mutex
	ctx      context.Context
	stamp    fileStamp
	current  *config.DaemonConfig
	onReload func(*config.DaemonConfig)
	onError  func(error)
}

// NewConfigWatcher creates a stopped watcher for the config file at path,
// polling once a second.
func NewConfigWatcher(path string, logger *slog.Logger) *ConfigWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &ConfigWatcher{
		logger: logger.With("component", "config-watcher"),
		path:   path,
	}
	w.ticker = NewTicker("config", time.Second, Inline{}, w.Check, w.logger)
	return w
}

// Path returns the watched config file.
func (w *ConfigWatcher) Path() string {
	return w.path
}

// SetPollInterval changes how often the file is checked. It takes effect
// immediately when the watcher is running.
func (w *ConfigWatcher) SetPollInterval(interval time.Duration) {
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	w.ticker.SetInterval(ctx, interval)
}

// SetReloadCallback sets the function receiving each valid new config.
func (w *ConfigWatcher) SetReloadCallback(fn func(*config.DaemonConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = fn
}

// SetErrorCallback sets the function receiving load or validation errors.
func (w *ConfigWatcher) SetErrorCallback(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = fn
}

// Start records initial as the current config and begins polling.
func (w *ConfigWatcher) Start(ctx context.Context, initial *config.DaemonConfig) error {
	w.mu.Lock()
	if w.ticker.Running() {
		w.mu.Unlock()
		return nil
	}
	w.ctx = ctx
	w.current = initial
	w.stamp = fileStamp{}
	if info, err := os.Stat(w.path); err == nil {
		w.stamp = stampOf(info)
	}
	w.mu.Unlock()

	w.ticker.Start(ctx)
	return nil
}

// Stop ends polling and waits for the poll goroutine to exit.
func (w *ConfigWatcher) Stop() {
	w.ticker.Stop()
}

// Current returns the last config that loaded and validated.
func (w *ConfigWatcher) Current() *config.DaemonConfig {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Check reloads the config if the file's mtime or size changed since the
// last check. A missing file is not a change; an invalid one leaves the
// current config in place and is reported once per version.
func (w *ConfigWatcher) Check() {
	info, err := os.Stat(w.path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Debug("failed to stat config file", "path", w.path, "error", err)
		}
		return
	}

	stamp := stampOf(info)
	w.mu.Lock()
	if stamp == w.stamp {
		w.mu.Unlock()
		return
	}
	w.stamp = stamp
	onReload, onError := w.onReload, w.onError
	w.mu.Unlock()

	w.logger.Debug("config file changed", "path", w.path, "mod_time", stamp.modTime, "size", stamp.size)

	cfg, err := config.LoadDaemonConfigFrom(w.path)
	if err != nil {
		w.logger.Warn("config file changed but is invalid, keeping current", "error", err)
		if onError != nil {
			onError(err)
		}
		return
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	w.logger.Info("config reloaded", "path", w.path)
	if onReload != nil {
		onReload(cfg)
	}
}
