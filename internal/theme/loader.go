package theme

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
)

// Loader feeds the resolved theme into a GTK CSS provider and keeps it
// current while the user edits the file.
type Loader struct {
	mu        sync.RWMutex
	logger    *slog.Logger
	provider  *gtk.CSSProvider
	themesDir string
	theme     *Theme
	watcher   *Watcher

	// post runs a function on the GTK main thread
	post func(func())
}

// NewLoader creates a loader. post must run its argument on the GTK main
// thread; CSS reloads from the watcher go through it.
func NewLoader(post func(func()), logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}

	themesDir, err := ThemesDir()
	if err != nil {
		logger.Warn("failed to get themes directory", "error", err)
		themesDir = ""
	}

	return &Loader{
		logger:    logger,
		provider:  gtk.NewCSSProvider(),
		themesDir: themesDir,
		post:      post,
	}
}

// Load resolves a theme by name and loads it into the provider.
func (l *Loader) Load(name string) error {
	t, err := Resolve(name, l.themesDir)
	if err != nil {
		l.logger.Warn("failed to load user theme, using bundled", "theme", name, "error", err)
		t, err = Resolve(DefaultThemeName, "")
		if err != nil {
			return err
		}
	}

	l.mu.Lock()
	l.theme = t
	l.provider.LoadFromString(t.CSS)
	l.mu.Unlock()

	if name != "" && t.Name != name {
		l.logger.Warn("theme not found, using default", "theme", name)
	}
	l.logger.Info("loaded theme", "name", t.Name, "path", t.Path, "embedded", t.Embedded)
	return nil
}

// Theme returns the loaded theme.
func (l *Loader) Theme() *Theme {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.theme
}

// Apply attaches the provider to the display (the default display if nil).
func (l *Loader) Apply(display *gdk.Display) {
	if display == nil {
		display = gdk.DisplayGetDefault()
	}
	if display == nil {
		l.logger.Warn("no display available, cannot apply theme")
		return
	}
	gtk.StyleContextAddProviderForDisplay(display, l.provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)
}

// StartHotReload polls the theme file and reloads the provider on change.
// Bundled themes are not watched.
func (l *Loader) StartHotReload(ctx context.Context, interval time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.theme == nil || l.theme.Embedded {
		l.logger.Debug("not watching bundled theme")
		return
	}
	if l.watcher != nil {
		l.watcher.Stop()
	}

	l.watcher = NewWatcher(l.theme, l.logger)
	if interval > 0 {
		l.watcher.SetPollInterval(interval)
	}
	l.watcher.SetChangeCallback(func(css string) {
		l.post(func() {
			l.provider.LoadFromString(css)
		})
	})
	if err := l.watcher.Start(ctx); err != nil {
		l.logger.Warn("failed to start theme watcher", "error", err)
	}
}

// StopHotReload stops watching the theme file.
func (l *Loader) StopHotReload() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher != nil {
		l.watcher.Stop()
		l.watcher = nil
	}
}
