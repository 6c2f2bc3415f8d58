package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/config"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/core"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/host"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/layout"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/store"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/theme"
)

// ErrUnloaded is returned by OnLoad after OnUnload.
var ErrUnloaded = errors.New("plugin unloaded")

// Options configures a Plugin.
type Options struct {
	Config     *config.DaemonConfig
	Host       host.Host
	Window     Window
	Dispatcher Dispatcher
	Detector   theme.Detector

	// Store is created from Config when nil and then owned by the plugin.
	Store *store.Store
	// StatePath receives the published state after every lesson update.
	// Empty disables it.
	StatePath string
	// Journal records every distinct lesson row. Nil disables it.
	Journal *store.Journal

	Notifier *InternalNotifier
	Logger   *slog.Logger
}

// Plugin is the overlay's lifecycle: it connects to the host, drives the
// window through Created, ContentLoading and ContentReady, and runs the
// polling timers. All hooks run on the event loop.
type Plugin struct {
	logger   *slog.Logger
	cfg      *config.DaemonConfig
	host     host.Host
	window   Window
	dispatch Dispatcher
	notifier *InternalNotifier

	store      *store.Store
	ownStore   bool
	statePath  string
	journal    *store.Journal
	backend    *Backend
	poller     *theme.Poller
	lifecycle  *layout.Lifecycle
	mask       *layout.MaskTracker
	reconciler *core.Reconciler

	timers   Timers
	scroll   *Ticker
	themeT   *Ticker
	width    *Ticker
	layer    *Ticker
	geometry *Ticker

	readyTimer *time.Timer
	runtimeID  host.HandlerID
	configID   host.HandlerID

	appliedLayer model.Layer
	layerSet     bool

	ctx      context.Context
	cancel   context.CancelFunc
	loaded   bool
	unloaded bool
}

// NewPlugin wires a plugin. Nothing runs until OnLoad.
func NewPlugin(opts Options) (*Plugin, error) {
	if opts.Host == nil {
		return nil, errors.New("plugin requires a host")
	}
	if opts.Window == nil {
		return nil, errors.New("plugin requires a window")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultDaemonConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dispatch := opts.Dispatcher
	if dispatch == nil {
		dispatch = Inline{}
	}
	detector := opts.Detector
	if detector == nil {
		detector = theme.StaticDetector(false)
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = NewInternalNotifier(logger)
	}

	st := opts.Store
	ownStore := false
	if st == nil {
		st = store.NewStore(cfg.Overlay.DefaultWidth)
		ownStore = true
	}

	p := &Plugin{
		logger:     logger,
		cfg:        cfg,
		host:       opts.Host,
		window:     opts.Window,
		dispatch:   dispatch,
		notifier:   notifier,
		store:      st,
		ownStore:   ownStore,
		statePath:  opts.StatePath,
		journal:    opts.Journal,
		poller:     theme.NewPoller(detector),
		lifecycle:  layout.NewLifecycle(),
		mask:       layout.NewMaskTracker(),
		reconciler: core.NewReconciler(cfg.Lessons.ExcludedActivities),
	}

	pos := layout.NewPositioner(configPreferences(cfg), logger)
	pos.SetWidth(cfg.Overlay.DefaultWidth)
	pos.SetHeight(cfg.Overlay.ContentHeight)
	p.backend = NewBackend(st, p.reconciler, pos, p.screen, logger)

	t := cfg.Timers
	p.scroll = p.timers.Add(NewTicker("scroll", t.Scroll.Duration(), dispatch, p.scrollTick, logger))
	p.themeT = p.timers.Add(NewTicker("theme", t.ThemePoll.Duration(), dispatch, p.themeTick, logger))
	p.width = p.timers.Add(NewTicker("width", t.WidthPoll.Duration(), dispatch, p.widthTick, logger))
	p.layer = p.timers.Add(NewTicker("layer", t.LayerSync.Duration(), dispatch, p.syncLayer, logger))
	p.geometry = p.timers.Add(NewTicker("geometry", t.GeometryPoll.Duration(), dispatch, p.geometryTick, logger))

	return p, nil
}

func configPreferences(cfg *config.DaemonConfig) model.Preferences {
	return model.Preferences{
		Anchor:  cfg.Overlay.Anchor,
		OffsetX: cfg.Overlay.OffsetX,
		OffsetY: cfg.Overlay.OffsetY,
	}
}

// Store returns the display store.
func (p *Plugin) Store() *store.Store { return p.store }

// Backend returns the backend writing to the store.
func (p *Plugin) Backend() *Backend { return p.backend }

// Phase returns the window lifecycle phase.
func (p *Plugin) Phase() layout.Phase { return p.lifecycle.Phase() }

// RunningTimers returns the names of the running timers.
func (p *Plugin) RunningTimers() []string { return p.timers.Running() }

// Mask returns the last mask applied to the window.
func (p *Plugin) Mask() (model.Rect, bool) { return p.mask.Applied() }

// OnLoad connects to the host, loads the window and starts the timers that
// do not depend on the content being ready.
func (p *Plugin) OnLoad(ctx context.Context) error {
	if p.unloaded {
		return ErrUnloaded
	}
	if p.loaded {
		return nil
	}
	p.loaded = true
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.backend.SetPreferences(p.hostPreferences())

	p.runtimeID = p.host.RuntimeUpdated().Connect(func() {
		p.dispatch.Dispatch(p.OnRuntimeUpdate)
	})
	p.configID = p.host.ConfigChanged().Connect(func() {
		p.dispatch.Dispatch(p.OnConfigChange)
	})

	p.window.Attach(p.store)
	p.lifecycle.BeginLoading()

	timeout := p.cfg.Timers.ReadyTimeout.Duration()
	p.readyTimer = time.AfterFunc(timeout, func() {
		p.dispatch.Dispatch(p.onReadyTimeout)
	})

	if err := p.window.Load(func() { p.dispatch.Dispatch(p.onReady) }); err != nil {
		p.logger.Error("failed to load overlay content", "error", err)
	}

	p.OnRuntimeUpdate()
	p.themeTick()
	if _, err := p.backend.UpdatePosition(); err != nil {
		p.logger.Debug("initial position uses default", "error", err)
	}

	p.scroll.Start(p.ctx)
	p.themeT.Start(p.ctx)

	p.logger.Info("plugin loaded", "phase", p.lifecycle.Phase(), "ready_timeout", timeout)
	return nil
}

// OnUnload stops every timer, disconnects from the host and closes the
// window, in that order. It is safe to call more than once.
func (p *Plugin) OnUnload() {
	if p.unloaded {
		return
	}
	p.unloaded = true

	p.timers.StopAll()
	if p.readyTimer != nil {
		p.readyTimer.Stop()
	}
	if p.cancel != nil {
		p.cancel()
	}

	p.disconnect(p.host.RuntimeUpdated(), p.runtimeID, "runtime")
	p.disconnect(p.host.ConfigChanged(), p.configID, "config")

	if p.loaded {
		p.window.Close()
	}
	p.lifecycle.Close()

	if p.ownStore {
		_ = p.store.Close()
	}
	p.logger.Info("plugin unloaded")
}

func (p *Plugin) disconnect(sig *host.Signal, id host.HandlerID, name string) {
	if id == 0 {
		return
	}
	if err := sig.Disconnect(id); err != nil && !errors.Is(err, host.ErrNotConnected) {
		p.logger.Debug("failed to disconnect host signal", "signal", name, "error", err)
	}
}

// OnRuntimeUpdate reconciles the host's current schedule and publishes it.
func (p *Plugin) OnRuntimeUpdate() {
	if p.unloaded {
		return
	}
	subjects, err := p.host.Subjects()
	if err != nil {
		p.logger.Debug("subjects unavailable, using fallback labels", "error", err)
		subjects = nil
	}

	_, err = p.backend.UpdateLessons(
		p.host.TodayEntries(),
		p.host.CurrentEntry(),
		p.host.NextEntries(),
		p.host.CurrentStatus(),
		subjects,
	)
	if err != nil {
		p.logger.Warn("failed to publish lessons", "error", err)
		return
	}
	p.saveState()
	p.record()
}

// OnThemeChange publishes a new dark theme flag.
func (p *Plugin) OnThemeChange(dark bool) {
	if p.unloaded {
		return
	}
	if p.backend.SetDarkTheme(dark) {
		p.logger.Info("system theme changed", "dark", dark)
	}
}

// OnConfigChange rereads the host preferences and repositions the overlay.
func (p *Plugin) OnConfigChange() {
	if p.unloaded {
		return
	}
	prefs := p.hostPreferences()
	if p.backend.SetPreferences(prefs) {
		p.logger.Info("overlay preferences changed",
			"anchor", prefs.Anchor, "offset_x", prefs.OffsetX, "offset_y", prefs.OffsetY)
	}
}

// ApplyConfig adopts a reloaded daemon config. Timer intervals and the
// fallback anchor apply immediately; lesson exclusions need a restart.
func (p *Plugin) ApplyConfig(cfg *config.DaemonConfig) {
	if p.unloaded || cfg == nil {
		return
	}
	old := p.cfg
	p.cfg = cfg

	if !slices.Equal(old.Lessons.ExcludedActivities, cfg.Lessons.ExcludedActivities) {
		p.logger.Warn("excluded activities changed, restart required",
			"active", p.reconciler.Excluded())
	}
	if old.Overlay.ContentHeight != cfg.Overlay.ContentHeight {
		p.logger.Warn("content height changed, restart required",
			"active", old.Overlay.ContentHeight)
	}

	ctx := p.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	t := cfg.Timers
	p.scroll.SetInterval(ctx, t.Scroll.Duration())
	p.themeT.SetInterval(ctx, t.ThemePoll.Duration())
	p.width.SetInterval(ctx, t.WidthPoll.Duration())
	p.layer.SetInterval(ctx, t.LayerSync.Duration())
	p.geometry.SetInterval(ctx, t.GeometryPoll.Duration())

	p.OnConfigChange()
}

// hostPreferences returns the host's anchor configuration, or the one
// from the config file when the host has none.
func (p *Plugin) hostPreferences() model.Preferences {
	prefs, err := p.host.Preferences()
	if err != nil {
		p.logger.Debug("host preferences unavailable, using config", "error", err)
		return configPreferences(p.cfg)
	}
	return prefs
}

// screen prefers the host's report and falls back to the window's monitor.
func (p *Plugin) screen() (model.Rect, error) {
	rect, err := p.host.Screen()
	if err == nil && !rect.Empty() {
		return rect, nil
	}
	wrect, werr := p.window.Screen()
	if werr != nil {
		if err == nil {
			err = layout.ErrNoScreen
		}
		return model.Rect{}, fmt.Errorf("%w; window: %w", err, werr)
	}
	return wrect, nil
}

func (p *Plugin) onReady() {
	if !p.lifecycle.MarkReady() {
		return
	}
	if p.readyTimer != nil {
		p.readyTimer.Stop()
	}

	if rect, ok := p.window.ContentBounds(); ok {
		p.mask.Observe(rect)
	}
	p.flushMask()
	p.window.Show()
	p.syncLayer()

	p.width.Start(p.ctx)
	p.layer.Start(p.ctx)
	p.geometry.Start(p.ctx)

	p.logger.Info("overlay ready", "elapsed", p.lifecycle.Since().Round(time.Millisecond),
		"late", p.lifecycle.TimedOut())
}

func (p *Plugin) onReadyTimeout() {
	if !p.lifecycle.Timeout() {
		return
	}
	err := &ReadyTimeoutError{
		Elapsed:     p.lifecycle.Since(),
		Diagnostics: p.window.Diagnostics(),
	}
	p.logger.Error("overlay content did not become ready",
		"error", err,
		"window_valid", err.Diagnostics.WindowValid,
		"children", err.Diagnostics.Children,
		"loader_status", err.Diagnostics.Status.String(),
		"loader_error", err.Diagnostics.Error)
	p.notifier.NotifyReadyTimeout(err)
}

func (p *Plugin) scrollTick() {
	p.backend.RequestScrollToCurrent()
}

func (p *Plugin) themeTick() {
	dark, changed, err := p.poller.Poll()
	if err != nil {
		p.logger.Debug("theme detection failed, keeping last value", "error", err, "dark", dark)
		return
	}
	if changed {
		p.OnThemeChange(dark)
	}
}

func (p *Plugin) widthTick() {
	bar, err := p.host.WidgetBar()
	if err != nil {
		p.logger.Debug("widget bar unavailable, keeping width", "error", err)
		return
	}
	if p.backend.SetUIWidth(bar.Width) {
		p.logger.Debug("overlay width synced", "width", bar.Width)
	}
}

func (p *Plugin) geometryTick() {
	if rect, ok := p.window.ContentBounds(); ok {
		p.mask.Observe(rect)
	}
	p.flushMask()
}

func (p *Plugin) flushMask() {
	applied, err := p.mask.Flush(p.window.SetMask)
	if err != nil {
		p.logger.Warn("failed to apply overlay mask", "error", err)
		return
	}
	if applied {
		rect, _ := p.mask.Applied()
		p.logger.Debug("overlay mask applied", "rect", rect.String())
	}
}

// syncLayer mirrors the host widget window's stacking layer while it is
// visible and the content is ready. Failures are logged and dropped.
func (p *Plugin) syncLayer() {
	if !p.lifecycle.Ready() {
		return
	}
	bar, err := p.host.WidgetBar()
	if err != nil {
		p.logger.Debug("layer sync skipped", "error", err)
		return
	}
	if !bar.Visible {
		return
	}
	if p.layerSet && bar.Layer == p.appliedLayer {
		return
	}
	if err := p.window.SetLayer(bar.Layer); err != nil {
		p.logger.Debug("failed to sync overlay layer", "layer", bar.Layer, "error", err)
		return
	}
	p.appliedLayer = bar.Layer
	p.layerSet = true
	p.logger.Debug("overlay layer synced", "layer", bar.Layer)
}

func (p *Plugin) record() {
	if p.journal == nil {
		return
	}
	snap := p.store.Snapshot()
	written, err := p.journal.Record(store.JournalEntry{
		Revision:  snap.Revision,
		Lessons:   snap.Lessons,
		Highlight: snap.Highlight,
	})
	if err != nil {
		p.logger.Debug("failed to record journal entry", "path", p.journal.Path(), "error", err)
		return
	}
	if written {
		p.logger.Debug("journal entry recorded", "revision", snap.Revision)
	}
}

func (p *Plugin) saveState() {
	if p.statePath == "" {
		return
	}
	if err := store.SavePublishedState(p.statePath, p.store.Snapshot()); err != nil {
		p.logger.Debug("failed to save published state", "path", p.statePath, "error", err)
	}
}
