package daemon

import (
	"errors"
	"log/slog"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/store"
)

// ErrHeadless is returned by HeadlessWindow.Screen when no fixed screen was
// configured.
var ErrHeadless = errors.New("headless window has no screen")

// HeadlessWindow is a Window without a compositor. Its content is a
// rectangle at the published position with the published width; masks and
// layers are recorded and logged. lessonsd -headless runs on it.
type HeadlessWindow struct {
	logger *slog.Logger
	height int
	screen model.Rect

	store  *store.Store
	status LoaderStatus
	shown  bool
	closed bool
	mask   model.Rect
	layer  model.Layer
}

// NewHeadlessWindow creates a window whose content is height pixels tall.
// A non-empty screen is reported by Screen.
func NewHeadlessWindow(height int, screen model.Rect, logger *slog.Logger) *HeadlessWindow {
	if logger == nil {
		logger = slog.Default()
	}
	return &HeadlessWindow{
		logger: logger,
		height: height,
		screen: screen,
		layer:  model.LayerNormal,
	}
}

func (w *HeadlessWindow) Attach(st *store.Store) {
	w.store = st
}

// Load is ready immediately when a store is attached.
func (w *HeadlessWindow) Load(onReady func()) error {
	if w.store == nil {
		w.status = LoaderError
		return errors.New("headless window has no store attached")
	}
	w.status = LoaderReady
	if onReady != nil {
		onReady()
	}
	return nil
}

func (w *HeadlessWindow) Show() {
	if !w.closed {
		w.shown = true
	}
}

func (w *HeadlessWindow) Close() {
	w.closed = true
	w.shown = false
	w.status = LoaderNull
}

// Visible reports whether Show was called and the window is still open.
func (w *HeadlessWindow) Visible() bool {
	return w.shown
}

func (w *HeadlessWindow) SetMask(rect model.Rect) error {
	if w.closed {
		return errors.New("headless window closed")
	}
	w.mask = rect
	w.logger.Info("overlay mask", "rect", rect.String())
	return nil
}

// Mask returns the last applied mask.
func (w *HeadlessWindow) Mask() model.Rect {
	return w.mask
}

func (w *HeadlessWindow) SetLayer(layer model.Layer) error {
	if w.closed {
		return errors.New("headless window closed")
	}
	w.layer = layer
	w.logger.Info("overlay layer", "layer", layer)
	return nil
}

// Layer returns the last applied layer.
func (w *HeadlessWindow) Layer() model.Layer {
	return w.layer
}

func (w *HeadlessWindow) ContentBounds() (model.Rect, bool) {
	if w.status != LoaderReady || w.store == nil {
		return model.Rect{}, false
	}
	x, y := w.store.Position()
	rect := model.Rect{X: x, Y: y, Width: w.store.Width(), Height: w.height}
	return rect, !rect.Empty()
}

func (w *HeadlessWindow) Screen() (model.Rect, error) {
	if w.screen.Empty() {
		return model.Rect{}, ErrHeadless
	}
	return w.screen, nil
}

func (w *HeadlessWindow) Diagnostics() Diagnostics {
	return Diagnostics{
		WindowValid: !w.closed,
		Children:    len(w.storeLessons()),
		Status:      w.status,
	}
}

func (w *HeadlessWindow) storeLessons() []model.DisplayLesson {
	if w.store == nil {
		return nil
	}
	return w.store.Lessons()
}
