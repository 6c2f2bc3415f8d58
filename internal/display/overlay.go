package display

import (
	"fmt"
	"log/slog"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/config"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/daemon"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/store"
)

// Overlay is the layer-shell window holding the lesson row.
//
// The overlay logically covers the whole monitor. Its surface is anchored
// to the top-left corner and shrunk to the current mask with margins, so
// input and painting never leave the content rectangle.
type Overlay struct {
	app    *gtk.Application
	cfg    config.OverlayConfig
	logger *slog.Logger

	window   *gtk.Window
	scroller *gtk.ScrolledWindow
	row      *gtk.Box
	labels   []*gtk.Label

	store  *store.Store
	sub    <-chan store.ChangeEvent
	doneCh chan struct{}

	status  daemon.LoaderStatus
	loadErr error
	closed  bool
}

// NewOverlay creates an overlay for app. Nothing is built until Load.
func NewOverlay(app *gtk.Application, cfg config.OverlayConfig, logger *slog.Logger) *Overlay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Overlay{
		app:    app,
		cfg:    cfg,
		logger: logger,
	}
}

// Attach binds the overlay to st. Changes are applied on the main loop.
func (o *Overlay) Attach(st *store.Store) {
	if o.store != nil {
		return
	}
	o.store = st
	o.sub = st.Subscribe()
	o.doneCh = make(chan struct{})
	go o.forward(o.sub, o.doneCh)
}

func (o *Overlay) forward(sub <-chan store.ChangeEvent, done chan struct{}) {
	defer close(done)
	for ev := range sub {
		glib.IdleAdd(func() {
			o.apply(ev)
		})
	}
}

// Load builds the window and the lesson row. onReady is posted to the main
// loop once the row holds the current lessons.
func (o *Overlay) Load(onReady func()) error {
	o.status = daemon.LoaderLoading

	display := gdk.DisplayGetDefault()
	if display == nil {
		o.fail(&DisplayError{Op: "load", Err: ErrNoDisplay})
		return o.loadErr
	}
	if !layershell.IsSupported() {
		o.fail(&DisplayError{Op: "load", Err: ErrNoLayerShell})
		return o.loadErr
	}

	o.window = gtk.NewWindow()
	o.window.SetApplication(o.app)
	o.window.SetDecorated(false)
	o.window.SetResizable(false)
	o.window.AddCSSClass("lessons-overlay")

	layershell.InitForWindow(o.window)
	layershell.SetLayer(o.window, layershell.LayerShellLayerTop)
	layershell.SetExclusiveZone(o.window, 0)
	layershell.SetKeyboardMode(o.window, layershell.LayerShellKeyboardModeNone)
	layershell.SetNamespace(o.window, o.cfg.Namespace)
	layershell.SetAnchor(o.window, layershell.LayerShellEdgeTop, true)
	layershell.SetAnchor(o.window, layershell.LayerShellEdgeLeft, true)
	if m := selectMonitor(display, o.cfg.Monitor, o.logger); m != nil {
		layershell.SetMonitor(o.window, m)
	}

	o.row = gtk.NewBox(gtk.OrientationHorizontal, 0)
	o.row.AddCSSClass("lessons-row")
	o.row.SetVAlign(gtk.AlignCenter)

	o.scroller = gtk.NewScrolledWindow()
	o.scroller.SetPolicy(gtk.PolicyExternal, gtk.PolicyNever)
	o.scroller.SetChild(o.row)
	o.window.SetChild(o.scroller)

	if o.store != nil {
		o.setWidth(o.store.Width())
		o.setLessons(o.store.Lessons(), o.store.Highlight())
		o.setDark(o.store.Dark())
	} else {
		o.setWidth(o.cfg.DefaultWidth)
	}

	o.status = daemon.LoaderReady
	o.logger.Debug("overlay content built", "lessons", len(o.labels))
	if onReady != nil {
		glib.IdleAdd(onReady)
	}
	return nil
}

func (o *Overlay) fail(err error) {
	o.status = daemon.LoaderError
	o.loadErr = err
}

// Show maps the window.
func (o *Overlay) Show() {
	if o.window == nil || o.closed {
		return
	}
	o.window.Present()
}

// Close stops following the store and destroys the window.
func (o *Overlay) Close() {
	if o.closed {
		return
	}
	o.closed = true
	if o.store != nil {
		o.store.Unsubscribe(o.sub)
		<-o.doneCh
	}
	if o.window != nil {
		o.window.Destroy()
	}
	o.status = daemon.LoaderNull
}

// SetMask moves and resizes the surface to rect.
func (o *Overlay) SetMask(rect model.Rect) error {
	if o.window == nil || o.closed {
		return &DisplayError{Op: "set mask", Err: ErrNoWindow}
	}
	if rect.Empty() {
		return &DisplayError{Op: "set mask", Err: fmt.Errorf("empty mask %s", rect)}
	}
	layershell.SetMargin(o.window, layershell.LayerShellEdgeTop, rect.Y)
	layershell.SetMargin(o.window, layershell.LayerShellEdgeLeft, rect.X)
	o.window.SetDefaultSize(rect.Width, rect.Height)
	o.scroller.SetSizeRequest(rect.Width, rect.Height)
	return nil
}

// SetLayer follows the host window's stacking hint. The overlay stays on
// the top layer unless the host keeps its window at the bottom.
func (o *Overlay) SetLayer(layer model.Layer) error {
	if o.window == nil || o.closed {
		return &DisplayError{Op: "set layer", Err: ErrNoWindow}
	}
	target, err := layer.OverlayLayer()
	if err != nil {
		return &DisplayError{Op: "set layer", Err: err}
	}
	if target == model.LayerBottom {
		layershell.SetLayer(o.window, layershell.LayerShellLayerBottom)
	} else {
		layershell.SetLayer(o.window, layershell.LayerShellLayerTop)
	}
	return nil
}

// ContentBounds returns the row's rectangle in monitor coordinates.
// Before allocation the natural height is used.
func (o *Overlay) ContentBounds() (model.Rect, bool) {
	if o.status != daemon.LoaderReady || o.store == nil {
		return model.Rect{}, false
	}

	x, y := o.store.Position()
	w, h := o.scroller.Width(), o.scroller.Height()
	if w <= 0 || h <= 0 {
		w = o.store.Width()
		_, h, _, _ = o.scroller.Measure(gtk.OrientationVertical, w)
	}
	h = max(h, o.cfg.ContentHeight)
	if w <= 0 || h <= 0 {
		return model.Rect{}, false
	}
	return model.Rect{X: x, Y: y, Width: w, Height: h}, true
}

// Screen returns the geometry of the overlay's monitor.
func (o *Overlay) Screen() (model.Rect, error) {
	display := gdk.DisplayGetDefault()
	if display == nil {
		return model.Rect{}, &DisplayError{Op: "screen", Err: ErrNoDisplay}
	}

	m := selectMonitor(display, o.cfg.Monitor, o.logger)
	if m == nil && o.window != nil {
		if surface := o.window.Surface(); surface != nil {
			m = display.MonitorAtSurface(surface)
		}
	}
	if m == nil {
		m = firstMonitor(display)
	}
	if m == nil {
		return model.Rect{}, &DisplayError{Op: "screen", Err: ErrNoMonitor}
	}
	return monitorRect(m), nil
}

// Diagnostics reports the overlay's state for the ready timeout.
func (o *Overlay) Diagnostics() daemon.Diagnostics {
	d := daemon.Diagnostics{
		WindowValid: o.window != nil && !o.closed,
		Children:    len(o.labels),
		Status:      o.status,
	}
	if o.loadErr != nil {
		d.Error = o.loadErr.Error()
	}
	return d
}

func (o *Overlay) apply(ev store.ChangeEvent) {
	if o.closed || o.row == nil {
		return
	}
	switch ev.Type {
	case store.ChangeLessons:
		o.setLessons(o.store.Lessons(), o.store.Highlight())
	case store.ChangeTheme:
		o.setDark(o.store.Dark())
	case store.ChangeWidth:
		o.setWidth(o.store.Width())
	case store.ChangeScroll:
		o.scrollTo(ev.Index)
	case store.ChangePosition:
		// The mask follows the content bounds.
	}
}

func (o *Overlay) setLessons(lessons []model.DisplayLesson, h model.HighlightState) {
	for _, l := range o.labels {
		o.row.Remove(l)
	}
	o.labels = o.labels[:0]

	for _, lesson := range lessons {
		label := gtk.NewLabel(lesson.Abbr)
		label.AddCSSClass("lesson")
		setClass(label, "lesson-nonclass", !lesson.IsClass)
		setClass(label, "lesson-current", lesson.ID != "" && lesson.ID == h.CurrentLessonID)
		setClass(label, "lesson-next", lesson.ID != "" && lesson.ID == h.NextLessonID)
		o.row.Append(label)
		o.labels = append(o.labels, label)
	}
	setClass(o.row, "idle", !h.InClass())
}

func (o *Overlay) setDark(dark bool) {
	setClass(o.row, "dark", dark)
}

func (o *Overlay) setWidth(width int) {
	o.scroller.SetSizeRequest(width, o.cfg.ContentHeight)
}

// scrollTo centers the label at index in the visible row.
// Unallocated labels are skipped; the request repeats every scroll tick.
func (o *Overlay) scrollTo(index int) {
	if index < 0 || index >= len(o.labels) {
		return
	}
	bounds, ok := o.labels[index].ComputeBounds(o.row)
	if !ok {
		return
	}

	adj := o.scroller.HAdjustment()
	target := float64(bounds.X()) + float64(bounds.Width())/2 - adj.PageSize()/2
	target = min(max(target, adj.Lower()), adj.Upper()-adj.PageSize())
	adj.SetValue(target)
}

type classed interface {
	AddCSSClass(string)
	RemoveCSSClass(string)
}

func setClass(w classed, class string, on bool) {
	if on {
		w.AddCSSClass(class)
	} else {
		w.RemoveCSSClass(class)
	}
}
