package display

import (
	"log/slog"
	"unsafe"

	"github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
)

// selectMonitor returns the monitor the overlay should live on.
// Config values:
// - 0: compositor default (returns nil)
// - 1+: specific monitor (1-indexed)
//
// An unavailable monitor falls back to the first one.
func selectMonitor(display *gdk.Display, monitorNum int, logger *slog.Logger) *gdk.Monitor {
	if display == nil || monitorNum == 0 {
		return nil
	}

	monitors := display.Monitors()
	if monitors == nil {
		logger.Warn("no monitors list available")
		return nil
	}

	index := uint(monitorNum - 1)
	if monitorNum < 0 || index >= monitors.NItems() {
		logger.Warn("configured monitor not available, using first",
			"configured", monitorNum,
			"available", monitors.NItems(),
		)
		return firstMonitor(display)
	}

	return wrapMonitor(monitors.Item(index))
}

func firstMonitor(display *gdk.Display) *gdk.Monitor {
	monitors := display.Monitors()
	if monitors == nil || monitors.NItems() == 0 {
		return nil
	}
	return wrapMonitor(monitors.Item(0))
}

// wrapMonitor wraps a glib.Object as a gdk.Monitor.
// gotk4 does not export its own wrapper, so the struct layout is mirrored.
func wrapMonitor(obj *glib.Object) *gdk.Monitor {
	if obj == nil {
		return nil
	}
	type monitor struct {
		_ [0]func()
		*glib.Object
	}
	m := &monitor{Object: obj}
	return (*gdk.Monitor)(unsafe.Pointer(m))
}

// monitorRect converts a monitor's logical geometry.
func monitorRect(m *gdk.Monitor) model.Rect {
	g := m.Geometry()
	return model.Rect{X: g.X(), Y: g.Y(), Width: g.Width(), Height: g.Height()}
}
