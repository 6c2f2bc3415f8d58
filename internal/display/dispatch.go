package display

import (
	"github.com/diamondburned/gotk4/pkg/core/glib"
)

// GLibDispatcher runs functions on the GTK main loop.
type GLibDispatcher struct{}

// Dispatch implements daemon.Dispatcher.
func (GLibDispatcher) Dispatch(fn func()) {
	glib.IdleAdd(fn)
}

// Post has the signature theme.NewLoader expects.
func Post(fn func()) {
	glib.IdleAdd(fn)
}
