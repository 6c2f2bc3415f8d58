package daemon

import (
	"fmt"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/store"
)

// LoaderStatus is the state of the window's content loader.
type LoaderStatus int

const (
	LoaderNull LoaderStatus = iota
	LoaderReady
	LoaderLoading
	LoaderError
)

func (s LoaderStatus) String() string {
	switch s {
	case LoaderNull:
		return "null"
	case LoaderReady:
		return "ready"
	case LoaderLoading:
		return "loading"
	case LoaderError:
		return "error"
	default:
		return fmt.Sprintf("LoaderStatus(%d)", int(s))
	}
}

// Diagnostics describes the window when its content failed to become ready.
type Diagnostics struct {
	WindowValid bool         `json:"window_valid"`
	Children    int          `json:"children"`
	Status      LoaderStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
}

// Window is the full-screen transparent overlay the lesson row lives in.
// All methods are called on the event loop.
type Window interface {
	// Attach binds the window's content to the display store.
	Attach(st *store.Store)
	// Load builds the content. onReady is called on the event loop once the
	// content can report its geometry; it may never be called.
	Load(onReady func()) error
	Show()
	Close()

	// SetMask limits input and painting to rect, in window coordinates.
	SetMask(rect model.Rect) error
	// SetLayer moves the overlay to the given stacking layer.
	SetLayer(layer model.Layer) error

	// ContentBounds returns the rendered content rectangle. ok is false
	// before the content is laid out.
	ContentBounds() (rect model.Rect, ok bool)
	// Screen returns the geometry of the monitor the window is on.
	Screen() (model.Rect, error)

	Diagnostics() Diagnostics
}
