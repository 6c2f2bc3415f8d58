// Package display renders the lesson row in a GTK4 layer-shell overlay.
// It implements daemon.Window: content is built from the display store,
// positioned by the overlay mask, and kept on the host widget bar's layer.
package display
