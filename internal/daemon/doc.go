// Package daemon runs the lessons overlay.
// It wires the host's schedule into the reconciler, keeps the overlay
// positioned and masked, and owns every timer and signal subscription so
// that teardown can stop them before the window is released.
package daemon
