// Package dbus exposes the overlay on the session bus.
//
// The Service lets the schedule application push its runtime data and
// widget preferences, and re-emits display state changes as signals.
// Client and Monitor are the other end, used by the lessons CLI.
package dbus
