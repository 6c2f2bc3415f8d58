// Package host defines the boundary to the schedule application that owns
// the lesson data, and an in-memory implementation fed by the transports.
package host

import (
	"errors"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
)

var (
	// ErrNotConnected is returned when disconnecting a subscription twice.
	ErrNotConnected = errors.New("signal handler not connected")

	// ErrUnavailable is returned when the host has not reported a value yet.
	ErrUnavailable = errors.New("host value unavailable")
)

// Host is what the overlay consumes from the schedule application.
type Host interface {
	// TodayEntries returns today's schedule in order.
	TodayEntries() []model.ScheduleEntry
	// CurrentEntry returns the active entry, or nil.
	CurrentEntry() *model.ScheduleEntry
	// NextEntries returns the upcoming entries in order.
	NextEntries() []model.ScheduleEntry
	// CurrentStatus returns the host status string, e.g. "class".
	CurrentStatus() string
	// Subjects returns the subject definitions. An error or an empty
	// result selects fallback labels.
	Subjects() ([]model.Subject, error)
	// Preferences returns the widget anchor configuration.
	Preferences() (model.Preferences, error)
	// WidgetBar returns what the host reports about its widget window.
	WidgetBar() (model.WidgetBar, error)
	// Screen returns the available screen geometry.
	Screen() (model.Rect, error)

	// RuntimeUpdated fires after the schedule data changed.
	RuntimeUpdated() *Signal
	// ConfigChanged fires after the preferences changed.
	ConfigChanged() *Signal
}

// HostError wraps a failure at the host boundary.
type HostError struct {
	Op    string
	Cause error
}

func (e *HostError) Error() string {
	return "host " + e.Op + ": " + e.Cause.Error()
}

func (e *HostError) Unwrap() error {
	return e.Cause
}
