package daemon

import (
	"log/slog"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/core"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/layout"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/store"
)

// Backend turns host data into display state. It is the only writer of
// the store and runs on the event loop.
type Backend struct {
	logger     *slog.Logger
	store      *store.Store
	reconciler *core.Reconciler
	positioner *layout.Positioner
	screen     layout.ScreenFunc
	table      core.AbbreviationTable
}

// NewBackend creates a backend writing into st.
func NewBackend(st *store.Store, rec *core.Reconciler, pos *layout.Positioner, screen layout.ScreenFunc, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		logger:     logger,
		store:      st,
		reconciler: rec,
		positioner: pos,
		screen:     screen,
		table:      core.AbbreviationTable{},
	}
}

// Store returns the store the backend publishes to.
func (b *Backend) Store() *store.Store {
	return b.store
}

// Table returns the abbreviation table built by the last update.
func (b *Backend) Table() core.AbbreviationTable {
	return b.table
}

// UpdateLessons rebuilds the abbreviation table, reconciles the day and
// publishes the result.
func (b *Backend) UpdateLessons(
	today []model.ScheduleEntry,
	current *model.ScheduleEntry,
	next []model.ScheduleEntry,
	status string,
	subjects []model.Subject,
) (string, error) {
	b.table = core.BuildAbbreviationTable(today, subjects)
	lessons, highlight := b.reconciler.Reconcile(b.table, today, current, next, status)

	rev, err := b.store.SetLessons(lessons, highlight)
	if err != nil {
		return "", err
	}
	b.logger.Debug("lessons updated",
		"revision", rev,
		"lessons", len(lessons),
		"current", highlight.CurrentLessonID,
		"next", highlight.NextLessonID,
		"state", highlight.CurrentState)
	return rev, nil
}

// SetDarkTheme publishes the theme flag. Returns true on a transition.
func (b *Backend) SetDarkTheme(dark bool) bool {
	if !b.store.SetDark(dark) {
		return false
	}
	b.logger.Debug("theme changed", "dark", dark)
	return true
}

// SetUIWidth records the host's widget width and repositions the overlay
// if it changed.
func (b *Backend) SetUIWidth(width int) bool {
	if !b.positioner.SetWidth(width) {
		return false
	}
	b.store.SetWidth(width)
	b.UpdatePosition()
	return true
}

// SetPreferences replaces the anchor configuration and repositions the
// overlay if it changed.
func (b *Backend) SetPreferences(prefs model.Preferences) bool {
	if !b.positioner.SetPreferences(prefs) {
		return false
	}
	b.UpdatePosition()
	return true
}

// Preferences returns the anchor configuration in effect.
func (b *Backend) Preferences() model.Preferences {
	return b.positioner.Preferences()
}

// UpdatePosition recomputes the overlay position and publishes it.
// A screen failure still publishes the fallback position.
func (b *Backend) UpdatePosition() (layout.Point, error) {
	pt, err := b.positioner.Update(b.screen)
	b.store.SetPosition(pt.X, pt.Y)
	return pt, err
}

// RequestScrollToCurrent asks the UI to scroll to the current lesson, or
// the next one outside class. Nothing is requested when neither is in the
// row.
func (b *Backend) RequestScrollToCurrent() bool {
	id := b.store.Highlight().ScrollTarget()
	if id == "" {
		return false
	}
	idx := core.IndexOf(b.store.Lessons(), id)
	if idx < 0 {
		return false
	}
	return b.store.RequestScroll(idx)
}
