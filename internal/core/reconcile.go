package core

import (
	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
)

// DefaultExcludedActivities are activity titles never shown in the row
// (long recess and flag-raising).
var DefaultExcludedActivities = []string{"大课间", "升旗"}

// Reconciler derives the lesson row and highlight state from host data.
// A Reconciler is immutable and safe for concurrent use.
type Reconciler struct {
	excluded map[string]struct{}
}

// NewReconciler creates a Reconciler dropping activities whose title is in
// excluded. A nil slice selects DefaultExcludedActivities; an empty
// non-nil slice excludes nothing.
func NewReconciler(excluded []string) *Reconciler {
	if excluded == nil {
		excluded = DefaultExcludedActivities
	}
	set := make(map[string]struct{}, len(excluded))
	for _, title := range excluded {
		set[title] = struct{}{}
	}
	return &Reconciler{excluded: set}
}

// Excluded returns the excluded activity titles, in no particular order.
func (r *Reconciler) Excluded() []string {
	out := make([]string, 0, len(r.excluded))
	for title := range r.excluded {
		out = append(out, title)
	}
	return out
}

// Retains reports whether an entry belongs in the lesson row.
func (r *Reconciler) Retains(entry model.ScheduleEntry) bool {
	switch entry.Type {
	case model.EntryBreak:
		return false
	case model.EntryActivity:
		_, skip := r.excluded[entry.Title]
		return !skip
	default:
		return true
	}
}

// Reconcile filters today's entries into display lessons, in source order,
// and derives the highlight state.
func (r *Reconciler) Reconcile(
	table AbbreviationTable,
	today []model.ScheduleEntry,
	current *model.ScheduleEntry,
	next []model.ScheduleEntry,
	status string,
) ([]model.DisplayLesson, model.HighlightState) {
	state := model.HighlightState{CurrentState: model.StateIdle}
	if status == model.StatusClass {
		state.CurrentState = model.StateInClass
	}

	lessons := make([]model.DisplayLesson, 0, len(today))
	if len(today) == 0 {
		return lessons, state
	}

	retained := make(map[string]struct{}, len(today))
	for _, entry := range today {
		if !r.Retains(entry) {
			continue
		}
		lessons = append(lessons, model.DisplayLesson{
			ID:      entry.ID,
			Abbr:    table.Resolve(entry),
			IsClass: entry.Type == model.EntryClass,
		})
		retained[entry.ID] = struct{}{}
	}

	if current != nil && current.Type == model.EntryClass {
		if _, ok := retained[current.ID]; ok {
			state.CurrentLessonID = current.ID
		}
	}

	for _, entry := range next {
		if entry.Type != model.EntryClass {
			continue
		}
		if _, ok := retained[entry.ID]; ok {
			state.NextLessonID = entry.ID
			break
		}
	}

	return lessons, state
}

// ReconcileSnapshot builds the abbreviation table from the snapshot and reconciles it.
func (r *Reconciler) ReconcileSnapshot(snap model.RuntimeSnapshot) ([]model.DisplayLesson, model.HighlightState) {
	table := BuildAbbreviationTable(snap.Today, snap.Subjects)
	return r.Reconcile(table, snap.Today, snap.Current, snap.Next, snap.Status)
}

// IndexOf returns the position of the lesson with the given id, or -1.
func IndexOf(lessons []model.DisplayLesson, id string) int {
	if id == "" {
		return -1
	}
	for i := range lessons {
		if lessons[i].ID == id {
			return i
		}
	}
	return -1
}
