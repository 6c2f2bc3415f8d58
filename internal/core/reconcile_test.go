package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
)

func scenarioDay() []model.ScheduleEntry {
	return []model.ScheduleEntry{
		{ID: "1", Type: model.EntryClass, Title: "Math"},
		{ID: "2", Type: model.EntryBreak},
		{ID: "3", Type: model.EntryActivity, Title: "升旗"},
		{ID: "4", Type: model.EntryClass, Title: "Art"},
	}
}

func TestReconcile_Scenario(t *testing.T) {
	r := NewReconciler(nil)
	today := scenarioDay()
	current := today[0]

	lessons, state := r.Reconcile(BuildAbbreviationTable(today, nil), today, &current, []model.ScheduleEntry{today[3]}, "class")

	assert.Equal(t, []model.DisplayLesson{
		{ID: "1", Abbr: "M", IsClass: true},
		{ID: "4", Abbr: "A", IsClass: true},
	}, lessons)
	assert.Equal(t, model.HighlightState{CurrentLessonID: "1", NextLessonID: "4", CurrentState: model.StateInClass}, state)
}

func TestReconcile_Filtering(t *testing.T) {
	r := NewReconciler(nil)
	today := []model.ScheduleEntry{
		{ID: "a", Type: model.EntryPreparation},
		{ID: "b", Type: model.EntryActivity, Title: "大课间"},
		{ID: "c", Type: model.EntryActivity, Title: "班会"},
		{ID: "d", Type: model.EntryBreak, Title: "Lunch"},
		{ID: "e", Type: model.EntryClass, SubjectID: "x"},
		{ID: "f", Type: "exam", Title: "Final"},
	}

	lessons, _ := r.Reconcile(BuildAbbreviationTable(today, nil), today, nil, nil, "")

	ids := make([]string, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{"a", "c", "e", "f"}, ids)
	assert.Equal(t, "预", lessons[0].Abbr)
	assert.Equal(t, "班", lessons[1].Abbr)
	assert.Equal(t, "?", lessons[2].Abbr)
	assert.True(t, lessons[2].IsClass)
	assert.False(t, lessons[3].IsClass)
}

func TestReconcile_CustomExclusions(t *testing.T) {
	today := []model.ScheduleEntry{
		{ID: "1", Type: model.EntryActivity, Title: "升旗"},
		{ID: "2", Type: model.EntryActivity, Title: "眼保健操"},
	}

	lessons, _ := NewReconciler([]string{}).Reconcile(nil, today, nil, nil, "")
	assert.Len(t, lessons, 2)

	lessons, _ = NewReconciler([]string{"眼保健操"}).Reconcile(nil, today, nil, nil, "")
	require.Len(t, lessons, 1)
	assert.Equal(t, "1", lessons[0].ID)
}

func TestReconcile_Highlight(t *testing.T) {
	r := NewReconciler(nil)
	today := []model.ScheduleEntry{
		{ID: "1", Type: model.EntryClass},
		{ID: "2", Type: model.EntryBreak},
		{ID: "3", Type: model.EntryActivity, Title: "升旗"},
		{ID: "4", Type: model.EntryPreparation},
		{ID: "5", Type: model.EntryClass},
	}

	t.Run("non-class current gives empty id", func(t *testing.T) {
		current := today[1]
		_, state := r.Reconcile(nil, today, &current, nil, "break")
		assert.Empty(t, state.CurrentLessonID)
		assert.Equal(t, model.StateIdle, state.CurrentState)
	})

	t.Run("current not in today", func(t *testing.T) {
		current := model.ScheduleEntry{ID: "99", Type: model.EntryClass}
		_, state := r.Reconcile(nil, today, &current, nil, "class")
		assert.Empty(t, state.CurrentLessonID)
		assert.Equal(t, model.StateInClass, state.CurrentState)
	})

	t.Run("next skips filtered and non-class entries", func(t *testing.T) {
		next := []model.ScheduleEntry{today[1], today[2], today[3], today[4]}
		_, state := r.Reconcile(nil, today, nil, next, "")
		assert.Equal(t, "5", state.NextLessonID)
	})

	t.Run("next must be present in today", func(t *testing.T) {
		next := []model.ScheduleEntry{{ID: "77", Type: model.EntryClass}}
		_, state := r.Reconcile(nil, today, nil, next, "")
		assert.Empty(t, state.NextLessonID)
	})

	t.Run("earliest candidate wins", func(t *testing.T) {
		next := []model.ScheduleEntry{today[0], today[4]}
		_, state := r.Reconcile(nil, today, nil, next, "")
		assert.Equal(t, "1", state.NextLessonID)
	})
}

func TestReconcile_EmptyDay(t *testing.T) {
	r := NewReconciler(nil)
	current := model.ScheduleEntry{ID: "1", Type: model.EntryClass}

	lessons, state := r.Reconcile(nil, nil, &current, []model.ScheduleEntry{current}, "class")
	assert.NotNil(t, lessons)
	assert.Empty(t, lessons)
	assert.Empty(t, state.CurrentLessonID)
	assert.Empty(t, state.NextLessonID)
	assert.Equal(t, model.StateInClass, state.CurrentState)
}

func TestReconcile_Idempotent(t *testing.T) {
	r := NewReconciler(nil)
	snap := model.RuntimeSnapshot{
		Today:    scenarioDay(),
		Current:  &model.ScheduleEntry{ID: "4", Type: model.EntryClass},
		Next:     []model.ScheduleEntry{{ID: "1", Type: model.EntryClass}},
		Status:   "class",
		Subjects: []model.Subject{{ID: "m", Name: "Math"}},
	}

	l1, s1 := r.ReconcileSnapshot(snap)
	l2, s2 := r.ReconcileSnapshot(snap)
	assert.Equal(t, l1, l2)
	assert.Equal(t, s1, s2)
}

func TestIndexOf(t *testing.T) {
	lessons := []model.DisplayLesson{{ID: "1"}, {ID: "4"}}
	assert.Equal(t, 1, IndexOf(lessons, "4"))
	assert.Equal(t, -1, IndexOf(lessons, "2"))
	assert.Equal(t, -1, IndexOf(lessons, ""))
	assert.Equal(t, -1, IndexOf(nil, "1"))
}

func TestReconciler_Excluded(t *testing.T) {
	assert.ElementsMatch(t, DefaultExcludedActivities, NewReconciler(nil).Excluded())
	assert.Empty(t, NewReconciler([]string{}).Excluded())
}
