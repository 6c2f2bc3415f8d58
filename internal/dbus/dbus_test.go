package dbus

import (
	"encoding/json"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/host"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/store"
)

func newTestService() (*Service, *host.Memory, *store.Store) {
	h := host.NewMemory()
	st := store.NewStore(100)
	return NewService(h, st, nil), h, st
}

func TestService_UpdateRuntime(t *testing.T) {
	s, h, _ := newTestService()

	updates := 0
	h.RuntimeUpdated().Connect(func() { updates++ })

	snapshot := `{
		"current_day_entries": [
			{"id": "1", "type": "class", "title": "Math", "subjectId": "m"},
			{"id": "2", "type": "break"}
		],
		"current_entry": {"id": "1", "type": "class", "title": "Math"},
		"current_status": "class",
		"subjects": [{"id": "m", "name": "Mathematics", "simplifiedName": "数"}]
	}`
	require.Nil(t, s.UpdateRuntime(snapshot))
	assert.Equal(t, 1, updates)
	assert.Len(t, h.TodayEntries(), 2)
	assert.Equal(t, "class", h.CurrentStatus())
	require.NotNil(t, h.CurrentEntry())
	assert.Equal(t, "1", h.CurrentEntry().ID)

	derr := s.UpdateRuntime(`{"current_day_entries": [`)
	require.NotNil(t, derr)
	assert.Equal(t, ErrorInvalidArgs, derr.Name)
	assert.Equal(t, 1, updates, "rejected snapshot is not applied")
}

func TestService_UpdatePreferences(t *testing.T) {
	s, h, _ := newTestService()

	changes := 0
	h.ConfigChanged().Connect(func() { changes++ })

	require.Nil(t, s.UpdatePreferences("bottom_right", 5, -3))
	prefs, err := h.Preferences()
	require.NoError(t, err)
	assert.Equal(t, model.Preferences{Anchor: "bottom_right", OffsetX: 5, OffsetY: -3}, prefs)
	assert.Equal(t, 1, changes)

	require.Nil(t, s.UpdatePreferences("bottom_right", 5, -3))
	assert.Equal(t, 1, changes, "unchanged preferences are not announced")
}

func TestService_UpdateWidgetBar(t *testing.T) {
	s, h, _ := newTestService()

	require.Nil(t, s.UpdateWidgetBar(320, true, "TOP"))
	bar, err := h.WidgetBar()
	require.NoError(t, err)
	assert.Equal(t, model.WidgetBar{Width: 320, Visible: true, Layer: model.LayerTop}, bar)

	assert.NotNil(t, s.UpdateWidgetBar(-1, true, "top"))
	assert.NotNil(t, s.UpdateWidgetBar(10, true, "overlay"))
}

func TestService_UpdateScreen(t *testing.T) {
	s, h, _ := newTestService()

	require.Nil(t, s.UpdateScreen(1920, 1080))
	rect, err := h.Screen()
	require.NoError(t, err)
	assert.Equal(t, model.Rect{Width: 1920, Height: 1080}, rect)

	assert.NotNil(t, s.UpdateScreen(0, 1080))
}

func TestService_GetState(t *testing.T) {
	s, _, st := newTestService()
	rev, err := st.SetLessons([]model.DisplayLesson{{ID: "1", Abbr: "数", IsClass: true}},
		model.HighlightState{CurrentLessonID: "1", CurrentState: model.StateInClass})
	require.NoError(t, err)
	st.SetPosition(10, 128)

	raw, derr := s.GetState()
	require.Nil(t, derr)

	var state store.PublishedState
	require.NoError(t, json.Unmarshal([]byte(raw), &state))
	assert.Equal(t, rev, state.Revision)
	assert.Equal(t, "1", state.Highlight.CurrentLessonID)
	assert.Equal(t, 10, state.X)
	assert.Equal(t, 128, state.Y)
}

func TestService_NotConnected(t *testing.T) {
	s, _, _ := newTestService()
	assert.Nil(t, s.Connection())
	assert.ErrorIs(t, s.emit(SignalThemeChanged, true), errNotConnected)
	assert.NoError(t, s.Stop(), "stop before start")
}

func TestSignalFor(t *testing.T) {
	st := store.NewStore(100)
	rev, err := st.SetLessons(nil, model.HighlightState{CurrentLessonID: "a", NextLessonID: "b", CurrentState: 1})
	require.NoError(t, err)
	st.SetPosition(3, 4)
	st.SetDark(true)

	tests := []struct {
		name   string
		event  store.ChangeEvent
		member string
		args   []any
	}{
		{"lessons", store.ChangeEvent{Type: store.ChangeLessons, Revision: rev},
			SignalLessonsUpdated, []any{rev, "a", "b", int32(1)}},
		{"scroll", store.ChangeEvent{Type: store.ChangeScroll, Index: 2},
			SignalScrollRequested, []any{int32(2)}},
		{"position", store.ChangeEvent{Type: store.ChangePosition},
			SignalPositionChanged, []any{int32(3), int32(4), int32(100)}},
		{"width", store.ChangeEvent{Type: store.ChangeWidth},
			SignalPositionChanged, []any{int32(3), int32(4), int32(100)}},
		{"theme", store.ChangeEvent{Type: store.ChangeTheme},
			SignalThemeChanged, []any{true}},
		{"unknown", store.ChangeEvent{Type: store.ChangeType(42)}, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			member, args := signalFor(st, tt.event)
			assert.Equal(t, tt.member, member)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestParseSignal(t *testing.T) {
	name := func(member string) string { return Interface + "." + member }

	tests := []struct {
		name    string
		sig     *dbus.Signal
		want    Event
		wantErr bool
	}{
		{
			name: "lessons updated",
			sig:  &dbus.Signal{Path: Path, Name: name(SignalLessonsUpdated), Body: []any{"r1", "1", "4", int32(1)}},
			want: Event{Name: SignalLessonsUpdated, Revision: "r1", CurrentID: "1", NextID: "4", State: 1},
		},
		{
			name: "scroll",
			sig:  &dbus.Signal{Path: Path, Name: name(SignalScrollRequested), Body: []any{int32(3)}},
			want: Event{Name: SignalScrollRequested, Index: 3},
		},
		{
			name: "position",
			sig:  &dbus.Signal{Path: Path, Name: name(SignalPositionChanged), Body: []any{int32(10), int32(128), int32(300)}},
			want: Event{Name: SignalPositionChanged, X: 10, Y: 128, Width: 300},
		},
		{
			name: "theme",
			sig:  &dbus.Signal{Path: Path, Name: name(SignalThemeChanged), Body: []any{true}},
			want: Event{Name: SignalThemeChanged, Dark: true},
		},
		{
			name:    "wrong arg type",
			sig:     &dbus.Signal{Path: Path, Name: name(SignalScrollRequested), Body: []any{"3"}},
			wantErr: true,
		},
		{
			name:    "wrong arity",
			sig:     &dbus.Signal{Path: Path, Name: name(SignalLessonsUpdated), Body: []any{"r1"}},
			wantErr: true,
		},
		{
			name:    "foreign interface",
			sig:     &dbus.Signal{Path: Path, Name: "org.example.Other.ThemeChanged", Body: []any{true}},
			wantErr: true,
		},
		{
			name:    "unknown member",
			sig:     &dbus.Signal{Path: Path, Name: name("Exploded"), Body: nil},
			wantErr: true,
		},
		{
			name:    "nil",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseSignal(tt.sig)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev)
		})
	}
}

func TestEvent_String(t *testing.T) {
	assert.Equal(t, `LessonsUpdated revision=r current="1" next="" state=0`,
		Event{Name: SignalLessonsUpdated, Revision: "r", CurrentID: "1"}.String())
	assert.Equal(t, "ScrollRequested index=2", Event{Name: SignalScrollRequested, Index: 2}.String())
	assert.Equal(t, "PositionChanged x=1 y=2 width=3", Event{Name: SignalPositionChanged, X: 1, Y: 2, Width: 3}.String())
	assert.Equal(t, "ThemeChanged dark=true", Event{Name: SignalThemeChanged, Dark: true}.String())
}

func TestMonitor_Handle(t *testing.T) {
	m := NewMonitor(nil, nil)
	var got []Event
	m.SetEventHandler(func(ev Event) { got = append(got, ev) })

	m.handle(&dbus.Signal{Path: Path, Name: Interface + "." + SignalThemeChanged, Body: []any{true}})
	m.handle(&dbus.Signal{Path: "/elsewhere", Name: Interface + "." + SignalThemeChanged, Body: []any{true}})
	m.handle(&dbus.Signal{Path: Path, Name: Interface + "." + SignalThemeChanged, Body: []any{"yes"}})

	require.Len(t, got, 1)
	assert.True(t, got[0].Dark)
	assert.NoError(t, m.Stop(), "stop before start")
}

func TestNotification_Hints(t *testing.T) {
	n := &Notification{}
	assert.Equal(t, 1, n.Urgency())
	assert.False(t, n.Transient())

	n.Hints = map[string]dbus.Variant{
		"urgency":   dbus.MakeVariant(byte(2)),
		"transient": dbus.MakeVariant(true),
	}
	assert.Equal(t, 2, n.Urgency())
	assert.True(t, n.Transient())
}
