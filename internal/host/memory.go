package host

import (
	"slices"
	"sync"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
)

// Memory is a Host backed by values pushed from a transport
// (the D-Bus service or a snapshot file).
type Memory struct {
	mu sync.RWMutex

	today    []model.ScheduleEntry
	current  *model.ScheduleEntry
	next     []model.ScheduleEntry
	status   string
	subjects []model.Subject
	subjErr  error

	prefs    model.Preferences
	hasPrefs bool
	bar      model.WidgetBar
	hasBar   bool
	screen   model.Rect

	runtimeUpdated *Signal
	configChanged  *Signal
}

var _ Host = (*Memory)(nil)

// NewMemory creates an empty host.
func NewMemory() *Memory {
	return &Memory{
		runtimeUpdated: NewSignal(),
		configChanged:  NewSignal(),
	}
}

// ApplySnapshot replaces the schedule data and emits RuntimeUpdated.
// Subjects are kept when the snapshot carries none. Preferences in the
// snapshot are applied as by SetPreferences.
func (m *Memory) ApplySnapshot(snap model.RuntimeSnapshot) {
	m.mu.Lock()
	m.today = slices.Clone(snap.Today)
	m.current = nil
	if snap.Current != nil {
		c := *snap.Current
		m.current = &c
	}
	m.next = slices.Clone(snap.Next)
	m.status = snap.Status
	if snap.Subjects != nil {
		m.subjects = slices.Clone(snap.Subjects)
	}
	m.mu.Unlock()

	if snap.Preferences != nil {
		m.SetPreferences(*snap.Preferences)
	}
	m.runtimeUpdated.Emit()
}

// SetPreferences records the widget anchor configuration and emits
// ConfigChanged if it differs from the previous one.
func (m *Memory) SetPreferences(prefs model.Preferences) {
	m.mu.Lock()
	changed := !m.hasPrefs || m.prefs != prefs
	m.prefs = prefs
	m.hasPrefs = true
	m.mu.Unlock()

	if changed {
		m.configChanged.Emit()
	}
}

// SetWidgetBar records the host widget window state.
func (m *Memory) SetWidgetBar(bar model.WidgetBar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bar = bar
	m.hasBar = true
}

// SetScreen records the screen geometry.
func (m *Memory) SetScreen(screen model.Rect) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.screen = screen
}

// SetSubjectsError makes Subjects fail with err until cleared with nil.
func (m *Memory) SetSubjectsError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjErr = err
}

// Snapshot returns the schedule data as one value.
func (m *Memory) Snapshot() model.RuntimeSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := model.RuntimeSnapshot{
		Today:    slices.Clone(m.today),
		Next:     slices.Clone(m.next),
		Status:   m.status,
		Subjects: slices.Clone(m.subjects),
	}
	if m.current != nil {
		c := *m.current
		snap.Current = &c
	}
	if m.hasPrefs {
		p := m.prefs
		snap.Preferences = &p
	}
	return snap
}

func (m *Memory) TodayEntries() []model.ScheduleEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.today)
}

func (m *Memory) CurrentEntry() *model.ScheduleEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	c := *m.current
	return &c
}

func (m *Memory) NextEntries() []model.ScheduleEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.next)
}

func (m *Memory) CurrentStatus() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Memory) Subjects() ([]model.Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.subjErr != nil {
		return nil, &HostError{Op: "subjects", Cause: m.subjErr}
	}
	return slices.Clone(m.subjects), nil
}

func (m *Memory) Preferences() (model.Preferences, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.hasPrefs {
		return model.Preferences{}, &HostError{Op: "preferences", Cause: ErrUnavailable}
	}
	return m.prefs, nil
}

func (m *Memory) WidgetBar() (model.WidgetBar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.hasBar {
		return model.WidgetBar{}, &HostError{Op: "widget bar", Cause: ErrUnavailable}
	}
	return m.bar, nil
}

func (m *Memory) Screen() (model.Rect, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.screen.Empty() {
		return model.Rect{}, &HostError{Op: "screen", Cause: ErrUnavailable}
	}
	return m.screen, nil
}

func (m *Memory) RuntimeUpdated() *Signal { return m.runtimeUpdated }

func (m *Memory) ConfigChanged() *Signal { return m.configChanged }
