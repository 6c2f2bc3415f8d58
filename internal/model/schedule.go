// Package model defines the core data structures for the lessons displayer.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// EntryType is the kind of a schedule entry as reported by the host.
type EntryType string

// Entry types known to the host. Unknown types are passed through unchanged.
const (
	EntryClass       EntryType = "class"
	EntryBreak       EntryType = "break"
	EntryActivity    EntryType = "activity"
	EntryPreparation EntryType = "preparation"
)

// StatusClass is the host status string for "a class is in progress".
const StatusClass = "class"

// Display states exposed to the UI.
const (
	StateIdle    = 0
	StateInClass = 1
)

// ScheduleEntry is one slot of today's schedule, owned by the host.
type ScheduleEntry struct {
	ID        string    `json:"id" yaml:"id"`
	Type      EntryType `json:"type" yaml:"type"`
	Title     string    `json:"title,omitempty" yaml:"title,omitempty"`
	SubjectID string    `json:"subjectId,omitempty" yaml:"subjectId,omitempty"`
}

// Subject is a subject definition from the host's schedule data.
type Subject struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	SimplifiedName string `json:"simplifiedName,omitempty" yaml:"simplifiedName,omitempty"`
}

// UnmarshalJSON accepts ids written as strings or numbers.
func (e *ScheduleEntry) UnmarshalJSON(data []byte) error {
	type plain ScheduleEntry
	aux := struct {
		*plain
		ID        flexID `json:"id"`
		SubjectID flexID `json:"subjectId,omitempty"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.ID = string(aux.ID)
	e.SubjectID = string(aux.SubjectID)
	return nil
}

// UnmarshalJSON accepts ids written as strings or numbers.
func (s *Subject) UnmarshalJSON(data []byte) error {
	type plain Subject
	aux := struct {
		*plain
		ID flexID `json:"id"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.ID = string(aux.ID)
	return nil
}

// flexID is an id the host may send as a JSON string or number.
// Numbers keep their literal text, so 1 becomes "1".
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number, got %s", data)
	}
	*f = flexID(n.String())
	return nil
}

// DisplayLesson is a retained entry ready for rendering.
type DisplayLesson struct {
	ID      string `json:"id" yaml:"id"`
	Abbr    string `json:"abbr" yaml:"abbr"`
	IsClass bool   `json:"isClass" yaml:"isClass"`
}

// HighlightState marks the active and upcoming lessons.
type HighlightState struct {
	CurrentLessonID string `json:"currentLessonId" yaml:"currentLessonId"`
	NextLessonID    string `json:"nextLessonId" yaml:"nextLessonId"`
	CurrentState    int    `json:"currentState" yaml:"currentState"`
}

// InClass reports whether the host says a class is in progress.
func (h HighlightState) InClass() bool {
	return h.CurrentState == StateInClass
}

// ScrollTarget returns the lesson the UI should keep in view:
// the current lesson, falling back to the next one.
func (h HighlightState) ScrollTarget() string {
	if h.CurrentLessonID != "" {
		return h.CurrentLessonID
	}
	return h.NextLessonID
}

// Preferences is the host-managed anchor configuration of the widget bar.
type Preferences struct {
	Anchor  string `json:"widgets_anchor" yaml:"widgets_anchor"`
	OffsetX int    `json:"widgets_offset_x" yaml:"widgets_offset_x"`
	OffsetY int    `json:"widgets_offset_y" yaml:"widgets_offset_y"`
}

// Layer is a stacking hint for the host widget window.
type Layer string

const (
	LayerNormal Layer = "normal"
	LayerTop    Layer = "top"
	LayerBottom Layer = "bottom"
)

// ParseLayer parses a layer name, case-insensitively.
// Empty input means LayerNormal.
func ParseLayer(s string) (Layer, error) {
	switch Layer(strings.ToLower(strings.TrimSpace(s))) {
	case LayerNormal, "":
		return LayerNormal, nil
	case LayerTop:
		return LayerTop, nil
	case LayerBottom:
		return LayerBottom, nil
	default:
		return LayerNormal, fmt.Errorf("unknown layer %q", s)
	}
}

// OverlayLayer returns the stacking the overlay follows for a host layer.
// A host window that stays on top gives the overlay no extra hint, so
// only a host kept at the bottom moves it.
func (l Layer) OverlayLayer() (Layer, error) {
	switch l {
	case LayerNormal, LayerTop:
		return LayerNormal, nil
	case LayerBottom:
		return LayerBottom, nil
	default:
		return LayerNormal, fmt.Errorf("unknown layer %q", string(l))
	}
}

// WidgetBar is what the host reports about its own widget window.
type WidgetBar struct {
	Width   int   `json:"width" yaml:"width"`
	Visible bool  `json:"visible" yaml:"visible"`
	Layer   Layer `json:"layer" yaml:"layer"`
}

// RuntimeSnapshot is everything the host publishes about the current day.
type RuntimeSnapshot struct {
	Today       []ScheduleEntry `json:"current_day_entries" yaml:"current_day_entries"`
	Current     *ScheduleEntry  `json:"current_entry,omitempty" yaml:"current_entry,omitempty"`
	Next        []ScheduleEntry `json:"next_entries,omitempty" yaml:"next_entries,omitempty"`
	Status      string          `json:"current_status,omitempty" yaml:"current_status,omitempty"`
	Subjects    []Subject       `json:"subjects,omitempty" yaml:"subjects,omitempty"`
	Preferences *Preferences    `json:"preferences,omitempty" yaml:"preferences,omitempty"`
	UpdatedAt   int64           `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Rect is an integer rectangle in window-local coordinates.
type Rect struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// NewRevision returns a new ULID identifying one published lesson update.
func NewRevision() string {
	return ulid.Make().String()
}

// RevisionTime extracts the timestamp encoded in a revision id.
// Returns the zero time if the id is not a valid ULID.
func RevisionTime(rev string) time.Time {
	id, err := ulid.Parse(rev)
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(id.Time())
}
