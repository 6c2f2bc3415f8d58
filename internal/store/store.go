// Package store holds the observable display state the overlay renders from.
package store

import (
	"slices"
	"sync"
	"time"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
)

// ChangeType indicates which property of the store changed.
type ChangeType int

const (
	// ChangeLessons indicates the lesson row and highlight state were republished.
	ChangeLessons ChangeType = iota
	// ChangeTheme indicates the dark theme flag flipped.
	ChangeTheme
	// ChangePosition indicates the overlay moved.
	ChangePosition
	// ChangeWidth indicates the content width changed.
	ChangeWidth
	// ChangeScroll asks the UI to scroll the lesson at Index into view.
	ChangeScroll
)

func (c ChangeType) String() string {
	switch c {
	case ChangeLessons:
		return "lessons"
	case ChangeTheme:
		return "theme"
	case ChangePosition:
		return "position"
	case ChangeWidth:
		return "width"
	case ChangeScroll:
		return "scroll"
	default:
		return "unknown"
	}
}

// ChangeEvent signals a store property change.
type ChangeEvent struct {
	Type     ChangeType
	Revision string // set for ChangeLessons
	Index    int    // set for ChangeScroll
}

// Store is the display state shared between the daemon and the UI.
// All methods are safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	lessons   []model.DisplayLesson
	highlight model.HighlightState
	revision  string
	updatedAt time.Time

	dark   bool
	x, y   int
	width  int
	scroll int

	subscribers []*subscription
	closed      bool
}

// NewStore creates an empty store with the given initial content width.
func NewStore(width int) *Store {
	return &Store{
		lessons:     make([]model.DisplayLesson, 0),
		width:       width,
		scroll:      -1,
		subscribers: make([]*subscription, 0),
	}
}

// SetLessons replaces the lesson row and highlight state wholesale.
// Every call publishes a ChangeLessons event with a fresh revision.
func (s *Store) SetLessons(lessons []model.DisplayLesson, highlight model.HighlightState) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrStoreClosed
	}

	s.lessons = slices.Clone(lessons)
	if s.lessons == nil {
		s.lessons = make([]model.DisplayLesson, 0)
	}
	s.highlight = highlight
	s.revision = model.NewRevision()
	s.updatedAt = time.Now()

	s.notifyChange(ChangeEvent{Type: ChangeLessons, Revision: s.revision})
	return s.revision, nil
}

// Lessons returns a copy of the current lesson row.
func (s *Store) Lessons() []model.DisplayLesson {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lessons)
}

// Highlight returns the current highlight state.
func (s *Store) Highlight() model.HighlightState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.highlight
}

// Revision returns the id of the last lesson update, empty before the first.
func (s *Store) Revision() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// SetDark updates the dark theme flag. Only a transition publishes an event.
func (s *Store) SetDark(dark bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.dark == dark {
		return false
	}
	s.dark = dark
	s.notifyChange(ChangeEvent{Type: ChangeTheme})
	return true
}

// Dark reports the dark theme flag.
func (s *Store) Dark() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dark
}

// SetPosition moves the overlay. Only a move publishes an event.
func (s *Store) SetPosition(x, y int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || (s.x == x && s.y == y) {
		return false
	}
	s.x, s.y = x, y
	s.notifyChange(ChangeEvent{Type: ChangePosition})
	return true
}

// Position returns the overlay position.
func (s *Store) Position() (x, y int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.x, s.y
}

// SetWidth records the content width. Non-positive and unchanged widths are ignored.
func (s *Store) SetWidth(width int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || width <= 0 || s.width == width {
		return false
	}
	s.width = width
	s.notifyChange(ChangeEvent{Type: ChangeWidth})
	return true
}

// Width returns the content width.
func (s *Store) Width() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width
}

// RequestScroll asks the UI to bring the lesson at index into view.
// Negative indexes are ignored.
func (s *Store) RequestScroll(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || index < 0 {
		return false
	}
	s.scroll = index
	s.notifyChange(ChangeEvent{Type: ChangeScroll, Index: index})
	return true
}

// Snapshot returns the full published state.
func (s *Store) Snapshot() PublishedState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var updated int64
	if !s.updatedAt.IsZero() {
		updated = s.updatedAt.Unix()
	}
	return PublishedState{
		Revision:    s.revision,
		Lessons:     slices.Clone(s.lessons),
		Highlight:   s.highlight,
		Dark:        s.dark,
		X:           s.x,
		Y:           s.y,
		Width:       s.width,
		ScrollIndex: s.scroll,
		UpdatedAt:   updated,
	}
}

// Subscribe returns a channel that receives change events. A subscriber
// that falls behind never blocks the store: its backlog keeps only the
// latest event of each type and is delivered once it reads again.
func (s *Store) Subscribe() <-chan ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := newSubscription()
	if s.closed {
		sub.close()
		return sub.out
	}
	s.subscribers = append(s.subscribers, sub)
	return sub.out
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(ch <-chan ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subscribers {
		if sub.out == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			sub.close()
			return
		}
	}
}

// Close closes all subscriber channels. Further updates fail or are ignored.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for _, sub := range s.subscribers {
		sub.close()
	}
	s.subscribers = nil
	return nil
}

// notifyChange sends a change event to all subscribers without blocking.
func (s *Store) notifyChange(event ChangeEvent) {
	for _, sub := range s.subscribers {
		sub.push(event)
	}
}

const subscriberBuffer = 10

// subscription delivers events directly while out has room. Once it is
// full, events wait in backlog, one per type, and a pump goroutine feeds
// them to out in order.
type subscription struct {
	out  chan ChangeEvent
	wake chan struct{}
	done chan struct{}
	exit chan struct{}

	mu       sync.Mutex
	backlog  []ChangeEvent
	inflight bool
}

func newSubscription() *subscription {
	sub := &subscription{
		out:  make(chan ChangeEvent, subscriberBuffer),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		exit: make(chan struct{}),
	}
	go sub.pump()
	return sub
}

func (sub *subscription) push(ev ChangeEvent) {
	sub.mu.Lock()
	if len(sub.backlog) == 0 && !sub.inflight {
		select {
		case sub.out <- ev:
			sub.mu.Unlock()
			return
		default:
		}
	}
	if i := slices.IndexFunc(sub.backlog, func(e ChangeEvent) bool { return e.Type == ev.Type }); i >= 0 {
		sub.backlog[i] = ev
	} else {
		sub.backlog = append(sub.backlog, ev)
	}
	sub.mu.Unlock()

	select {
	case sub.wake <- struct{}{}:
	default:
	}
}

func (sub *subscription) pump() {
	defer close(sub.exit)
	for {
		select {
		case <-sub.wake:
		case <-sub.done:
			return
		}
		for {
			sub.mu.Lock()
			if len(sub.backlog) == 0 {
				sub.mu.Unlock()
				break
			}
			ev := sub.backlog[0]
			sub.backlog = sub.backlog[1:]
			sub.inflight = true
			sub.mu.Unlock()

			select {
			case sub.out <- ev:
			case <-sub.done:
				return
			}

			sub.mu.Lock()
			sub.inflight = false
			sub.mu.Unlock()
		}
	}
}

// close stops the pump, then closes out. Pending events are dropped.
func (sub *subscription) close() {
	close(sub.done)
	<-sub.exit
	close(sub.out)
}

// Errors
var (
	ErrStoreClosed = storeError("store is closed")
)

type storeError string

func (e storeError) Error() string {
	return string(e)
}
