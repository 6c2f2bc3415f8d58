package dbus

import (
	"errors"
	"fmt"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/store"
)

var errNotConnected = errors.New("not connected to D-Bus")

// forward re-emits store changes until the subscription is closed.
func (s *Service) forward(sub <-chan store.ChangeEvent, done chan struct{}) {
	defer close(done)
	for ev := range sub {
		member, args := signalFor(s.store, ev)
		if member == "" {
			continue
		}
		if err := s.emit(member, args...); err != nil {
			s.logger.Warn("failed to emit signal", "signal", member, "error", err)
		}
	}
}

// signalFor maps a store change to the signal that announces it.
// Width changes are announced with the position.
func signalFor(st *store.Store, ev store.ChangeEvent) (string, []any) {
	switch ev.Type {
	case store.ChangeLessons:
		h := st.Highlight()
		return SignalLessonsUpdated, []any{ev.Revision, h.CurrentLessonID, h.NextLessonID, int32(h.CurrentState)}
	case store.ChangeScroll:
		return SignalScrollRequested, []any{int32(ev.Index)}
	case store.ChangePosition, store.ChangeWidth:
		x, y := st.Position()
		return SignalPositionChanged, []any{int32(x), int32(y), int32(st.Width())}
	case store.ChangeTheme:
		return SignalThemeChanged, []any{st.Dark()}
	default:
		return "", nil
	}
}

func (s *Service) emit(member string, args ...any) error {
	conn := s.Connection()
	if conn == nil {
		return errNotConnected
	}
	if err := conn.Emit(Path, Interface+"."+member, args...); err != nil {
		return fmt.Errorf("failed to emit %s signal: %w", member, err)
	}
	s.logger.Debug("emitted signal", "signal", member)
	return nil
}
