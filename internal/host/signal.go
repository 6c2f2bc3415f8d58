package host

import (
	"sync"
)

// HandlerID identifies a connected signal handler.
type HandlerID uint64

// Signal is a list of parameterless handlers, emitted synchronously in
// connection order.
type Signal struct {
	mu       sync.Mutex
	next     HandlerID
	handlers map[HandlerID]func()
	order    []HandlerID
}

// NewSignal creates a signal with no handlers.
func NewSignal() *Signal {
	return &Signal{handlers: make(map[HandlerID]func())}
}

// Connect adds a handler and returns its id.
func (s *Signal) Connect(fn func()) HandlerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := s.next
	s.handlers[id] = fn
	s.order = append(s.order, id)
	return id
}

// Disconnect removes a handler. Returns ErrNotConnected if the id is unknown
// or was already disconnected.
func (s *Signal) Disconnect(id HandlerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.handlers[id]; !ok {
		return ErrNotConnected
	}
	delete(s.handlers, id)
	for i, h := range s.order {
		if h == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of connected handlers.
func (s *Signal) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

// Emit calls every connected handler. Handlers may connect or disconnect
// while being emitted; the change applies to the next emission.
func (s *Signal) Emit() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.handlers[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
