package dbus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
)

// EventHandler receives decoded service signals.
type EventHandler func(ev Event)

// Monitor subscribes to the service's signals.
type Monitor struct {
	conn   *dbus.Conn
	logger *slog.Logger

	mu      sync.Mutex
	onEvent EventHandler
	ch      chan *dbus.Signal
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewMonitor creates a monitor on conn.
func NewMonitor(conn *dbus.Conn, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{conn: conn, logger: logger}
}

// SetEventHandler sets the callback for received signals.
func (m *Monitor) SetEventHandler(handler EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvent = handler
}

func (m *Monitor) matchOptions() []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchObjectPath(Path),
		dbus.WithMatchInterface(Interface),
	}
}

// Start adds the match rule and begins delivering events.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ch != nil {
		return nil
	}

	if err := m.conn.AddMatchSignal(m.matchOptions()...); err != nil {
		return fmt.Errorf("failed to add signal match: %w", err)
	}

	m.ch = make(chan *dbus.Signal, 100)
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.conn.Signal(m.ch)
	go m.process(m.ch, m.stopCh, m.doneCh)

	m.logger.Debug("started D-Bus signal monitor", "interface", Interface)
	return nil
}

func (m *Monitor) process(ch chan *dbus.Signal, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case sig, ok := <-ch:
			if !ok {
				return
			}
			m.handle(sig)
		}
	}
}

func (m *Monitor) handle(sig *dbus.Signal) {
	if sig.Path != Path {
		return
	}
	ev, err := ParseSignal(sig)
	if err != nil {
		m.logger.Debug("ignoring signal", "name", sig.Name, "error", err)
		return
	}
	m.mu.Lock()
	handler := m.onEvent
	m.mu.Unlock()
	if handler != nil {
		handler(ev)
	}
}

// Stop removes the match rule and stops delivering events.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	ch, stop, done := m.ch, m.stopCh, m.doneCh
	m.ch, m.stopCh, m.doneCh = nil, nil, nil
	m.mu.Unlock()

	if ch == nil {
		return nil
	}
	m.conn.RemoveSignal(ch)
	close(stop)
	<-done

	return m.conn.RemoveMatchSignal(m.matchOptions()...)
}
