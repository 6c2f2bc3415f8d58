package dbus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/adapter/input"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/host"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/store"
)

// Service is the overlay's D-Bus object. Method calls update the in-memory
// host; store changes are re-emitted as signals.
type Service struct {
	conn   *dbus.Conn
	logger *slog.Logger

	host  *host.Memory
	store *store.Store

	mu      sync.RWMutex
	running bool
	sub     <-chan store.ChangeEvent
	doneCh  chan struct{}
}

// NewService creates a service feeding h and watching st.
func NewService(h *host.Memory, st *store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger: logger,
		host:   h,
		store:  st,
	}
}

// Start exports the service on conn, claims the bus name and starts
// forwarding store changes as signals.
func (s *Service) Start(conn *dbus.Conn) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("service already running")
	}
	s.mu.Unlock()

	if err := conn.Export(s, Path, Interface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: string(Path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: serviceMethods(),
				Signals: serviceSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), Path,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue|dbus.NameFlagReplaceExisting)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", BusName)
	}

	s.mu.Lock()
	s.conn = conn
	s.running = true
	s.sub = s.store.Subscribe()
	s.doneCh = make(chan struct{})
	sub, done := s.sub, s.doneCh
	s.mu.Unlock()

	go s.forward(sub, done)

	s.logger.Info("D-Bus service started", "interface", Interface, "path", Path)
	return nil
}

// Stop stops signal forwarding and releases the bus name.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	sub, done, conn := s.sub, s.doneCh, s.conn
	s.mu.Unlock()

	s.store.Unsubscribe(sub)
	<-done

	if conn != nil {
		if _, err := conn.ReleaseName(BusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		// The connection is shared; leave it open.
	}

	s.logger.Info("D-Bus service stopped")
	return nil
}

func invalidArgs(format string, args ...any) *dbus.Error {
	return dbus.NewError(ErrorInvalidArgs, []any{fmt.Sprintf(format, args...)})
}

// UpdateRuntime replaces the schedule data with a JSON or YAML snapshot.
// D-Bus method: UpdateRuntime(s) -> nothing
func (s *Service) UpdateRuntime(snapshot string) *dbus.Error {
	snap, err := input.Decode([]byte(snapshot), input.FormatAuto, "dbus")
	if err != nil {
		s.logger.Debug("UpdateRuntime rejected", "error", err)
		return invalidArgs("%v", err)
	}

	s.logger.Debug("UpdateRuntime called",
		"entries", len(snap.Today),
		"next", len(snap.Next),
		"status", snap.Status)

	s.host.ApplySnapshot(*snap)
	return nil
}

// UpdatePreferences sets the widget anchor and offsets.
// D-Bus method: UpdatePreferences(sii) -> nothing
func (s *Service) UpdatePreferences(anchor string, offsetX, offsetY int32) *dbus.Error {
	s.logger.Debug("UpdatePreferences called", "anchor", anchor, "offset_x", offsetX, "offset_y", offsetY)
	s.host.SetPreferences(model.Preferences{
		Anchor:  anchor,
		OffsetX: int(offsetX),
		OffsetY: int(offsetY),
	})
	return nil
}

// UpdateWidgetBar reports the host widget window's width, visibility and layer.
// D-Bus method: UpdateWidgetBar(ibs) -> nothing
func (s *Service) UpdateWidgetBar(width int32, visible bool, layer string) *dbus.Error {
	if width < 0 {
		return invalidArgs("width must not be negative, got %d", width)
	}
	l, err := model.ParseLayer(layer)
	if err != nil {
		return invalidArgs("%v", err)
	}
	s.logger.Debug("UpdateWidgetBar called", "width", width, "visible", visible, "layer", l)
	s.host.SetWidgetBar(model.WidgetBar{Width: int(width), Visible: visible, Layer: l})
	return nil
}

// UpdateScreen reports the available screen size.
// D-Bus method: UpdateScreen(ii) -> nothing
func (s *Service) UpdateScreen(width, height int32) *dbus.Error {
	if width <= 0 || height <= 0 {
		return invalidArgs("screen size must be positive, got %dx%d", width, height)
	}
	s.logger.Debug("UpdateScreen called", "width", width, "height", height)
	s.host.SetScreen(model.Rect{Width: int(width), Height: int(height)})
	return nil
}

// GetState returns the published display state as JSON.
// D-Bus method: GetState() -> s
func (s *Service) GetState() (string, *dbus.Error) {
	data, err := json.Marshal(s.store.Snapshot())
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return string(data), nil
}

// Connection returns the underlying D-Bus connection.
func (s *Service) Connection() *dbus.Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}

func serviceMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "UpdateRuntime",
			Args: []introspect.Arg{
				{Name: "snapshot", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "UpdatePreferences",
			Args: []introspect.Arg{
				{Name: "anchor", Type: "s", Direction: "in"},
				{Name: "offset_x", Type: "i", Direction: "in"},
				{Name: "offset_y", Type: "i", Direction: "in"},
			},
		},
		{
			Name: "UpdateWidgetBar",
			Args: []introspect.Arg{
				{Name: "width", Type: "i", Direction: "in"},
				{Name: "visible", Type: "b", Direction: "in"},
				{Name: "layer", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "UpdateScreen",
			Args: []introspect.Arg{
				{Name: "width", Type: "i", Direction: "in"},
				{Name: "height", Type: "i", Direction: "in"},
			},
		},
		{
			Name: "GetState",
			Args: []introspect.Arg{
				{Name: "state", Type: "s", Direction: "out"},
			},
		},
	}
}

func serviceSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: SignalLessonsUpdated,
			Args: []introspect.Arg{
				{Name: "revision", Type: "s"},
				{Name: "current_id", Type: "s"},
				{Name: "next_id", Type: "s"},
				{Name: "state", Type: "i"},
			},
		},
		{
			Name: SignalScrollRequested,
			Args: []introspect.Arg{
				{Name: "index", Type: "i"},
			},
		},
		{
			Name: SignalPositionChanged,
			Args: []introspect.Arg{
				{Name: "x", Type: "i"},
				{Name: "y", Type: "i"},
				{Name: "width", Type: "i"},
			},
		},
		{
			Name: SignalThemeChanged,
			Args: []introspect.Arg{
				{Name: "dark", Type: "b"},
			},
		},
	}
}
