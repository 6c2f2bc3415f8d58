package dbus

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	// Interface is the overlay interface name.
	Interface = "io.github.yersmagit.LessonsDisplayer"
	// Path is the overlay object path.
	Path dbus.ObjectPath = "/io/github/yersmagit/LessonsDisplayer"
	// BusName is the bus name to claim.
	BusName = "io.github.yersmagit.LessonsDisplayer"

	// ErrorInvalidArgs is returned for arguments the service rejects.
	ErrorInvalidArgs = Interface + ".Error.InvalidArgs"

	notificationsInterface = "org.freedesktop.Notifications"
	notificationsPath      = dbus.ObjectPath("/org/freedesktop/Notifications")
)

// Signal members.
const (
	SignalLessonsUpdated  = "LessonsUpdated"
	SignalScrollRequested = "ScrollRequested"
	SignalPositionChanged = "PositionChanged"
	SignalThemeChanged    = "ThemeChanged"
)

// Connect returns the shared connection to the named bus.
func Connect(bus string) (*dbus.Conn, error) {
	switch bus {
	case "", "session":
		conn, err := dbus.SessionBus()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to session bus: %w", err)
		}
		return conn, nil
	case "system":
		conn, err := dbus.SystemBus()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to system bus: %w", err)
		}
		return conn, nil
	default:
		return nil, fmt.Errorf("unknown bus %q", bus)
	}
}

// Notification is an org.freedesktop.Notifications Notify call.
type Notification struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string // Alternating key, label pairs
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

// Urgency extracts the urgency hint. Returns 1 (normal) if not specified.
func (n *Notification) Urgency() int {
	if v, ok := n.Hints["urgency"]; ok {
		if b, ok := v.Value().(byte); ok {
			return int(b)
		}
	}
	return 1
}

// Transient returns true if the transient hint is set.
func (n *Notification) Transient() bool {
	if v, ok := n.Hints["transient"]; ok {
		if b, ok := v.Value().(bool); ok {
			return b
		}
	}
	return false
}

// Event is a decoded service signal.
type Event struct {
	Name string `json:"name"`

	// LessonsUpdated
	Revision  string `json:"revision,omitempty"`
	CurrentID string `json:"current_id,omitempty"`
	NextID    string `json:"next_id,omitempty"`
	State     int32  `json:"state,omitempty"`

	// ScrollRequested
	Index int32 `json:"index,omitempty"`

	// PositionChanged
	X     int32 `json:"x,omitempty"`
	Y     int32 `json:"y,omitempty"`
	Width int32 `json:"width,omitempty"`

	// ThemeChanged
	Dark bool `json:"dark,omitempty"`
}

func (e Event) String() string {
	switch e.Name {
	case SignalLessonsUpdated:
		return fmt.Sprintf("%s revision=%s current=%q next=%q state=%d", e.Name, e.Revision, e.CurrentID, e.NextID, e.State)
	case SignalScrollRequested:
		return fmt.Sprintf("%s index=%d", e.Name, e.Index)
	case SignalPositionChanged:
		return fmt.Sprintf("%s x=%d y=%d width=%d", e.Name, e.X, e.Y, e.Width)
	case SignalThemeChanged:
		return fmt.Sprintf("%s dark=%t", e.Name, e.Dark)
	default:
		return e.Name
	}
}

// ParseSignal decodes a signal emitted by the Service.
func ParseSignal(sig *dbus.Signal) (Event, error) {
	if sig == nil {
		return Event{}, fmt.Errorf("nil signal")
	}
	iface, member, ok := splitName(sig.Name)
	if !ok || iface != Interface {
		return Event{}, fmt.Errorf("unexpected signal %q", sig.Name)
	}

	ev := Event{Name: member}
	body := sig.Body
	bad := func() (Event, error) {
		return Event{}, fmt.Errorf("malformed %s signal: %v", member, body)
	}

	switch member {
	case SignalLessonsUpdated:
		if len(body) != 4 {
			return bad()
		}
		if ev.Revision, ok = body[0].(string); !ok {
			return bad()
		}
		if ev.CurrentID, ok = body[1].(string); !ok {
			return bad()
		}
		if ev.NextID, ok = body[2].(string); !ok {
			return bad()
		}
		if ev.State, ok = body[3].(int32); !ok {
			return bad()
		}
	case SignalScrollRequested:
		if len(body) != 1 {
			return bad()
		}
		if ev.Index, ok = body[0].(int32); !ok {
			return bad()
		}
	case SignalPositionChanged:
		if len(body) != 3 {
			return bad()
		}
		if ev.X, ok = body[0].(int32); !ok {
			return bad()
		}
		if ev.Y, ok = body[1].(int32); !ok {
			return bad()
		}
		if ev.Width, ok = body[2].(int32); !ok {
			return bad()
		}
	case SignalThemeChanged:
		if len(body) != 1 {
			return bad()
		}
		if ev.Dark, ok = body[0].(bool); !ok {
			return bad()
		}
	default:
		return Event{}, fmt.Errorf("unknown signal %q", member)
	}
	return ev, nil
}

func splitName(name string) (iface, member string, ok bool) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}
