package theme

import (
	"errors"
	"fmt"
	"sync"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/godbus/dbus/v5"
)

// Detector reports whether the desktop prefers a dark color scheme.
type Detector interface {
	IsDark() (bool, error)
}

// StaticDetector always returns the same answer. Used for an explicit
// light or dark color scheme in the config.
type StaticDetector bool

func (d StaticDetector) IsDark() (bool, error) {
	return bool(d), nil
}

// AdwaitaDetector asks libadwaita's style manager. It must be called on the
// GTK main thread after the application started.
type AdwaitaDetector struct{}

func (AdwaitaDetector) IsDark() (bool, error) {
	sm := adw.StyleManagerGetDefault()
	if sm == nil {
		return false, errors.New("no adwaita style manager")
	}
	return sm.Dark(), nil
}

// Portal settings for the color scheme preference.
const (
	portalBusName   = "org.freedesktop.portal.Desktop"
	portalPath      = "/org/freedesktop/portal/desktop"
	portalSettings  = "org.freedesktop.portal.Settings"
	appearanceNS    = "org.freedesktop.appearance"
	colorSchemeKey  = "color-scheme"
	colorSchemeDark = 1
)

// PortalDetector reads org.freedesktop.appearance color-scheme from the
// XDG desktop portal. Safe to call from any goroutine.
type PortalDetector struct {
	mu   sync.Mutex
	conn *dbus.Conn
}

// NewPortalDetector creates a detector on the given session bus connection.
// A nil conn connects to the shared session bus on first use.
func NewPortalDetector(conn *dbus.Conn) *PortalDetector {
	return &PortalDetector{conn: conn}
}

func (d *PortalDetector) IsDark() (bool, error) {
	d.mu.Lock()
	if d.conn == nil {
		conn, err := dbus.SessionBus()
		if err != nil {
			d.mu.Unlock()
			return false, fmt.Errorf("failed to connect to session bus: %w", err)
		}
		d.conn = conn
	}
	conn := d.conn
	d.mu.Unlock()

	obj := conn.Object(portalBusName, dbus.ObjectPath(portalPath))

	var value dbus.Variant
	err := obj.Call(portalSettings+".ReadOne", 0, appearanceNS, colorSchemeKey).Store(&value)
	if err != nil {
		// Portals before version 2 only have the deprecated Read
		if err = obj.Call(portalSettings+".Read", 0, appearanceNS, colorSchemeKey).Store(&value); err != nil {
			return false, fmt.Errorf("failed to read color scheme from portal: %w", err)
		}
	}

	scheme, err := colorSchemeValue(value)
	if err != nil {
		return false, err
	}
	return scheme == colorSchemeDark, nil
}

// colorSchemeValue unwraps the (possibly nested) variant returned by the portal.
// 0 = no preference, 1 = dark, 2 = light.
func colorSchemeValue(v dbus.Variant) (uint32, error) {
	for range 4 {
		switch inner := v.Value().(type) {
		case dbus.Variant:
			v = inner
		case uint32:
			return inner, nil
		default:
			return 0, fmt.Errorf("unexpected color-scheme value %v", v)
		}
	}
	return 0, fmt.Errorf("color-scheme value nested too deeply")
}

// Poller remembers the last detected scheme and reports transitions.
type Poller struct {
	mu       sync.Mutex
	detector Detector
	dark     bool
}

// NewPoller creates a Poller. Until the first successful poll the scheme is light.
func NewPoller(detector Detector) *Poller {
	return &Poller{detector: detector}
}

// Poll queries the detector. changed is true only when the result differs
// from the last known value. On error the last known value is returned.
func (p *Poller) Poll() (dark bool, changed bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	d, err := p.detector.IsDark()
	if err != nil {
		return p.dark, false, err
	}

	changed = d != p.dark
	p.dark = d
	return d, changed, nil
}

// Dark returns the last known value.
func (p *Poller) Dark() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dark
}
