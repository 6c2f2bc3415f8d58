package dbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/store"
)

// Client calls a running overlay service.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// NewClient creates a client on conn.
func NewClient(conn *dbus.Conn) *Client {
	return &Client{conn: conn, obj: conn.Object(BusName, Path)}
}

func (c *Client) call(ctx context.Context, method string, args ...any) *dbus.Call {
	return c.obj.CallWithContext(ctx, Interface+"."+method, 0, args...)
}

// Running reports whether the service currently owns its bus name.
func (c *Client) Running(ctx context.Context) bool {
	var owned bool
	err := c.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, BusName).Store(&owned)
	return err == nil && owned
}

// UpdateRuntime sends a schedule snapshot.
func (c *Client) UpdateRuntime(ctx context.Context, snap *model.RuntimeSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := c.call(ctx, "UpdateRuntime", string(data)).Err; err != nil {
		return fmt.Errorf("UpdateRuntime: %w", err)
	}
	return nil
}

// UpdatePreferences sends the widget anchor and offsets.
func (c *Client) UpdatePreferences(ctx context.Context, prefs model.Preferences) error {
	err := c.call(ctx, "UpdatePreferences", prefs.Anchor, int32(prefs.OffsetX), int32(prefs.OffsetY)).Err
	if err != nil {
		return fmt.Errorf("UpdatePreferences: %w", err)
	}
	return nil
}

// UpdateWidgetBar sends the host widget window's state.
func (c *Client) UpdateWidgetBar(ctx context.Context, bar model.WidgetBar) error {
	layer := string(bar.Layer)
	if layer == "" {
		layer = string(model.LayerNormal)
	}
	if err := c.call(ctx, "UpdateWidgetBar", int32(bar.Width), bar.Visible, layer).Err; err != nil {
		return fmt.Errorf("UpdateWidgetBar: %w", err)
	}
	return nil
}

// UpdateScreen sends the available screen size.
func (c *Client) UpdateScreen(ctx context.Context, width, height int) error {
	if err := c.call(ctx, "UpdateScreen", int32(width), int32(height)).Err; err != nil {
		return fmt.Errorf("UpdateScreen: %w", err)
	}
	return nil
}

// State fetches the published display state.
func (c *Client) State(ctx context.Context) (*store.PublishedState, error) {
	var raw string
	if err := c.call(ctx, "GetState").Store(&raw); err != nil {
		return nil, fmt.Errorf("GetState: %w", err)
	}
	var state store.PublishedState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &state, nil
}

// SendNotification shows a desktop notification through whichever
// notification daemon owns org.freedesktop.Notifications.
func SendNotification(ctx context.Context, conn *dbus.Conn, n *Notification) (uint32, error) {
	actions := n.Actions
	if actions == nil {
		actions = []string{}
	}
	hints := n.Hints
	if hints == nil {
		hints = map[string]dbus.Variant{}
	}

	var id uint32
	err := conn.Object(notificationsInterface, notificationsPath).CallWithContext(ctx,
		notificationsInterface+".Notify", 0,
		n.AppName, n.ReplacesID, n.AppIcon, n.Summary, n.Body, actions, hints, n.ExpireTimeout,
	).Store(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to send notification: %w", err)
	}
	return id, nil
}
