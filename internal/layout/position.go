// Package layout places the overlay relative to the host widget bar and
// tracks the opaque mask of its content.
package layout

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
)

// Geometry of the host widget bar the overlay lines up with.
const (
	TopMargin        = 108 // distance from the top edge to the row when anchored top
	BottomMargin     = 60  // extra distance kept from the bottom edge
	ContentHeight    = 54  // default height of the lesson row
	DefaultY         = 132 // vertical position for unknown or malformed anchors
	DefaultWidth     = 100 // content width before the host reports one
	anchorSeparator  = "_"
	verticalTop      = "top"
	verticalBottom   = "bottom"
	horizontalLeft   = "left"
	horizontalCenter = "center"
	horizontalRight  = "right"
)

// ErrNoScreen is returned by a ScreenFunc when no screen geometry is known.
var ErrNoScreen = errors.New("no screen geometry available")

// Anchor is a parsed "<vertical>_<horizontal>" anchor string.
type Anchor struct {
	Vertical   string
	Horizontal string
	Valid      bool
}

// ParseAnchor splits an anchor such as "top_left", case-insensitively.
// Anything without exactly two parts is returned with Valid unset.
func ParseAnchor(s string) Anchor {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), anchorSeparator)
	if len(parts) != 2 {
		return Anchor{}
	}
	return Anchor{Vertical: parts[0], Horizontal: parts[1], Valid: true}
}

func (a Anchor) String() string {
	if !a.Valid {
		return "invalid"
	}
	return a.Vertical + anchorSeparator + a.Horizontal
}

// ComputePosition returns the top-left corner of the lesson row on a screen
// of screenW x screenH when the content is contentW pixels wide and
// ContentHeight pixels high.
func ComputePosition(anchor string, offsetX, offsetY, screenW, screenH, contentW int) (x, y int) {
	return ComputeRowPosition(anchor, offsetX, offsetY, screenW, screenH, contentW, ContentHeight)
}

// ComputeRowPosition is ComputePosition for a row contentH pixels high.
// Only bottom anchors depend on the height.
func ComputeRowPosition(anchor string, offsetX, offsetY, screenW, screenH, contentW, contentH int) (x, y int) {
	a := ParseAnchor(anchor)
	if !a.Valid {
		return FallbackPosition(screenW, contentW)
	}

	switch a.Vertical {
	case verticalTop:
		y = TopMargin + offsetY
	case verticalBottom:
		y = screenH - contentH - offsetY - BottomMargin
	default:
		y = DefaultY
	}

	switch a.Horizontal {
	case horizontalCenter:
		x = floorDiv(screenW-contentW, 2) + offsetX
	case horizontalLeft:
		x = offsetX
	case horizontalRight:
		x = screenW - contentW - offsetX
	default:
		x = floorDiv(screenW-contentW, 2)
	}
	return x, y
}

// FallbackPosition centers the row horizontally at DefaultY.
func FallbackPosition(screenW, contentW int) (x, y int) {
	return floorDiv(screenW-contentW, 2), DefaultY
}

// floorDiv divides rounding towards negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// ScreenFunc reports the geometry of the screen the overlay is on.
type ScreenFunc func() (model.Rect, error)

// Point is an overlay position.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Positioner keeps the inputs of ComputePosition and the last result.
// It is safe for concurrent use.
type Positioner struct {
	mu          sync.Mutex
	logger      *slog.Logger
	prefs       model.Preferences
	width       int
	height      int
	screenWidth int
	pos         Point
}

// NewPositioner creates a Positioner with DefaultWidth x ContentHeight content.
func NewPositioner(prefs model.Preferences, logger *slog.Logger) *Positioner {
	if logger == nil {
		logger = slog.Default()
	}
	x, y := FallbackPosition(0, DefaultWidth)
	return &Positioner{
		logger: logger,
		prefs:  prefs,
		width:  DefaultWidth,
		height: ContentHeight,
		pos:    Point{X: x, Y: y},
	}
}

// Preferences returns the current anchor configuration.
func (p *Positioner) Preferences() model.Preferences {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prefs
}

// SetPreferences replaces the anchor configuration.
// Returns true if it changed.
func (p *Positioner) SetPreferences(prefs model.Preferences) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.prefs == prefs {
		return false
	}
	p.prefs = prefs
	return true
}

// Width returns the current content width.
func (p *Positioner) Width() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width
}

// SetWidth records a new content width. Non-positive and unchanged
// widths are ignored; returns true if the width changed.
func (p *Positioner) SetWidth(width int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if width <= 0 || width == p.width {
		return false
	}
	p.width = width
	return true
}

// Height returns the row height used for bottom anchors.
func (p *Positioner) Height() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.height
}

// SetHeight records the row height. Non-positive and unchanged heights are
// ignored; returns true if the height changed.
func (p *Positioner) SetHeight(height int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if height <= 0 || height == p.height {
		return false
	}
	p.height = height
	return true
}

// Position returns the last computed position.
func (p *Positioner) Position() Point {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos
}

// Update recomputes the position against the current screen.
// If the screen cannot be queried the row is centered using the last known
// screen width at DefaultY, and the error is returned alongside.
func (p *Positioner) Update(screen ScreenFunc) (Point, error) {
	var (
		rect model.Rect
		err  error
	)
	if screen == nil {
		err = ErrNoScreen
	} else {
		rect, err = screen()
		if err == nil && rect.Empty() {
			err = ErrNoScreen
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		x, y := FallbackPosition(p.screenWidth, p.width)
		p.pos = Point{X: x, Y: y}
		p.logger.Warn("failed to compute overlay position, using default",
			"error", err, "x", x, "y", y)
		return p.pos, fmt.Errorf("failed to query screen: %w", err)
	}

	p.screenWidth = rect.Width
	x, y := ComputeRowPosition(p.prefs.Anchor, p.prefs.OffsetX, p.prefs.OffsetY, rect.Width, rect.Height, p.width, p.height)
	p.pos = Point{X: x, Y: y}
	p.logger.Debug("overlay position updated",
		"anchor", p.prefs.Anchor, "x", x, "y", y, "width", p.width, "screen", rect.String())
	return p.pos, nil
}
