package layout

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
)

func TestComputePosition(t *testing.T) {
	tests := []struct {
		name   string
		anchor string
		ox, oy int
		sw, sh int
		cw     int
		wantX  int
		wantY  int
	}{
		{"top left", "top_left", 10, 20, 1920, 1080, 100, 10, 128},
		{"bottom center", "bottom_center", 0, 0, 1920, 1080, 100, 910, 966},
		{"malformed", "weird", 0, 0, 1920, 1080, 100, 910, 132},
		{"too many parts", "top_left_extra", 5, 5, 1920, 1080, 100, 910, 132},
		{"empty", "", 5, 5, 1920, 1080, 100, 910, 132},
		{"upper case", "TOP_RIGHT", 10, 0, 1920, 1080, 100, 1810, 108},
		{"center with offset", "top_center", 15, 0, 1920, 1080, 100, 925, 108},
		{"bottom with offset", "bottom_left", 0, 30, 1920, 1080, 100, 0, 936},
		{"unknown vertical", "middle_left", 7, 99, 1920, 1080, 100, 7, 132},
		{"unknown horizontal ignores offset", "top_middle", 50, 0, 1920, 1080, 100, 910, 108},
		{"odd remainder", "top_center", 0, 0, 1921, 1080, 100, 910, 108},
		{"content wider than screen floors", "top_center", 0, 0, 100, 1080, 101, -1, 108},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := ComputePosition(tt.anchor, tt.ox, tt.oy, tt.sw, tt.sh, tt.cw)
			assert.Equal(t, tt.wantX, x, "x")
			assert.Equal(t, tt.wantY, y, "y")
		})
	}
}

func TestParseAnchor(t *testing.T) {
	a := ParseAnchor(" Bottom_Right ")
	assert.True(t, a.Valid)
	assert.Equal(t, "bottom", a.Vertical)
	assert.Equal(t, "right", a.Horizontal)
	assert.Equal(t, "bottom_right", a.String())

	assert.False(t, ParseAnchor("top").Valid)
	assert.Equal(t, "invalid", ParseAnchor("a_b_c").String())
}

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, 2, floorDiv(5, 2))
	assert.Equal(t, -3, floorDiv(-5, 2))
	assert.Equal(t, -2, floorDiv(-4, 2))
	assert.Equal(t, 0, floorDiv(0, 2))
}

func TestComputeRowPosition(t *testing.T) {
	x, y := ComputeRowPosition("bottom_left", 5, 10, 1920, 1080, 100, 80)
	assert.Equal(t, 5, x)
	assert.Equal(t, 930, y)

	x1, y1 := ComputeRowPosition("bottom_center", 0, 0, 1920, 1080, 100, ContentHeight)
	x2, y2 := ComputePosition("bottom_center", 0, 0, 1920, 1080, 100)
	assert.Equal(t, x2, x1)
	assert.Equal(t, y2, y1)
}

func TestPositioner(t *testing.T) {
	screen := func() (model.Rect, error) {
		return model.Rect{Width: 1920, Height: 1080}, nil
	}

	t.Run("defaults", func(t *testing.T) {
		p := NewPositioner(model.Preferences{Anchor: "top_left"}, nil)
		assert.Equal(t, DefaultWidth, p.Width())
		assert.Equal(t, DefaultY, p.Position().Y)
	})

	t.Run("update", func(t *testing.T) {
		p := NewPositioner(model.Preferences{Anchor: "top_left", OffsetX: 10, OffsetY: 20}, nil)
		pos, err := p.Update(screen)
		require.NoError(t, err)
		assert.Equal(t, Point{X: 10, Y: 128}, pos)
		assert.Equal(t, pos, p.Position())
	})

	t.Run("width changes", func(t *testing.T) {
		p := NewPositioner(model.Preferences{Anchor: "top_center"}, nil)
		assert.False(t, p.SetWidth(DefaultWidth))
		assert.False(t, p.SetWidth(0))
		assert.False(t, p.SetWidth(-5))
		assert.True(t, p.SetWidth(300))
		assert.Equal(t, 300, p.Width())

		pos, err := p.Update(screen)
		require.NoError(t, err)
		assert.Equal(t, 810, pos.X)
	})

	t.Run("height changes bottom anchors only", func(t *testing.T) {
		p := NewPositioner(model.Preferences{Anchor: "bottom_center"}, nil)
		assert.Equal(t, ContentHeight, p.Height())
		pos, err := p.Update(screen)
		require.NoError(t, err)
		assert.Equal(t, 966, pos.Y)

		assert.False(t, p.SetHeight(ContentHeight))
		assert.False(t, p.SetHeight(0))
		assert.True(t, p.SetHeight(80))
		pos, err = p.Update(screen)
		require.NoError(t, err)
		assert.Equal(t, 1080-80-60, pos.Y, "row bottom stays at the same margin")

		p.SetPreferences(model.Preferences{Anchor: "top_center"})
		pos, err = p.Update(screen)
		require.NoError(t, err)
		assert.Equal(t, TopMargin, pos.Y)
	})

	t.Run("preferences changes", func(t *testing.T) {
		p := NewPositioner(model.Preferences{Anchor: "top_left"}, nil)
		assert.False(t, p.SetPreferences(model.Preferences{Anchor: "top_left"}))
		assert.True(t, p.SetPreferences(model.Preferences{Anchor: "bottom_right"}))
		assert.Equal(t, "bottom_right", p.Preferences().Anchor)
	})

	t.Run("screen failure falls back", func(t *testing.T) {
		p := NewPositioner(model.Preferences{Anchor: "top_left", OffsetX: 10}, nil)
		_, err := p.Update(screen)
		require.NoError(t, err)

		pos, err := p.Update(func() (model.Rect, error) { return model.Rect{}, errors.New("gone") })
		require.Error(t, err)
		assert.Equal(t, Point{X: 910, Y: DefaultY}, pos)
	})

	t.Run("no screen at all", func(t *testing.T) {
		p := NewPositioner(model.Preferences{Anchor: "top_left"}, nil)
		pos, err := p.Update(nil)
		require.ErrorIs(t, err, ErrNoScreen)
		assert.Equal(t, Point{X: -50, Y: DefaultY}, pos)
	})

	t.Run("empty screen rect", func(t *testing.T) {
		p := NewPositioner(model.Preferences{Anchor: "top_left"}, nil)
		_, err := p.Update(func() (model.Rect, error) { return model.Rect{}, nil })
		assert.ErrorIs(t, err, ErrNoScreen)
	})
}
