package daemon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/host"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/layout"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/store"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/theme"
)

func TestHeadlessWindow(t *testing.T) {
	w := NewHeadlessWindow(54, model.Rect{}, nil)

	assert.Error(t, w.Load(nil), "no store attached")
	assert.Equal(t, LoaderError, w.Diagnostics().Status)

	_, err := w.Screen()
	assert.ErrorIs(t, err, ErrHeadless)

	st := store.NewStore(layout.DefaultWidth)
	w.Attach(st)
	ready := false
	require.NoError(t, w.Load(func() { ready = true }))
	assert.True(t, ready)

	st.SetPosition(5, 6)
	rect, ok := w.ContentBounds()
	require.True(t, ok)
	assert.Equal(t, model.Rect{X: 5, Y: 6, Width: layout.DefaultWidth, Height: 54}, rect)

	w.Show()
	assert.True(t, w.Visible())
	require.NoError(t, w.SetLayer(model.LayerBottom))
	assert.Equal(t, model.LayerBottom, w.Layer())

	w.Close()
	assert.False(t, w.Visible())
	assert.Error(t, w.SetMask(rect))
	assert.False(t, w.Diagnostics().WindowValid)
	_, ok = w.ContentBounds()
	assert.False(t, ok)
}

func TestPlugin_Headless(t *testing.T) {
	h := host.NewMemory()
	h.SetScreen(model.Rect{Width: 1920, Height: 1080})
	h.SetPreferences(model.Preferences{Anchor: "top_left", OffsetX: 10, OffsetY: 20})
	h.SetWidgetBar(model.WidgetBar{Width: 300, Visible: true, Layer: model.LayerTop})

	today, current, next := scenario()
	h.ApplySnapshot(model.RuntimeSnapshot{Today: today, Current: current, Next: next, Status: model.StatusClass})

	w := NewHeadlessWindow(54, model.Rect{}, nil)
	p := newTestPlugin(t, quietConfig(), h, w, Inline{}, theme.StaticDetector(true))
	require.NoError(t, p.OnLoad(t.Context()))

	assert.Equal(t, layout.PhaseContentReady, p.Phase())
	assert.True(t, w.Visible())
	assert.Equal(t, model.LayerTop, w.Layer())
	assert.True(t, p.Store().Dark())
	assert.Len(t, p.Store().Lessons(), 2)

	p.widthTick()
	p.geometryTick()
	assert.Equal(t, model.Rect{X: 10, Y: 128, Width: 300, Height: 54}, w.Mask())

	mask, ok := p.Mask()
	require.True(t, ok)
	assert.Equal(t, w.Mask(), mask)

	p.OnUnload()
	assert.False(t, w.Visible())
}
