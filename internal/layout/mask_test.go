package layout

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
)

func TestMaskTracker_LastGeometryWins(t *testing.T) {
	m := NewMaskTracker()
	var applied []model.Rect
	apply := func(r model.Rect) error {
		applied = append(applied, r)
		return nil
	}

	ok, err := m.Flush(apply)
	require.NoError(t, err)
	assert.False(t, ok, "nothing observed yet")

	m.Observe(model.Rect{X: 1, Y: 2, Width: 3, Height: 4})
	m.Observe(model.Rect{X: 1, Y: 2, Width: 30, Height: 4})
	m.Observe(model.Rect{X: 5, Y: 2, Width: 30, Height: 54})

	ok, err = m.Flush(apply)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []model.Rect{{X: 5, Y: 2, Width: 30, Height: 54}}, applied)

	got, has := m.Applied()
	assert.True(t, has)
	assert.Equal(t, model.Rect{X: 5, Y: 2, Width: 30, Height: 54}, got)
}

func TestMaskTracker_SkipsIdentical(t *testing.T) {
	m := NewMaskTracker()
	calls := 0
	apply := func(model.Rect) error {
		calls++
		return nil
	}

	r := model.Rect{Width: 100, Height: 54}
	m.Observe(r)
	_, _ = m.Flush(apply)
	m.Observe(r)
	assert.False(t, m.Pending())
	ok, err := m.Flush(apply)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, calls)

	m.Reset()
	assert.True(t, m.Pending())
	ok, _ = m.Flush(apply)
	assert.True(t, ok)
	assert.Equal(t, 2, calls)
}

func TestMaskTracker_FailedApplyKeepsPrevious(t *testing.T) {
	m := NewMaskTracker()
	first := model.Rect{Width: 100, Height: 54}
	m.Observe(first)
	_, err := m.Flush(func(model.Rect) error { return nil })
	require.NoError(t, err)

	m.Observe(model.Rect{Width: 200, Height: 54})
	_, err = m.Flush(func(model.Rect) error { return errors.New("no surface") })
	require.Error(t, err)

	got, _ := m.Applied()
	assert.Equal(t, first, got)
	assert.True(t, m.Pending())

	ok, err := m.Flush(func(model.Rect) error { return nil })
	require.NoError(t, err)
	assert.True(t, ok)
	got, _ = m.Applied()
	assert.Equal(t, 200, got.Width)
}

func TestLifecycle(t *testing.T) {
	t.Run("normal path", func(t *testing.T) {
		l := NewLifecycle()
		assert.Equal(t, PhaseCreated, l.Phase())
		assert.True(t, l.BeginLoading())
		assert.False(t, l.BeginLoading())
		assert.Equal(t, PhaseContentLoading, l.Phase())
		assert.True(t, l.MarkReady())
		assert.False(t, l.MarkReady())
		assert.True(t, l.Ready())
		assert.False(t, l.Timeout(), "timeout after ready is a no-op")
		assert.False(t, l.TimedOut())
	})

	t.Run("timeout then late ready", func(t *testing.T) {
		l := NewLifecycle()
		l.BeginLoading()
		assert.True(t, l.Timeout())
		assert.True(t, l.TimedOut())
		assert.False(t, l.Ready())
		assert.True(t, l.MarkReady())
		assert.True(t, l.Ready())
	})

	t.Run("close", func(t *testing.T) {
		l := NewLifecycle()
		assert.True(t, l.Close())
		assert.False(t, l.Close())
		assert.False(t, l.MarkReady())
		assert.False(t, l.Timeout())
		assert.Equal(t, "closed", l.Phase().String())
	})
}
