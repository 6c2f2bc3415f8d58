package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/config"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/core"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/dbus"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/layout"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/store"
)

func runLoop(t *testing.T) *Loop {
	t.Helper()
	l := NewLoop()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run(context.Background())
	}()
	t.Cleanup(func() {
		l.Stop()
		<-done
	})
	return l
}

// onLoop runs fn on the loop and waits for it.
func onLoop(l *Loop, fn func()) {
	done := make(chan struct{})
	l.Dispatch(func() {
		defer close(done)
		fn()
	})
	<-done
}

func TestLoop(t *testing.T) {
	l := NewLoop()
	var got []int
	for i := range 5 {
		l.Dispatch(func() { got = append(got, i) })
	}
	// Nested dispatch runs in the same drain.
	l.Dispatch(func() {
		l.Dispatch(func() { got = append(got, 99) })
	})

	done := make(chan error)
	go func() { done <- l.Run(context.Background()) }()

	onLoop(l, func() {})
	l.Stop()
	l.Stop()
	require.NoError(t, <-done)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 99}, got)

	l.Dispatch(func() { got = append(got, -1) })
	assert.Len(t, got, 6, "dispatch after stop is dropped")
}

func TestLoop_ContextCancel(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Run(ctx), context.Canceled)
}

func TestTicker(t *testing.T) {
	l := runLoop(t)
	var n atomic.Int32
	tk := NewTicker("test", 5*time.Millisecond, l, func() { n.Add(1) }, nil)
	assert.Equal(t, "test", tk.Name())
	assert.False(t, tk.Running())

	tk.Start(t.Context())
	tk.Start(t.Context())
	assert.True(t, tk.Running())

	assert.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, 5*time.Millisecond)

	tk.Stop()
	tk.Stop()
	assert.False(t, tk.Running())

	onLoop(l, func() {})
	stopped := n.Load()
	time.Sleep(30 * time.Millisecond)
	onLoop(l, func() {})
	assert.Equal(t, stopped, n.Load(), "no ticks after stop")
}

func TestTicker_SetInterval(t *testing.T) {
	tk := NewTicker("test", time.Hour, Inline{}, func() {}, nil)
	tk.SetInterval(t.Context(), 0)
	assert.Equal(t, time.Hour, tk.Interval())

	tk.Start(t.Context())
	tk.SetInterval(t.Context(), time.Minute)
	assert.Equal(t, time.Minute, tk.Interval())
	assert.True(t, tk.Running(), "restarted with the new interval")
	tk.Stop()
}

func TestTimers(t *testing.T) {
	var ts Timers
	a := ts.Add(NewTicker("a", time.Hour, Inline{}, func() {}, nil))
	ts.Add(NewTicker("b", time.Hour, Inline{}, func() {}, nil))

	a.Start(t.Context())
	assert.Equal(t, []string{"a"}, ts.Running())

	ts.StopAll()
	assert.Empty(t, ts.Running())
}

func newTestBackend(screen layout.ScreenFunc) *Backend {
	st := store.NewStore(layout.DefaultWidth)
	pos := layout.NewPositioner(model.Preferences{Anchor: "top_left", OffsetX: 10, OffsetY: 20}, nil)
	return NewBackend(st, core.NewReconciler(nil), pos, screen, nil)
}

func fixedScreen(w, h int) layout.ScreenFunc {
	return func() (model.Rect, error) {
		return model.Rect{Width: w, Height: h}, nil
	}
}

func scenario() (today []model.ScheduleEntry, current *model.ScheduleEntry, next []model.ScheduleEntry) {
	today = []model.ScheduleEntry{
		{ID: "1", Type: model.EntryClass, Title: "Math"},
		{ID: "2", Type: model.EntryBreak},
		{ID: "3", Type: model.EntryActivity, Title: "升旗"},
		{ID: "4", Type: model.EntryClass, Title: "Art"},
	}
	return today, &today[0], []model.ScheduleEntry{today[3]}
}

func TestBackend_UpdateLessons(t *testing.T) {
	b := newTestBackend(fixedScreen(1920, 1080))
	today, current, next := scenario()

	rev, err := b.UpdateLessons(today, current, next, model.StatusClass, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, rev)
	assert.Equal(t, rev, b.Store().Revision())

	lessons := b.Store().Lessons()
	require.Len(t, lessons, 2)
	assert.Equal(t, model.DisplayLesson{ID: "1", Abbr: "M", IsClass: true}, lessons[0])
	assert.Equal(t, model.DisplayLesson{ID: "4", Abbr: "A", IsClass: true}, lessons[1])

	h := b.Store().Highlight()
	assert.Equal(t, "1", h.CurrentLessonID)
	assert.Equal(t, "4", h.NextLessonID)
	assert.Equal(t, model.StateInClass, h.CurrentState)
	assert.Empty(t, b.Table(), "no subject ids referenced")
}

func TestBackend_RequestScrollToCurrent(t *testing.T) {
	b := newTestBackend(fixedScreen(1920, 1080))
	assert.False(t, b.RequestScrollToCurrent(), "nothing highlighted")

	today, _, next := scenario()
	_, err := b.UpdateLessons(today, nil, next, "break", nil)
	require.NoError(t, err)

	ch := b.Store().Subscribe()
	defer b.Store().Unsubscribe(ch)

	// Twice: the request repeats even when nothing changed.
	for range 2 {
		require.True(t, b.RequestScrollToCurrent())
		ev := <-ch
		assert.Equal(t, store.ChangeScroll, ev.Type)
		assert.Equal(t, 1, ev.Index, "falls back to the next lesson")
	}
}

func TestBackend_Position(t *testing.T) {
	b := newTestBackend(fixedScreen(1920, 1080))

	pt, err := b.UpdatePosition()
	require.NoError(t, err)
	assert.Equal(t, layout.Point{X: 10, Y: 128}, pt)

	assert.True(t, b.SetPreferences(model.Preferences{Anchor: "bottom_center"}))
	x, y := b.Store().Position()
	assert.Equal(t, 910, x)
	assert.Equal(t, 966, y)
	assert.False(t, b.SetPreferences(model.Preferences{Anchor: "bottom_center"}))

	assert.True(t, b.SetUIWidth(300))
	assert.Equal(t, 300, b.Store().Width())
	x, _ = b.Store().Position()
	assert.Equal(t, 810, x)

	assert.False(t, b.SetUIWidth(300), "unchanged")
	assert.False(t, b.SetUIWidth(0), "non-positive")
}

func TestBackend_PositionWithoutScreen(t *testing.T) {
	b := newTestBackend(func() (model.Rect, error) {
		return model.Rect{}, errors.New("no monitor")
	})

	pt, err := b.UpdatePosition()
	assert.Error(t, err)
	assert.Equal(t, layout.DefaultY, pt.Y)
	x, y := b.Store().Position()
	assert.Equal(t, pt.X, x)
	assert.Equal(t, layout.DefaultY, y, "fallback is still published")
}

func TestBackend_DarkTheme(t *testing.T) {
	b := newTestBackend(nil)
	assert.False(t, b.SetDarkTheme(false), "already light")
	assert.True(t, b.SetDarkTheme(true))
	assert.False(t, b.SetDarkTheme(true))
	assert.True(t, b.Store().Dark())
}

func TestReadyTimeoutError(t *testing.T) {
	err := &ReadyTimeoutError{
		Elapsed: 5 * time.Second,
		Diagnostics: Diagnostics{
			WindowValid: true,
			Children:    0,
			Status:      LoaderError,
			Error:       "theme failed",
		},
	}
	assert.Equal(t,
		"overlay content not ready after 5s (window valid: true, children: 0, loader: error): theme failed",
		err.Error())
	assert.Equal(t, "LoaderStatus(9)", LoaderStatus(9).String())
}

func TestInternalNotifier(t *testing.T) {
	n := NewInternalNotifier(nil)
	n.NotifyConfigReloaded() // no handler

	var got []*dbus.Notification
	n.SetNotifyHandler(func(notification *dbus.Notification) error {
		got = append(got, notification)
		return nil
	})

	n.NotifyConfigError(errors.New("bad anchor"))
	n.NotifyConfigError(errors.New("bad anchor"))
	require.Len(t, got, 1, "same key is rate limited")
	assert.Equal(t, "Configuration Error", got[0].Summary)
	assert.Contains(t, got[0].Body, "bad anchor")
	assert.Equal(t, "dialog-warning", got[0].AppIcon)

	n.NotifyReadyTimeout(errors.New("not ready"))
	require.Len(t, got, 2)
	assert.Equal(t, byte(2), got[1].Hints["urgency"].Value())

	n.SetMinInterval(0)
	n.NotifyConfigError(errors.New("again"))
	assert.Len(t, got, 3)

	n.SetEnabled(false)
	n.NotifyThemeError(errors.New("x"))
	assert.Len(t, got, 3)
}

func TestConfigWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lessonsd.toml")
	require.NoError(t, os.WriteFile(path, []byte("[overlay]\nanchor = \"top_left\"\n"), 0644))

	w := NewConfigWatcher(path, nil)
	assert.Equal(t, path, w.Path())
	w.SetPollInterval(10 * time.Millisecond)

	var mu sync.Mutex
	var reloaded *config.DaemonConfig
	var reloadErr error
	w.SetReloadCallback(func(cfg *config.DaemonConfig) {
		mu.Lock()
		defer mu.Unlock()
		reloaded = cfg
	})
	w.SetErrorCallback(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		reloadErr = err
	})

	initial := config.DefaultDaemonConfig()
	require.NoError(t, w.Start(t.Context(), initial))
	defer w.Stop()
	assert.Same(t, initial, w.Current())

	touch := func(content string, at time.Time) {
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		require.NoError(t, os.Chtimes(path, at, at))
	}

	touch("[overlay]\nanchor = \"bottom_right\"\n", time.Now().Add(2*time.Second))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return reloaded != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "bottom_right", w.Current().Overlay.Anchor)

	touch("[overlay]\nanchor = \"sideways\"\n", time.Now().Add(4*time.Second))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return reloadErr != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "bottom_right", w.Current().Overlay.Anchor, "invalid config is not adopted")
}

func TestConfigWatcher_Check(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lessonsd.toml")
	at := time.Now().Add(-time.Minute)
	write := func(content string) {
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		require.NoError(t, os.Chtimes(path, at, at))
	}
	write("[overlay]\nanchor = \"top_left\"\n")

	w := NewConfigWatcher(path, nil)
	reloads := 0
	errs := 0
	w.SetReloadCallback(func(*config.DaemonConfig) { reloads++ })
	w.SetErrorCallback(func(error) { errs++ })
	w.SetPollInterval(time.Hour)
	require.NoError(t, w.Start(t.Context(), config.DefaultDaemonConfig()))
	defer w.Stop()

	w.Check()
	assert.Equal(t, 0, reloads, "unchanged file is not reloaded")

	write("[overlay]\nanchor = \"bottom_left\"\n")
	w.Check()
	assert.Equal(t, 1, reloads, "same mtime, different size")
	assert.Equal(t, "bottom_left", w.Current().Overlay.Anchor)

	write("[overlay]\nanchor = \"nowhere_at_all\"\n")
	w.Check()
	w.Check()
	assert.Equal(t, 1, errs, "an invalid version is reported once")
	assert.Equal(t, "bottom_left", w.Current().Overlay.Anchor)

	require.NoError(t, os.Remove(path))
	w.Check()
	assert.Equal(t, 1, reloads)
	assert.Equal(t, 1, errs)
}
