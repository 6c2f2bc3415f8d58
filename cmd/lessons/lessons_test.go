package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/config"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/store"
)

func TestMain(m *testing.M) {
	logger = slog.New(slog.DiscardHandler)
	os.Exit(m.Run())
}

func scenarioSnapshot() model.RuntimeSnapshot {
	today := []model.ScheduleEntry{
		{ID: "1", Type: model.EntryClass, Title: "Math"},
		{ID: "2", Type: model.EntryBreak},
		{ID: "3", Type: model.EntryActivity, Title: "升旗"},
		{ID: "4", Type: model.EntryActivity, Title: "Assembly"},
		{ID: "5", Type: model.EntryClass, Title: "Art"},
	}
	return model.RuntimeSnapshot{
		Today:     today,
		Current:   &today[0],
		Next:      []model.ScheduleEntry{today[4]},
		Status:    model.StatusClass,
		UpdatedAt: 1700000000,
	}
}

func TestSnapshotSpec(t *testing.T) {
	assert.Equal(t, "a.json", snapshotSpec([]string{"a.json"}, "b.json", "c.json"))
	assert.Equal(t, "b.json", snapshotSpec(nil, "b.json", "c.json"))
	assert.Equal(t, "c.json", snapshotSpec(nil, "", "c.json"))
	assert.Equal(t, "-", snapshotSpec(nil, "", ""))
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		w, h    int
		wantErr bool
	}{
		{"1920x1080", 1920, 1080, false},
		{" 2560X1440 ", 2560, 1440, false},
		{"1920", 0, 0, true},
		{"ax1080", 0, 0, true},
		{"1920x0", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			w, h, err := parseSize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.w, w)
			assert.Equal(t, tt.h, h)
		})
	}
}

func TestNewReconciler_DaemonConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lessonsd.toml")
	dcfg := config.DefaultDaemonConfig()
	dcfg.Lessons.ExcludedActivities = []string{"Assembly"}
	require.NoError(t, config.SaveDaemonConfig(path, dcfg))

	old := globalOpts.daemonConfigPath
	globalOpts.daemonConfigPath = path
	t.Cleanup(func() { globalOpts.daemonConfigPath = old })

	r := reconcile(newReconciler(nil), scenarioSnapshot())
	ids := make([]string, len(r.Lessons))
	for i, l := range r.Lessons {
		ids[i] = l.ID
	}
	assert.Equal(t, []string{"1", "3", "5"}, ids, "flag-raising kept, assembly dropped")

	r = reconcile(newReconciler([]string{"升旗"}), scenarioSnapshot())
	assert.Len(t, r.Lessons, 2)
}

func TestReconcile(t *testing.T) {
	globalOpts.daemonConfigPath = filepath.Join(t.TempDir(), "missing.toml")
	t.Cleanup(func() { globalOpts.daemonConfigPath = "" })

	r := reconcile(newReconciler(nil), scenarioSnapshot())
	require.Len(t, r.Lessons, 3)
	assert.Equal(t, "M", r.Lessons[0].Abbr)
	assert.Equal(t, "1", r.Highlight.CurrentLessonID)
	assert.Equal(t, "5", r.Highlight.NextLessonID)
	assert.Equal(t, time.Unix(1700000000, 0), r.UpdatedAt)
	assert.Empty(t, r.Revision)
}

func TestFormatterOptions(t *testing.T) {
	show := config.DefaultConfig().Show
	opts := formatterOptions(show, "", "")
	assert.Equal(t, [2]string{"[", "]"}, opts.CurrentMarks)
	assert.Equal(t, [2]string{"<", ">"}, opts.NextMarks)

	show.Marks = "()"
	opts = formatterOptions(show, "", "{}")
	assert.Equal(t, [2]string{"(", ")"}, opts.CurrentMarks)
	assert.Equal(t, [2]string{"{", "}"}, opts.NextMarks)

	opts = formatterOptions(show, "toolong", "")
	assert.Equal(t, [2]string{"[", "]"}, opts.CurrentMarks, "malformed marks use the default")
}

func TestWriteState(t *testing.T) {
	now := time.Now()
	rev := model.NewRevision()
	state := &store.PublishedState{
		Revision: rev,
		Lessons: []model.DisplayLesson{
			{ID: "1", Abbr: "数", IsClass: true},
			{ID: "4", Abbr: "英", IsClass: true},
		},
		Highlight: model.HighlightState{CurrentLessonID: "1", NextLessonID: "4", CurrentState: model.StateInClass},
		Dark:      true,
		X:         910,
		Y:         108,
		Width:     100,
	}

	var buf bytes.Buffer
	require.NoError(t, writeState(&buf, state, "daemon", now))
	out := buf.String()
	assert.Contains(t, out, "[数] <英>\n")
	assert.Contains(t, out, "state:    in class")
	assert.Contains(t, out, "revision: "+rev+" (updated now")
	assert.Contains(t, out, "position: 910,108 width 100")
	assert.Contains(t, out, "theme:    dark")

	buf.Reset()
	require.NoError(t, writeState(&buf, &store.PublishedState{}, "state.json", now))
	assert.Contains(t, buf.String(), "(no lessons)")
	assert.Contains(t, buf.String(), "revision: none (updated never)")
	assert.Contains(t, buf.String(), "state:    idle")
}

func TestWriteHistory(t *testing.T) {
	now := time.Now()
	entries := []store.JournalEntry{
		{
			Revision:  model.NewRevision(),
			Lessons:   []model.DisplayLesson{{ID: "1", Abbr: "数", IsClass: true}, {ID: "4", Abbr: "英", IsClass: true}},
			Highlight: model.HighlightState{CurrentLessonID: "1", NextLessonID: "4"},
		},
		{Revision: "bogus"},
	}

	var buf bytes.Buffer
	require.NoError(t, writeHistory(&buf, entries, now))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "now")
	assert.True(t, strings.HasSuffix(lines[0], "[数] <英>"))
	assert.True(t, strings.HasPrefix(lines[1], "unknown"))
	assert.True(t, strings.HasSuffix(lines[1], "(no lessons)"))

	buf.Reset()
	require.NoError(t, writeHistory(&buf, nil, now))
	assert.Equal(t, "(no history)\n", buf.String())
}

func TestWriteIfAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	calls := 0
	write := func() error {
		calls++
		return os.WriteFile(path, []byte("x"), 0o644)
	}

	require.NoError(t, writeIfAbsent(path, false, write))
	require.NoError(t, writeIfAbsent(path, false, write))
	assert.Equal(t, 1, calls, "existing file kept")
	require.NoError(t, writeIfAbsent(path, true, write))
	assert.Equal(t, 2, calls)
}
