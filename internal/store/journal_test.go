package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
)

func journalEntry(current string) JournalEntry {
	return JournalEntry{
		Revision: model.NewRevision(),
		Lessons: []model.DisplayLesson{
			{ID: "1", Abbr: "数", IsClass: true},
			{ID: "4", Abbr: "英", IsClass: true},
		},
		Highlight: model.HighlightState{CurrentLessonID: current, CurrentState: model.StateInClass},
	}
}

func TestJournal_Record(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "journal.jsonl")
	j, err := OpenJournal(path, 0)
	require.NoError(t, err)
	defer j.Close()
	assert.Equal(t, path, j.Path())

	written, err := j.Record(journalEntry("1"))
	require.NoError(t, err)
	assert.True(t, written)

	written, err = j.Record(journalEntry("1"))
	require.NoError(t, err)
	assert.False(t, written, "same content under a new revision")

	written, err = j.Record(journalEntry("4"))
	require.NoError(t, err)
	assert.True(t, written)

	entries, err := ReadJournal(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "1", entries[0].Highlight.CurrentLessonID)
	assert.Equal(t, "4", entries[1].Highlight.CurrentLessonID)
	assert.False(t, entries[0].Time().IsZero())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `{"lessons_journal_version":1`))
}

func TestJournal_ReopenKeepsLast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := OpenJournal(path, 0)
	require.NoError(t, err)
	_, err = j.Record(journalEntry("1"))
	require.NoError(t, err)
	require.NoError(t, j.Close())

	_, err = j.Record(journalEntry("4"))
	assert.ErrorIs(t, err, ErrJournalClosed)

	j, err = OpenJournal(path, 0)
	require.NoError(t, err)
	defer j.Close()

	written, err := j.Record(journalEntry("1"))
	require.NoError(t, err)
	assert.False(t, written, "last entry survives a reopen")

	entries, err := ReadJournal(path)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestJournal_CompactOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := OpenJournal(path, 0)
	require.NoError(t, err)
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		_, err := j.Record(journalEntry(id))
		require.NoError(t, err)
	}
	require.NoError(t, j.Close())

	j, err = OpenJournal(path, 2)
	require.NoError(t, err)
	defer j.Close()

	entries, err := ReadJournal(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "4", entries[0].Highlight.CurrentLessonID)
	assert.Equal(t, "5", entries[1].Highlight.CurrentLessonID)
	assert.NoFileExists(t, path+".bak")

	written, err := j.Record(journalEntry("6"))
	require.NoError(t, err)
	assert.True(t, written)
	entries, err = ReadJournal(path)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestJournal_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := OpenJournal(path, 0)
	require.NoError(t, err)
	defer j.Close()

	_, err = j.Record(journalEntry("1"))
	require.NoError(t, err)
	require.NoError(t, j.Clear())

	entries, err := ReadJournal(path)
	require.NoError(t, err)
	assert.Empty(t, entries)

	written, err := j.Record(journalEntry("1"))
	require.NoError(t, err)
	assert.True(t, written)
}

func TestReadJournal(t *testing.T) {
	dir := t.TempDir()

	entries, err := ReadJournal(filepath.Join(dir, "missing.jsonl"))
	require.NoError(t, err)
	assert.Nil(t, entries)

	path := filepath.Join(dir, "corrupt.jsonl")
	content := `{"lessons_journal_version":1,"created_at":0}
not json
{"lessons":[]}
{"revision":"01HZZZZZZZZZZZZZZZZZZZZZZZ","lessons":[{"id":"1","abbr":"M","isClass":true}]}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	entries, err = ReadJournal(path)
	require.NoError(t, err)
	require.Len(t, entries, 1, "malformed lines and entries without a revision are skipped")
	assert.Equal(t, "M", entries[0].Lessons[0].Abbr)

	future := filepath.Join(dir, "future.jsonl")
	require.NoError(t, os.WriteFile(future, []byte(`{"lessons_journal_version":99}`+"\n"), 0600))
	_, err = ReadJournal(future)
	assert.Error(t, err)
}
