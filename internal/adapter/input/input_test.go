package input

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
)

const sampleJSON = `{
	"current_day_entries": [
		{"id": "1", "type": "class", "title": "Math", "subjectId": "m"},
		{"id": "2", "type": "break"}
	],
	"current_entry": {"id": "1", "type": "class"},
	"current_status": "class"
}`

const sampleYAML = `
current_day_entries:
  - id: "1"
    type: class
    title: Math
    subjectId: m
  - id: "2"
    type: break
current_entry:
  id: "1"
  type: class
current_status: class
`

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatForPath("/tmp/runtime.JSON"))
	assert.Equal(t, FormatYAML, FormatForPath("runtime.yml"))
	assert.Equal(t, FormatYAML, FormatForPath("runtime.yaml"))
	assert.Equal(t, FormatAuto, FormatForPath("runtime"))
}

func TestDecode(t *testing.T) {
	for _, tc := range []struct {
		name   string
		data   string
		format Format
	}{
		{"json", sampleJSON, FormatJSON},
		{"yaml", sampleYAML, FormatYAML},
		{"auto json", sampleJSON, FormatAuto},
		{"auto yaml", sampleYAML, FormatAuto},
	} {
		t.Run(tc.name, func(t *testing.T) {
			snap, err := Decode([]byte(tc.data), tc.format, "test")
			require.NoError(t, err)
			require.Len(t, snap.Today, 2)
			assert.Equal(t, model.EntryBreak, snap.Today[1].Type)
			require.NotNil(t, snap.Current)
			assert.Equal(t, "1", snap.Current.ID)
			assert.Equal(t, "class", snap.Status)
		})
	}

	t.Run("empty input", func(t *testing.T) {
		snap, err := Decode([]byte("  \n"), FormatJSON, "test")
		require.NoError(t, err)
		assert.Empty(t, snap.Today)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := Decode([]byte("{"), FormatJSON, "test")
		var adapterErr *AdapterError
		require.True(t, errors.As(err, &adapterErr))
		assert.Equal(t, "test", adapterErr.Source)
		assert.NotNil(t, errors.Unwrap(err))
	})

	t.Run("garbage auto", func(t *testing.T) {
		_, err := Decode([]byte("{[}"), FormatAuto, "test")
		assert.Error(t, err)
	})
}

const numericIDsJSON = `{
	"current_day_entries": [
		{"id": 1, "type": "class", "title": "Math", "subjectId": 10},
		{"id": 2, "type": "break"},
		{"id": 3, "type": "activity", "title": "升旗"},
		{"id": 4, "type": "class", "title": "Art", "subjectId": "20"}
	],
	"current_entry": {"id": 1, "type": "class"},
	"next_entries": [{"id": 4, "type": "class"}],
	"subjects": [{"id": 10, "name": "Math", "simplifiedName": "M"}],
	"current_status": "class"
}`

func TestDecode_NumericIDs(t *testing.T) {
	for _, tc := range []struct {
		name   string
		format Format
	}{
		{"json", FormatJSON},
		{"auto", FormatAuto},
	} {
		t.Run(tc.name, func(t *testing.T) {
			snap, err := Decode([]byte(numericIDsJSON), tc.format, "test")
			require.NoError(t, err)
			require.Len(t, snap.Today, 4)
			assert.Equal(t, "1", snap.Today[0].ID)
			assert.Equal(t, "10", snap.Today[0].SubjectID)
			assert.Equal(t, "Math", snap.Today[0].Title)
			assert.Equal(t, "20", snap.Today[3].SubjectID)
			assert.Empty(t, snap.Today[1].SubjectID)
			require.NotNil(t, snap.Current)
			assert.Equal(t, "1", snap.Current.ID)
			require.Len(t, snap.Next, 1)
			assert.Equal(t, "4", snap.Next[0].ID)
			require.Len(t, snap.Subjects, 1)
			assert.Equal(t, "10", snap.Subjects[0].ID)
			assert.Equal(t, "M", snap.Subjects[0].SimplifiedName)
		})
	}

	t.Run("bool id", func(t *testing.T) {
		_, err := Decode([]byte(`{"current_day_entries":[{"id":true,"type":"class"}]}`), FormatJSON, "test")
		assert.Error(t, err)
	})
}

func TestFileAdapter(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "runtime.json")
	yamlPath := filepath.Join(dir, "runtime.yaml")
	require.NoError(t, os.WriteFile(jsonPath, []byte(sampleJSON), 0600))
	require.NoError(t, os.WriteFile(yamlPath, []byte(sampleYAML), 0600))

	for _, path := range []string{jsonPath, yamlPath} {
		a := NewFileAdapter(path)
		assert.Equal(t, "file", a.Name())
		snap, err := a.Load(context.Background())
		require.NoError(t, err, path)
		assert.Len(t, snap.Today, 2)
	}

	_, err := NewFileAdapter(filepath.Join(dir, "missing.json")).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewFileAdapter(jsonPath).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStdinAdapter(t *testing.T) {
	a := NewStdinAdapterWithReader(strings.NewReader(sampleJSON))
	assert.Equal(t, "stdin", a.Name())

	snap, err := a.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Today, 2)
}

func TestNewSource(t *testing.T) {
	src, err := NewSource("-")
	require.NoError(t, err)
	assert.Equal(t, "stdin", src.Name())

	src, err = NewSource("/tmp/x.json")
	require.NoError(t, err)
	assert.Equal(t, "file", src.Name())

	_, err = NewSource("")
	assert.Error(t, err)
}
