package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
)

// JournalSchemaVersion is the current journal schema version.
const JournalSchemaVersion = 1

// JournalEntry is one change of the lesson row or its highlight.
type JournalEntry struct {
	Revision  string                `json:"revision"`
	Lessons   []model.DisplayLesson `json:"lessons"`
	Highlight model.HighlightState  `json:"highlight"`
}

// Time returns when the entry was published.
func (e JournalEntry) Time() time.Time {
	return model.RevisionTime(e.Revision)
}

func (e JournalEntry) sameContent(o JournalEntry) bool {
	return e.Highlight == o.Highlight && slices.Equal(e.Lessons, o.Lessons)
}

// journalHeader is the first line of the JSONL file.
type journalHeader struct {
	SchemaVersion int   `json:"lessons_journal_version"`
	CreatedAt     int64 `json:"created_at"`
}

// ErrJournalClosed is returned when operations are attempted on a closed journal.
var ErrJournalClosed = errors.New("journal is closed")

// Journal is an append-only JSONL log of what the overlay displayed.
// Consecutive updates with the same content are recorded once.
type Journal struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	last   *JournalEntry
	closed bool
}

// JournalPath returns the default journal location.
func JournalPath() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "journal.jsonl"), nil
}

// OpenJournal opens or creates the journal at path. When it holds more
// than limit entries it is compacted to the newest limit; limit <= 0 keeps
// everything.
func OpenJournal(path string, limit int) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	entries, err := ReadJournal(path)
	if err != nil {
		return nil, err
	}

	j := &Journal{path: path}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
		if err := j.rewrite(entries); err != nil {
			return nil, err
		}
	} else if err := j.open(); err != nil {
		return nil, err
	}
	if n := len(entries); n > 0 {
		last := entries[n-1]
		j.last = &last
	}
	return j, nil
}

func (j *Journal) open() error {
	file, err := os.OpenFile(j.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", j.path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	j.file = file
	if info.Size() == 0 {
		if err := j.writeHeader(); err != nil {
			file.Close()
			j.file = nil
			return err
		}
	}
	return nil
}

func (j *Journal) writeHeader() error {
	data, err := json.Marshal(journalHeader{
		SchemaVersion: JournalSchemaVersion,
		CreatedAt:     time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	_, err = j.file.Write(append(data, '\n'))
	return err
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

// Record appends an entry unless its content equals the last one.
// Returns whether it was written.
func (j *Journal) Record(e JournalEntry) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed || j.file == nil {
		return false, ErrJournalClosed
	}
	if j.last != nil && j.last.sameContent(e) {
		return false, nil
	}

	data, err := json.Marshal(e)
	if err != nil {
		return false, err
	}
	if _, err := j.file.Write(append(data, '\n')); err != nil {
		return false, err
	}
	j.last = &e
	return true, j.file.Sync()
}

// rewrite replaces the file with entries, keeping a backup until the new
// file is complete.
func (j *Journal) rewrite(entries []JournalEntry) error {
	if j.file != nil {
		if err := j.file.Close(); err != nil {
			return err
		}
		j.file = nil
	}

	backupPath := j.path + ".bak"
	if err := os.Rename(j.path, backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	file, err := os.OpenFile(j.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC|os.O_APPEND, 0600)
	if err != nil {
		os.Rename(backupPath, j.path)
		return fmt.Errorf("failed to create new file: %w", err)
	}
	j.file = file

	if err := j.writeHeader(); err != nil {
		return err
	}
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := j.file.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	if err := j.file.Sync(); err != nil {
		return err
	}

	os.Remove(backupPath)
	return nil
}

// Clear removes all entries.
func (j *Journal) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrJournalClosed
	}
	j.last = nil
	return j.rewrite(nil)
}

// Close releases the file handle.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true

	if j.file != nil {
		err := j.file.Close()
		j.file = nil
		return err
	}
	return nil
}

// ReadJournal reads every entry at path without opening it for writing.
// A missing file is an empty journal; malformed lines are skipped.
func ReadJournal(path string) ([]JournalEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var entries []JournalEntry
	scanner := bufio.NewScanner(file)

	const maxLineSize = 1024 * 1024 // 1MB
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		if lineNum == 1 {
			var header journalHeader
			if err := json.Unmarshal(line, &header); err == nil && header.SchemaVersion > 0 {
				if header.SchemaVersion > JournalSchemaVersion {
					return nil, fmt.Errorf("unsupported journal version %d (max: %d)",
						header.SchemaVersion, JournalSchemaVersion)
				}
				continue
			}
		}

		var e JournalEntry
		if err := json.Unmarshal(line, &e); err != nil || e.Revision == "" {
			continue
		}
		entries = append(entries, e)
	}

	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("error reading file: %w", err)
	}
	return entries, nil
}
