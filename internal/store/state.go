package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
)

// AppName names the per-user data and config directories.
const AppName = "lessons-displayer"

// DataDir returns the path to the data directory.
// Uses XDG_DATA_HOME or defaults to ~/.local/share/lessons-displayer.
func DataDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, AppName), nil
}

// StateDir returns the path to the state directory used for logs.
// Uses XDG_STATE_HOME or defaults to ~/.local/state/lessons-displayer.
func StateDir() (string, error) {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, AppName), nil
}

// PublishedState is what the daemon last showed, as seen by other processes.
// The daemon keeps it in ~/.local/share/lessons-displayer/state.json.
type PublishedState struct {
	Revision    string                `json:"revision" yaml:"revision"`
	Lessons     []model.DisplayLesson `json:"lessons" yaml:"lessons"`
	Highlight   model.HighlightState  `json:"highlight" yaml:"highlight"`
	Dark        bool                  `json:"dark" yaml:"dark"`
	X           int                   `json:"x" yaml:"x"`
	Y           int                   `json:"y" yaml:"y"`
	Width       int                   `json:"width" yaml:"width"`
	ScrollIndex int                   `json:"scroll_index" yaml:"scroll_index"`
	UpdatedAt   int64                 `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// stateFileMutex protects concurrent access to the state file.
var stateFileMutex sync.RWMutex

// StateFilePath returns the path to the published state file.
func StateFilePath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "state.json"), nil
}

// LoadPublishedState reads the state file at path.
func LoadPublishedState(path string) (*PublishedState, error) {
	stateFileMutex.RLock()
	defer stateFileMutex.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var state PublishedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	return &state, nil
}

// SavePublishedState writes the state file at path atomically.
func SavePublishedState(path string, state PublishedState) error {
	stateFileMutex.Lock()
	defer stateFileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}
