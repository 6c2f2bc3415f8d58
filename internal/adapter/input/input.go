// Package input provides input adapters for host runtime snapshots.
package input

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
)

// SnapshotSource loads a host runtime snapshot.
type SnapshotSource interface {
	// Name returns the adapter identifier (e.g., "file", "stdin").
	Name() string

	// Load reads one snapshot from the source.
	Load(ctx context.Context) (*model.RuntimeSnapshot, error)
}

// Format is a snapshot encoding.
type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the snapshot encoding from a file extension.
// Unknown extensions fall back to auto detection.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatAuto
	}
}

// NewSource creates a SnapshotSource for spec: "-" or "stdin" reads
// standard input, anything else is a file path.
func NewSource(spec string) (SnapshotSource, error) {
	switch spec {
	case "":
		return nil, &AdapterError{
			Source:  spec,
			Message: "no snapshot source given",
		}
	case "-", "stdin":
		return NewStdinAdapter(), nil
	default:
		return NewFileAdapter(spec), nil
	}
}

// Decode parses a snapshot. FormatAuto tries JSON first, then YAML.
func Decode(data []byte, format Format, source string) (*model.RuntimeSnapshot, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return &model.RuntimeSnapshot{}, nil
	}

	var snap model.RuntimeSnapshot
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, &AdapterError{Source: source, Message: "failed to parse JSON snapshot", Err: err}
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &snap); err != nil {
			return nil, &AdapterError{Source: source, Message: "failed to parse YAML snapshot", Err: err}
		}
	default:
		if err := json.Unmarshal(data, &snap); err != nil {
			snap = model.RuntimeSnapshot{}
			if yerr := yaml.Unmarshal(data, &snap); yerr != nil {
				return nil, &AdapterError{Source: source, Message: "snapshot is neither JSON nor YAML", Err: err}
			}
		}
	}
	return &snap, nil
}

// AdapterError represents an adapter-related error.
type AdapterError struct {
	Source  string
	Message string
	Err     error
}

func (e *AdapterError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
