package input

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
)

// FileAdapter reads a snapshot file written by the host.
// The encoding follows the extension: .json, .yaml or .yml.
type FileAdapter struct {
	path string
}

// NewFileAdapter creates a FileAdapter for path.
func NewFileAdapter(path string) *FileAdapter {
	return &FileAdapter{path: path}
}

// Name returns the adapter identifier.
func (a *FileAdapter) Name() string {
	return "file"
}

// Path returns the snapshot file path.
func (a *FileAdapter) Path() string {
	return a.path
}

// Load reads and decodes the snapshot file.
func (a *FileAdapter) Load(ctx context.Context) (*model.RuntimeSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(a.path)
	if err != nil {
		return nil, &AdapterError{
			Source:  a.path,
			Message: "failed to open snapshot",
			Err:     err,
		}
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSnapshotSize))
	if err != nil {
		return nil, &AdapterError{
			Source:  a.path,
			Message: fmt.Sprintf("failed to read %s", a.path),
			Err:     err,
		}
	}

	return Decode(data, FormatForPath(a.path), a.path)
}
