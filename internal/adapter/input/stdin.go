package input

import (
	"context"
	"io"
	"os"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
)

// maxSnapshotSize bounds how much is read from any source.
const maxSnapshotSize = 10 * 1024 * 1024

// StdinAdapter reads a snapshot from standard input.
type StdinAdapter struct {
	reader io.Reader
}

// NewStdinAdapter creates a new StdinAdapter reading from os.Stdin.
func NewStdinAdapter() *StdinAdapter {
	return &StdinAdapter{reader: os.Stdin}
}

// NewStdinAdapterWithReader creates a new StdinAdapter with a custom reader.
func NewStdinAdapterWithReader(r io.Reader) *StdinAdapter {
	return &StdinAdapter{reader: r}
}

// Name returns the adapter identifier.
func (a *StdinAdapter) Name() string {
	return "stdin"
}

// Load reads all of standard input and decodes it as JSON or YAML.
func (a *StdinAdapter) Load(ctx context.Context) (*model.RuntimeSnapshot, error) {
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := io.ReadAll(io.LimitReader(a.reader, maxSnapshotSize))
		done <- result{data, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, &AdapterError{
				Source:  "stdin",
				Message: "failed to read stdin",
				Err:     r.err,
			}
		}
		return Decode(r.data, FormatAuto, "stdin")
	}
}
