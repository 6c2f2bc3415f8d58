// Package output provides output formatters for reconciled lesson lists.
package output

import (
	"io"
	"time"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/core"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
)

// Result is one reconciled lesson list with its highlight state.
type Result struct {
	Revision  string                `json:"revision,omitempty" yaml:"revision,omitempty"`
	UpdatedAt time.Time             `json:"updated_at,omitzero" yaml:"updated_at,omitempty"`
	Lessons   []model.DisplayLesson `json:"lessons" yaml:"lessons"`
	Highlight model.HighlightState  `json:"highlight" yaml:"highlight"`
}

// IndexOf returns the position of the lesson with id, or -1.
func (r Result) IndexOf(id string) int {
	return core.IndexOf(r.Lessons, id)
}

// Formatter formats lesson lists for output.
type Formatter interface {
	// Format writes the formatted result to the writer.
	Format(w io.Writer, r Result) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatRow   FormatType = "row"
)

// ValidFormats returns all supported format names.
func ValidFormats() []FormatType {
	return []FormatType{FormatPlain, FormatJSON, FormatYAML, FormatRow}
}

// NewFormatter creates a formatter for the specified format type.
// Unknown formats use the row formatter.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter(opts)
	case FormatPlain:
		return NewPlainFormatter(opts)
	case FormatRow:
		fallthrough
	default:
		return NewRowFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template     string    // Custom per-lesson template for plain format
	ShowIndex    bool      // Show 1-based index prefix
	Separator    string    // Separator between lessons in row format
	CurrentMarks [2]string // Wrapped around the current lesson in row format
	NextMarks    [2]string // Wrapped around the next lesson in row format
}

// DefaultFormatterOptions returns sensible defaults.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex:    true,
		Separator:    " ",
		CurrentMarks: [2]string{"[", "]"},
		NextMarks:    [2]string{"<", ">"},
	}
}
