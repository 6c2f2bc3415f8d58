package output

import (
	"fmt"
	"io"
	"strings"
)

// RowFormatter prints the lesson row the way the overlay shows it:
// abbreviations on one line with the current and next lessons marked.
type RowFormatter struct {
	opts FormatterOptions
}

// NewRowFormatter creates a new row formatter.
func NewRowFormatter(opts FormatterOptions) *RowFormatter {
	if opts.Separator == "" {
		opts.Separator = " "
	}
	return &RowFormatter{opts: opts}
}

// Format writes the row followed by a newline. An empty list prints an
// empty line.
func (f *RowFormatter) Format(w io.Writer, r Result) error {
	_, err := fmt.Fprintln(w, f.Row(r))
	return err
}

// Row renders the lessons without a trailing newline.
func (f *RowFormatter) Row(r Result) string {
	cells := make([]string, len(r.Lessons))
	for i, l := range r.Lessons {
		marks := [2]string{}
		switch {
		case l.ID != "" && l.ID == r.Highlight.CurrentLessonID:
			marks = f.opts.CurrentMarks
		case l.ID != "" && l.ID == r.Highlight.NextLessonID:
			marks = f.opts.NextMarks
		}
		cells[i] = marks[0] + l.Abbr + marks[1]
	}
	return strings.Join(cells, f.opts.Separator)
}
