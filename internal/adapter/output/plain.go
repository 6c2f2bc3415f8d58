package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
)

// PlainFormatter formats results as plain text, one lesson per line.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts}

	if opts.Template != "" {
		tmpl, err := template.New("plain").Funcs(templateFuncs()).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// templateData is passed to custom templates.
type templateData struct {
	Index   int
	Lesson  model.DisplayLesson
	Current bool
	Next    bool
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": func(s string, maxLen int) string {
			r := []rune(s)
			if maxLen <= 0 || len(r) <= maxLen {
				return s
			}
			return string(r[:maxLen])
		},
		"upper": strings.ToUpper,
	}
}

// Format writes a short header followed by the lessons.
func (f *PlainFormatter) Format(w io.Writer, r Result) error {
	var sb strings.Builder

	if r.Revision != "" {
		sb.WriteString("revision " + r.Revision)
		if !r.UpdatedAt.IsZero() {
			sb.WriteString(" (updated " + humanize.Time(r.UpdatedAt) + ")")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("state: " + stateName(r.Highlight) + "\n")

	for i, l := range r.Lessons {
		data := templateData{
			Index:   i + 1,
			Lesson:  l,
			Current: l.ID != "" && l.ID == r.Highlight.CurrentLessonID,
			Next:    l.ID != "" && l.ID == r.Highlight.NextLessonID,
		}
		if f.template != nil {
			if err := f.template.Execute(&sb, data); err == nil {
				sb.WriteString("\n")
				continue
			}
		}
		sb.WriteString(f.formatLine(data) + "\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func (f *PlainFormatter) formatLine(d templateData) string {
	var parts []string
	if f.opts.ShowIndex {
		parts = append(parts, fmt.Sprintf("[%d]", d.Index))
	}
	parts = append(parts, d.Lesson.Abbr)
	if !d.Lesson.IsClass {
		parts = append(parts, "(activity)")
	}
	switch {
	case d.Current:
		parts = append(parts, "current")
	case d.Next:
		parts = append(parts, "next")
	}
	return strings.Join(parts, " ")
}

func stateName(h model.HighlightState) string {
	if h.InClass() {
		return "in class"
	}
	return "idle"
}
