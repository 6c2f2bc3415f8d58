// Package core turns the host's raw schedule into the lesson row shown by the overlay.
package core

import (
	"unicode/utf8"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
)

// Unknown is the label used when nothing better can be derived.
const Unknown = "?"

// Labels for entries that have neither a known subject nor a title.
var typeLabels = map[model.EntryType]string{
	model.EntryBreak:       "休",
	model.EntryActivity:    "活",
	model.EntryPreparation: "预",
}

// AbbreviationTable maps a subject id to its short label.
// It is rebuilt on every update and never mutated afterwards.
type AbbreviationTable map[string]string

// BuildAbbreviationTable builds the subject label table for one update.
//
// When subjects is non-empty every subject gets its simplified name, or the
// first character of its full name, or Unknown. Otherwise each distinct
// subject id referenced by today's entries maps to Unknown. An empty day
// yields an empty table.
func BuildAbbreviationTable(today []model.ScheduleEntry, subjects []model.Subject) AbbreviationTable {
	table := make(AbbreviationTable)
	if len(today) == 0 {
		return table
	}

	if len(subjects) > 0 {
		for _, s := range subjects {
			if s.ID == "" {
				continue
			}
			table[s.ID] = subjectLabel(s)
		}
		return table
	}

	for _, e := range today {
		if e.SubjectID != "" {
			table[e.SubjectID] = Unknown
		}
	}
	return table
}

func subjectLabel(s model.Subject) string {
	if s.SimplifiedName != "" {
		return s.SimplifiedName
	}
	if first, ok := firstRune(s.Name); ok {
		return first
	}
	return Unknown
}

// Resolve returns the display label for an entry.
func (t AbbreviationTable) Resolve(entry model.ScheduleEntry) string {
	if entry.SubjectID != "" {
		if label, ok := t[entry.SubjectID]; ok {
			return label
		}
	}
	if first, ok := firstRune(entry.Title); ok {
		return first
	}
	if label, ok := typeLabels[entry.Type]; ok {
		return label
	}
	return Unknown
}

// firstRune returns the first character of s, not the first byte.
func firstRune(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return s[:1], true
	}
	return s[:size], true
}
