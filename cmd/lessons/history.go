package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/adapter/output"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/store"
)

var historyOpts struct {
	limit int
	json  bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show how the lesson row changed over time",
	Long: `Show the lesson rows lessonsd recorded in its journal, newest last.
A row is recorded whenever the lessons or the highlighted lesson change.`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyOpts.limit, "limit", "n", 20,
		"Show at most this many entries (0 for all)")
	historyCmd.Flags().BoolVar(&historyOpts.json, "json", false,
		"Output one JSON object per entry")
}

func runHistory(cmd *cobra.Command, args []string) error {
	path, err := store.JournalPath()
	if err != nil {
		return fmt.Errorf("failed to get journal path: %w", err)
	}
	entries, err := store.ReadJournal(path)
	if err != nil {
		return err
	}
	logger.Debug("journal loaded", "path", path, "entries", len(entries))

	if historyOpts.limit > 0 && len(entries) > historyOpts.limit {
		entries = entries[len(entries)-historyOpts.limit:]
	}

	if historyOpts.json {
		enc := json.NewEncoder(os.Stdout)
		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	}
	return writeHistory(os.Stdout, entries, time.Now())
}

func writeHistory(w io.Writer, entries []store.JournalEntry, now time.Time) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "(no history)")
		return err
	}

	f := output.NewRowFormatter(formatterOptions(getConfig().Show, "", ""))
	for _, e := range entries {
		when := "unknown"
		if t := e.Time(); !t.IsZero() {
			when = fmt.Sprintf("%s (%s)", t.Format("15:04:05"), humanize.RelTime(t, now, "ago", "from now"))
		}
		row := f.Row(output.Result{Revision: e.Revision, Lessons: e.Lessons, Highlight: e.Highlight})
		if row == "" {
			row = "(no lessons)"
		}
		if _, err := fmt.Fprintf(w, "%-24s %s\n", when, row); err != nil {
			return err
		}
	}
	return nil
}
