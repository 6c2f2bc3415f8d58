package main

import (
	"github.com/spf13/cobra"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/adapter/input"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/tui"
)

var previewOpts struct {
	snapshot string
	noLive   bool
}

var previewCmd = &cobra.Command{
	Use:   "preview [snapshot]",
	Short: "Preview the lesson row in the terminal",
	Long: `Preview the lesson row for a schedule snapshot in the terminal.

The row is reconciled the same way lessonsd does it, with the current
lesson in [ ] and the next in < >. The snapshot file is reloaded when it
changes unless --no-live is given or live reload is off in the config.

Key bindings:
  h/l, ←/→    Move between lessons
  g/G         First / last lesson
  .           Jump to the current lesson
  enter       Lesson details
  c           Copy the row as text
  C           Copy the row as JSON
  r           Reload the snapshot
  ?           Show help
  q           Quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().StringVar(&previewOpts.snapshot, "snapshot", "",
		"Snapshot file (default from config)")
	previewCmd.Flags().BoolVar(&previewOpts.noLive, "no-live", false,
		"Do not reload when the snapshot file changes")
}

func runPreview(cmd *cobra.Command, args []string) error {
	c := getConfig()
	spec := snapshotSpec(args, previewOpts.snapshot, c.Show.Snapshot)

	// The preview owns the terminal, so stdin cannot carry the snapshot.
	var source input.SnapshotSource
	watchPath := ""
	if spec != "-" && spec != "stdin" {
		var err error
		if source, err = input.NewSource(spec); err != nil {
			return err
		}
		if c.Preview.Live && !previewOpts.noLive {
			watchPath = spec
		}
	} else {
		logger.Warn("no snapshot file given, preview starts empty")
	}

	return tui.Run(tui.RunOptions{
		Config:     c,
		Source:     source,
		Reconciler: newReconciler(nil),
		WatchPath:  watchPath,
		Logger:     logger,
	})
}
