package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/adapter/input"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/adapter/output"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/config"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/core"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
)

var showOpts struct {
	snapshot string
	format   string
	template string
	marks    string
	next     string
	noIndex  bool
	exclude  []string
}

var showCmd = &cobra.Command{
	Use:   "show [snapshot]",
	Short: "Reconcile a schedule snapshot and print the lesson row",
	Long: `Reconcile a schedule snapshot offline, exactly as lessonsd would, and
print the resulting lessons and highlight state.

The snapshot is a JSON or YAML file in the host runtime format, or "-"
for standard input.

Examples:
  # Row with the current lesson in [ ] and the next in < >
  lessons show today.json

  # One line per lesson
  lessons show today.yaml --format plain

  # Pipe from another tool
  schedule-export | lessons show - --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVar(&showOpts.snapshot, "snapshot", "",
		"Snapshot file, - for stdin (default from config, else stdin)")
	showCmd.Flags().StringVarP(&showOpts.format, "format", "f", "",
		"Output format (row, plain, json, yaml)")
	showCmd.Flags().StringVar(&showOpts.template, "template", "",
		"Custom Go template for each lesson in plain format")
	showCmd.Flags().StringVar(&showOpts.marks, "marks", "",
		"Two characters around the current lesson in row format")
	showCmd.Flags().StringVar(&showOpts.next, "next", "",
		"Two characters around the next lesson in row format")
	showCmd.Flags().BoolVar(&showOpts.noIndex, "no-index", false,
		"Omit the index prefix in plain format")
	showCmd.Flags().StringSliceVar(&showOpts.exclude, "exclude", nil,
		"Additional activity titles to leave out of the row")
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := getConfig()
	spec := snapshotSpec(args, showOpts.snapshot, c.Show.Snapshot)
	snap, err := loadSnapshot(ctx, spec)
	if err != nil {
		return err
	}

	result := reconcile(newReconciler(showOpts.exclude), *snap)

	format := showOpts.format
	if format == "" {
		format = c.Show.Format
	}
	if !slices.Contains(output.ValidFormats(), output.FormatType(format)) {
		return fmt.Errorf("unknown format %q (valid: %v)", format, output.ValidFormats())
	}

	opts := formatterOptions(c.Show, showOpts.marks, showOpts.next)
	opts.Template = showOpts.template
	opts.ShowIndex = !showOpts.noIndex

	return output.NewFormatter(output.FormatType(format), opts).Format(os.Stdout, result)
}

// snapshotSpec picks the snapshot source: positional argument, flag,
// configured default, then stdin.
func snapshotSpec(args []string, flag, configured string) string {
	switch {
	case len(args) > 0:
		return args[0]
	case flag != "":
		return flag
	case configured != "":
		return configured
	default:
		return "-"
	}
}

func loadSnapshot(ctx context.Context, spec string) (*model.RuntimeSnapshot, error) {
	src, err := input.NewSource(spec)
	if err != nil {
		return nil, err
	}
	logger.Debug("loading snapshot", "source", src.Name(), "spec", spec)
	snap, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return snap, nil
}

// reconcile runs a snapshot through the same path the daemon uses.
func reconcile(rec *core.Reconciler, snap model.RuntimeSnapshot) output.Result {
	lessons, highlight := rec.ReconcileSnapshot(snap)
	r := output.Result{Lessons: lessons, Highlight: highlight}
	if snap.UpdatedAt > 0 {
		r.UpdatedAt = time.Unix(snap.UpdatedAt, 0)
	}
	return r
}

// formatterOptions applies the configured marks, overridden by flags.
func formatterOptions(show config.ShowConfig, marks, next string) output.FormatterOptions {
	opts := output.DefaultFormatterOptions()
	if marks == "" {
		marks = show.Marks
	}
	if next == "" {
		next = show.Next
	}
	open, closing := config.MarkPair(marks, config.DefaultCurrentMark)
	opts.CurrentMarks = [2]string{open, closing}
	open, closing = config.MarkPair(next, config.DefaultNextMark)
	opts.NextMarks = [2]string{open, closing}
	return opts
}
