package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/adapter/output"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/store"
)

var stateOpts struct {
	format  string
	offline bool
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show what lessonsd is currently displaying",
	Long: `Show the lesson row, highlight, position and theme lessonsd last
published.

The running daemon is asked over D-Bus. When it is not reachable, or with
--offline, the state file the daemon keeps on disk is read instead.`,
	RunE: runState,
}

func init() {
	rootCmd.AddCommand(stateCmd)

	stateCmd.Flags().StringVarP(&stateOpts.format, "format", "f", "plain",
		"Output format (plain, json, yaml)")
	stateCmd.Flags().BoolVar(&stateOpts.offline, "offline", false,
		"Read the state file without contacting the daemon")
}

func runState(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	state, source, err := fetchState(ctx)
	if err != nil {
		return err
	}
	logger.Debug("state loaded", "source", source, "revision", state.Revision)

	switch stateOpts.format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(state); err != nil {
			return err
		}
		return enc.Close()
	case "plain", "":
		return writeState(os.Stdout, state, source, time.Now())
	default:
		return fmt.Errorf("unknown format %q (valid: plain, json, yaml)", stateOpts.format)
	}
}

// fetchState asks the daemon, falling back to the state file.
func fetchState(ctx context.Context) (*store.PublishedState, string, error) {
	if !stateOpts.offline {
		client, err := daemonClient(ctx)
		if err == nil {
			state, err := client.State(ctx)
			if err == nil {
				return state, "daemon", nil
			}
			logger.Warn("failed to query daemon, reading state file", "error", err)
		} else {
			logger.Debug("daemon unavailable, reading state file", "error", err)
		}
	}

	path, err := store.StateFilePath()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get state file path: %w", err)
	}
	state, err := store.LoadPublishedState(path)
	if err != nil {
		return nil, "", err
	}
	return state, path, nil
}

func writeState(w io.Writer, state *store.PublishedState, source string, now time.Time) error {
	result := output.Result{
		Revision:  state.Revision,
		Lessons:   state.Lessons,
		Highlight: state.Highlight,
	}

	updated := "never"
	if t := model.RevisionTime(state.Revision); !t.IsZero() {
		updated = humanize.RelTime(t, now, "ago", "from now")
	}
	theme := "light"
	if state.Dark {
		theme = "dark"
	}
	classState := "idle"
	if state.Highlight.InClass() {
		classState = "in class"
	}

	row := output.NewRowFormatter(formatterOptions(getConfig().Show, "", "")).Row(result)
	if row == "" {
		row = "(no lessons)"
	}

	_, err := fmt.Fprintf(w, "%s\nstate:    %s\nrevision: %s (updated %s)\nposition: %d,%d width %d\ntheme:    %s\nsource:   %s\n",
		row, classState, orNone(state.Revision), updated, state.X, state.Y, state.Width, theme, source)
	return err
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
