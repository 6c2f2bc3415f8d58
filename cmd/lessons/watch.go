package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/dbus"
)

var watchOpts struct {
	json bool
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print lessonsd signals as they are emitted",
	Long: `Subscribe to lessonsd's D-Bus signals and print one line per event:
LessonsUpdated, ScrollRequested, PositionChanged and ThemeChanged.

Runs until interrupted.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&watchOpts.json, "json", false,
		"Output one JSON object per event")
}

func runWatch(cmd *cobra.Command, args []string) error {
	conn, err := dbus.Connect(globalOpts.bus)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	monitor := dbus.NewMonitor(conn, logger)
	monitor.SetEventHandler(func(ev dbus.Event) {
		if watchOpts.json {
			if err := enc.Encode(ev); err != nil {
				logger.Warn("failed to encode event", "error", err)
			}
			return
		}
		fmt.Println(ev.String())
	})
	if err := monitor.Start(); err != nil {
		return err
	}
	defer func() { _ = monitor.Stop() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	return nil
}
