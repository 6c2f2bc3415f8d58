package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/dbus"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
)

var pushCmd = &cobra.Command{
	Use:   "push [snapshot]",
	Short: "Send a schedule snapshot to lessonsd",
	Long: `Send a host runtime snapshot to the running lessonsd over D-Bus.
The daemon reconciles it and updates the lesson row.

Examples:
  lessons push today.json
  schedule-export | lessons push -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPush,
}

var prefsOpts struct {
	anchor  string
	offsetX int
	offsetY int
}

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Send widget anchor preferences to lessonsd",
	Long: `Send the host widget anchor and offsets to the running lessonsd.
The overlay is repositioned when they change.

Example:
  lessons prefs --anchor bottom_right --offset-x 12 --offset-y 4`,
	RunE: runPrefs,
}

var barOpts struct {
	width  int
	hidden bool
	layer  string
	screen string
}

var barCmd = &cobra.Command{
	Use:   "bar",
	Short: "Send widget window state to lessonsd",
	Long: `Send the host widget window width, visibility and stacking layer,
and optionally the screen size, to the running lessonsd.

Example:
  lessons bar --width 320 --layer top --screen 2560x1440`,
	RunE: runBar,
}

func init() {
	rootCmd.AddCommand(pushCmd, prefsCmd, barCmd)

	prefsCmd.Flags().StringVar(&prefsOpts.anchor, "anchor", "top_center",
		"Widget anchor (<top|bottom>_<left|center|right>)")
	prefsCmd.Flags().IntVar(&prefsOpts.offsetX, "offset-x", 0, "Horizontal offset in pixels")
	prefsCmd.Flags().IntVar(&prefsOpts.offsetY, "offset-y", 0, "Vertical offset in pixels")

	barCmd.Flags().IntVar(&barOpts.width, "width", 0, "Widget window width in pixels")
	barCmd.Flags().BoolVar(&barOpts.hidden, "hidden", false, "Widget window is hidden")
	barCmd.Flags().StringVar(&barOpts.layer, "layer", string(model.LayerNormal),
		"Widget window layer (normal, top, bottom)")
	barCmd.Flags().StringVar(&barOpts.screen, "screen", "", "Screen size as WIDTHxHEIGHT")
}

// daemonClient connects to the bus and checks that lessonsd is running.
func daemonClient(ctx context.Context) (*dbus.Client, error) {
	conn, err := dbus.Connect(globalOpts.bus)
	if err != nil {
		return nil, err
	}
	client := dbus.NewClient(conn)
	if !client.Running(ctx) {
		return nil, fmt.Errorf("lessonsd is not running on the %s bus", globalOpts.bus)
	}
	return client, nil
}

func runPush(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snap, err := loadSnapshot(ctx, snapshotSpec(args, "", getConfig().Show.Snapshot))
	if err != nil {
		return err
	}
	client, err := daemonClient(ctx)
	if err != nil {
		return err
	}
	if err := client.UpdateRuntime(ctx, snap); err != nil {
		return err
	}
	logger.Info("snapshot pushed", "entries", len(snap.Today))
	return nil
}

func runPrefs(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := daemonClient(ctx)
	if err != nil {
		return err
	}
	return client.UpdatePreferences(ctx, model.Preferences{
		Anchor:  prefsOpts.anchor,
		OffsetX: prefsOpts.offsetX,
		OffsetY: prefsOpts.offsetY,
	})
}

func runBar(cmd *cobra.Command, args []string) error {
	layer, err := model.ParseLayer(barOpts.layer)
	if err != nil {
		return err
	}
	var sw, sh int
	if barOpts.screen != "" {
		if sw, sh, err = parseSize(barOpts.screen); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := daemonClient(ctx)
	if err != nil {
		return err
	}
	if sw > 0 {
		if err := client.UpdateScreen(ctx, sw, sh); err != nil {
			return err
		}
	}
	return client.UpdateWidgetBar(ctx, model.WidgetBar{
		Width:   barOpts.width,
		Visible: !barOpts.hidden,
		Layer:   layer,
	})
}
