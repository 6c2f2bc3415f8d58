package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/layout"
)

var positionOpts struct {
	anchor  string
	offsetX int
	offsetY int
	screen  string
	width   int
	height  int
	json    bool
}

var positionCmd = &cobra.Command{
	Use:   "position",
	Short: "Compute where the lesson row is placed",
	Long: `Compute the top-left corner of the lesson row for a widget anchor,
offsets, screen size and content width, using the same rules as lessonsd.

Malformed anchors fall back to the horizontal center at y=132.

Examples:
  lessons position --anchor top_center --screen 1920x1080
  lessons position --anchor bottom_left --offset-x 16 --offset-y 8 --width 320`,
	RunE: runPosition,
}

func init() {
	rootCmd.AddCommand(positionCmd)

	positionCmd.Flags().StringVar(&positionOpts.anchor, "anchor", "top_center",
		"Widget anchor (<top|bottom>_<left|center|right>)")
	positionCmd.Flags().IntVar(&positionOpts.offsetX, "offset-x", 0,
		"Horizontal offset in pixels")
	positionCmd.Flags().IntVar(&positionOpts.offsetY, "offset-y", 0,
		"Vertical offset in pixels")
	positionCmd.Flags().StringVar(&positionOpts.screen, "screen", "1920x1080",
		"Screen size as WIDTHxHEIGHT")
	positionCmd.Flags().IntVar(&positionOpts.width, "width", layout.DefaultWidth,
		"Content width in pixels")
	positionCmd.Flags().IntVar(&positionOpts.height, "height", layout.ContentHeight,
		"Row height in pixels (bottom anchors only)")
	positionCmd.Flags().BoolVar(&positionOpts.json, "json", false,
		"Output as JSON")
}

func runPosition(cmd *cobra.Command, args []string) error {
	w, h, err := parseSize(positionOpts.screen)
	if err != nil {
		return err
	}

	if positionOpts.height <= 0 {
		return fmt.Errorf("invalid height %d: must be positive", positionOpts.height)
	}
	x, y := layout.ComputeRowPosition(positionOpts.anchor, positionOpts.offsetX, positionOpts.offsetY,
		w, h, positionOpts.width, positionOpts.height)

	if positionOpts.json {
		return json.NewEncoder(os.Stdout).Encode(struct {
			X int `json:"x"`
			Y int `json:"y"`
		}{x, y})
	}
	fmt.Printf("%d %d\n", x, y)
	return nil
}

// parseSize parses "WIDTHxHEIGHT".
func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q: want WIDTHxHEIGHT", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid width in %q: %w", s, err)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid height in %q: %w", s, err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q: must be positive", s)
	}
	return w, h, nil
}
