package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "500ms", "1s", "1m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	// Try parsing as integer (milliseconds)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '500ms', '1s', '1m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Milliseconds returns the duration in milliseconds.
func (d Duration) Milliseconds() int {
	return int(time.Duration(d).Milliseconds())
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DaemonConfig is the configuration for lessonsd.
// Loaded from ~/.config/lessons-displayer/lessonsd.toml
type DaemonConfig struct {
	Overlay OverlayConfig `toml:"overlay"`
	Host    HostConfig    `toml:"host"`
	Timers  TimerConfig   `toml:"timers"`
	Theme   ThemeConfig   `toml:"theme"`
	Lessons LessonsConfig `toml:"lessons"`
	Log     LogConfig     `toml:"log"`
}

// OverlayConfig positions the lesson row. Anchor and offsets are used
// until the host reports its own widget preferences.
type OverlayConfig struct {
	Anchor        string `toml:"anchor"`         // "<top|bottom>_<left|center|right>"
	OffsetX       int    `toml:"offset_x"`       // Pixels, meaning depends on anchor
	OffsetY       int    `toml:"offset_y"`       // Pixels, meaning depends on anchor
	DefaultWidth  int    `toml:"default_width"`  // Content width before the host reports one
	ContentHeight int    `toml:"content_height"` // Height of the lesson row
	Monitor       int    `toml:"monitor"`        // 0 = compositor default, 1+ = specific monitor
	Namespace     string `toml:"namespace"`      // Layer-shell namespace
}

// HostConfig selects where host data comes from.
type HostConfig struct {
	Source       string `toml:"source"`        // "dbus" or "file"
	SnapshotPath string `toml:"snapshot_path"` // Watched when source = "file"
	Bus          string `toml:"bus"`           // "session" or "system"
}

// TimerConfig holds the polling intervals.
type TimerConfig struct {
	Scroll       Duration `toml:"scroll"`
	ThemePoll    Duration `toml:"theme_poll"`
	WidthPoll    Duration `toml:"width_poll"`
	LayerSync    Duration `toml:"layer_sync"`
	GeometryPoll Duration `toml:"geometry_poll"`
	ReadyTimeout Duration `toml:"ready_timeout"`
	ConfigPoll   Duration `toml:"config_poll"`
}

// ThemeConfig contains theme settings.
type ThemeConfig struct {
	Name        string `toml:"name"`         // Theme name without .css extension
	ColorScheme string `toml:"color_scheme"` // "system", "light", or "dark"
	Detector    string `toml:"detector"`     // "portal" or "adwaita", used with "system"
}

// LessonsConfig tunes lesson filtering. Read once at startup.
type LessonsConfig struct {
	ExcludedActivities []string `toml:"excluded_activities"`
	JournalLimit       int      `toml:"journal_limit"` // Journal entries kept, 0 disables the journal
}

// LogConfig controls the daemon log file.
type LogConfig struct {
	File    string `toml:"file"`     // Empty disables the log file
	MaxSize int64  `toml:"max_size"` // Bytes before rotating to .1 on start
	Level   string `toml:"level"`    // "debug", "info", "warn", "error"
}

// Host sources.
const (
	SourceDBus = "dbus"
	SourceFile = "file"
)

// Theme detectors.
const (
	DetectorPortal  = "portal"
	DetectorAdwaita = "adwaita"
)

// ColorScheme represents the color scheme preference.
type ColorScheme string

const (
	ColorSchemeSystem ColorScheme = "system"
	ColorSchemeLight  ColorScheme = "light"
	ColorSchemeDark   ColorScheme = "dark"
)

// ValidColorSchemes returns all valid color scheme values.
func ValidColorSchemes() []ColorScheme {
	return []ColorScheme{ColorSchemeSystem, ColorSchemeLight, ColorSchemeDark}
}

// Anchor represents where the host widget bar is anchored.
type Anchor string

const (
	AnchorTopLeft      Anchor = "top_left"
	AnchorTopCenter    Anchor = "top_center"
	AnchorTopRight     Anchor = "top_right"
	AnchorBottomLeft   Anchor = "bottom_left"
	AnchorBottomCenter Anchor = "bottom_center"
	AnchorBottomRight  Anchor = "bottom_right"
)

// ValidAnchors returns all valid anchor values.
func ValidAnchors() []Anchor {
	return []Anchor{
		AnchorTopLeft,
		AnchorTopCenter,
		AnchorTopRight,
		AnchorBottomLeft,
		AnchorBottomCenter,
		AnchorBottomRight,
	}
}

// DefaultDaemonConfig returns a new DaemonConfig with default values.
func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		Overlay: OverlayConfig{
			Anchor:        string(AnchorTopCenter),
			OffsetX:       0,
			OffsetY:       0,
			DefaultWidth:  100,
			ContentHeight: 54,
			Monitor:       0,
			Namespace:     "lessons-displayer",
		},
		Host: HostConfig{
			Source: SourceDBus,
			Bus:    "session",
		},
		Timers: TimerConfig{
			Scroll:       Duration(time.Second),
			ThemePoll:    Duration(time.Second),
			WidthPoll:    Duration(500 * time.Millisecond),
			LayerSync:    Duration(time.Second),
			GeometryPoll: Duration(250 * time.Millisecond),
			ReadyTimeout: Duration(5 * time.Second),
			ConfigPoll:   Duration(time.Second),
		},
		Theme: ThemeConfig{
			Name:        "default",
			ColorScheme: string(ColorSchemeSystem),
			Detector:    DetectorPortal,
		},
		Lessons: LessonsConfig{
			ExcludedActivities: []string{"大课间", "升旗"},
			JournalLimit:       500,
		},
		Log: LogConfig{
			MaxSize: 1 << 20,
			Level:   "info",
		},
	}
}

// DaemonConfigPath returns the path to the daemon config file.
func DaemonConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName, "lessonsd.toml"), nil
}

// LoadDaemonConfig loads the daemon configuration from the default path.
// If the file doesn't exist, returns the default configuration.
func LoadDaemonConfig() (*DaemonConfig, error) {
	path, err := DaemonConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadDaemonConfigFrom(path)
}

// LoadDaemonConfigFrom loads the daemon configuration from path.
func LoadDaemonConfigFrom(path string) (*DaemonConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultDaemonConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	config := DefaultDaemonConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	config.Host.SnapshotPath = expandPath(config.Host.SnapshotPath)
	config.Log.File = expandPath(config.Log.File)
	return config, nil
}

// SaveDaemonConfig saves the daemon configuration to path.
func SaveDaemonConfig(path string, config *DaemonConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *DaemonConfig) Validate() error {
	validAnchor := false
	for _, a := range ValidAnchors() {
		if strings.EqualFold(c.Overlay.Anchor, string(a)) {
			validAnchor = true
			break
		}
	}
	if !validAnchor {
		return fmt.Errorf("invalid anchor %q, must be one of: %v", c.Overlay.Anchor, ValidAnchors())
	}

	if c.Overlay.DefaultWidth <= 0 {
		return fmt.Errorf("default_width must be positive, got %d", c.Overlay.DefaultWidth)
	}
	if c.Overlay.ContentHeight <= 0 {
		return fmt.Errorf("content_height must be positive, got %d", c.Overlay.ContentHeight)
	}
	if c.Overlay.Monitor < 0 {
		return fmt.Errorf("monitor must be 0 or greater, got %d", c.Overlay.Monitor)
	}

	switch c.Host.Source {
	case SourceDBus:
	case SourceFile:
		if c.Host.SnapshotPath == "" {
			return fmt.Errorf("host source %q requires snapshot_path", SourceFile)
		}
	default:
		return fmt.Errorf("invalid host source %q, must be %q or %q", c.Host.Source, SourceDBus, SourceFile)
	}
	if c.Host.Bus != "session" && c.Host.Bus != "system" {
		return fmt.Errorf("invalid bus %q, must be \"session\" or \"system\"", c.Host.Bus)
	}

	for name, d := range map[string]Duration{
		"scroll":        c.Timers.Scroll,
		"theme_poll":    c.Timers.ThemePoll,
		"width_poll":    c.Timers.WidthPoll,
		"layer_sync":    c.Timers.LayerSync,
		"geometry_poll": c.Timers.GeometryPoll,
		"ready_timeout": c.Timers.ReadyTimeout,
		"config_poll":   c.Timers.ConfigPoll,
	} {
		if d.Duration() <= 0 {
			return fmt.Errorf("timers.%s must be positive, got %s", name, d.Duration())
		}
	}

	validScheme := false
	for _, s := range ValidColorSchemes() {
		if c.Theme.ColorScheme == string(s) {
			validScheme = true
			break
		}
	}
	if c.Lessons.JournalLimit < 0 {
		return fmt.Errorf("lessons.journal_limit must not be negative, got %d", c.Lessons.JournalLimit)
	}
	if !validScheme {
		return fmt.Errorf("invalid color_scheme %q, must be one of: %v", c.Theme.ColorScheme, ValidColorSchemes())
	}
	if c.Theme.Detector != DetectorPortal && c.Theme.Detector != DetectorAdwaita {
		return fmt.Errorf("invalid theme detector %q, must be %q or %q", c.Theme.Detector, DetectorPortal, DetectorAdwaita)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	if c.Log.MaxSize < 0 {
		return fmt.Errorf("log max_size must not be negative, got %d", c.Log.MaxSize)
	}

	return nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
