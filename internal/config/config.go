// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// AppName names the per-user config directory.
const AppName = "lessons-displayer"

// Default configuration values.
const (
	DefaultFormat       = "row"
	DefaultCurrentMark  = "[]"
	DefaultNextMark     = "<>"
	DefaultPreviewWidth = 40
)

// Config represents the lessons CLI configuration.
type Config struct {
	Show    ShowConfig    `toml:"show"`
	Preview PreviewConfig `toml:"preview"`
}

// ShowConfig holds defaults for the show command.
type ShowConfig struct {
	Format   string `toml:"format"`   // plain, json, yaml, row
	Snapshot string `toml:"snapshot"` // Default snapshot file, "-" for stdin
	Marks    string `toml:"marks"`    // Two characters around the current lesson in row output
	Next     string `toml:"next"`     // Two characters around the next lesson in row output
}

// PreviewConfig holds TUI preview settings.
type PreviewConfig struct {
	ShowHelp bool `toml:"show_help"`
	Live     bool `toml:"live"`  // Reload the snapshot when the file changes
	Width    int  `toml:"width"` // Minimum cell row width

	Clipboard string `toml:"clipboard"` // Copy command; auto-detected when empty
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Show: ShowConfig{
			Format: DefaultFormat,
			Marks:  DefaultCurrentMark,
			Next:   DefaultNextMark,
		},
		Preview: PreviewConfig{
			ShowHelp: true,
			Live:     true,
			Width:    DefaultPreviewWidth,
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, AppName, "config.toml")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.Show.Snapshot = expandPath(cfg.Show.Snapshot)
	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// MarkPair splits a two-character mark setting into its halves.
// Anything else yields the fallback pair.
func MarkPair(marks, fallback string) (string, string) {
	r := []rune(marks)
	if len(r) != 2 {
		r = []rune(fallback)
	}
	if len(r) != 2 {
		return "", ""
	}
	return string(r[0]), string(r[1])
}
