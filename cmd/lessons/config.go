package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/config"
)

var configOpts struct {
	force bool
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage the lessons CLI config (config.toml) and the lessonsd daemon
config (lessonsd.toml).`,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		cliPath, daemonPath, err := configPaths()
		if err != nil {
			return err
		}
		fmt.Printf("cli:    %s\ndaemon: %s\n", cliPath, daemonPath)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write default config files",
	Long: `Write both config files with their default values. Existing files are
left alone unless --force is given.`,
	RunE: runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configPathCmd, configInitCmd)

	configInitCmd.Flags().BoolVar(&configOpts.force, "force", false,
		"Overwrite existing config files")
}

func configPaths() (string, string, error) {
	cliPath := globalOpts.configPath
	if cliPath == "" {
		cliPath = config.ConfigPath()
	}
	daemonPath := globalOpts.daemonConfigPath
	if daemonPath == "" {
		var err error
		if daemonPath, err = config.DaemonConfigPath(); err != nil {
			return "", "", fmt.Errorf("failed to get daemon config path: %w", err)
		}
	}
	return cliPath, daemonPath, nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cliPath, daemonPath, err := configPaths()
	if err != nil {
		return err
	}

	if err := writeIfAbsent(cliPath, configOpts.force, func() error {
		return config.DefaultConfig().Save(cliPath)
	}); err != nil {
		return err
	}
	return writeIfAbsent(daemonPath, configOpts.force, func() error {
		return config.SaveDaemonConfig(daemonPath, config.DefaultDaemonConfig())
	})
}

func writeIfAbsent(path string, force bool, write func() error) error {
	if _, err := os.Stat(path); err == nil && !force {
		fmt.Printf("exists:  %s\n", path)
		return nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := write(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Printf("wrote:   %s\n", path)
	return nil
}
