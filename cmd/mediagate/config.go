package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mediagate/pkg/config"
	"mediagate/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage mediagate configuration files.

Configuration is loaded from, highest priority first:
  - Command line flags
  - Environment variables (API_KEY, PORT, MEDIAGATE_*)
  - A .env file in the working directory
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the defaults",
	Long: `Write a configuration file holding every option at its default value.

The file is created as '.mediagate.yaml' in the current directory unless a
different path is given with --config. An existing file is never overwritten.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after all sources are merged.

Secrets are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".mediagate.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	ui.PrintSuccess(cmd.OutOrStdout(), "Configuration written to "+path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	return writeMaskedConfig(cmd.OutOrStdout(), cfg)
}

// writeMaskedConfig prints cfg as YAML with secrets hidden
func writeMaskedConfig(w io.Writer, cfg *config.Config) error {
	masked := *cfg
	masked.YouTube.APIKey = cfg.MaskedAPIKey()
	if masked.RateLimit.Redis.Password != "" {
		masked.RateLimit.Redis.Password = "********"
	}

	data, err := yaml.Marshal(&masked)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	if cfg.YouTube.APIKey == "" {
		cfg.YouTube.APIKey = storedAPIKey()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	out := cmd.OutOrStdout()
	ui.PrintSuccess(out, "Configuration is valid")
	ui.PrintInfo(out, "Listen", cfg.Server.Addr())
	ui.PrintInfo(out, "Rate limit", fmt.Sprintf("%d per %s (%s)", cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window, cfg.RateLimit.Backend))
	ui.PrintInfo(out, "Media", cfg.Media.OutputDir)
	return nil
}
