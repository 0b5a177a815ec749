package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify emicagent configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/emicagent/config.yaml
Project-specific overrides can be placed in .emicagent.yaml`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		switch len(args) {
		case 0:
			return displayAllConfig(cmd, cfg)
		case 1:
			return displayConfigKey(cmd, cfg, args[0])
		default:
			return setConfigKey(cmd, cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cmd *cobra.Command, cfg *config.Config) error {
	out := cmd.OutOrStdout()
	for _, key := range config.Keys() {
		value, err := cfg.Get(key)
		if err != nil {
			return err
		}
		if value == "" {
			value = "(not set)"
		}
		fmt.Fprintf(out, "%s: %s\n", key, value)
	}
	if path := config.GetProjectConfigPath(); path != "" {
		fmt.Fprintf(out, "\nproject config: %s\n", path)
	}
	fmt.Fprintf(out, "user config: %s\n", config.GetUserConfigPath())
	return nil
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cmd *cobra.Command, cfg *config.Config, key string) error {
	value, err := cfg.Get(key)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

// setConfigKey sets a configuration value and saves the user config.
// Values that came from the project config or environment are saved too.
func setConfigKey(cmd *cobra.Command, cfg *config.Config, key, value string) error {
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return errors.Wrap(err, "saving config")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
	return nil
}
