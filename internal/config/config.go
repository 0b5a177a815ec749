// Package config handles configuration loading and management for the agent.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

const (
	appName           = "emicagent"
	projectConfigName = ".emicagent.yaml"
	envPrefix         = "EMICAGENT"
)

// Config holds all configuration for the agent.
type Config struct {
	SDK        SDKConfig        `mapstructure:"sdk"`
	Compile    CompileConfig    `mapstructure:"compile"`
	Validation ValidationConfig `mapstructure:"validation"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// SDKConfig locates the EMIC SDK.
type SDKConfig struct {
	Path string `mapstructure:"path"`
}

// CompileConfig holds compile-repair loop settings.
type CompileConfig struct {
	// Command is the compile command line; {project} is replaced by the project path.
	Command string `mapstructure:"command"`
	// Shell runs Command through "sh -c".
	Shell bool `mapstructure:"shell"`
	// MaxAttempts bounds the number of compile attempts per run.
	MaxAttempts int `mapstructure:"max_attempts"`
	// Timeout bounds a single compile command invocation.
	Timeout time.Duration `mapstructure:"timeout"`
	// InsertMarkers inserts location markers before the first attempt.
	InsertMarkers bool `mapstructure:"insert_markers"`
	// MarkerInterval is the number of original lines per marker block.
	MarkerInterval int `mapstructure:"marker_interval"`
	// ExpandedDir holds the expanded tree, relative to the project.
	ExpandedDir string `mapstructure:"expanded_dir"`
}

// ValidationConfig holds rule validator settings.
type ValidationConfig struct {
	EntryFunction     string   `mapstructure:"entry_function"`
	BodyLineThreshold int      `mapstructure:"body_line_threshold"`
	Inventory         string   `mapstructure:"inventory"`
	Disabled          []string `mapstructure:"disabled"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds metrics export settings.
type MetricsConfig struct {
	// Textfile, when set, receives the counters after each run.
	Textfile string `mapstructure:"textfile"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (EMICAGENT_COMPILE_MAX_ATTEMPTS, ...)
// 2. Project config (.emicagent.yaml in current directory or parent)
// 3. User config (~/.config/emicagent/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "reading user config")
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading project config %s", projectConfig)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, errors.Wrap(err, "merging project config")
		}
	}

	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific file on top of the defaults.
func LoadFromPath(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "reading config from %s", path)
	}
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	cfg.SDK.Path = os.ExpandEnv(cfg.SDK.Path)
	cfg.Validation.Inventory = os.ExpandEnv(cfg.Validation.Inventory)
	cfg.Metrics.Textfile = os.ExpandEnv(cfg.Metrics.Textfile)
	if len(cfg.Validation.Disabled) == 0 {
		cfg.Validation.Disabled = nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that cannot drive a run.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Compile.Command) == "":
		return errors.New("compile.command must not be empty")
	case c.Compile.MaxAttempts < 1:
		return errors.Newf("compile.max_attempts must be at least 1, got %d", c.Compile.MaxAttempts)
	case c.Compile.MarkerInterval < 1:
		return errors.Newf("compile.marker_interval must be at least 1, got %d", c.Compile.MarkerInterval)
	case c.Validation.BodyLineThreshold < 1:
		return errors.Newf("validation.body_line_threshold must be at least 1, got %d", c.Validation.BodyLineThreshold)
	case c.Logging.Format != "console" && c.Logging.Format != "json":
		return errors.Newf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return errors.Wrap(err, "creating config directory")
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))
	for _, key := range Keys() {
		value, err := cfg.Value(key)
		if err != nil {
			return err
		}
		v.Set(key, value)
	}

	if err := v.WriteConfig(); err != nil {
		return errors.Wrap(err, "writing user config")
	}
	return nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("sdk.path", d.SDK.Path)

	v.SetDefault("compile.command", d.Compile.Command)
	v.SetDefault("compile.shell", d.Compile.Shell)
	v.SetDefault("compile.max_attempts", d.Compile.MaxAttempts)
	v.SetDefault("compile.timeout", d.Compile.Timeout.String())
	v.SetDefault("compile.insert_markers", d.Compile.InsertMarkers)
	v.SetDefault("compile.marker_interval", d.Compile.MarkerInterval)
	v.SetDefault("compile.expanded_dir", d.Compile.ExpandedDir)

	v.SetDefault("validation.entry_function", d.Validation.EntryFunction)
	v.SetDefault("validation.body_line_threshold", d.Validation.BodyLineThreshold)
	v.SetDefault("validation.inventory", d.Validation.Inventory)
	v.SetDefault("validation.disabled", []string{})

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}

// getUserConfigDir returns the XDG config directory for the agent.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, appName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", appName)
	}
	return filepath.Join(home, ".config", appName)
}

// findProjectConfig searches for .emicagent.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, projectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Compile: CompileConfig{
			Command:        "make -C {project}",
			MaxAttempts:    5,
			Timeout:        10 * time.Minute,
			InsertMarkers:  true,
			MarkerInterval: 10,
			ExpandedDir:    "Target",
		},
		Validation: ValidationConfig{
			EntryFunction:     "main",
			BodyLineThreshold: 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
