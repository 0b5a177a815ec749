package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrUnknownKey is returned for a configuration key the agent does not know.
var ErrUnknownKey = errors.New("unknown configuration key")

var keys = []string{
	"sdk.path",
	"compile.command",
	"compile.shell",
	"compile.max_attempts",
	"compile.timeout",
	"compile.insert_markers",
	"compile.marker_interval",
	"compile.expanded_dir",
	"validation.entry_function",
	"validation.body_line_threshold",
	"validation.inventory",
	"validation.disabled",
	"logging.level",
	"logging.format",
	"metrics.textfile",
}

// Keys returns every configuration key in display order.
func Keys() []string {
	return append([]string(nil), keys...)
}

// Value returns the typed value stored under a dot-notation key.
func (c *Config) Value(key string) (interface{}, error) {
	switch strings.ToLower(key) {
	case "sdk.path":
		return c.SDK.Path, nil
	case "compile.command":
		return c.Compile.Command, nil
	case "compile.shell":
		return c.Compile.Shell, nil
	case "compile.max_attempts":
		return c.Compile.MaxAttempts, nil
	case "compile.timeout":
		return c.Compile.Timeout.String(), nil
	case "compile.insert_markers":
		return c.Compile.InsertMarkers, nil
	case "compile.marker_interval":
		return c.Compile.MarkerInterval, nil
	case "compile.expanded_dir":
		return c.Compile.ExpandedDir, nil
	case "validation.entry_function":
		return c.Validation.EntryFunction, nil
	case "validation.body_line_threshold":
		return c.Validation.BodyLineThreshold, nil
	case "validation.inventory":
		return c.Validation.Inventory, nil
	case "validation.disabled":
		return append([]string{}, c.Validation.Disabled...), nil
	case "logging.level":
		return c.Logging.Level, nil
	case "logging.format":
		return c.Logging.Format, nil
	case "metrics.textfile":
		return c.Metrics.Textfile, nil
	default:
		return nil, errors.Wrapf(ErrUnknownKey, "%s", key)
	}
}

// Get returns the value stored under key formatted for display.
func (c *Config) Get(key string) (string, error) {
	v, err := c.Value(key)
	if err != nil {
		return "", err
	}
	if list, ok := v.([]string); ok {
		return strings.Join(list, ","), nil
	}
	return fmt.Sprint(v), nil
}

// Set parses value and stores it under key.
func (c *Config) Set(key, value string) error {
	switch strings.ToLower(key) {
	case "sdk.path":
		c.SDK.Path = value
	case "compile.command":
		c.Compile.Command = value
	case "compile.shell":
		return setBool(&c.Compile.Shell, key, value)
	case "compile.max_attempts":
		return setInt(&c.Compile.MaxAttempts, key, value)
	case "compile.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return errors.Wrapf(err, "invalid duration for %s", key)
		}
		c.Compile.Timeout = d
	case "compile.insert_markers":
		return setBool(&c.Compile.InsertMarkers, key, value)
	case "compile.marker_interval":
		return setInt(&c.Compile.MarkerInterval, key, value)
	case "compile.expanded_dir":
		c.Compile.ExpandedDir = value
	case "validation.entry_function":
		c.Validation.EntryFunction = value
	case "validation.body_line_threshold":
		return setInt(&c.Validation.BodyLineThreshold, key, value)
	case "validation.inventory":
		c.Validation.Inventory = value
	case "validation.disabled":
		c.Validation.Disabled = nil
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				c.Validation.Disabled = append(c.Validation.Disabled, name)
			}
		}
	case "logging.level":
		c.Logging.Level = value
	case "logging.format":
		c.Logging.Format = value
	case "metrics.textfile":
		c.Metrics.Textfile = value
	default:
		return errors.Wrapf(ErrUnknownKey, "%s", key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return errors.Wrapf(err, "invalid integer for %s", key)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return errors.Wrapf(err, "invalid boolean for %s", key)
	}
	*dst = b
	return nil
}
