package compile

import "github.com/EMIC-Electronics/EMIC-DevAgent/internal/sourcemap"

// Config configures the compile-repair loop.
type Config struct {
	// MaxAttempts is the maximum number of compile attempts (default: 5).
	MaxAttempts int
	// InsertMarkers inserts location markers once before the first attempt.
	InsertMarkers bool
	// MarkerInterval is the number of original lines per marker block.
	MarkerInterval int
}

// DefaultConfig returns the default loop configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    5,
		InsertMarkers:  true,
		MarkerInterval: sourcemap.DefaultInterval,
	}
}

// ShouldRetry reports whether another attempt may follow attempt.
func (c Config) ShouldRetry(attempt int) bool {
	return attempt < c.MaxAttempts
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.MarkerInterval <= 0 {
		c.MarkerInterval = d.MarkerInterval
	}
	return c
}
