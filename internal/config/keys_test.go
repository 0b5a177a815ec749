package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys_RoundTrip(t *testing.T) {
	cfg := Default()
	for _, key := range Keys() {
		value, err := cfg.Get(key)
		require.NoError(t, err, key)

		other := &Config{}
		require.NoError(t, other.Set(key, value), key)
		got, err := other.Get(key)
		require.NoError(t, err, key)
		assert.Equal(t, value, got, key)
	}
}

func TestGet(t *testing.T) {
	cfg := Default()
	cfg.Validation.Disabled = []string{"NonBlocking", "Dependency"}

	tests := map[string]string{
		"compile.command":                "make -C {project}",
		"compile.max_attempts":           "5",
		"compile.timeout":                "10m0s",
		"compile.insert_markers":         "true",
		"validation.body_line_threshold": "20",
		"validation.disabled":            "NonBlocking,Dependency",
		"LOGGING.LEVEL":                  "info",
	}
	for key, want := range tests {
		got, err := cfg.Get(key)
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}

	_, err := cfg.Get("compile.retries")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestSet_Invalid(t *testing.T) {
	cfg := Default()

	assert.Error(t, cfg.Set("compile.max_attempts", "many"))
	assert.Error(t, cfg.Set("compile.insert_markers", "maybe"))
	assert.Error(t, cfg.Set("compile.timeout", "soon"))
	assert.ErrorIs(t, cfg.Set("defaults.tier", "builder"), ErrUnknownKey)

	assert.Equal(t, 5, cfg.Compile.MaxAttempts)
	assert.True(t, cfg.Compile.InsertMarkers)
}

func TestSet_DisabledList(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Set("validation.disabled", " StateMachine ,, NonBlocking "))
	assert.Equal(t, []string{"StateMachine", "NonBlocking"}, cfg.Validation.Disabled)

	require.NoError(t, cfg.Set("validation.disabled", ""))
	assert.Empty(t, cfg.Validation.Disabled)
}
