package inventory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inventory.yaml")
	content := `
sdk_root: /opt/emic/sdk
paths:
  apis:
    - _api/Indicators/LEDs/led.emic
    - _api/Sensors/Temperature/temperature.emic
  drivers:
    - DEV:_drivers/Communication/MQTT/mqtt.emic
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	snap, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/emic/sdk", snap.Root)
	assert.Equal(t, []string{"apis", "drivers"}, snap.Categories())
	assert.Equal(t, 3, snap.Size())
	assert.Len(t, snap.Paths("apis"), 2)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("paths: [unclosed"))
	assert.Error(t, err)
}

func TestContains(t *testing.T) {
	snap := New(map[string][]string{
		"apis": {"_api/Indicators/LEDs/led.emic"},
		"hal":  {"DEV:/_hal/GPIO/gpio.emic"},
	})

	tests := []struct {
		ref  string
		want bool
	}{
		{"_api/Indicators/LEDs/led.emic", true},
		{"DEV:_api/Indicators/LEDs/led.emic", true},
		{"DEV:/_api/Indicators/LEDs/led.emic", true},
		{"/sdk/_hal/GPIO/gpio.emic", true},
		{"_api/Indicators/LEDs/LED.EMIC", true},
		{"_api/Indicators/Buzzer/buzzer.emic", false},
		{"led.emic.bak", false},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, snap.Contains(tt.ref))
		})
	}

	var nilSnap *Snapshot
	assert.False(t, nilSnap.Contains("_api/x.emic"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "_api/x/y.emic", Normalize("DEV:_api/x/y.emic"))
	assert.Equal(t, "_api/x/y.emic", Normalize(" DEV:/_api/x/y.emic "))
	assert.Equal(t, "inc/led.h", Normalize("TARGET:inc/led.h"))
	assert.Equal(t, "_hal/gpio.emic", Normalize(`\_hal\gpio.emic`))
	// single-letter prefixes are Windows drives, not virtual drives
	assert.Equal(t, "C:/sdk/_api/x.emic", Normalize(`C:\sdk\_api\x.emic`))
}
