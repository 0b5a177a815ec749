package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatcher_DebouncedArtifactChanges(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"_api/LEDs/led.c": "v1",
		"Target/led.c":    "expanded",
		"_api/LEDs/notes": "ignored",
	})

	w, err := NewWatcher(root, 200*time.Millisecond, nil, "Target")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	batches := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(paths []string) { batches <- paths })
	}()

	// Several rapid writes to one file collapse into a single report.
	for i := 0; i < 3; i++ {
		writeTree(t, root, map[string]string{"_api/LEDs/led.c": "v2"})
	}
	writeTree(t, root, map[string]string{
		"Target/led.c":    "expanded again",
		"_api/LEDs/notes": "still ignored",
	})

	select {
	case got := <-batches:
		assert.Equal(t, []string{"_api/LEDs/led.c"}, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	// A directory created after start is watched too.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "_drivers", "spi"), 0755))
	time.Sleep(100 * time.Millisecond)
	writeTree(t, root, map[string]string{"_drivers/spi/spi.h": "void spi(void);"})

	select {
	case got := <-batches:
		assert.Equal(t, []string{"_drivers/spi/spi.h"}, got)
	case <-time.After(5 * time.Second):
		t.Fatal("change in new directory not reported")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.NoError(t, w.Close())
}

func TestNewWatcher_MissingRoot(t *testing.T) {
	defer goleak.VerifyNone(t)

	_, err := NewWatcher(filepath.Join(t.TempDir(), "absent"), 0, nil)
	assert.Error(t, err)
}

func TestWatcher_TinyDebounce(t *testing.T) {
	defer goleak.VerifyNone(t)

	for _, d := range []time.Duration{time.Nanosecond, 4 * time.Nanosecond, 3 * time.Millisecond} {
		w, err := NewWatcher(t.TempDir(), d, nil)
		require.NoError(t, err)
		assert.Equal(t, minTick, w.tick(), d.String())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		assert.NoError(t, w.Run(ctx, func([]string) {}))
		cancel()
	}

	w, err := NewWatcher(t.TempDir(), time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, w.tick())
	require.NoError(t, w.Close())
}
