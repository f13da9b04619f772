package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, w *dirWatcher) *atomic.Int32 {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) { calls.Add(1) })
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	return &calls
}

func newTestWatcher(dir string, ignore ...string) *dirWatcher {
	return &dirWatcher{
		dir:      dir,
		debounce: 20 * time.Millisecond,
		ignore:   absPaths(ignore...),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestDirWatcherDebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(dir)
	w.debounce = 300 * time.Millisecond
	calls := startWatcher(t, w)

	file := filepath.Join(dir, "site.cue")
	require.Eventually(t, func() bool {
		if calls.Load() > 0 {
			return true
		}
		for i := 0; i < 5; i++ {
			_ = os.WriteFile(file, []byte("package site\n"), 0o644)
		}
		return false
	}, 10*time.Second, time.Second)

	time.Sleep(2 * w.debounce)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDirWatcherWatchesNewDirectories(t *testing.T) {
	dir := t.TempDir()
	calls := startWatcher(t, newTestWatcher(dir))

	sub := filepath.Join(dir, "data")
	require.Eventually(t, func() bool {
		_ = os.MkdirAll(sub, 0o755)
		return calls.Load() > 0
	}, 10*time.Second, 50*time.Millisecond)

	before := calls.Load()
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(sub, "location.csv"), []byte("uuid,name\n"), 0o644)
		return calls.Load() > before
	}, 10*time.Second, 100*time.Millisecond)
}

func TestDirWatcherIgnoresPaths(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "site.db")
	calls := startWatcher(t, newTestWatcher(dir, db))

	// Ignored writes never trigger; a real change afterwards does.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(db, []byte("x"), 0o644))
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "site.cue"), []byte("package site\n"), 0o644)
		return calls.Load() > 0
	}, 10*time.Second, 100*time.Millisecond)
}

func TestDirWatcherMissingDirectory(t *testing.T) {
	w := newTestWatcher(filepath.Join(t.TempDir(), "missing"))
	err := w.Run(context.Background(), func(context.Context) {})
	require.Error(t, err)
}

func TestAbsPaths(t *testing.T) {
	out := absPaths("", "site.db", "/var/lib/metadeploy.prom")
	require.Len(t, out, 2)
	assert.True(t, filepath.IsAbs(out[0]))
	assert.Equal(t, "/var/lib/metadeploy.prom", out[1])
}
