package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunTriggersOnceAfterBurst(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, zaptest.NewLogger(t))
	w.Debounce = 100 * time.Millisecond

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) error {
			calls.Add(1)
			return nil
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	for _, name := range []string{"data_program.json", "data_kegiatan.json", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("[]"), 0644))
	}

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 20*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	require.NoError(t, <-done)
}

func TestRunMissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), nil)

	err := w.Run(context.Background(), func(context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to watch")
}

func TestRelevant(t *testing.T) {
	w := New("", nil)

	assert.True(t, w.relevant(fsnotify.Event{Name: "a.json", Op: fsnotify.Write}))
	assert.True(t, w.relevant(fsnotify.Event{Name: "A.JSON", Op: fsnotify.Create}))
	assert.True(t, w.relevant(fsnotify.Event{Name: "a.json", Op: fsnotify.Remove}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "a.json", Op: fsnotify.Chmod}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "a.txt", Op: fsnotify.Write}))

	w.Ext = ""
	assert.True(t, w.relevant(fsnotify.Event{Name: "a.txt", Op: fsnotify.Write}))
}
