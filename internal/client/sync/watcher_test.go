package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rjeczalik/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVaultWatcher(t *testing.T) {
	w := NewVaultWatcher("/test/path")

	assert.Equal(t, "/test/path", w.watchDir)
	assert.Nil(t, w.events)
	assert.Nil(t, w.rawEvents)
	assert.NotNil(t, w.ignore)
	assert.NotNil(t, w.done)
	assert.Empty(t, w.ignore)
}

func TestVaultWatcherBasic(t *testing.T) {
	tempDir := t.TempDir()

	// tmpdir may be a symlink on macos, notify reports the resolved path
	tempDir, err := filepath.EvalSymlinks(tempDir)
	require.NoError(t, err)

	w := NewVaultWatcher(tempDir)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	events := w.Events()

	testFile := filepath.Join(tempDir, "test.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("hello world"), 0o644))

	select {
	case event := <-events:
		assert.Equal(t, testFile, event.Path())
	case <-time.After(2 * time.Second):
		assert.FailNow(t, "timeout waiting for file event")
	}
}

func TestVaultWatcherIgnoreOnce(t *testing.T) {
	tempDir := t.TempDir()
	tempDir, err := filepath.EvalSymlinks(tempDir)
	require.NoError(t, err)

	w := NewVaultWatcher(tempDir)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	events := w.Events()

	testFile := filepath.Join(tempDir, "quiet.txt")
	w.IgnoreOnce(testFile)
	require.NoError(t, os.WriteFile(testFile, []byte("suppressed"), 0o644))

	select {
	case event := <-events:
		assert.FailNow(t, "expected no event", "got %v", event)
	case <-time.After(500 * time.Millisecond):
	}

	// the suppression is consumed, the next write comes through
	require.NoError(t, os.WriteFile(testFile, []byte("visible"), 0o644))
	select {
	case event := <-events:
		assert.Equal(t, testFile, event.Path())
	case <-time.After(2 * time.Second):
		assert.FailNow(t, "timeout waiting for second event")
	}
}

func TestVaultWatcherDebounceCollapsesBursts(t *testing.T) {
	w := NewVaultWatcher(t.TempDir())
	w.events = make(chan notify.EventInfo, eventBufferSize)
	w.SetDebounceTimeout(20 * time.Millisecond)

	for i := 0; i < 5; i++ {
		w.debounceEvent(fakeEvent{path: "/vault/burst.md"})
	}

	time.Sleep(100 * time.Millisecond)
	assert.Len(t, w.events, 1)
}

func TestVaultWatcherFilterCallback(t *testing.T) {
	tempDir := t.TempDir()
	tempDir, err := filepath.EvalSymlinks(tempDir)
	require.NoError(t, err)

	w := NewVaultWatcher(tempDir)
	w.FilterPaths(func(path string) bool {
		return filepath.Ext(path) == ".tmp"
	})
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	events := w.Events()

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "skip.tmp"), []byte("x"), 0o644))
	keepFile := filepath.Join(tempDir, "keep.md")
	require.NoError(t, os.WriteFile(keepFile, []byte("x"), 0o644))

	select {
	case event := <-events:
		assert.Equal(t, keepFile, event.Path())
	case <-time.After(2 * time.Second):
		assert.FailNow(t, "timeout waiting for event")
	}
}
