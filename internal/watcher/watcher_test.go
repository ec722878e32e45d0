package watcher

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	return Options{
		PollInterval:   20 * time.Millisecond,
		StableInterval: 10 * time.Millisecond,
		StableTimeout:  time.Second,
		PollOnly:       true,
		Logger:         testLogger(),
	}
}

// collector records callback invocations and signals each one.
type collector struct {
	mu    sync.Mutex
	paths []string
	ch    chan string
}

func newCollector() *collector {
	return &collector{ch: make(chan string, 16)}
}

func (c *collector) callback(path string) {
	c.mu.Lock()
	c.paths = append(c.paths, path)
	c.mu.Unlock()
	c.ch <- path
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.paths)
}

func (c *collector) wait(t *testing.T, timeout time.Duration) string {
	t.Helper()
	select {
	case p := <-c.ch:
		return p
	case <-time.After(timeout):
		t.Fatal("timed out waiting for callback")
		return ""
	}
}

func writeJSON(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDetectsExistingFileAtStart(t *testing.T) {
	dir := t.TempDir()
	path := writeJSON(t, dir, "c1_r1.json", `{"k":1}`)

	w, err := New(dir, testOptions())
	require.NoError(t, err)

	c := newCollector()
	require.NoError(t, w.Start(c.callback))
	defer w.Stop()

	got := c.wait(t, 2*time.Second)
	assert.Equal(t, path, got)
}

func TestDetectsFileCreatedAfterStart(t *testing.T) {
	dir := t.TempDir()

	w, err := New(dir, testOptions())
	require.NoError(t, err)

	c := newCollector()
	require.NoError(t, w.Start(c.callback))
	defer w.Stop()

	path := writeJSON(t, dir, "c1_r2.json", `{"k":2}`)

	got := c.wait(t, 2*time.Second)
	assert.Equal(t, path, got)
}

func TestIgnoresNonJSONFiles(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "notes.txt", "hello")
	writeJSON(t, dir, "c1_r1.json.tmp", `{"k":1}`)

	w, err := New(dir, testOptions())
	require.NoError(t, err)

	c := newCollector()
	require.NoError(t, w.Start(c.callback))
	defer w.Stop()

	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, c.count())
}

func TestDispatchesEachFileOnce(t *testing.T) {
	dir := t.TempDir()
	// The callback does not delete the file, so every poll pass sees
	// it again. The dedup set must still dispatch it exactly once.
	writeJSON(t, dir, "c1_r1.json", `{"k":1}`)

	w, err := New(dir, testOptions())
	require.NoError(t, err)

	c := newCollector()
	require.NoError(t, w.Start(c.callback))
	defer w.Stop()

	c.wait(t, 2*time.Second)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, c.count())
}

func TestHalfWrittenFileDeferredUntilComplete(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c1_r1.json")
	// Stable size but not valid JSON: a writer that stalled mid-file.
	require.NoError(t, os.WriteFile(path, []byte(`{"k":`), 0o644))

	opts := testOptions()
	opts.StableTimeout = 100 * time.Millisecond

	w, err := New(dir, opts)
	require.NoError(t, err)

	c := newCollector()
	require.NoError(t, w.Start(c.callback))
	defer w.Stop()

	// Not dispatched while incomplete.
	time.Sleep(250 * time.Millisecond)
	assert.Zero(t, c.count())

	// Writer finishes; a later pass picks the file up.
	require.NoError(t, os.WriteFile(path, []byte(`{"k":1}`), 0o644))
	got := c.wait(t, 2*time.Second)
	assert.Equal(t, path, got)
}

func TestStopWaitsForInFlightCallbacks(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "c1_r1.json", `{"k":1}`)

	w, err := New(dir, testOptions())
	require.NoError(t, err)

	var done atomic.Bool
	started := make(chan struct{})
	require.NoError(t, w.Start(func(path string) {
		close(started)
		time.Sleep(150 * time.Millisecond)
		done.Store(true)
	}))

	<-started
	w.Stop()
	assert.True(t, done.Load(), "Stop returned before the callback finished")
}

func TestStartTwiceFails(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, testOptions())
	require.NoError(t, err)

	require.NoError(t, w.Start(func(string) {}))
	defer w.Stop()

	err = w.Start(func(string) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestEventPathDetectsFiles(t *testing.T) {
	dir := t.TempDir()

	opts := testOptions()
	opts.PollOnly = false

	w, err := New(dir, opts)
	require.NoError(t, err)

	c := newCollector()
	require.NoError(t, w.Start(c.callback))
	defer w.Stop()

	path := writeJSON(t, dir, "c1_r1.json", `{"k":1}`)
	got := c.wait(t, 2*time.Second)
	assert.Equal(t, path, got)
}

func TestWaitForComplete(t *testing.T) {
	dir := t.TempDir()

	t.Run("complete file", func(t *testing.T) {
		path := writeJSON(t, dir, "ok.json", `{"k":1}`)
		err := waitForComplete(path, 5*time.Millisecond, time.Second)
		require.NoError(t, err)
	})

	t.Run("never completes", func(t *testing.T) {
		path := writeJSON(t, dir, "bad.json", `{"k":`)
		err := waitForComplete(path, 5*time.Millisecond, 50*time.Millisecond)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "did not stabilize")
	})

	t.Run("missing file", func(t *testing.T) {
		err := waitForComplete(filepath.Join(dir, "absent.json"), 5*time.Millisecond, 50*time.Millisecond)
		require.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeJSON(t, dir, "empty.json", "")
		err := waitForComplete(path, 5*time.Millisecond, 50*time.Millisecond)
		require.Error(t, err)
	})
}
