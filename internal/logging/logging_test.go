package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLog(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestRotate_NothingToRotate(t *testing.T) {
	got, err := Rotate(filepath.Join(t.TempDir(), LatestLogName))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRotate_NamesByModificationDate(t *testing.T) {
	dir := t.TempDir()
	latest := filepath.Join(dir, LatestLogName)
	mtime := time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)
	writeLog(t, latest, "first\n", mtime)

	got, err := Rotate(latest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2026-03-14.log"), got)
	assert.NoFileExists(t, latest)

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(data))
}

func TestRotate_SuffixOnCollision(t *testing.T) {
	dir := t.TempDir()
	latest := filepath.Join(dir, LatestLogName)
	mtime := time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)

	writeLog(t, filepath.Join(dir, "2026-03-14.log"), "a", mtime)
	writeLog(t, filepath.Join(dir, "2026-03-14-1.log"), "b", mtime)
	writeLog(t, latest, "c", mtime)

	got, err := Rotate(latest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2026-03-14-2.log"), got)
}

func TestRotate_EmptyFileIsRemoved(t *testing.T) {
	dir := t.TempDir()
	latest := filepath.Join(dir, LatestLogName)
	writeLog(t, latest, "", time.Now())

	got, err := Rotate(latest)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoFileExists(t, latest)
}

func TestNew_WritesToLatestLog(t *testing.T) {
	dir := t.TempDir()
	logger := New(Options{Dir: dir, Level: "debug"})
	logger.Info("monitor started")
	_ = logger.Sync()

	data, err := os.ReadFile(filepath.Join(dir, LatestLogName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"monitor started"`)
	assert.Contains(t, string(data), `"time":`)
}

func TestNew_RotatesPreviousRun(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, filepath.Join(dir, LatestLogName), "old run\n", time.Date(2026, 1, 2, 0, 0, 0, 0, time.Local))

	logger := New(Options{Dir: dir, Level: "info"})
	_ = logger.Sync()

	assert.FileExists(t, filepath.Join(dir, "2026-01-02.log"))
}

func TestNew_LevelFilters(t *testing.T) {
	dir := t.TempDir()
	logger := New(Options{Dir: dir, Level: "warn"})
	logger.Info("hidden")
	logger.Warn("shown")
	_ = logger.Sync()

	data, err := os.ReadFile(filepath.Join(dir, LatestLogName))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}
