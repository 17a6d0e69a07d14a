package infra

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSRenameWatcher_FiresOnSaveByRename(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "song.flp")
	require.NoError(t, os.WriteFile(project, []byte("v1"), 0644))

	var fired atomic.Int32
	w, err := NewFSRenameWatcher(nil).Watch(dir, "song.flp", func() { fired.Add(1) })
	require.NoError(t, err)
	defer w.Close()

	tmp := filepath.Join(dir, "song.flp.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("v2"), 0644))
	require.NoError(t, os.Rename(tmp, project))

	assert.Eventually(t, func() bool { return fired.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestFSRenameWatcher_MatchesNameCaseInsensitively(t *testing.T) {
	dir := t.TempDir()

	var fired atomic.Int32
	w, err := NewFSRenameWatcher(nil).Watch(dir, "SONG.FLP", func() { fired.Add(1) })
	require.NoError(t, err)
	defer w.Close()

	tmp := filepath.Join(dir, "x.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("v2"), 0644))
	require.NoError(t, os.Rename(tmp, filepath.Join(dir, "song.flp")))

	assert.Eventually(t, func() bool { return fired.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestFSRenameWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()

	var fired atomic.Int32
	w, err := NewFSRenameWatcher(nil).Watch(dir, "song.flp", func() { fired.Add(1) })
	require.NoError(t, err)
	defer w.Close()

	tmp := filepath.Join(dir, "other.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("x"), 0644))
	require.NoError(t, os.Rename(tmp, filepath.Join(dir, "other.flp")))

	assert.Never(t, func() bool { return fired.Load() > 0 }, 300*time.Millisecond, 20*time.Millisecond)
}

func TestFSRenameWatcher_CloseStopsCallbacks(t *testing.T) {
	dir := t.TempDir()

	var fired atomic.Int32
	w, err := NewFSRenameWatcher(nil).Watch(dir, "song.flp", func() { fired.Add(1) })
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "song.flp"), []byte("x"), 0644))
	assert.Never(t, func() bool { return fired.Load() > 0 }, 200*time.Millisecond, 20*time.Millisecond)
}

func TestFSRenameWatcher_MissingDirectory(t *testing.T) {
	_, err := NewFSRenameWatcher(nil).Watch(filepath.Join(t.TempDir(), "gone"), "song.flp", func() {})
	assert.Error(t, err)
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "song.flp", baseName(`C:\Music\song.flp`))
	assert.Equal(t, "song.flp", baseName("/tmp/song.flp"))
	assert.Equal(t, "song.flp", baseName("song.flp"))
}
