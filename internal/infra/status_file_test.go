package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
)

func TestStatusFile_WriteAndRead(t *testing.T) {
	dir := t.TempDir()
	store := NewStatusFile(dir)

	if store.Path() != filepath.Join(dir, StatusFileName) {
		t.Errorf("unexpected path %s", store.Path())
	}

	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := domain.StatusSnapshot{
		PID:       4242,
		Target:    "flstudio",
		StartedAt: started,
		UpdatedAt: started.Add(time.Minute),
		Instances: []domain.InstanceStatus{
			{PID: 100, Window: 0x1000, Project: "song.flp", Path: `C:\Music\song.flp`, Foreground: true},
		},
	}
	if err := store.Write(snap); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	got, err := store.Read()
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if got == nil {
		t.Fatal("expected snapshot, got nil")
	}
	if got.Version != 1 {
		t.Errorf("expected version 1, got %d", got.Version)
	}
	if got.PID != 4242 || got.Target != "flstudio" {
		t.Errorf("unexpected header: %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("expected started %v, got %v", started, got.StartedAt)
	}
	if len(got.Instances) != 1 || got.Instances[0].Path != `C:\Music\song.flp` {
		t.Errorf("unexpected instances: %+v", got.Instances)
	}

	// No temp files left behind
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the status file, found %d entries", len(entries))
	}
}

func TestStatusFile_ReadMissing(t *testing.T) {
	store := NewStatusFileWithPath(filepath.Join(t.TempDir(), "nope.json"))

	got, err := store.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil snapshot, got %+v", got)
	}
}

func TestStatusFile_ReadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), StatusFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewStatusFileWithPath(path).Read(); err == nil {
		t.Error("expected error for corrupt file")
	}
}

func TestStatusFile_Clear(t *testing.T) {
	store := NewStatusFile(t.TempDir())

	// Clearing a missing file is fine
	if err := store.Clear(); err != nil {
		t.Fatalf("clear of missing file failed: %v", err)
	}

	if err := store.Write(domain.StatusSnapshot{PID: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Error("status file still exists after clear")
	}
}

func TestStatusFile_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	store := NewStatusFile(dir)

	if err := store.Write(domain.StatusSnapshot{PID: 1}); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if _, err := os.Stat(store.Path()); err != nil {
		t.Errorf("status file not created: %v", err)
	}
}
