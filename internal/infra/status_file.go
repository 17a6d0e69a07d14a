package infra

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
)

// StatusFileName is the file the running monitor publishes its state to.
const StatusFileName = "status.json"

// StatusFile implements domain.StatusStore using a JSON file in the data
// directory. Writes are atomic so readers never see a partial snapshot.
type StatusFile struct {
	path string
}

// NewStatusFile creates a status store in dataDir.
func NewStatusFile(dataDir string) *StatusFile {
	return &StatusFile{path: filepath.Join(dataDir, StatusFileName)}
}

// NewStatusFileWithPath creates a status store at a specific path (for testing).
func NewStatusFileWithPath(path string) *StatusFile {
	return &StatusFile{path: path}
}

// Path returns the status file path.
func (s *StatusFile) Path() string {
	return s.path
}

// Write replaces the snapshot on disk.
func (s *StatusFile) Write(snap domain.StatusSnapshot) error {
	if snap.Version == 0 {
		snap.Version = 1
	}
	return s.atomicWrite(&snap)
}

// Read returns the last snapshot, or nil if no monitor has written one.
func (s *StatusFile) Read() (*domain.StatusSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var snap domain.StatusSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("corrupt status file %s: %w", s.path, err)
	}
	return &snap, nil
}

// Clear removes the status file. A missing file is not an error.
func (s *StatusFile) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// atomicWrite writes the snapshot to file atomically (write + rename).
func (s *StatusFile) atomicWrite(snap *domain.StatusSnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create status directory: %w", err)
	}

	// Write to temp file first (unique per process to avoid race)
	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	// Atomic rename
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath) // Clean up on failure
		return err
	}
	return nil
}

// Ensure StatusFile implements domain.StatusStore.
var _ domain.StatusStore = (*StatusFile)(nil)
