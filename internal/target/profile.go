// Package target implements the Strategy pattern for monitored applications.
// Each application family (FL Studio) has a profile describing how to find its
// windows and where its project path lives in memory.
package target

import "time"

// DefaultHeartbeatInterval is the minimum spacing of periodic heartbeats.
const DefaultHeartbeatInterval = 2 * time.Minute

// Profile defines the strategy interface for one monitored application.
type Profile interface {
	// ID returns unique identifier (e.g., "flstudio").
	ID() string

	// Name returns human-readable name for display.
	Name() string

	// ProcessNames returns executable names without ".exe".
	// Matched exactly, case-insensitively.
	ProcessNames() []string

	// MainWindowClass returns the class name of the editor window.
	MainWindowClass() string

	// TitleMarker is the fixed suffix that follows the project name in the title.
	TitleMarker() string

	// UntitledNames are identities shown for projects never saved.
	UntitledNames() []string

	// PathRegionSize is the allocation size typically holding the project path.
	PathRegionSize() uintptr

	// InitialScanAnchor biases the first scan before any path was found.
	InitialScanAnchor() uintptr

	// PluginName is reported to the time tracker as the editor identity.
	PluginName() string
}
