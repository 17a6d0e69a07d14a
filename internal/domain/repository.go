package domain

import (
	"context"
	"io"
)

// ProcessManager handles OS process operations.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// FindByName returns PIDs of processes whose executable name equals name
	// (case-insensitive, ".exe" suffix ignored).
	FindByName(name string) ([]int, error)

	// Name returns the executable name of a process without the ".exe" suffix.
	Name(pid int) (string, error)

	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// GetCurrentPID returns the current process PID.
	GetCurrentPID() int
}

// FileSystemManager handles filesystem operations.
type FileSystemManager interface {
	// Exists checks if a path exists.
	Exists(path string) bool

	// ExpandHome expands ~ to the user's home directory.
	ExpandHome(path string) string
}

// ProcessMemory is a read-only introspection handle into a foreign process.
// Close releases the underlying handle; a second Close is a no-op.
type ProcessMemory interface {
	// Query returns the region containing addr. An error ends enumeration.
	Query(addr uintptr) (MemoryRegion, error)

	// Read copies size bytes starting at base into a new buffer.
	Read(base, size uintptr) ([]byte, error)

	Close() error
}

// MemoryOpener opens process memory handles.
type MemoryOpener interface {
	// OpenProcessMemory fails with ErrPermissionDenied when access is refused.
	OpenProcessMemory(pid uint32) (ProcessMemory, error)
}

// Subscription is a live OS notification registration.
type Subscription interface {
	Close() error
}

// WindowSystem exposes the window primitives the monitor consumes.
type WindowSystem interface {
	// ProcessWindows enumerates top-level windows owned by pid.
	ProcessWindows(pid uint32) ([]WindowInfo, error)

	// ClassName returns the registered class name of a window.
	ClassName(w WindowHandle) (string, error)

	// Title returns the caption text of a window.
	Title(w WindowHandle) (string, error)

	// IsWindow reports whether the handle still names an existing window.
	IsWindow(w WindowHandle) bool

	// ThreadProcessID returns the owning thread and process of a window.
	ThreadProcessID(w WindowHandle) (tid, pid uint32, err error)

	// Subscribe registers handler for events matching filter.
	// Handlers run on an OS callback thread and must not block.
	Subscribe(filter EventFilter, handler func(WindowEvent)) (Subscription, error)
}

// InputSource reports pointer and last-input state.
type InputSource interface {
	CursorPos() (Point, error)

	// LastInputTick returns the tick count of the last global input event.
	LastInputTick() (uint32, error)

	// TickCount returns the current 32-bit millisecond tick count.
	TickCount() uint32
}

// ActivityReporter forwards activity to the time tracking backend.
type ActivityReporter interface {
	// ReportActivity sends one heartbeat for path.
	// Returns an error wrapping ErrReportingFailed on non-success.
	ReportActivity(ctx context.Context, path string, isWrite bool) error

	// TodayStatus returns a short human-readable summary for the overlay.
	TodayStatus(ctx context.Context) (string, error)
}

// Overlay receives fire-and-forget status updates.
type Overlay interface {
	SetText(text string)
	SetVisible(visible bool)
}

// RenameWatcher notifies when a file is replaced by a rename in dir.
type RenameWatcher interface {
	Watch(dir, filename string, onRenamed func()) (io.Closer, error)
}

// HeartbeatJournal persists emission attempts.
type HeartbeatJournal interface {
	Record(rec HeartbeatRecord) error
	Recent(limit int) ([]HeartbeatRecord, error)
	Close() error
}

// StatusStore persists the running monitor state for the status command.
type StatusStore interface {
	Write(snapshot StatusSnapshot) error
	Read() (*StatusSnapshot, error)
	Clear() error
	Path() string
}

// KeyProvider abstracts encryption key retrieval.
// Phase 1: local file (FileKeyProvider).
type KeyProvider interface {
	GetKey() ([]byte, error)
	StoreKey(key []byte) error
	KeyExists() bool
}
