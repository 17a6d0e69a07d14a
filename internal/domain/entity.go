// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"fmt"
	"time"
)

// WindowHandle is an opaque top-level window identifier (HWND on Windows).
type WindowHandle uintptr

// InstanceKey identifies one tracked window of one foreign process.
// Exactly one monitored instance exists per live key.
type InstanceKey struct {
	Window   WindowHandle
	PID      uint32
	ThreadID uint32
}

func (k InstanceKey) String() string {
	return fmt.Sprintf("hwnd=0x%x pid=%d tid=%d", uintptr(k.Window), k.PID, k.ThreadID)
}

// Memory region constants as reported by the OS region table.
const (
	MemCommit     uint32 = 0x1000
	MemPrivate    uint32 = 0x20000
	PageReadWrite uint32 = 0x04
)

// MemoryRegion describes one contiguous range of a process address space
// with uniform state, protection and kind.
type MemoryRegion struct {
	BaseAddress uintptr
	Size        uintptr
	State       uint32
	Protect     uint32
	Type        uint32
}

// End returns the first address past the region.
func (r MemoryRegion) End() uintptr {
	return r.BaseAddress + r.Size
}

// IsCommitted reports whether the region is backed by real memory.
func (r MemoryRegion) IsCommitted() bool {
	return r.State == MemCommit
}

// IsPrivate reports whether the region is privately allocated
// (not an image section or a mapped file).
func (r MemoryRegion) IsPrivate() bool {
	return r.Type == MemPrivate
}

// IsReadWrite reports whether the region is plain read/write memory.
func (r MemoryRegion) IsReadWrite() bool {
	return r.Protect == PageReadWrite
}

// WindowInfo is a window of a process together with the thread that owns it.
type WindowInfo struct {
	Handle    WindowHandle
	PID       uint32
	ThreadID  uint32
	ClassName string
}

// WindowEventKind is the type of an asynchronous window notification.
type WindowEventKind int

const (
	EventObjectCreate WindowEventKind = iota
	EventNameChange
	EventForeground
)

func (k WindowEventKind) String() string {
	switch k {
	case EventObjectCreate:
		return "object_create"
	case EventNameChange:
		return "name_change"
	case EventForeground:
		return "foreground"
	default:
		return "unknown"
	}
}

// EventFilter scopes a window event subscription.
// Zero PID/ThreadID means the subscription is global.
type EventFilter struct {
	Kind     WindowEventKind
	PID      uint32
	ThreadID uint32
}

// WindowEvent is one notification delivered by the OS.
type WindowEvent struct {
	Kind     WindowEventKind
	Window   WindowHandle
	ObjectID int32
	ChildID  int32
	ThreadID uint32
}

// Point is a screen coordinate.
type Point struct {
	X, Y int32
}

// PathResult memoizes the path resolved for a project identity.
type PathResult struct {
	Identity string
	Path     string
}

// Matches reports whether the cached result is valid for identity.
func (p PathResult) Matches(identity string) bool {
	return identity != "" && p.Path != "" && p.Identity == identity
}

// HeartbeatOutcome records how an emission attempt ended.
type HeartbeatOutcome string

const (
	OutcomeSent         HeartbeatOutcome = "sent"
	OutcomeReportFailed HeartbeatOutcome = "report_failed"
)

// HeartbeatRecord is one emission attempt, as stored in the journal.
type HeartbeatRecord struct {
	At       time.Time
	PID      uint32
	Project  string
	Entity   string
	IsWrite  bool
	Outcome  HeartbeatOutcome
	ErrorMsg string
}

// InstanceStatus is a point-in-time view of one monitored instance.
type InstanceStatus struct {
	PID             uint32    `json:"pid"`
	Window          uint64    `json:"window"`
	Project         string    `json:"project"`
	Path            string    `json:"path,omitempty"`
	Foreground      bool      `json:"foreground"`
	LastHeartbeatAt time.Time `json:"last_heartbeat_at,omitempty"`
}

// StatusSnapshot is the monitor state written for the status command.
type StatusSnapshot struct {
	Version    int              `json:"version"`
	PID        int              `json:"pid"`
	AppVersion string           `json:"app_version,omitempty"`
	Target     string           `json:"target"`
	StartedAt  time.Time        `json:"started_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	Instances  []InstanceStatus `json:"instances"`
}
