//go:build !windows

package winapi

import (
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
)

// MemoryOpener is unavailable off Windows.
type MemoryOpener struct{}

// NewMemoryOpener creates a memory opener.
func NewMemoryOpener() *MemoryOpener {
	return &MemoryOpener{}
}

func (o *MemoryOpener) OpenProcessMemory(uint32) (domain.ProcessMemory, error) {
	return nil, domain.ErrNotSupported
}

// WindowSystem is unavailable off Windows.
type WindowSystem struct{}

// NewWindowSystem creates a window system.
func NewWindowSystem(*zap.Logger) *WindowSystem {
	return &WindowSystem{}
}

func (w *WindowSystem) ProcessWindows(uint32) ([]domain.WindowInfo, error) {
	return nil, domain.ErrNotSupported
}

func (w *WindowSystem) ClassName(domain.WindowHandle) (string, error) {
	return "", domain.ErrNotSupported
}

func (w *WindowSystem) Title(domain.WindowHandle) (string, error) {
	return "", domain.ErrNotSupported
}

func (w *WindowSystem) IsWindow(domain.WindowHandle) bool {
	return false
}

func (w *WindowSystem) ThreadProcessID(domain.WindowHandle) (uint32, uint32, error) {
	return 0, 0, domain.ErrNotSupported
}

func (w *WindowSystem) Subscribe(domain.EventFilter, func(domain.WindowEvent)) (domain.Subscription, error) {
	return nil, domain.ErrNotSupported
}

// Input is unavailable off Windows.
type Input struct{}

// NewInput creates an input source.
func NewInput() *Input {
	return &Input{}
}

func (in *Input) CursorPos() (domain.Point, error) {
	return domain.Point{}, domain.ErrNotSupported
}

func (in *Input) LastInputTick() (uint32, error) {
	return 0, domain.ErrNotSupported
}

func (in *Input) TickCount() uint32 {
	return 0
}

var (
	_ domain.MemoryOpener = (*MemoryOpener)(nil)
	_ domain.WindowSystem = (*WindowSystem)(nil)
	_ domain.InputSource  = (*Input)(nil)
)
