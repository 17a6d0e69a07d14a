//go:build windows

package winapi

import (
	"fmt"
	"unsafe"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
)

// Input implements domain.InputSource.
type Input struct{}

// NewInput creates an input source.
func NewInput() *Input {
	return &Input{}
}

// CursorPos returns the pointer position in screen coordinates.
func (in *Input) CursorPos() (domain.Point, error) {
	var p point
	r, _, err := procGetCursorPos.Call(uintptr(unsafe.Pointer(&p)))
	if r == 0 {
		return domain.Point{}, fmt.Errorf("GetCursorPos: %w", err)
	}
	return domain.Point{X: p.x, Y: p.y}, nil
}

// LastInputTick returns the tick count of the last keyboard or mouse input.
func (in *Input) LastInputTick() (uint32, error) {
	lii := lastInputInfo{cbSize: uint32(unsafe.Sizeof(lastInputInfo{}))}
	r, _, err := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&lii)))
	if r == 0 {
		return 0, fmt.Errorf("GetLastInputInfo: %w", err)
	}
	return lii.dwTime, nil
}

// TickCount returns milliseconds since boot, wrapping every ~49.7 days.
func (in *Input) TickCount() uint32 {
	r, _, _ := procGetTickCount.Call()
	return uint32(r)
}

var _ domain.InputSource = (*Input)(nil)
