//go:build windows

package winapi

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
)

// MemoryOpener implements domain.MemoryOpener with OpenProcess.
type MemoryOpener struct{}

// NewMemoryOpener creates a memory opener.
func NewMemoryOpener() *MemoryOpener {
	return &MemoryOpener{}
}

// OpenProcessMemory opens pid for region queries and reads.
// Fails with domain.ErrPermissionDenied when access is refused.
func (o *MemoryOpener) OpenProcessMemory(pid uint32) (domain.ProcessMemory, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_INFORMATION|windows.PROCESS_VM_READ, false, pid)
	if err != nil {
		if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
			return nil, fmt.Errorf("%w: pid %d", domain.ErrPermissionDenied, pid)
		}
		return nil, fmt.Errorf("failed to open process %d: %w", pid, err)
	}
	return &processMemory{handle: h}, nil
}

type processMemory struct {
	handle windows.Handle
}

func (m *processMemory) Query(addr uintptr) (domain.MemoryRegion, error) {
	var mbi windows.MemoryBasicInformation
	if err := windows.VirtualQueryEx(m.handle, addr, &mbi, unsafe.Sizeof(mbi)); err != nil {
		return domain.MemoryRegion{}, err
	}
	return domain.MemoryRegion{
		BaseAddress: mbi.BaseAddress,
		Size:        mbi.RegionSize,
		State:       mbi.State,
		Protect:     mbi.Protect,
		Type:        mbi.Type,
	}, nil
}

func (m *processMemory) Read(base, size uintptr) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	buf := make([]byte, size)
	var n uintptr
	if err := windows.ReadProcessMemory(m.handle, base, &buf[0], size, &n); err != nil {
		// A partial copy still yields usable bytes.
		if !errors.Is(err, windows.ERROR_PARTIAL_COPY) || n == 0 {
			return nil, fmt.Errorf("%w: 0x%x: %v", domain.ErrRegionReadFailed, base, err)
		}
	}
	return buf[:n], nil
}

func (m *processMemory) Close() error {
	return windows.CloseHandle(m.handle)
}

var (
	_ domain.MemoryOpener  = (*MemoryOpener)(nil)
	_ domain.ProcessMemory = (*processMemory)(nil)
)
