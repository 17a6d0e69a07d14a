// Package fixtures provides test doubles for the OS boundary and collaborators.
package fixtures

import (
	"errors"
	"sort"
	"sync"

	"golang.org/x/text/encoding/unicode"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
)

const memFree uint32 = 0x10000

// MemMapped is the region type of a mapped file view.
const MemMapped uint32 = 0x40000

// PageReadOnly is the read-only protection class.
const PageReadOnly uint32 = 0x02

// ErrEndOfAddressSpace ends a region walk.
var ErrEndOfAddressSpace = errors.New("end of address space")

// FakeRegion is one region of a FakeProcessMemory.
type FakeRegion struct {
	domain.MemoryRegion
	Data    []byte
	ReadErr error
}

// FakeProcessMemory is an in-memory address space.
// Gaps between regions are reported as free regions.
type FakeProcessMemory struct {
	mu      sync.Mutex
	regions []FakeRegion
	reads   []uintptr
	queries int
	closed  int
}

// NewFakeProcessMemory creates an empty address space.
func NewFakeProcessMemory() *FakeProcessMemory {
	return &FakeProcessMemory{}
}

// AddRegion adds a region; data is zero-padded to size on read.
func (m *FakeProcessMemory) AddRegion(r domain.MemoryRegion, data []byte) *FakeProcessMemory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regions = append(m.regions, FakeRegion{MemoryRegion: r, Data: data})
	sort.Slice(m.regions, func(i, j int) bool {
		return m.regions[i].BaseAddress < m.regions[j].BaseAddress
	})
	return m
}

// AddPrivateRW adds a committed private read/write region.
func (m *FakeProcessMemory) AddPrivateRW(base, size uintptr, data []byte) *FakeProcessMemory {
	return m.AddRegion(domain.MemoryRegion{
		BaseAddress: base,
		Size:        size,
		State:       domain.MemCommit,
		Protect:     domain.PageReadWrite,
		Type:        domain.MemPrivate,
	}, data)
}

// FailRead makes reads of the region at base return err.
func (m *FakeProcessMemory) FailRead(base uintptr, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.regions {
		if m.regions[i].BaseAddress == base {
			m.regions[i].ReadErr = err
		}
	}
}

// Query returns the region containing addr.
func (m *FakeProcessMemory) Query(addr uintptr) (domain.MemoryRegion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++

	for _, r := range m.regions {
		if addr < r.BaseAddress {
			return domain.MemoryRegion{BaseAddress: addr, Size: r.BaseAddress - addr, State: memFree}, nil
		}
		if addr < r.End() {
			return r.MemoryRegion, nil
		}
	}
	return domain.MemoryRegion{}, ErrEndOfAddressSpace
}

// Read returns a copy of the region contents.
func (m *FakeProcessMemory) Read(base, size uintptr) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = append(m.reads, base)

	for _, r := range m.regions {
		if r.BaseAddress != base {
			continue
		}
		if r.ReadErr != nil {
			return nil, r.ReadErr
		}
		buf := make([]byte, size)
		copy(buf, r.Data)
		return buf, nil
	}
	return nil, errors.New("address not mapped")
}

// Close counts releases.
func (m *FakeProcessMemory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

// Reads returns the base addresses read so far, in order.
func (m *FakeProcessMemory) Reads() []uintptr {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uintptr(nil), m.reads...)
}

// ResetReads clears the read log.
func (m *FakeProcessMemory) ResetReads() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = nil
}

// CloseCount returns how many times Close was called.
func (m *FakeProcessMemory) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// UTF16LE encodes s as little-endian UTF-16 without a BOM.
func UTF16LE(s string) []byte {
	b, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
	if err != nil {
		panic(err)
	}
	return b
}

// BufferWith returns a zeroed buffer of size bytes holding s as UTF-16 at offset.
func BufferWith(size, offset int, s string) []byte {
	buf := make([]byte, size)
	copy(buf[offset:], UTF16LE(s))
	return buf
}

// FakeMemoryOpener hands out preconfigured address spaces by PID.
type FakeMemoryOpener struct {
	mu     sync.Mutex
	Spaces map[uint32]*FakeProcessMemory
	Denied map[uint32]bool
}

// NewFakeMemoryOpener creates an opener with no processes.
func NewFakeMemoryOpener() *FakeMemoryOpener {
	return &FakeMemoryOpener{
		Spaces: make(map[uint32]*FakeProcessMemory),
		Denied: make(map[uint32]bool),
	}
}

// Set registers the address space of pid.
func (o *FakeMemoryOpener) Set(pid uint32, mem *FakeProcessMemory) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Spaces[pid] = mem
}

// OpenProcessMemory implements domain.MemoryOpener.
func (o *FakeMemoryOpener) OpenProcessMemory(pid uint32) (domain.ProcessMemory, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Denied[pid] {
		return nil, domain.ErrPermissionDenied
	}
	mem, ok := o.Spaces[pid]
	if !ok {
		mem = NewFakeProcessMemory()
		o.Spaces[pid] = mem
	}
	return mem, nil
}

// FakeFS is a set of paths that exist.
type FakeFS struct {
	mu    sync.Mutex
	paths map[string]bool
}

// NewFakeFS creates a filesystem containing paths.
func NewFakeFS(paths ...string) *FakeFS {
	fs := &FakeFS{paths: make(map[string]bool)}
	for _, p := range paths {
		fs.paths[p] = true
	}
	return fs
}

// Add marks path as existing.
func (f *FakeFS) Add(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths[path] = true
}

// Exists implements scanner.PathChecker and domain.FileSystemManager.
func (f *FakeFS) Exists(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paths[path]
}

// ExpandHome returns path unchanged.
func (f *FakeFS) ExpandHome(path string) string {
	return path
}

var (
	_ domain.ProcessMemory     = (*FakeProcessMemory)(nil)
	_ domain.MemoryOpener      = (*FakeMemoryOpener)(nil)
	_ domain.FileSystemManager = (*FakeFS)(nil)
)
