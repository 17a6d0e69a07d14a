package scanner

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
	"github.com/eliteGoblin/focusd/flmon/test/fixtures"
)

const (
	testRegionSize = 0x140000
	testAnchor     = 0x8000000
)

func newTestScanner(fs PathChecker) *Scanner {
	return New(fs, testRegionSize, testAnchor, nil)
}

func TestScanner_FindsPathInPrivateRWRegion(t *testing.T) {
	path := `C:\Music\Projects\song.flp`
	mem := fixtures.NewFakeProcessMemory().
		AddPrivateRW(0x10000, 0x1000, fixtures.BufferWith(0x1000, 0x40, path))
	s := newTestScanner(fixtures.NewFakeFS(path))

	got, err := s.Find(mem, `\song.flp`)
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.Equal(t, uintptr(0x10000), s.Anchor())
}

func TestScanner_PathMustExist(t *testing.T) {
	path := `C:\Music\song.flp`
	mem := fixtures.NewFakeProcessMemory().
		AddPrivateRW(0x10000, 0x1000, fixtures.BufferWith(0x1000, 0x40, path))
	s := newTestScanner(fixtures.NewFakeFS())

	_, err := s.Find(mem, `\song.flp`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPathNotFound))
	assert.Contains(t, err.Error(), "1 regions")
	assert.Equal(t, uintptr(testAnchor), s.Anchor())
}

func TestScanner_IgnoresMappedAndReservedRegions(t *testing.T) {
	path := `C:\song.flp`
	mem := fixtures.NewFakeProcessMemory().
		AddRegion(domain.MemoryRegion{
			BaseAddress: 0x10000, Size: 0x1000,
			State: domain.MemCommit, Protect: domain.PageReadWrite, Type: fixtures.MemMapped,
		}, fixtures.BufferWith(0x1000, 0, path)).
		AddRegion(domain.MemoryRegion{
			BaseAddress: 0x20000, Size: 0x1000,
			State: 0x2000, Protect: domain.PageReadWrite, Type: domain.MemPrivate,
		}, fixtures.BufferWith(0x1000, 0, path))
	s := newTestScanner(fixtures.NewFakeFS(path))

	_, err := s.Find(mem, `\song.flp`)
	assert.True(t, errors.Is(err, domain.ErrPathNotFound))
	assert.Empty(t, mem.Reads())
}

func TestScanner_SkipsUnreadableRegion(t *testing.T) {
	path := `D:\beats\loop.flp`
	mem := fixtures.NewFakeProcessMemory().
		AddPrivateRW(testAnchor, 0x1000, nil).
		AddPrivateRW(0x20000, 0x1000, fixtures.BufferWith(0x1000, 0x100, path))
	mem.FailRead(testAnchor, errors.New("partial copy"))
	s := newTestScanner(fixtures.NewFakeFS(path))

	got, err := s.Find(mem, `\loop.flp`)
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.Equal(t, []uintptr{testAnchor, 0x20000}, mem.Reads())
}

func TestScanner_ContinuesAfterRejectedHitInSameRegion(t *testing.T) {
	stale := `C:\old\song.flp`
	current := `E:\new\song.flp`
	buf := fixtures.BufferWith(0x1000, 0x20, stale)
	copy(buf[0x400:], fixtures.UTF16LE(current))
	mem := fixtures.NewFakeProcessMemory().AddPrivateRW(0x10000, 0x1000, buf)
	s := newTestScanner(fixtures.NewFakeFS(current))

	got, err := s.Find(mem, `\song.flp`)
	require.NoError(t, err)
	assert.Equal(t, current, got)
}

func TestScanner_RejectsSeparatorBeyondLookback(t *testing.T) {
	long := `C:\` + strings.Repeat("a", MaxPathLength) + `\song.flp`
	mem := fixtures.NewFakeProcessMemory().
		AddPrivateRW(0x10000, 0x1000, fixtures.BufferWith(0x1000, 0x10, long))
	s := newTestScanner(fixtures.NewFakeFS(long))

	_, err := s.Find(mem, `\song.flp`)
	assert.True(t, errors.Is(err, domain.ErrPathNotFound))
}

func TestScanner_AcceptsSeparatorAtLookbackLimit(t *testing.T) {
	// The separator sits exactly MaxPathLength units before the hit.
	path := `C:` + strings.Repeat("a", MaxPathLength-1) + `\song.flp`
	mem := fixtures.NewFakeProcessMemory().
		AddPrivateRW(0x10000, 0x1000, fixtures.BufferWith(0x1000, 0x10, path))
	s := newTestScanner(fixtures.NewFakeFS(path))

	got, err := s.Find(mem, `\song.flp`)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestScanner_RejectsSeparatorWithoutDriveLetter(t *testing.T) {
	mem := fixtures.NewFakeProcessMemory().
		AddPrivateRW(0x10000, 0x1000, fixtures.BufferWith(0x1000, 0, `:\song.flp`))
	s := newTestScanner(fixtures.NewFakeFS(`:\song.flp`))

	_, err := s.Find(mem, `\song.flp`)
	assert.True(t, errors.Is(err, domain.ErrPathNotFound))
}

func TestScanner_IgnoresMisalignedMatch(t *testing.T) {
	path := `C:\song.flp`
	mem := fixtures.NewFakeProcessMemory().
		AddPrivateRW(0x10000, 0x1000, fixtures.BufferWith(0x1000, 0x41, path))
	s := newTestScanner(fixtures.NewFakeFS(path))

	_, err := s.Find(mem, `\song.flp`)
	assert.True(t, errors.Is(err, domain.ErrPathNotFound))
}

func TestScanner_PrefersRegionNearAnchor(t *testing.T) {
	far := `C:\far\song.flp`
	near := `D:\near\song.flp`
	mem := fixtures.NewFakeProcessMemory().
		AddPrivateRW(0x10000, 0x1000, fixtures.BufferWith(0x1000, 0, far)).
		AddPrivateRW(testAnchor+0x10000, 0x1000, fixtures.BufferWith(0x1000, 0, near))
	s := newTestScanner(fixtures.NewFakeFS(far, near))

	got, err := s.Find(mem, `\song.flp`)
	require.NoError(t, err)
	assert.Equal(t, near, got)
	assert.Equal(t, uintptr(testAnchor+0x10000), s.Anchor())
	assert.Equal(t, []uintptr{testAnchor + 0x10000}, mem.Reads())
}

func TestScanner_HandlesNonASCIIPath(t *testing.T) {
	path := `C:\Musik\Lieder\schöne melodie.flp`
	mem := fixtures.NewFakeProcessMemory().
		AddPrivateRW(0x10000, 0x1000, fixtures.BufferWith(0x1000, 0x80, path))
	s := newTestScanner(fixtures.NewFakeFS(path))

	got, err := s.Find(mem, `\schöne melodie.flp`)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestScanner_EmptySuffix(t *testing.T) {
	s := newTestScanner(fixtures.NewFakeFS())

	_, err := s.Find(fixtures.NewFakeProcessMemory(), "")
	assert.True(t, errors.Is(err, domain.ErrPathNotFound))
}

func TestRegions_WalksAddressSpace(t *testing.T) {
	mem := fixtures.NewFakeProcessMemory().
		AddPrivateRW(0x1000, 0x1000, nil).
		AddRegion(domain.MemoryRegion{BaseAddress: 0x2000, Size: 0x1000, State: domain.MemCommit, Type: fixtures.MemMapped}, nil).
		AddPrivateRW(0x5000, 0x2000, nil)

	regions := Regions(mem)
	require.Len(t, regions, 2)
	assert.Equal(t, uintptr(0x1000), regions[0].BaseAddress)
	assert.Equal(t, uintptr(0x5000), regions[1].BaseAddress)
}

func TestSortRegions_Priority(t *testing.T) {
	rw := func(base, size uintptr) domain.MemoryRegion {
		return domain.MemoryRegion{BaseAddress: base, Size: size, State: domain.MemCommit, Protect: domain.PageReadWrite, Type: domain.MemPrivate}
	}
	ro := func(base, size uintptr) domain.MemoryRegion {
		r := rw(base, size)
		r.Protect = fixtures.PageReadOnly
		return r
	}

	regions := []domain.MemoryRegion{
		ro(testAnchor, testRegionSize),
		rw(0x1000, 0x1000),
		rw(testAnchor+0x5000, 0x1000),
		rw(0x2000, testRegionSize),
		rw(testAnchor-0x1000, testRegionSize),
	}
	SortRegions(regions, testRegionSize, testAnchor)

	var bases []uintptr
	for _, r := range regions {
		bases = append(bases, r.BaseAddress)
	}
	assert.Equal(t, []uintptr{
		testAnchor - 0x1000, // rw, typical size, closest
		0x2000,              // rw, typical size
		testAnchor + 0x5000, // rw, closest
		0x1000,              // rw
		testAnchor,          // read-only last even at the anchor
	}, bases)
}
