// Package scanner locates a file path inside a foreign process address space.
//
// The target stores paths as UTF-16 strings in private committed heap
// allocations. A scan walks the region table, orders candidate regions so the
// most likely one is read first, and accepts the first hit that decodes to a
// drive-rooted path existing on disk.
package scanner

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
)

// MaxPathLength bounds the backward search for the drive separator, in UTF-16
// code units. It is the Windows MAX_PATH limit.
const MaxPathLength = 260

const driveSeparator = ':'

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// PathChecker verifies a candidate path exists.
type PathChecker interface {
	Exists(path string) bool
}

// Scanner searches process memory for a path ending in a given suffix.
// It keeps a scan anchor between calls and is not safe for concurrent use.
type Scanner struct {
	paths       PathChecker
	typicalSize uintptr
	anchor      uintptr
	logger      *zap.Logger
}

// New creates a scanner. typicalSize is the allocation size that usually
// holds the path; anchor is the address the first scan starts closest to.
func New(paths PathChecker, typicalSize, anchor uintptr, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		paths:       paths,
		typicalSize: typicalSize,
		anchor:      anchor,
		logger:      logger,
	}
}

// Anchor returns the base address of the region where the last path was found.
func (s *Scanner) Anchor() uintptr {
	return s.anchor
}

// Find returns the first existing drive-rooted path in mem that contains
// suffix. suffix normally starts with a path separator, e.g. `\song.flp`.
// Fails with domain.ErrPathNotFound when no region yields a match.
func (s *Scanner) Find(mem domain.ProcessMemory, suffix string) (string, error) {
	needle, err := utf16le.NewEncoder().Bytes([]byte(suffix))
	if err != nil {
		return "", fmt.Errorf("failed to encode %q: %w", suffix, err)
	}
	if len(needle) == 0 {
		return "", fmt.Errorf("%w: empty suffix", domain.ErrPathNotFound)
	}

	regions := Regions(mem)
	SortRegions(regions, s.typicalSize, s.anchor)

	for _, r := range regions {
		buf, err := mem.Read(r.BaseAddress, r.Size)
		if err != nil {
			s.logger.Warn("skipping unreadable region",
				zap.Uintptr("base", r.BaseAddress),
				zap.Uintptr("size", r.Size),
				zap.Error(fmt.Errorf("%w: %v", domain.ErrRegionReadFailed, err)))
			continue
		}

		path, offset, ok := s.searchRegion(buf, needle)
		if !ok {
			continue
		}

		s.anchor = r.BaseAddress
		s.logger.Info("found project path",
			zap.String("path", path),
			zap.Uintptr("base", r.BaseAddress),
			zap.Uintptr("size", r.Size),
			zap.Int("offset", offset))
		return path, nil
	}

	return "", fmt.Errorf("%w: %q after scanning %d regions", domain.ErrPathNotFound, suffix, len(regions))
}

// searchRegion tries every code-unit aligned occurrence of needle in buf.
// Returns the accepted path and its byte offset.
func (s *Scanner) searchRegion(buf, needle []byte) (string, int, bool) {
	from := 0
	for from < len(buf) {
		rel := bytes.Index(buf[from:], needle)
		if rel < 0 {
			return "", 0, false
		}
		hit := from + rel
		if hit%2 != 0 {
			from = hit + 1
			continue
		}
		from = hit + 2

		start, ok := driveStart(buf, hit/2)
		if !ok {
			continue
		}

		raw, err := utf16le.NewDecoder().Bytes(buf[start*2 : hit+len(needle)])
		if err != nil {
			continue
		}
		path := string(raw)
		if !s.paths.Exists(path) {
			s.logger.Debug("rejecting candidate path", zap.String("path", path))
			continue
		}
		return path, start * 2, true
	}
	return "", 0, false
}

// driveStart walks backward from code unit hit looking for the drive
// separator and returns the index of the drive letter before it.
func driveStart(buf []byte, hit int) (int, bool) {
	idx := hit
	for i := 0; i < MaxPathLength; i++ {
		idx--
		if idx < 0 {
			return 0, false
		}
		if binary.LittleEndian.Uint16(buf[idx*2:]) == driveSeparator {
			if idx == 0 {
				return 0, false
			}
			return idx - 1, true
		}
	}
	return 0, false
}

// Regions walks the address space of mem from zero and returns every
// committed private region in ascending address order.
func Regions(mem domain.ProcessMemory) []domain.MemoryRegion {
	var regions []domain.MemoryRegion
	var addr uintptr
	for {
		r, err := mem.Query(addr)
		if err != nil {
			break
		}
		if r.IsPrivate() && r.IsCommitted() {
			regions = append(regions, r)
		}
		next := r.End()
		if next <= addr {
			break
		}
		addr = next
	}
	return regions
}

// SortRegions orders regions by likelihood of holding the path: read/write
// first, then typicalSize, then closest to anchor.
func SortRegions(regions []domain.MemoryRegion, typicalSize, anchor uintptr) {
	sort.SliceStable(regions, func(i, j int) bool {
		a, b := regions[i], regions[j]
		if a.IsReadWrite() != b.IsReadWrite() {
			return a.IsReadWrite()
		}
		aTypical, bTypical := a.Size == typicalSize, b.Size == typicalSize
		if aTypical != bTypical {
			return aTypical
		}
		return distance(a.BaseAddress, anchor) < distance(b.BaseAddress, anchor)
	})
}

func distance(a, b uintptr) uintptr {
	if a > b {
		return a - b
	}
	return b - a
}
