package target

import "strings"

// ImageNameEqual compares process image names the way Windows does: case
// folded, with an optional ".exe" suffix on either side.
func ImageNameEqual(a, b string) bool {
	return strings.EqualFold(TrimExe(a), TrimExe(b))
}

// TrimExe drops a trailing ".exe" in any case.
func TrimExe(name string) string {
	if len(name) > 4 && strings.EqualFold(name[len(name)-4:], ".exe") {
		return name[:len(name)-4]
	}
	return name
}

// MatchesProcess reports whether image name belongs to p.
func MatchesProcess(p Profile, name string) bool {
	for _, n := range p.ProcessNames() {
		if ImageNameEqual(name, n) {
			return true
		}
	}
	return false
}
