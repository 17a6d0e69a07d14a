package infra

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// DefaultRootMarkers are file or directory names that mark a project root,
// by priority level. A directory containing any name of an earlier level
// wins over any directory matching a later level. Names are case-insensitive.
var DefaultRootMarkers = [][]string{
	{".wakatime-project", ".git"},
	{".gitattributes", ".gitignore", "readme.md", "license"},
	{"Assembly-CSharp.csproj", "readme.txt", "license.md", "license.txt"},
	{".vscode", ".vs", ".idea"},
}

// ProjectRootResolver names the project a file belongs to by walking up from
// its directory looking for root markers.
type ProjectRootResolver struct {
	levels    [][]string
	forbidden map[string]bool
	logger    *zap.Logger
}

// NewProjectRootResolver creates a resolver that never picks home or the
// common personal folders under it.
func NewProjectRootResolver(home string, logger *zap.Logger) *ProjectRootResolver {
	var forbidden []string
	if home != "" {
		forbidden = append(forbidden,
			home,
			filepath.Join(home, "Desktop"),
			filepath.Join(home, "Music"),
			filepath.Join(home, "Documents"),
		)
	}
	return NewProjectRootResolverWithMarkers(DefaultRootMarkers, forbidden, logger)
}

// NewProjectRootResolverWithMarkers creates a resolver with custom markers and
// excluded directories (for testing).
func NewProjectRootResolverWithMarkers(levels [][]string, forbidden []string, logger *zap.Logger) *ProjectRootResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	lower := make([][]string, len(levels))
	for i, level := range levels {
		for _, name := range level {
			lower[i] = append(lower[i], strings.ToLower(name))
		}
	}
	f := make(map[string]bool, len(forbidden))
	for _, dir := range forbidden {
		f[normalizeDir(dir)] = true
	}
	return &ProjectRootResolver{levels: lower, forbidden: f, logger: logger}
}

// Resolve returns the name of the project root directory of file, or "" when
// no marker is found.
func (r *ProjectRootResolver) Resolve(file string) string {
	for _, level := range r.levels {
		for dir := filepath.Dir(file); ; {
			if !r.forbidden[normalizeDir(dir)] && r.hasMarker(dir, level) {
				if name := filepath.Base(dir); name != "" && name != string(filepath.Separator) && name != "." {
					return name
				}
			}

			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	return ""
}

func (r *ProjectRootResolver) hasMarker(dir string, level []string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		r.logger.Debug("cannot list directory", zap.String("dir", dir), zap.Error(err))
		return false
	}
	for _, e := range entries {
		name := strings.ToLower(e.Name())
		for _, marker := range level {
			if name == marker {
				return true
			}
		}
	}
	return false
}

func normalizeDir(dir string) string {
	return strings.ToLower(filepath.Clean(dir))
}
