// Package fs provides the filesystem adapter for source and artifact
// inspection.
package fs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.trai.ch/zerr"
)

// Stater implements ports.FileStater against the local filesystem,
// resolving paths relative to a fixed root directory.
type Stater struct {
	root string
}

// NewStater creates a Stater rooted at the given directory. An empty
// root resolves paths relative to the process working directory.
func NewStater(root string) *Stater {
	return &Stater{root: root}
}

// ModTime returns the modification time of the file at path.
func (s *Stater) ModTime(path string) (time.Time, error) {
	info, err := os.Stat(s.resolve(path))
	if err != nil {
		return time.Time{}, zerr.With(zerr.Wrap(err, "stat failed"), "path", path)
	}
	return info.ModTime(), nil
}

// Glob expands pattern against the filesystem. Matches are returned
// sorted and deduplicated, relative to the same base the pattern used.
func (s *Stater) Glob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(s.resolve(pattern))
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "malformed glob pattern"), "pattern", pattern)
	}

	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		rel := s.unresolve(m)
		if _, ok := seen[rel]; ok {
			continue
		}
		seen[rel] = struct{}{}
		out = append(out, rel)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Stater) resolve(path string) string {
	if s.root == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.root, path)
}

func (s *Stater) unresolve(path string) string {
	if s.root == "" {
		return path
	}
	rel, err := filepath.Rel(s.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
