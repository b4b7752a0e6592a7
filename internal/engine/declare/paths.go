package declare

import "path/filepath"

// normalizePaths cleans each path lexically. Directory paths stay a single
// directory-granularity entry; the engine never expands them — callers pair
// directory entries with file globs when nested changes must be detected.
func normalizePaths(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Clean(p)
	}
	return out
}
