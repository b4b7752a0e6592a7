package ports

import "time"

// FileStater reads modification timestamps of caller-supplied paths. This is
// the only filesystem semantics the dirty checker assumes.
//
//go:generate go run go.uber.org/mock/mockgen -source=stater.go -destination=mocks/mock_stater.go -package=mocks
type FileStater interface {
	// ModTime returns the modification time of the file or directory at path.
	ModTime(path string) (time.Time, error)

	// Glob expands a glob pattern to matching paths, sorted and deduplicated.
	// A plain path with no matches yields an empty slice, not an error.
	Glob(pattern string) ([]string, error)
}
