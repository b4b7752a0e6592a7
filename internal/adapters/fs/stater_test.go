package fs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.trai.ch/quake/internal/adapters/fs"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
	return path
}

func TestStater_ModTime(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.c")

	stamp := time.Date(2026, 2, 1, 8, 30, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, stamp, stamp))

	s := fs.NewStater(dir)
	mt, err := s.ModTime("main.c")
	require.NoError(t, err)
	require.True(t, mt.Equal(stamp))
}

func TestStater_ModTime_Missing(t *testing.T) {
	s := fs.NewStater(t.TempDir())
	_, err := s.ModTime("absent.c")
	require.Error(t, err)
}

func TestStater_ModTime_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))

	s := fs.NewStater(dir)
	_, err := s.ModTime("src")
	require.NoError(t, err, "directory entries stat at directory granularity")
}

func TestStater_Glob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/b.c")
	writeFile(t, dir, "src/a.c")
	writeFile(t, dir, "src/a.h")

	s := fs.NewStater(dir)
	matches, err := s.Glob("src/*.c")
	require.NoError(t, err)
	require.Equal(t, []string{"src/a.c", "src/b.c"}, matches, "matches are sorted and relative to the root")
}

func TestStater_Glob_NoMatches(t *testing.T) {
	s := fs.NewStater(t.TempDir())
	matches, err := s.Glob("src/*.c")
	require.NoError(t, err, "a pattern matching nothing is not an error")
	require.Empty(t, matches)
}

func TestStater_Glob_BadPattern(t *testing.T) {
	s := fs.NewStater(t.TempDir())
	_, err := s.Glob("src/[")
	require.Error(t, err)
}
