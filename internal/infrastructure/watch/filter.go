package watch

import (
	"path/filepath"
)

// DefaultIgnore lists editor and sqlite side files that never hold bookings.
var DefaultIgnore = []string{"*.swp", "*.swx", "*~", ".#*", "*-journal", "*-wal", "*-shm"}

// FileFilter accepts events for a fixed set of files, skipping ignore globs.
type FileFilter struct {
	files  map[string]struct{}
	ignore []string
}

// NewFileFilter builds a filter for files. Paths are cleaned and made absolute.
func NewFileFilter(files, ignore []string) *FileFilter {
	f := &FileFilter{files: make(map[string]struct{}, len(files)), ignore: ignore}
	for _, p := range files {
		f.files[normalize(p)] = struct{}{}
	}
	return f
}

// Matches reports whether an event on path should trigger a refresh.
func (f *FileFilter) Matches(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range f.ignore {
		if matched, _ := filepath.Match(pattern, base); matched {
			return false
		}
	}
	_, ok := f.files[normalize(path)]
	return ok
}

// Dirs returns the distinct parent directories of the watched files.
func (f *FileFilter) Dirs() []string {
	seen := make(map[string]struct{})
	dirs := make([]string, 0, len(f.files))
	for p := range f.files {
		dir := filepath.Dir(p)
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	return dirs
}

func normalize(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
