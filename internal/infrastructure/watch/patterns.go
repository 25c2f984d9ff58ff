package watch

import (
	"path/filepath"
	"strings"
)

// Filter decides which filesystem events are worth a new audit run.
type Filter struct {
	// IgnoreDirs are directory names whose contents never trigger a run.
	IgnoreDirs []string
	// Extensions limits matches to these suffixes. Empty means any file.
	Extensions []string
}

// DefaultFilter ignores VCS metadata, the auditor workspace and dependency
// caches, and only reacts to source and report files.
func DefaultFilter() Filter {
	return Filter{
		IgnoreDirs: []string{".git", ".auditor", "node_modules", "__pycache__", ".venv", "venv", ".mypy_cache", ".pytest_cache"},
		Extensions: []string{".py", ".go", ".md", ".txt", ".toml", ".json", ".yaml", ".yml", ".pdf", ".mmd", ".dot"},
	}
}

// SkipDir reports whether a directory should not be watched at all.
func (f Filter) SkipDir(name string) bool {
	base := filepath.Base(name)
	for _, d := range f.IgnoreDirs {
		if base == d {
			return true
		}
	}
	return false
}

// Matches reports whether a changed path is relevant.
func (f Filter) Matches(path string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(filepath.Dir(path)), "/") {
		if seg != "" && f.SkipDir(seg) {
			return false
		}
	}
	if len(f.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range f.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
