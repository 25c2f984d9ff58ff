package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const DefaultMaxFiles = 5000

var errCatalogFull = errors.New("catalog limit reached")

var skipDirs = map[string]bool{
	".git": true, ".auditor": true, "vendor": true, "node_modules": true,
	"__pycache__": true, ".venv": true, "venv": true, ".idea": true,
	".vscode": true, "dist": true, "build": true, ".mypy_cache": true,
}

var catalogExts = map[string]bool{
	".go": true, ".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".py": true, ".rs": true, ".java": true, ".rb": true, ".c": true,
	".h": true, ".cpp": true, ".cs": true, ".swift": true, ".kt": true,
	".yaml": true, ".yml": true, ".json": true, ".toml": true, ".sql": true,
	".proto": true, ".graphql": true, ".md": true, ".txt": true, ".cfg": true,
	".ini": true, ".sh": true, ".mmd": true, ".dot": true,
}

// Catalog lists source and config files under root as sorted slash paths
// relative to root. Hidden tool directories and build output are skipped.
func Catalog(root string, maxFiles int) ([]string, error) {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !catalogExts[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		if len(files) >= maxFiles {
			return errCatalogFull
		}
		return nil
	})
	if err != nil && !errors.Is(err, errCatalogFull) {
		return nil, fmt.Errorf("failed to walk repository: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// Source gives the forensic protocols read access to a repository.
type Source interface {
	Files() []string
	ReadFile(path string) (string, error)
}

const maxReadBytes = 1 << 20

type dirSource struct {
	root  string
	files []string
}

// NewDirSource serves files from a checked out repository.
func NewDirSource(root string, files []string) Source {
	return &dirSource{root: root, files: files}
}

func (s *dirSource) Files() []string { return s.files }

func (s *dirSource) ReadFile(path string) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(path))
	if rel, err := filepath.Rel(s.root, full); err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path escapes repository: %s", path)
	}
	// #nosec G304 -- Path is confined to the repository root above
	data, err := os.ReadFile(full)
	if err != nil {
		return "", err
	}
	if len(data) > maxReadBytes {
		data = data[:maxReadBytes]
	}
	return string(data), nil
}
