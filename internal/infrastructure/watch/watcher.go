package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWindow is the quiet period before a batch of changes is reported.
const DefaultWindow = 750 * time.Millisecond

// Change is one debounced batch of relevant paths.
type Change struct {
	Paths []string
}

// SubmissionWatcher watches a repository tree and a report file.
type SubmissionWatcher struct {
	fsw      *fsnotify.Watcher
	window   time.Duration
	filter   Filter
	onChange func(Change)

	mu    sync.RWMutex
	trees []string
	files map[string]struct{}
}

func NewSubmissionWatcher(window time.Duration, filter Filter, onChange func(Change)) (*SubmissionWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &SubmissionWatcher{
		fsw:      fsw,
		window:   window,
		filter:   filter,
		onChange: onChange,
		files:    make(map[string]struct{}),
	}, nil
}

// AddTree watches root and every subdirectory the filter does not skip.
func (w *SubmissionWatcher) AddTree(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch %s: not a directory", root)
	}

	w.mu.Lock()
	w.trees = append(w.trees, abs)
	w.mu.Unlock()
	return w.addDirs(abs)
}

// AddFile watches a single file through its parent directory, so editors
// that replace the file on save are still seen.
func (w *SubmissionWatcher) AddFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.fsw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	w.mu.Lock()
	w.files[abs] = struct{}{}
	w.mu.Unlock()
	return nil
}

func (w *SubmissionWatcher) addDirs(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && w.filter.SkipDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Relevant reports whether a change to path should trigger a run.
func (w *SubmissionWatcher) Relevant(path string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if _, ok := w.files[path]; ok {
		return true
	}
	for _, root := range w.trees {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		return w.filter.Matches(rel)
	}
	return false
}

// Run delivers batches until ctx is cancelled.
func (w *SubmissionWatcher) Run(ctx context.Context) error {
	defer w.fsw.Close() //nolint:errcheck // nothing to report on shutdown

	batcher := NewBatcher(w.window, func(paths []string) {
		if w.onChange != nil {
			w.onChange(Change{Paths: paths})
		}
	})
	defer batcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
				!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if event.Op.Has(fsnotify.Create) && w.inTree(event.Name) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !w.filter.SkipDir(event.Name) {
					_ = w.addDirs(event.Name)
					continue
				}
			}
			if w.Relevant(event.Name) {
				batcher.Add(event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func (w *SubmissionWatcher) inTree(path string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, root := range w.trees {
		if strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
