// Package watch re-runs audits when a local submission changes on disk.
package watch

import (
	"sort"
	"sync"
	"time"
)

// Batcher collects changed paths and hands them over as one sorted batch
// once the window passes with no new changes.
type Batcher struct {
	window time.Duration
	flush  func([]string)

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]struct{}
	stopped bool
}

func NewBatcher(window time.Duration, flush func([]string)) *Batcher {
	return &Batcher{
		window:  window,
		flush:   flush,
		pending: make(map[string]struct{}),
	}
}

// Add records a change and restarts the quiet window.
func (b *Batcher) Add(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}

	b.pending[path] = struct{}{}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.window, b.fire)
}

// Pending returns the number of paths waiting for the window to close.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Stop drops any pending batch. Later calls to Add are ignored.
func (b *Batcher) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	if b.timer != nil {
		b.timer.Stop()
	}
	b.pending = make(map[string]struct{})
}

func (b *Batcher) fire() {
	b.mu.Lock()
	if b.stopped || len(b.pending) == 0 {
		b.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(b.pending))
	for p := range b.pending {
		paths = append(paths, p)
	}
	b.pending = make(map[string]struct{})
	b.mu.Unlock()

	sort.Strings(paths)
	if b.flush != nil {
		b.flush(paths)
	}
}
