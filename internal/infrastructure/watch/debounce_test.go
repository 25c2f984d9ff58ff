package watch

import (
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestBatcher_CoalescesIntoOneSortedBatch(t *testing.T) {
	var mu sync.Mutex
	var batches [][]string
	b := NewBatcher(50*time.Millisecond, func(paths []string) {
		mu.Lock()
		batches = append(batches, paths)
		mu.Unlock()
	})
	defer b.Stop()

	for _, p := range []string{"src/b.py", "src/a.py", "src/b.py", "report.md"} {
		b.Add(p)
		time.Sleep(10 * time.Millisecond)
	}
	if b.Pending() != 3 {
		t.Fatalf("pending = %d, want 3", b.Pending())
	}

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	want := []string{"report.md", "src/a.py", "src/b.py"}
	if !reflect.DeepEqual(batches[0], want) {
		t.Errorf("batch = %v, want %v", batches[0], want)
	}
}

func TestBatcher_StopDropsPending(t *testing.T) {
	fired := make(chan struct{}, 1)
	b := NewBatcher(30*time.Millisecond, func([]string) { fired <- struct{}{} })

	b.Add("a.py")
	b.Stop()
	b.Add("b.py")

	select {
	case <-fired:
		t.Fatal("flush ran after Stop")
	case <-time.After(100 * time.Millisecond):
	}
	if b.Pending() != 0 {
		t.Errorf("pending = %d after Stop", b.Pending())
	}
}
