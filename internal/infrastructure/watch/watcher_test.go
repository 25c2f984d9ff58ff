package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, setup func(w *SubmissionWatcher)) <-chan Change {
	t.Helper()
	changes := make(chan Change, 8)
	w, err := NewSubmissionWatcher(40*time.Millisecond, DefaultFilter(), func(c Change) {
		changes <- c
	})
	if err != nil {
		t.Fatal(err)
	}
	setup(w)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = w.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	return changes
}

func waitChange(t *testing.T, changes <-chan Change) Change {
	t.Helper()
	select {
	case c := <-changes:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
		return Change{}
	}
}

func TestSubmissionWatcher_SourceWrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	graph := filepath.Join(src, "graph.py")
	if err := os.WriteFile(graph, []byte("x = 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	changes := startWatcher(t, func(w *SubmissionWatcher) {
		if err := w.AddTree(dir); err != nil {
			t.Fatal(err)
		}
	})

	if err := os.WriteFile(graph, []byte("x = 2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	c := waitChange(t, changes)
	if len(c.Paths) == 0 || filepath.Base(c.Paths[0]) != "graph.py" {
		t.Errorf("paths = %v", c.Paths)
	}
}

func TestSubmissionWatcher_IgnoresWorkspaceAndBinaries(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".auditor"), 0o700); err != nil {
		t.Fatal(err)
	}

	changes := startWatcher(t, func(w *SubmissionWatcher) {
		if err := w.AddTree(dir); err != nil {
			t.Fatal(err)
		}
	})

	_ = os.WriteFile(filepath.Join(dir, ".auditor", "report.json"), []byte("{}"), 0o600)
	_ = os.WriteFile(filepath.Join(dir, "logo.png"), []byte{0x89}, 0o600)

	select {
	case c := <-changes:
		t.Fatalf("unexpected change %v", c.Paths)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSubmissionWatcher_SingleFile(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "report.md")
	if err := os.WriteFile(doc, []byte("# Report\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	changes := startWatcher(t, func(w *SubmissionWatcher) {
		if err := w.AddFile(doc); err != nil {
			t.Fatal(err)
		}
	})

	// Siblings of the watched file are not part of the submission.
	_ = os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o600)
	select {
	case c := <-changes:
		t.Fatalf("unexpected change %v", c.Paths)
	case <-time.After(150 * time.Millisecond):
	}

	if err := os.WriteFile(doc, []byte("# Report v2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	c := waitChange(t, changes)
	if len(c.Paths) != 1 || c.Paths[0] != doc {
		t.Errorf("paths = %v, want [%s]", c.Paths, doc)
	}
}

func TestSubmissionWatcher_AddTreeRejectsFile(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "a.py")
	_ = os.WriteFile(f, nil, 0o600)

	w, err := NewSubmissionWatcher(0, DefaultFilter(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.AddTree(f); err == nil {
		t.Error("expected error for non-directory")
	}
	if err := w.AddTree(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}
