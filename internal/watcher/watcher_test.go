package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestWatcher(t *testing.T, debounce time.Duration) *Watcher {
	t.Helper()
	watcher, err := NewWithOptions(Options{Debounce: debounce})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	t.Cleanup(func() {
		_ = watcher.Close()
	})
	return watcher
}

func TestWatcherDeliversSingleEventForRepeatedWrites(t *testing.T) {
	watcher := newTestWatcher(t, 100*time.Millisecond)
	dir := t.TempDir()
	if err := watcher.Add(dir); err != nil {
		t.Fatalf("add: %v", err)
	}

	path := filepath.Join(dir, "a.md")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("draft"), 0o644); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}

	events := collectEvents(watcher, 600*time.Millisecond)
	count := 0
	for _, event := range events {
		if event.Path == path {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 debounced event for %q, got %d (%+v)", path, count, events)
	}
}

func TestWatcherDispatchesRemoveEvent(t *testing.T) {
	watcher := newTestWatcher(t, 50*time.Millisecond)
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.md")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := watcher.Add(dir); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove file: %v", err)
	}

	if !waitForPath(watcher, path, 2*time.Second) {
		t.Fatal("timed out waiting for remove event")
	}
}

func TestWatcherAddRejectsInvalidRoots(t *testing.T) {
	watcher := newTestWatcher(t, 50*time.Millisecond)

	if err := watcher.Add(""); err == nil {
		t.Fatal("expected error for empty path")
	}
	if err := watcher.Add(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing path")
	}

	file := filepath.Join(t.TempDir(), "note.md")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := watcher.Add(file); err == nil {
		t.Fatal("expected error for file root")
	}
}

func TestWatcherCloseStopsDelivery(t *testing.T) {
	watcher, err := NewWithOptions(Options{Debounce: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	dir := t.TempDir()
	if err := watcher.Add(dir); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pending.md"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if err := watcher.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := watcher.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	for batch := range watcher.Batches() {
		// Batches flushed before Close may still be buffered; nothing may follow.
		_ = batch
	}
	if _, ok := <-watcher.Errors(); ok {
		t.Fatal("expected errors channel closed")
	}
	if err := watcher.Add(dir); err != ErrClosed {
		t.Fatalf("expected ErrClosed after close, got %v", err)
	}
}

func collectEvents(watcher *Watcher, window time.Duration) []DebouncedEvent {
	var events []DebouncedEvent
	deadline := time.After(window)
	for {
		select {
		case batch, ok := <-watcher.Batches():
			if !ok {
				return events
			}
			events = append(events, batch...)
		case <-deadline:
			return events
		}
	}
}

func waitForPath(watcher *Watcher, path string, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		select {
		case batch, ok := <-watcher.Batches():
			if !ok {
				return false
			}
			for _, event := range batch {
				if event.Path == path {
					return true
				}
			}
		case <-deadline:
			return false
		}
	}
}
