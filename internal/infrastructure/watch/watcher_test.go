package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFileWatcher_DetectsWatchedFileWrite(t *testing.T) {
	dir := t.TempDir()

	bookings := filepath.Join(dir, "bookings.json")
	if err := os.WriteFile(bookings, []byte("[]"), 0600); err != nil {
		t.Fatal(err)
	}

	var eventCount atomic.Int32
	var mu sync.Mutex
	var lastChange Event

	w, err := NewFileWatcher([]string{bookings}, 50*time.Millisecond, func(e Event) {
		eventCount.Add(1)
		mu.Lock()
		lastChange = e
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = w.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(bookings, []byte(`[{"booking_date":"2024-06-01","hours":8}]`), 0600); err != nil {
		t.Fatal(err)
	}

	time.Sleep(200 * time.Millisecond)
	cancel()

	if eventCount.Load() == 0 {
		t.Fatal("expected at least one change event")
	}
	mu.Lock()
	defer mu.Unlock()
	if lastChange.ChangeType == "" {
		t.Error("expected a non-empty change type")
	}
	if filepath.Base(lastChange.Path) != "bookings.json" {
		t.Errorf("unexpected path %q", lastChange.Path)
	}
}

func TestFileWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	bookings := filepath.Join(dir, "bookings.json")

	var eventCount atomic.Int32
	w, err := NewFileWatcher([]string{bookings}, 50*time.Millisecond, func(Event) {
		eventCount.Add(1)
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = w.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	cancel()

	if got := eventCount.Load(); got != 0 {
		t.Errorf("expected no events for unrelated files, got %d", got)
	}
}

func TestFileWatcher_Errors(t *testing.T) {
	if _, err := NewFileWatcher(nil, 0, nil); err == nil {
		t.Error("expected error without files")
	}
	missing := filepath.Join(t.TempDir(), "missing", "bookings.json")
	if _, err := NewFileWatcher([]string{missing}, 0, nil); err == nil {
		t.Error("expected error when parent directory does not exist")
	}
}

func TestFileWatcher_ContextCancellation(t *testing.T) {
	dir := t.TempDir()

	w, err := NewFileWatcher([]string{filepath.Join(dir, "bookings.csv")}, 50*time.Millisecond, func(Event) {})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("watcher did not stop after context cancellation")
	}
}
