package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reelbox/reelbox/internal/log"
)

func newTestWatcher(t *testing.T, root string) *Watcher {
	t.Helper()
	w, err := newWatcher(root, true, 100*time.Millisecond, log.NullLogger())
	if err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func waitForChange(t *testing.T, w *Watcher) {
	t.Helper()
	select {
	case <-w.Changes():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a change signal")
	}
}

func TestCreateEmitsDebouncedSignal(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	if err := os.WriteFile(filepath.Join(root, "a.mp4"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	waitForChange(t, w)
}

func TestBurstCollapsesToOneSignal(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	for i := 0; i < 5; i++ {
		name := filepath.Join(root, "clip"+string(rune('a'+i))+".mp4")
		if err := os.WriteFile(name, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	waitForChange(t, w)

	// No further events: the channel must stay quiet after the burst drains.
	select {
	case <-w.Changes():
		// A second pending signal is allowed by the single-slot channel,
		// but it must be the last.
		select {
		case <-w.Changes():
			t.Error("burst produced more than the pending signal")
		case <-time.After(500 * time.Millisecond):
		}
	case <-time.After(500 * time.Millisecond):
	}
}

func TestBurstNeverSignalsBeforeQuietPeriod(t *testing.T) {
	root := t.TempDir()
	w, err := newWatcher(root, true, 600*time.Millisecond, log.NullLogger())
	if err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	// Keep events coming faster than the debounce window; each one must
	// push the signal out further instead of letting a stale tick through.
	deadline := time.Now().Add(1200 * time.Millisecond)
	for i := 0; time.Now().Before(deadline); i++ {
		name := filepath.Join(root, "clip"+string(rune('a'+i%26))+".mp4")
		if err := os.WriteFile(name, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		select {
		case <-w.Changes():
			t.Fatal("signal delivered while the burst was still active")
		case <-time.After(150 * time.Millisecond):
		}
	}
	waitForChange(t, w)
}

func TestRemoveEmitsSignal(t *testing.T) {
	root := t.TempDir()
	name := filepath.Join(root, "a.mp4")
	if err := os.WriteFile(name, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	w := newTestWatcher(t, root)

	if err := os.Remove(name); err != nil {
		t.Fatal(err)
	}
	waitForChange(t, w)
}

func TestNewDirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	waitForChange(t, w)

	if err := os.WriteFile(filepath.Join(sub, "b.mp4"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	waitForChange(t, w)
}
