package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reelbox/reelbox/internal/config"
	"github.com/reelbox/reelbox/internal/domain"
	"github.com/reelbox/reelbox/internal/log"
	"github.com/reelbox/reelbox/internal/store"
)

type fakeProber struct {
	duration time.Duration
	failFor  map[string]bool
}

func (p *fakeProber) Probe(_ context.Context, location string) (time.Duration, error) {
	if p.failFor[filepath.Base(location)] {
		return 0, errors.New("decode error")
	}
	return p.duration, nil
}

func newTestService(t *testing.T, root string, prober *fakeProber) (*Service, *store.Store) {
	t.Helper()
	st := store.Open("", log.NullLogger())
	cfg := config.LibraryConfig{
		Root:       root,
		Recursive:  true,
		Extensions: []string{".mp4", ".mov", ".m4v"},
	}
	return NewService(st, prober, cfg, log.NullLogger()), st
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fake video data"), 0o644); err != nil {
		t.Fatalf("writing %s failed: %v", name, err)
	}
	return path
}

func TestScanIndexesNewFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.mp4")
	writeFile(t, root, "b.mov")
	writeFile(t, root, "notes.txt")

	svc, _ := newTestService(t, root, &fakeProber{duration: 2 * time.Minute})

	videos, err := svc.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("expected 2 videos, got %d", len(videos))
	}
	for _, v := range videos {
		if v.Watched || v.WatchCount != 0 {
			t.Errorf("new video %s should start unwatched", v.Name)
		}
		if v.Duration != 2*time.Minute {
			t.Errorf("expected probed duration for %s, got %v", v.Name, v.Duration)
		}
		if v.Size <= 0 {
			t.Errorf("expected filesystem size for %s", v.Name)
		}
	}
}

func TestScanRecursesIntoSubdirectories(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "season1")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	writeFile(t, root, "a.mp4")
	writeFile(t, sub, "b.mp4")

	svc, _ := newTestService(t, root, &fakeProber{duration: time.Minute})
	videos, err := svc.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(videos) != 2 {
		t.Errorf("expected 2 videos with recursive scan, got %d", len(videos))
	}
}

func TestScanSkipsProbeFailures(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "good.mp4")
	writeFile(t, root, "broken.mp4")

	svc, _ := newTestService(t, root, &fakeProber{
		duration: time.Minute,
		failFor:  map[string]bool{"broken.mp4": true},
	})

	videos, err := svc.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(videos) != 1 {
		t.Fatalf("expected 1 video after probe failure, got %d", len(videos))
	}
	if videos[0].Name != "good" {
		t.Errorf("wrong video survived: %s", videos[0].Name)
	}
}

func TestScanRemovesMissingFilesWithCascade(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.mp4")
	gone := writeFile(t, root, "gone.mp4")

	svc, st := newTestService(t, root, &fakeProber{duration: time.Minute})
	if _, err := svc.Scan(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	goneID := gone
	if _, ok := st.Video(goneID); !ok {
		t.Fatal("expected gone.mp4 indexed after first scan")
	}
	if err := st.SavePlaylist(domain.Playlist{ID: "p1", Name: "mix", VideoIDs: []string{goneID}}); err != nil {
		t.Fatalf("SavePlaylist failed: %v", err)
	}
	if err := st.SetLiked(goneID, true); err != nil {
		t.Fatalf("SetLiked failed: %v", err)
	}

	if err := os.Remove(gone); err != nil {
		t.Fatalf("removing file failed: %v", err)
	}

	videos, err := svc.Scan(context.Background())
	if err != nil {
		t.Fatalf("rescan failed: %v", err)
	}
	if len(videos) != 1 {
		t.Fatalf("expected 1 video after rescan, got %d", len(videos))
	}
	p, _ := st.Playlist("p1")
	if p.Contains(goneID) {
		t.Error("playlist still references removed video")
	}
	if st.IsLiked(goneID) {
		t.Error("liked set still references removed video")
	}
}

func TestScanSurfacesPersistFailure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.mp4")

	st := store.Open(t.TempDir(), log.NullLogger())
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Every write against the closed database now fails.
	cfg := config.LibraryConfig{
		Root:       root,
		Recursive:  true,
		Extensions: []string{".mp4"},
	}
	svc := NewService(st, &fakeProber{duration: time.Minute}, cfg, log.NullLogger())

	videos, err := svc.Scan(context.Background())
	if err == nil {
		t.Fatal("expected the persist failure to be surfaced")
	}
	var fsErr *domain.FilesystemError
	if !errors.As(err, &fsErr) {
		t.Errorf("expected a FilesystemError, got %v", err)
	}
	if len(videos) != 1 {
		t.Errorf("in-memory catalog must still reflect the scan, got %d videos", len(videos))
	}
}

func TestScanReprobesChangedFiles(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "a.mp4")

	prober := &fakeProber{duration: time.Minute}
	svc, st := newTestService(t, root, prober)
	if _, err := svc.Scan(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if _, err := svc.MarkWatched(path); err != nil {
		t.Fatalf("MarkWatched failed: %v", err)
	}

	// Replace the file's content: new modtime, new duration on probe.
	if err := os.WriteFile(path, []byte("rather different video data"), 0o644); err != nil {
		t.Fatalf("rewriting file failed: %v", err)
	}
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}
	prober.duration = 3 * time.Minute

	if _, err := svc.Scan(context.Background()); err != nil {
		t.Fatalf("rescan failed: %v", err)
	}

	v, ok := st.Video(path)
	if !ok {
		t.Fatal("video missing after rescan")
	}
	if v.Duration != 3*time.Minute {
		t.Errorf("expected re-probed duration 3m, got %v", v.Duration)
	}
	if !v.Watched || v.WatchCount != 1 {
		t.Errorf("refresh must keep watch state, got watched=%v count=%d", v.Watched, v.WatchCount)
	}
}

func TestScanKeepsEntryWhenReprobeFails(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "a.mp4")

	prober := &fakeProber{duration: time.Minute}
	svc, st := newTestService(t, root, prober)
	if _, err := svc.Scan(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}
	prober.failFor = map[string]bool{"a.mp4": true}

	if _, err := svc.Scan(context.Background()); err != nil {
		t.Fatalf("rescan failed: %v", err)
	}
	v, ok := st.Video(path)
	if !ok {
		t.Fatal("changed file must stay in the catalog when the re-probe fails")
	}
	if v.Duration != time.Minute {
		t.Errorf("expected the previous duration kept, got %v", v.Duration)
	}
}

func TestMarkWatchedKeepsIncrementing(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "a.mp4")

	svc, _ := newTestService(t, root, &fakeProber{duration: time.Minute})
	if _, err := svc.Scan(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	v, err := svc.MarkWatched(path)
	if err != nil {
		t.Fatalf("MarkWatched failed: %v", err)
	}
	if !v.Watched || v.WatchCount != 1 {
		t.Errorf("after one watch: watched=%v count=%d", v.Watched, v.WatchCount)
	}

	v, err = svc.MarkWatched(path)
	if err != nil {
		t.Fatalf("MarkWatched failed: %v", err)
	}
	if v.WatchCount != 2 {
		t.Errorf("expected watch count 2, got %d", v.WatchCount)
	}
}

func TestMarkWatchedUnknownVideo(t *testing.T) {
	svc, _ := newTestService(t, t.TempDir(), &fakeProber{duration: time.Minute})
	if _, err := svc.MarkWatched("/nope.mp4"); !errors.Is(err, domain.ErrVideoNotFound) {
		t.Errorf("expected ErrVideoNotFound, got %v", err)
	}
}

func TestDeleteRemovesFileAndRecord(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "a.mp4")

	svc, st := newTestService(t, root, &fakeProber{duration: time.Minute})
	if _, err := svc.Scan(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if err := svc.Delete(context.Background(), path); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Error("file still on disk after delete")
	}
	if _, ok := st.Video(path); ok {
		t.Error("record still in catalog after delete")
	}
}

func TestDeleteAlreadyAbsentFile(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "a.mp4")

	svc, st := newTestService(t, root, &fakeProber{duration: time.Minute})
	if _, err := svc.Scan(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("removing file failed: %v", err)
	}

	if err := svc.Delete(context.Background(), path); err != nil {
		t.Errorf("deleting an already-absent file should not error, got %v", err)
	}
	if _, ok := st.Video(path); ok {
		t.Error("record still in catalog after delete of absent file")
	}
}

func TestSortDirections(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	videos := []domain.Video{
		{Name: "beta", Duration: 10 * time.Minute, AddedAt: base.Add(time.Hour), Size: 5, WatchCount: 2},
		{Name: "Alpha", Duration: 30 * time.Minute, AddedAt: base, Size: 20, WatchCount: 0},
		{Name: "gamma", Duration: 20 * time.Minute, AddedAt: base.Add(2 * time.Hour), Size: 10, WatchCount: 7},
	}

	tests := []struct {
		key   SortKey
		first string
	}{
		{SortByName, "Alpha"},        // ascending, case-insensitive
		{SortByDuration, "Alpha"},    // longest first
		{SortByAddedAt, "gamma"},     // newest first
		{SortBySize, "Alpha"},        // largest first
		{SortByWatchCount, "gamma"},  // most watched first
		{SortKey("bogus"), "Alpha"},  // unknown keys fall back to name
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			sorted := Sort(append([]domain.Video(nil), videos...), tt.key)
			if sorted[0].Name != tt.first {
				t.Errorf("key %s: expected %s first, got %s", tt.key, tt.first, sorted[0].Name)
			}
		})
	}
}
