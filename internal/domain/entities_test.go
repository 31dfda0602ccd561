package domain

import (
	"testing"
	"time"
)

func TestFormattedDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{3*time.Minute + 12*time.Second, "3m 12s"},
		{time.Hour + 25*time.Minute, "1h 25m"},
		{0, "0s"},
	}
	for _, tc := range cases {
		v := Video{Duration: tc.d}
		if got := v.FormattedDuration(); got != tc.want {
			t.Errorf("FormattedDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestFormattedSize(t *testing.T) {
	cases := []struct {
		size int64
		want string
	}{
		{0, ""},
		{5 * 1024 * 1024, "5 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tc := range cases {
		v := Video{Size: tc.size}
		if got := v.FormattedSize(); got != tc.want {
			t.Errorf("FormattedSize(%d) = %q, want %q", tc.size, got, tc.want)
		}
	}
}

func TestWatchStatus(t *testing.T) {
	if got := (Video{}).WatchStatus(); got != WatchStatusUnwatched {
		t.Errorf("expected unwatched, got %v", got)
	}
	if got := (Video{Watched: true}).WatchStatus(); got != WatchStatusWatched {
		t.Errorf("expected watched, got %v", got)
	}
	if WatchStatusWatched.String() != "Watched" || WatchStatusUnwatched.String() != "Unwatched" {
		t.Error("unexpected watch status strings")
	}
}

func TestPlaylistContains(t *testing.T) {
	p := Playlist{VideoIDs: []string{"a", "b"}}
	if !p.Contains("a") || p.Contains("z") {
		t.Error("unexpected membership results")
	}
	if p.ItemCount() != 2 {
		t.Errorf("expected 2 items, got %d", p.ItemCount())
	}
}
