package domain

import (
	"fmt"
	"time"
)

// Video represents a single indexed file in the library. Its ID is the
// canonical absolute path of the file, which stays stable for as long as
// the file does not move.
type Video struct {
	ID         string        `json:"id"`          // Canonical file location, unique per file
	Name       string        `json:"name"`        // Display name (base name without extension)
	Location   string        `json:"location"`    // Absolute path on disk (same as ID)
	Duration   time.Duration `json:"duration"`    // Probed runtime
	AddedAt    time.Time     `json:"added_at"`    // When the file was first indexed
	ModTime    time.Time     `json:"mod_time"`    // Filesystem modification time
	Size       int64         `json:"size"`        // File size in bytes
	Watched    bool          `json:"watched"`     // Whether the video has been watched at least once
	WatchCount int           `json:"watch_count"` // Number of completed plays
}

// WatchStatus returns the watch status of the video
func (v Video) WatchStatus() WatchStatus {
	if v.Watched {
		return WatchStatusWatched
	}
	return WatchStatusUnwatched
}

// FormattedDuration returns the duration in a human-readable format
func (v Video) FormattedDuration() string {
	h := int(v.Duration.Hours())
	mins := int(v.Duration.Minutes()) % 60
	secs := int(v.Duration.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, mins)
	}
	if mins > 0 {
		return fmt.Sprintf("%dm %ds", mins, secs)
	}
	return fmt.Sprintf("%ds", secs)
}

// FormattedSize returns the file size in a human-readable format
func (v Video) FormattedSize() string {
	if v.Size <= 0 {
		return ""
	}
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
	)
	switch {
	case v.Size >= gb:
		return fmt.Sprintf("%.1f GB", float64(v.Size)/float64(gb))
	default:
		return fmt.Sprintf("%d MB", v.Size/mb)
	}
}

// Playlist represents a user-created, ordered list of video IDs.
// Names are not unique; the generated ID is the identity.
type Playlist struct {
	ID        string    `json:"id"`         // Generated identifier (UUID)
	Name      string    `json:"name"`       // Display name, mutable, may collide
	VideoIDs  []string  `json:"video_ids"`  // Ordered, duplicate-free video references
	CreatedAt time.Time `json:"created_at"` // When the playlist was created
	UpdatedAt time.Time `json:"updated_at"` // When the playlist was last modified
}

// Contains reports whether the playlist already references the given video.
func (p Playlist) Contains(videoID string) bool {
	for _, id := range p.VideoIDs {
		if id == videoID {
			return true
		}
	}
	return false
}

// ItemCount returns the number of videos in the playlist.
func (p Playlist) ItemCount() int { return len(p.VideoIDs) }

// WatchStatus represents the viewing state of a video
type WatchStatus int

const (
	WatchStatusUnwatched WatchStatus = iota
	WatchStatusWatched
)

// String returns a human-readable representation of the watch status
func (w WatchStatus) String() string {
	switch w {
	case WatchStatusUnwatched:
		return "Unwatched"
	case WatchStatusWatched:
		return "Watched"
	default:
		return "Unknown"
	}
}

// ContextKind identifies which screen a playback queue was started from.
type ContextKind string

const (
	ContextLibrary  ContextKind = "library"
	ContextPlaylist ContextKind = "playlist"
	ContextLiked    ContextKind = "liked"
)

// PlayContext records the origin of the currently playing queue so the UI
// can reopen "now playing" into the correct screen. The queue engine writes
// it but never consults it for its own transitions.
type PlayContext struct {
	Kind       ContextKind `json:"kind"`
	PlaylistID string      `json:"playlist_id,omitempty"` // Set only for ContextPlaylist
}
