package library

import (
	"sort"
	"strings"

	"github.com/reelbox/reelbox/internal/domain"
)

// SortKey selects the presentation order of a video collection.
type SortKey string

const (
	SortByName       SortKey = "name"        // ascending
	SortByDuration   SortKey = "duration"    // descending
	SortByAddedAt    SortKey = "added"       // descending, newest first
	SortBySize       SortKey = "size"        // descending
	SortByWatchCount SortKey = "watch_count" // descending
)

// Sort orders videos by the given key using each key's default direction.
// Sorting is a presentation concern layered on top of the scan result; the
// catalog itself has no meaningful order. The input slice is sorted in
// place and returned.
func Sort(videos []domain.Video, key SortKey) []domain.Video {
	switch key {
	case SortByDuration:
		sort.SliceStable(videos, func(i, j int) bool {
			return videos[i].Duration > videos[j].Duration
		})
	case SortByAddedAt:
		sort.SliceStable(videos, func(i, j int) bool {
			return videos[i].AddedAt.After(videos[j].AddedAt)
		})
	case SortBySize:
		sort.SliceStable(videos, func(i, j int) bool {
			return videos[i].Size > videos[j].Size
		})
	case SortByWatchCount:
		sort.SliceStable(videos, func(i, j int) bool {
			return videos[i].WatchCount > videos[j].WatchCount
		})
	default: // SortByName
		sort.SliceStable(videos, func(i, j int) bool {
			return strings.ToLower(videos[i].Name) < strings.ToLower(videos[j].Name)
		})
	}
	return videos
}
