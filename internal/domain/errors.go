package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrVideoNotFound indicates the requested video is not in the catalog
	ErrVideoNotFound = errors.New("video not found")

	// ErrPlaylistNotFound indicates the requested playlist does not exist
	ErrPlaylistNotFound = errors.New("playlist not found")

	// ErrGenerationFailed indicates a thumbnail could not be produced after
	// exhausting all fallback timestamps
	ErrGenerationFailed = errors.New("thumbnail generation failed")
)

// FilesystemError reports a disk operation that failed for a reason other
// than the target already being absent. In-memory state applied before the
// failure is not rolled back.
type FilesystemError struct {
	Op   string // "remove", "persist"
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("filesystem %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// QueueFailedError aggregates playback-open failures after an entire pass
// over the play order failed. It is surfaced once, never per item.
type QueueFailedError struct {
	Failed int   // Number of items that failed to open
	Last   error // Last open error observed
}

func (e *QueueFailedError) Error() string {
	return fmt.Sprintf("all %d queue items failed to open: %v", e.Failed, e.Last)
}

func (e *QueueFailedError) Unwrap() error { return e.Last }
