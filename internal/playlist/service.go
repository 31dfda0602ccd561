package playlist

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/reelbox/reelbox/internal/domain"
	"github.com/reelbox/reelbox/internal/store"
)

// Service manages user playlists and the liked set. It references videos
// by identity only and never validates them against the catalog: stale
// references are pruned exclusively by the library's delete cascade.
// Mutating operations return the updated playlist so callers do not rely
// on implicit change propagation.
type Service struct {
	store  *store.Store
	logger *slog.Logger
}

// NewService creates a new playlist service.
func NewService(st *store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, logger: logger}
}

// Playlists returns all playlists.
func (s *Service) Playlists() []domain.Playlist {
	return s.store.Playlists()
}

// Playlist returns a single playlist by ID.
func (s *Service) Playlist(id string) (domain.Playlist, bool) {
	return s.store.Playlist(id)
}

// Create makes a new empty playlist. Name uniqueness is not enforced; the
// generated ID is the identity.
func (s *Service) Create(name string) (domain.Playlist, error) {
	now := time.Now()
	p := domain.Playlist{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SavePlaylist(p); err != nil {
		s.logger.Error("failed to save playlist", "error", err, "name", name)
		return domain.Playlist{}, err
	}
	s.logger.Info("created playlist", "name", name, "id", p.ID)
	return p, nil
}

// Rename changes a playlist's display name.
func (s *Service) Rename(id, newName string) (domain.Playlist, error) {
	p, ok := s.store.Playlist(id)
	if !ok {
		return domain.Playlist{}, domain.ErrPlaylistNotFound
	}
	p.Name = newName
	p.UpdatedAt = time.Now()
	if err := s.store.SavePlaylist(p); err != nil {
		s.logger.Error("failed to rename playlist", "error", err, "id", id)
		return domain.Playlist{}, err
	}
	s.logger.Info("renamed playlist", "id", id, "name", newName)
	return p, nil
}

// Delete removes a playlist entirely. An unknown ID is a silent no-op:
// UI-level races with an in-progress delete are expected.
func (s *Service) Delete(id string) {
	if err := s.store.DeletePlaylist(id); err != nil {
		s.logger.Error("failed to delete playlist", "error", err, "id", id)
		return
	}
	s.logger.Info("deleted playlist", "id", id)
}

// AddVideos appends the given video IDs to a playlist, preserving the
// order given and skipping IDs already present. IDs are not checked
// against the catalog here.
func (s *Service) AddVideos(playlistID string, videoIDs []string) (domain.Playlist, error) {
	p, ok := s.store.Playlist(playlistID)
	if !ok {
		return domain.Playlist{}, domain.ErrPlaylistNotFound
	}

	seen := make(map[string]struct{}, len(p.VideoIDs))
	for _, id := range p.VideoIDs {
		seen[id] = struct{}{}
	}

	added := 0
	for _, id := range videoIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		p.VideoIDs = append(p.VideoIDs, id)
		added++
	}
	if added == 0 {
		return p, nil
	}

	p.UpdatedAt = time.Now()
	if err := s.store.SavePlaylist(p); err != nil {
		s.logger.Error("failed to add videos to playlist", "error", err, "playlistID", playlistID)
		return domain.Playlist{}, err
	}
	s.logger.Info("added videos to playlist", "playlistID", playlistID, "count", added)
	return p, nil
}

// RemoveVideo removes every occurrence of a video ID from a playlist,
// defending against duplicates that slipped in through older data.
func (s *Service) RemoveVideo(playlistID, videoID string) (domain.Playlist, error) {
	p, ok := s.store.Playlist(playlistID)
	if !ok {
		return domain.Playlist{}, domain.ErrPlaylistNotFound
	}

	kept := p.VideoIDs[:0:0]
	for _, id := range p.VideoIDs {
		if id != videoID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(p.VideoIDs) {
		return p, nil
	}

	p.VideoIDs = kept
	p.UpdatedAt = time.Now()
	if err := s.store.SavePlaylist(p); err != nil {
		s.logger.Error("failed to remove video from playlist", "error", err, "playlistID", playlistID)
		return domain.Playlist{}, err
	}
	s.logger.Info("removed video from playlist", "playlistID", playlistID, "videoID", videoID)
	return p, nil
}

// === Liked set ===

// Like adds a video to the liked set. Membership only, no ordering.
func (s *Service) Like(videoID string) error {
	return s.store.SetLiked(videoID, true)
}

// Unlike removes a video from the liked set; unknown IDs are a no-op.
func (s *Service) Unlike(videoID string) error {
	return s.store.SetLiked(videoID, false)
}

// IsLiked reports liked-set membership.
func (s *Service) IsLiked(videoID string) bool {
	return s.store.IsLiked(videoID)
}

// Liked returns the liked set.
func (s *Service) Liked() []string {
	return s.store.Liked()
}
