package library

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/reelbox/reelbox/internal/config"
	"github.com/reelbox/reelbox/internal/domain"
	"github.com/reelbox/reelbox/internal/media"
	"github.com/reelbox/reelbox/internal/store"
)

// Service is the library index: the source of truth for video identities.
// Scans, watch-state updates and the delete cascade all go through here.
type Service struct {
	store  *store.Store
	prober media.Prober
	cfg    config.LibraryConfig
	logger *slog.Logger
}

// NewService creates a new library service.
func NewService(st *store.Store, prober media.Prober, cfg config.LibraryConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, prober: prober, cfg: cfg, logger: logger}
}

// Videos returns the current catalog.
func (s *Service) Videos() []domain.Video {
	return s.store.Videos()
}

// Video returns a single catalog entry by ID.
func (s *Service) Video(id string) (domain.Video, bool) {
	return s.store.Video(id)
}

// Scan refreshes the catalog against the configured root directory. Files
// with allowed extensions that are not yet indexed get probed and added;
// files changed in place are re-probed; indexed entries whose file
// disappeared are removed via the delete cascade. A file that fails
// probing is skipped with a warning, never fatal for the scan. A failure
// persisting the refreshed catalog is returned alongside the collection:
// the in-memory index still reflects the scan and stays usable.
func (s *Service) Scan(ctx context.Context) ([]domain.Video, error) {
	paths, err := s.collectPaths()
	if err != nil {
		return nil, err
	}

	onDisk := make(map[string]os.FileInfo, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			s.logger.Warn("cannot stat file, skipping", "path", path, "error", err)
			continue
		}
		onDisk[path] = info
	}

	var changed []domain.Video
	for path, info := range onDisk {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		existing, ok := s.store.Video(path)
		if ok {
			// A file changed in place is as good as new content: re-probe
			// so the duration tracks a replaced file. Watch state survives.
			if existing.Size != info.Size() || !existing.ModTime.Equal(info.ModTime()) {
				duration, err := s.prober.Probe(ctx, path)
				if err != nil {
					// Leave the record untouched so the next scan retries.
					s.logger.Warn("probe failed for changed file, keeping previous entry", "path", path, "error", err)
					continue
				}
				existing.Duration = duration
				existing.Size = info.Size()
				existing.ModTime = info.ModTime()
				changed = append(changed, existing)
			}
			continue
		}

		duration, err := s.prober.Probe(ctx, path)
		if err != nil {
			s.logger.Warn("probe failed, skipping file", "path", path, "error", err)
			continue
		}

		changed = append(changed, domain.Video{
			ID:       path,
			Name:     displayName(path),
			Location: path,
			Duration: duration,
			AddedAt:  time.Now(),
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		})
	}

	var persistErr error
	if len(changed) > 0 {
		if err := s.store.SaveVideos(changed); err != nil {
			s.logger.Error("failed to persist scan results", "error", err)
			persistErr = err
		}
	}

	// Remove entries whose backing file is gone. Delete tolerates the file
	// already being absent and still cascades catalog removal.
	for _, v := range s.store.Videos() {
		if _, ok := onDisk[v.ID]; ok {
			continue
		}
		if err := s.Delete(ctx, v.ID); err != nil {
			s.logger.Error("failed to remove missing video", "id", v.ID, "error", err)
		} else {
			s.logger.Info("removed missing video", "id", v.ID)
		}
	}

	videos := s.store.Videos()
	s.logger.Info("scan complete", "root", s.cfg.Root, "count", len(videos))
	return videos, persistErr
}

// MarkWatched records one completed play: sets the watched flag and
// increments the watch count. Repeated calls keep incrementing.
func (s *Service) MarkWatched(id string) (domain.Video, error) {
	v, ok := s.store.Video(id)
	if !ok {
		return domain.Video{}, domain.ErrVideoNotFound
	}
	v.Watched = true
	v.WatchCount++
	if err := s.store.SaveVideo(v); err != nil {
		s.logger.Error("failed to persist watch state", "id", id, "error", err)
		return v, err
	}
	s.logger.Debug("marked watched", "id", id, "count", v.WatchCount)
	return v, nil
}

// Delete removes the file from disk and the video from the catalog,
// cascading removal of its ID from every playlist and the liked set. A
// file that is already absent is not an error; any other filesystem
// failure is returned, but the catalog removal still proceeds so no
// dangling entry survives.
func (s *Service) Delete(ctx context.Context, id string) error {
	var fsErr error
	if v, ok := s.store.Video(id); ok {
		if err := os.Remove(v.Location); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fsErr = &domain.FilesystemError{Op: "remove", Path: v.Location, Err: err}
		}
	}

	if err := s.store.DeleteVideo(id); err != nil {
		s.logger.Error("failed to persist delete cascade", "id", id, "error", err)
		if fsErr == nil {
			fsErr = err
		}
	}

	s.logger.Info("deleted video", "id", id)
	return fsErr
}

// collectPaths enumerates candidate files under the configured root,
// keyed by canonical location.
func (s *Service) collectPaths() ([]string, error) {
	root, err := canonical(s.cfg.Root)
	if err != nil {
		return nil, err
	}

	allowed := s.cfg.AllowedExtensions()

	var paths []string
	if s.cfg.Recursive {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				s.logger.Warn("scan cannot read entry", "path", path, "error", err)
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if _, ok := allowed[strings.ToLower(filepath.Ext(path))]; ok {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return paths, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(root, entry.Name())
		if _, ok := allowed[strings.ToLower(filepath.Ext(path))]; ok {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// canonical normalizes a path into the stable identity form used as a
// video ID.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

func displayName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
