package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/reelbox/reelbox/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketVideos    = []byte("videos")
	bucketPlaylists = []byte("playlists")
	bucketSettings  = []byte("settings")
)

// Settings keys
const (
	keyLiked       = "liked"
	keyPlayContext = "play_context"
)

// Store persists the video catalog, playlists, the liked set and playback
// settings in BoltDB, with a write-through in-memory copy for hot-path
// reads. All cross-entity mutations (the delete cascade) happen inside a
// single BoltDB transaction and a single cache critical section, so readers
// never observe a video gone from the catalog but still referenced by a
// playlist.
type Store struct {
	db     *bolt.DB
	logger *slog.Logger

	mu        sync.RWMutex
	videos    map[string]domain.Video
	playlists map[string]domain.Playlist
	liked     map[string]struct{}
}

// Open opens (or creates) the store under dir. A missing or unreadable
// database degrades to a memory-only store rather than failing startup; a
// corrupt individual record is skipped at load. Pass an empty dir for an
// explicitly memory-only store.
func Open(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		logger:    logger,
		videos:    make(map[string]domain.Video),
		playlists: make(map[string]domain.Playlist),
		liked:     make(map[string]struct{}),
	}

	if dir == "" {
		return s
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Warn("cannot create data directory, running without persistence", "dir", dir, "error", err)
		return s
	}

	dbPath := filepath.Join(dir, "reelbox.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		logger.Warn("cannot open catalog database, running without persistence", "path", dbPath, "error", err)
		return s
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketVideos, bucketPlaylists, bucketSettings} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		logger.Warn("cannot initialize catalog database, running without persistence", "path", dbPath, "error", err)
		return s
	}

	s.db = db
	s.load()
	return s
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// load populates the in-memory maps from disk, skipping records that no
// longer unmarshal instead of failing the whole catalog.
func (s *Store) load() {
	s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucketVideos); b != nil {
			b.ForEach(func(k, v []byte) error {
				var video domain.Video
				if err := json.Unmarshal(v, &video); err != nil {
					s.logger.Warn("skipping corrupt video record", "key", string(k), "error", err)
					return nil
				}
				s.videos[video.ID] = video
				return nil
			})
		}
		if b := tx.Bucket(bucketPlaylists); b != nil {
			b.ForEach(func(k, v []byte) error {
				var p domain.Playlist
				if err := json.Unmarshal(v, &p); err != nil {
					s.logger.Warn("skipping corrupt playlist record", "key", string(k), "error", err)
					return nil
				}
				s.playlists[p.ID] = p
				return nil
			})
		}
		if b := tx.Bucket(bucketSettings); b != nil {
			if v := b.Get([]byte(keyLiked)); v != nil {
				var ids []string
				if err := json.Unmarshal(v, &ids); err != nil {
					s.logger.Warn("skipping corrupt liked set", "error", err)
				} else {
					for _, id := range ids {
						s.liked[id] = struct{}{}
					}
				}
			}
		}
		return nil
	})
	s.logger.Debug("loaded catalog", "videos", len(s.videos), "playlists", len(s.playlists), "liked", len(s.liked))
}

// === Generic helpers ===

func (s *Store) put(bucket []byte, key string, value interface{}) error {
	if s.db == nil {
		return nil // Memory-only mode
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
	if err != nil {
		return &domain.FilesystemError{Op: "persist", Path: key, Err: err}
	}
	return nil
}

func (s *Store) del(bucket []byte, key string) error {
	if s.db == nil {
		return nil
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(key))
	})
	if err != nil {
		return &domain.FilesystemError{Op: "persist", Path: key, Err: err}
	}
	return nil
}

// === Videos ===

func (s *Store) Videos() []domain.Video {
	s.mu.RLock()
	defer s.mu.RUnlock()
	videos := make([]domain.Video, 0, len(s.videos))
	for _, v := range s.videos {
		videos = append(videos, v)
	}
	return videos
}

func (s *Store) Video(id string) (domain.Video, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.videos[id]
	return v, ok
}

func (s *Store) SaveVideo(v domain.Video) error {
	s.mu.Lock()
	s.videos[v.ID] = v
	s.mu.Unlock()
	return s.put(bucketVideos, v.ID, v)
}

// SaveVideos persists a batch of videos in a single transaction.
func (s *Store) SaveVideos(videos []domain.Video) error {
	s.mu.Lock()
	for _, v := range videos {
		s.videos[v.ID] = v
	}
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketVideos)
		for _, v := range videos {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(v.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &domain.FilesystemError{Op: "persist", Path: "videos", Err: err}
	}
	return nil
}

// DeleteVideo removes a video from the catalog and cascades the removal of
// its ID from every playlist and from the liked set. The whole cascade is
// one logical transaction; deleting an unknown ID is a no-op.
func (s *Store) DeleteVideo(id string) error {
	s.mu.Lock()
	delete(s.videos, id)
	delete(s.liked, id)
	touched := make([]domain.Playlist, 0)
	for pid, p := range s.playlists {
		pruned := pruneID(p.VideoIDs, id)
		if len(pruned) != len(p.VideoIDs) {
			p.VideoIDs = pruned
			p.UpdatedAt = time.Now()
			s.playlists[pid] = p
			touched = append(touched, p)
		}
	}
	liked := s.likedSliceLocked()
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketVideos).Delete([]byte(id)); err != nil {
			return err
		}
		pb := tx.Bucket(bucketPlaylists)
		for _, p := range touched {
			data, err := json.Marshal(p)
			if err != nil {
				return err
			}
			if err := pb.Put([]byte(p.ID), data); err != nil {
				return err
			}
		}
		data, err := json.Marshal(liked)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketSettings).Put([]byte(keyLiked), data)
	})
	if err != nil {
		return &domain.FilesystemError{Op: "persist", Path: id, Err: err}
	}
	return nil
}

func pruneID(ids []string, id string) []string {
	out := ids[:0:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// === Playlists ===

func (s *Store) Playlists() []domain.Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	playlists := make([]domain.Playlist, 0, len(s.playlists))
	for _, p := range s.playlists {
		playlists = append(playlists, p)
	}
	return playlists
}

func (s *Store) Playlist(id string) (domain.Playlist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.playlists[id]
	return p, ok
}

func (s *Store) SavePlaylist(p domain.Playlist) error {
	s.mu.Lock()
	s.playlists[p.ID] = p
	s.mu.Unlock()
	return s.put(bucketPlaylists, p.ID, p)
}

// DeletePlaylist removes a playlist entirely. Unknown IDs are a no-op.
func (s *Store) DeletePlaylist(id string) error {
	s.mu.Lock()
	delete(s.playlists, id)
	s.mu.Unlock()
	return s.del(bucketPlaylists, id)
}

// === Liked set ===

func (s *Store) Liked() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.likedSliceLocked()
}

func (s *Store) IsLiked(videoID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.liked[videoID]
	return ok
}

func (s *Store) SetLiked(videoID string, liked bool) error {
	s.mu.Lock()
	if liked {
		s.liked[videoID] = struct{}{}
	} else {
		delete(s.liked, videoID)
	}
	ids := s.likedSliceLocked()
	s.mu.Unlock()
	return s.put(bucketSettings, keyLiked, ids)
}

func (s *Store) likedSliceLocked() []string {
	ids := make([]string, 0, len(s.liked))
	for id := range s.liked {
		ids = append(ids, id)
	}
	return ids
}

// === Playback context ===

func (s *Store) SavePlayContext(ctx domain.PlayContext) error {
	return s.put(bucketSettings, keyPlayContext, ctx)
}

func (s *Store) PlayContext() (domain.PlayContext, bool) {
	if s.db == nil {
		return domain.PlayContext{}, false
	}
	var ctx domain.PlayContext
	found := false
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSettings)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(keyPlayContext)); v != nil {
			if err := json.Unmarshal(v, &ctx); err == nil {
				found = true
			}
		}
		return nil
	})
	return ctx, found
}

// String implements fmt.Stringer for debug logging.
func (s *Store) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("store(videos=%d playlists=%d liked=%d persistent=%v)",
		len(s.videos), len(s.playlists), len(s.liked), s.db != nil)
}
