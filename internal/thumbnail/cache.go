package thumbnail

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/reelbox/reelbox/internal/domain"
	"github.com/reelbox/reelbox/internal/media"
)

// fallbackOffsets are the timestamps tried in order when the preview
// renderer fails on a clip.
var fallbackOffsets = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	500 * time.Millisecond,
	3 * time.Second,
}

type entry struct {
	img        image.Image
	lastAccess time.Time
}

// call tracks one in-flight generation so concurrent requests for the
// same location share a single render.
type call struct {
	done chan struct{}
	img  image.Image
	ok   bool
}

// Cache produces bounded-size preview images keyed by video location.
// Entries are never persisted; the least-recently-accessed entry is
// evicted once capacity is reached. Generation failures leave the entry
// absent so a later Get can retry.
type Cache struct {
	renderer media.FrameRenderer
	capacity int
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	entries  map[string]*entry
	inflight map[string]*call
}

// NewCache creates a thumbnail cache holding at most capacity entries.
func NewCache(renderer media.FrameRenderer, capacity int, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if capacity <= 0 {
		capacity = 100
	}
	return &Cache{
		renderer: renderer,
		capacity: capacity,
		logger:   logger,
		now:      time.Now,
		entries:  make(map[string]*entry),
		inflight: make(map[string]*call),
	}
}

// Get returns the thumbnail for a video location, generating it if needed.
// A cached image is returned immediately (refreshing its recency). A miss
// attaches to any in-flight generation for the same location rather than
// starting duplicate work. When generation fails, callers get (nil, false)
// rather than an error; a missing thumbnail is never fatal.
//
// The ctx only bounds how long this caller waits. Generation itself is
// detached: a caller that gives up does not tear down the render, so the
// result still lands in the cache for future requests.
func (c *Cache) Get(ctx context.Context, location string) (image.Image, bool) {
	c.mu.Lock()
	if e, ok := c.entries[location]; ok {
		e.lastAccess = c.now()
		img := e.img
		c.mu.Unlock()
		return img, true
	}

	cl, ok := c.inflight[location]
	if !ok {
		cl = &call{done: make(chan struct{})}
		c.inflight[location] = cl
		go c.generate(location, cl)
	}
	c.mu.Unlock()

	select {
	case <-cl.done:
		return cl.img, cl.ok
	case <-ctx.Done():
		return nil, false
	}
}

// Len returns the number of resident entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// generate renders a thumbnail and publishes the result to all waiters.
func (c *Cache) generate(location string, cl *call) {
	img, err := c.render(location)

	c.mu.Lock()
	delete(c.inflight, location)
	if err == nil {
		c.insertLocked(location, img)
		cl.img = img
		cl.ok = true
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("thumbnail generation failed", "location", location, "error", err)
	}
	close(cl.done)
}

// render tries the preview path first, then falls back to sampling fixed
// offsets into the clip until one decodes.
func (c *Cache) render(location string) (image.Image, error) {
	ctx := context.Background()

	img, err := c.renderer.RenderPreview(ctx, location)
	if err == nil {
		return img, nil
	}
	c.logger.Debug("preview render failed, trying fallback offsets", "location", location, "error", err)

	for _, at := range fallbackOffsets {
		img, err = c.renderer.RenderFrame(ctx, location, at)
		if err == nil {
			return img, nil
		}
	}
	return nil, domain.ErrGenerationFailed
}

// insertLocked stores an entry, evicting the least-recently-accessed one
// when at capacity. Callers hold c.mu.
func (c *Cache) insertLocked(location string, img image.Image) {
	if len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}
	c.entries[location] = &entry{img: img, lastAccess: c.now()}
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	first := true
	for key, e := range c.entries {
		if first || e.lastAccess.Before(oldest) {
			oldestKey = key
			oldest = e.lastAccess
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
		c.logger.Debug("evicted thumbnail", "location", oldestKey)
	}
}
