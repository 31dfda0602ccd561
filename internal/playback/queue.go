package playback

import (
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/reelbox/reelbox/internal/domain"
)

// State is the queue's lifecycle state.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
	StateEnded
)

// String returns a human-readable representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateEnded:
		return "Ended"
	default:
		return "Unknown"
	}
}

// Observer receives queue notifications. Mutations emit explicit events;
// consumers subscribe instead of relying on implicit change propagation.
type Observer interface {
	StateChanged(state State)
	TrackChanged(video domain.Video)
	QueueFailed(err error)
}

// NoopObserver discards all notifications.
type NoopObserver struct{}

func (NoopObserver) StateChanged(State)        {}
func (NoopObserver) TrackChanged(domain.Video) {}
func (NoopObserver) QueueFailed(error)         {}

// watchRecorder records completed plays (consumer-defined interface,
// implemented by the library service)
type watchRecorder interface {
	MarkWatched(id string) (domain.Video, error)
}

// contextStore persists the origin context of the active queue
type contextStore interface {
	SavePlayContext(ctx domain.PlayContext) error
}

// Options configures a newly built queue.
type Options struct {
	Shuffle bool
	Loop    bool
	Context domain.PlayContext // Origin screen, recorded but never consulted
}

// Queue is the playback queue engine: it owns the play order, the current
// position and the shuffle/loop transitions, and drives the external
// engine. All transitions are serialized behind one mutex; they are
// triggered by discrete events only, so no two ever run concurrently
// against the same queue.
type Queue struct {
	engine    Engine
	recorder  watchRecorder
	contexts  contextStore
	observer  Observer
	logger    *slog.Logger
	threshold float64
	rng       *rand.Rand

	mu       sync.Mutex
	state    State
	source   []domain.Video
	order    []int // play order as indices into source
	pos      int
	shuffle  bool
	loop     bool
	playCtx  domain.PlayContext
	recorded bool // watch already recorded for the current entry
	failures int  // consecutive open failures in the current pass
}

// NewQueue creates a queue engine. threshold is the fraction of an item's
// duration that must play before a watch is recorded; values outside
// (0, 1] fall back to 0.9.
func NewQueue(engine Engine, recorder watchRecorder, contexts contextStore, observer Observer, threshold float64, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = NoopObserver{}
	}
	if threshold <= 0 || threshold > 1 {
		threshold = 0.9
	}
	return &Queue{
		engine:    engine,
		recorder:  recorder,
		contexts:  contexts,
		observer:  observer,
		logger:    logger,
		threshold: threshold,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Play builds a fresh queue from source and starts it at the requested
// video. With shuffle on, the chosen video always plays first and the
// remainder is a random permutation; with shuffle off, the play order is
// the source order starting at the chosen video's position.
func (q *Queue) Play(videoID string, source []domain.Video, opts Options) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	start := -1
	for i, v := range source {
		if v.ID == videoID {
			start = i
			break
		}
	}
	if start < 0 {
		return domain.ErrVideoNotFound
	}

	q.source = append([]domain.Video(nil), source...)
	q.shuffle = opts.Shuffle
	q.loop = opts.Loop
	q.playCtx = opts.Context
	q.failures = 0

	if q.shuffle {
		q.order = q.shuffledOrderFrom(start)
		q.pos = 0
	} else {
		q.order = identityOrder(len(q.source))
		q.pos = start
	}

	if q.contexts != nil {
		if err := q.contexts.SavePlayContext(q.playCtx); err != nil {
			q.logger.Error("failed to persist play context", "error", err)
		}
	}

	q.logger.Info("starting queue",
		"video", videoID, "items", len(q.source),
		"shuffle", q.shuffle, "loop", q.loop, "context", q.playCtx.Kind)

	q.openCurrentLocked()
	return nil
}

// Advance moves to the next position in play order. At the end of the
// order it wraps to position 0 when looping (with a fresh reshuffle if
// shuffle is on) or transitions to ended otherwise.
func (q *Queue) Advance() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state != StatePlaying && q.state != StatePaused {
		return
	}
	if q.stepForwardLocked() {
		q.openCurrentLocked()
	}
}

// Previous moves to the prior position in play order. At position 0 it
// stays on the first item; there is no backward wraparound.
func (q *Queue) Previous() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state != StatePlaying && q.state != StatePaused {
		return
	}
	if q.pos == 0 {
		return
	}
	q.pos--
	q.openCurrentLocked()
}

// Pause suspends playback.
func (q *Queue) Pause() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state != StatePlaying {
		return
	}
	q.engine.Pause()
	q.setStateLocked(StatePaused)
}

// Resume continues a paused queue.
func (q *Queue) Resume() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state != StatePaused {
		return
	}
	q.engine.Play()
	q.setStateLocked(StatePlaying)
}

// Stop tears the queue down and returns to idle.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state == StateIdle {
		return
	}
	q.engine.Stop()
	q.source = nil
	q.order = nil
	q.pos = 0
	q.setStateLocked(StateIdle)
}

// ToggleShuffle re-derives the play order for the remaining unseen items,
// keeping the current item's position fixed so toggling never restarts
// what is playing.
func (q *Queue) ToggleShuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.order) == 0 {
		return
	}

	q.shuffle = !q.shuffle
	rest := append([]int(nil), q.order[q.pos+1:]...)
	if q.shuffle {
		q.rng.Shuffle(len(rest), func(i, j int) {
			rest[i], rest[j] = rest[j], rest[i]
		})
	} else {
		sort.Ints(rest)
	}
	copy(q.order[q.pos+1:], rest)
	q.logger.Debug("toggled shuffle", "shuffle", q.shuffle)
}

// State returns the queue state.
func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Current returns the video at the current play-order position.
func (q *Queue) Current() (domain.Video, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.order) == 0 || q.state == StateIdle || q.state == StateEnded {
		return domain.Video{}, false
	}
	return q.source[q.order[q.pos]], true
}

// Context returns the origin context the active queue was started from.
func (q *Queue) Context() domain.PlayContext {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.playCtx
}

// === Engine callbacks (Handler) ===

// OnTimeUpdate records a watch once per queued entry after playback
// crosses the completion threshold.
func (q *Queue) OnTimeUpdate(t time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state != StatePlaying || q.recorded {
		return
	}
	v := q.source[q.order[q.pos]]
	if v.Duration <= 0 {
		return
	}
	if t >= time.Duration(float64(v.Duration)*q.threshold) {
		q.recordWatchLocked(v)
	}
}

// OnReachedEnd advances the queue when the engine finishes the current
// item. Reaching the end always counts as a completed play.
func (q *Queue) OnReachedEnd() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state != StatePlaying && q.state != StatePaused {
		return
	}
	if !q.recorded {
		q.recordWatchLocked(q.source[q.order[q.pos]])
	}
	if q.stepForwardLocked() {
		q.openCurrentLocked()
	}
}

// OnFailedToOpen auto-advances past an item the engine could not decode.
// Failures are counted per pass; when every item in a pass has failed,
// the queue ends with one aggregated notification.
func (q *Queue) OnFailedToOpen(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.order) == 0 || q.state == StateIdle || q.state == StateEnded {
		return
	}
	if q.noteOpenFailureLocked(err) {
		return
	}
	if q.stepForwardLocked() {
		q.openCurrentLocked()
	}
}

// === Internals (all called with q.mu held) ===

// openCurrentLocked opens and plays the item at the current position,
// skipping forward past items that fail to open.
func (q *Queue) openCurrentLocked() {
	for {
		v := q.source[q.order[q.pos]]
		if err := q.engine.Open(v.Location); err != nil {
			if q.noteOpenFailureLocked(err) {
				return
			}
			if !q.stepForwardLocked() {
				return
			}
			continue
		}
		q.failures = 0
		q.recorded = false
		q.engine.Play()
		q.setStateLocked(StatePlaying)
		q.observer.TrackChanged(v)
		return
	}
}

// stepForwardLocked moves to the next play-order position, handling loop
// wraparound. Returns false when the queue ended instead.
func (q *Queue) stepForwardLocked() bool {
	q.pos++
	if q.pos < len(q.order) {
		return true
	}
	if !q.loop {
		q.engine.Stop()
		q.setStateLocked(StateEnded)
		return false
	}
	if q.shuffle {
		// Reshuffle each full cycle so repeats are not predictable.
		q.order = identityOrder(len(q.source))
		q.rng.Shuffle(len(q.order), func(i, j int) {
			q.order[i], q.order[j] = q.order[j], q.order[i]
		})
	}
	q.pos = 0
	return true
}

// noteOpenFailureLocked counts an open failure. Returns true when the
// whole pass has failed and the queue was ended.
func (q *Queue) noteOpenFailureLocked(err error) bool {
	q.failures++
	q.logger.Warn("item failed to open, advancing", "error", err, "failures", q.failures)
	if q.failures < len(q.order) {
		return false
	}
	q.engine.Stop()
	q.setStateLocked(StateEnded)
	q.observer.QueueFailed(&domain.QueueFailedError{Failed: q.failures, Last: err})
	return true
}

func (q *Queue) recordWatchLocked(v domain.Video) {
	if q.recorder != nil {
		if _, err := q.recorder.MarkWatched(v.ID); err != nil {
			q.logger.Error("failed to record watch", "id", v.ID, "error", err)
		}
	}
	q.recorded = true
}

func (q *Queue) setStateLocked(state State) {
	if q.state == state {
		return
	}
	q.state = state
	q.observer.StateChanged(state)
}

// shuffledOrderFrom builds a play order that places start first and
// shuffles the remaining source positions. The explicitly chosen item
// always plays immediately.
func (q *Queue) shuffledOrderFrom(start int) []int {
	order := make([]int, 0, len(q.source))
	order = append(order, start)
	rest := make([]int, 0, len(q.source)-1)
	for i := range q.source {
		if i != start {
			rest = append(rest, i)
		}
	}
	q.rng.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})
	return append(order, rest...)
}

func identityOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}
