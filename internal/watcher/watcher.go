package watcher

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 2 * time.Second

// Watcher observes the library root for file changes and emits a single
// debounced signal per burst of events, which callers use to trigger a
// rescan. It never inspects file contents itself.
type Watcher struct {
	fsw      *fsnotify.Watcher
	changes  chan struct{}
	done     chan struct{}
	debounce time.Duration
	logger   *slog.Logger
}

// New starts watching root. With recursive set, existing subdirectories
// are watched too and newly created ones are added on the fly.
func New(root string, recursive bool, logger *slog.Logger) (*Watcher, error) {
	return newWatcher(root, recursive, defaultDebounce, logger)
}

func newWatcher(root string, recursive bool, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsw.Add(root); err != nil {
		fsw.Close()
		return nil, err
	}
	if recursive {
		filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() || path == root {
				return nil
			}
			if err := fsw.Add(path); err != nil {
				logger.Warn("cannot watch directory", "path", path, "error", err)
			}
			return nil
		})
	}

	w := &Watcher{
		fsw:      fsw,
		changes:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		debounce: debounce,
		logger:   logger,
	}
	go w.loop(recursive)
	return w, nil
}

// Changes delivers one signal per debounced burst of filesystem events.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) loop(recursive bool) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("filesystem event", "op", event.Op.String(), "name", event.Name)

			if recursive && event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.fsw.Add(event.Name); err != nil {
						w.logger.Warn("cannot watch new directory", "path", event.Name, "error", err)
					}
				}
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				// Drain a fired-but-unread timer before the reset, or the
				// stale tick would cut the debounce window short.
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case w.changes <- struct{}{}:
			default: // a rescan is already pending
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)

		case <-w.done:
			return
		}
	}
}
