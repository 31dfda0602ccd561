package playback

import (
	"log/slog"
	"os/exec"
	"sync"
	"time"
)

// Engine is the external playback collaborator the queue drives. The
// decoding/rendering pipeline behind it is opaque to this package.
type Engine interface {
	Open(location string) error
	Play()
	Pause()
	Seek(offset time.Duration)
	Stop()
}

// Handler receives asynchronous callbacks from the engine. The Queue
// implements it.
type Handler interface {
	OnTimeUpdate(t time.Duration)
	OnReachedEnd()
	OnFailedToOpen(err error)
}

// ProcessEngine drives an external player binary (mpv by default), one
// process per opened item. A clean process exit is reported as reaching
// the end of the item; a failed exit as a failure to open. Transport
// control beyond open/stop is up to the player's own UI, so Play, Pause
// and Seek are recorded but not forwarded.
type ProcessEngine struct {
	command string
	args    []string
	logger  *slog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	handler Handler
	gen     int // invalidates Wait results from superseded processes
}

// NewProcessEngine creates an engine around the configured player command.
func NewProcessEngine(command string, args []string, logger *slog.Logger) *ProcessEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if command == "" {
		command = "mpv"
	}
	return &ProcessEngine{command: command, args: args, logger: logger}
}

// SetHandler registers the callback receiver. Must be set before Open.
func (e *ProcessEngine) SetHandler(h Handler) {
	e.mu.Lock()
	e.handler = h
	e.mu.Unlock()
}

func (e *ProcessEngine) Open(location string) error {
	if _, err := exec.LookPath(e.command); err != nil {
		return err
	}

	e.mu.Lock()
	e.stopLocked()

	args := append(append([]string{}, e.args...), location)
	cmd := exec.Command(e.command, args...)
	if err := cmd.Start(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.cmd = cmd
	e.gen++
	gen := e.gen
	e.mu.Unlock()

	e.logger.Info("opened in player", "command", e.command, "location", location)

	go func() {
		err := cmd.Wait()

		e.mu.Lock()
		stale := gen != e.gen
		h := e.handler
		if !stale {
			e.cmd = nil
		}
		e.mu.Unlock()

		if stale || h == nil {
			return
		}
		if err != nil {
			h.OnFailedToOpen(err)
			return
		}
		h.OnReachedEnd()
	}()

	return nil
}

func (e *ProcessEngine) Play() {
	e.logger.Debug("play requested")
}

func (e *ProcessEngine) Pause() {
	e.logger.Debug("pause requested")
}

func (e *ProcessEngine) Seek(offset time.Duration) {
	e.logger.Debug("seek requested", "offset", offset)
}

func (e *ProcessEngine) Stop() {
	e.mu.Lock()
	e.stopLocked()
	e.mu.Unlock()
}

// stopLocked kills the current player process. Callers hold e.mu.
func (e *ProcessEngine) stopLocked() {
	if e.cmd == nil {
		return
	}
	e.gen++ // discard the pending Wait result
	if e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
	e.cmd = nil
}
