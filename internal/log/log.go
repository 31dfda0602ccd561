package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/reelbox/reelbox/internal/config"
)

// SetupLogger builds the application logger, writing JSON records to the
// configured file. A log file that cannot be prepared degrades to a
// discarding logger with a note on stderr: logging must never block
// startup.
func SetupLogger(cfg *config.LoggingConfig) *slog.Logger {
	path := expandHome(cfg.File)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fallback(path, err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fallback(path, err)
	}

	return slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Level),
	}))
}

func fallback(path string, err error) *slog.Logger {
	fmt.Fprintf(os.Stderr, "reelbox: cannot open log file %s (%v), logging disabled\n", path, err)
	return NullLogger()
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// parseLogLevel converts a string log level to slog.Level
func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NullLogger returns a logger that discards all output
func NullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
