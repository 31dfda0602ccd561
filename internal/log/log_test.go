package log

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/reelbox/reelbox/internal/config"
)

func TestSetupLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	logger := SetupLogger(&config.LoggingConfig{File: path, Level: "DEBUG"})

	logger.Info("hello")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected a log record in the file")
	}
}

func TestSetupLoggerFallsBackOnUnusablePath(t *testing.T) {
	// A directory where the file should be makes OpenFile fail.
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	if err := os.Mkdir(path, 0755); err != nil {
		t.Fatal(err)
	}

	logger := SetupLogger(&config.LoggingConfig{File: path, Level: "INFO"})
	if logger == nil {
		t.Fatal("fallback must still return a usable logger")
	}
	logger.Info("discarded") // must not panic
}

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"Warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := parseLogLevel(tc.in); got != tc.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
