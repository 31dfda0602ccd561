package config

import "testing"

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.IsConfigured() {
		t.Error("a fresh config has no library root and must report unconfigured")
	}
	if !cfg.Library.Recursive {
		t.Error("expected recursive scanning by default")
	}
	if cfg.Thumbnails.Capacity != 100 {
		t.Errorf("expected default capacity 100, got %d", cfg.Thumbnails.Capacity)
	}
	if cfg.Playback.WatchThreshold != 0.9 {
		t.Errorf("expected default watch threshold 0.9, got %v", cfg.Playback.WatchThreshold)
	}
	if cfg.Player.Command != "mpv" {
		t.Errorf("expected mpv as the default player, got %q", cfg.Player.Command)
	}
}

func TestAllowedExtensions(t *testing.T) {
	cfg := DefaultConfig()
	set := cfg.Library.AllowedExtensions()

	for _, ext := range []string{".mp4", ".mkv", ".mov"} {
		if _, ok := set[ext]; !ok {
			t.Errorf("expected %s in the default allow-list", ext)
		}
	}
	if _, ok := set[".txt"]; ok {
		t.Error(".txt must not be in the allow-list")
	}

	cfg.Library.Extensions = []string{".webm"}
	set = cfg.Library.AllowedExtensions()
	if _, ok := set[".webm"]; !ok {
		t.Error("custom extension missing from the allow-list")
	}
	if len(set) != 1 {
		t.Errorf("expected only the configured extensions, got %d entries", len(set))
	}
}

func TestConfiguredAfterSettingRoot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Library.Root = "/videos"
	if !cfg.IsConfigured() {
		t.Error("a config with a library root must report configured")
	}
}
