package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Library    LibraryConfig   `mapstructure:"library"`
	Thumbnails ThumbnailConfig `mapstructure:"thumbnails"`
	Playback   PlaybackConfig  `mapstructure:"playback"`
	Player     PlayerConfig    `mapstructure:"player"`
	Logging    LoggingConfig   `mapstructure:"logging"`
}

// LibraryConfig holds media library configuration
type LibraryConfig struct {
	Root       string   `mapstructure:"root"`       // Directory to index
	Recursive  bool     `mapstructure:"recursive"`  // Descend into subdirectories
	Extensions []string `mapstructure:"extensions"` // Allowed file extensions (with dot)
}

// ThumbnailConfig holds thumbnail cache configuration
type ThumbnailConfig struct {
	Capacity int `mapstructure:"capacity"` // Max resident entries before LRU eviction
	Width    int `mapstructure:"width"`    // Target thumbnail width in pixels
	Height   int `mapstructure:"height"`   // Target thumbnail height in pixels
}

// PlaybackConfig holds playback queue configuration
type PlaybackConfig struct {
	// WatchThreshold is the fraction of a video's duration that must play
	// before a watch is recorded. Reaching end-of-media always records one.
	WatchThreshold float64 `mapstructure:"watch_threshold"`
}

// PlayerConfig holds external media player configuration
type PlayerConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Library: LibraryConfig{
			Root:       "",
			Recursive:  true,
			Extensions: []string{".mp4", ".mov", ".m4v", ".mkv", ".avi", ".wmv"},
		},
		Thumbnails: ThumbnailConfig{
			Capacity: 100,
			Width:    320,
			Height:   180,
		},
		Playback: PlaybackConfig{
			WatchThreshold: 0.9,
		},
		Player: PlayerConfig{
			Command: "mpv",
			Args:    []string{},
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "reelbox", "reelbox.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "reelbox", "reelbox.log")
	}
}

// defaultConfigPath returns the default config file path for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "reelbox")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "reelbox")
	}
}

// DefaultDataPath returns the directory holding the catalog database
func DefaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "reelbox")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "reelbox")
	}
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	// Defaults must be registered for env-only overrides to be picked up
	// during Unmarshal
	viper.SetDefault("library.root", cfg.Library.Root)
	viper.SetDefault("library.recursive", cfg.Library.Recursive)
	viper.SetDefault("library.extensions", cfg.Library.Extensions)
	viper.SetDefault("thumbnails.capacity", cfg.Thumbnails.Capacity)
	viper.SetDefault("thumbnails.width", cfg.Thumbnails.Width)
	viper.SetDefault("thumbnails.height", cfg.Thumbnails.Height)
	viper.SetDefault("playback.watch_threshold", cfg.Playback.WatchThreshold)
	viper.SetDefault("player.command", cfg.Player.Command)
	viper.SetDefault("player.args", cfg.Player.Args)
	viper.SetDefault("logging.file", cfg.Logging.File)
	viper.SetDefault("logging.level", cfg.Logging.Level)

	// Environment variable overrides (REELBOX_LIBRARY_ROOT etc.)
	viper.SetEnvPrefix("REELBOX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Save saves the current configuration to file
func Save(cfg *Config) error {
	configPath := defaultConfigPath()

	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to ensure correct key names (snake_case)
	viper.Set("library.root", cfg.Library.Root)
	viper.Set("library.recursive", cfg.Library.Recursive)
	viper.Set("library.extensions", cfg.Library.Extensions)

	viper.Set("thumbnails.capacity", cfg.Thumbnails.Capacity)
	viper.Set("thumbnails.width", cfg.Thumbnails.Width)
	viper.Set("thumbnails.height", cfg.Thumbnails.Height)

	viper.Set("playback.watch_threshold", cfg.Playback.WatchThreshold)

	viper.Set("player.command", cfg.Player.Command)
	viper.Set("player.args", cfg.Player.Args)

	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsConfigured returns true if a library root has been set
func (c *Config) IsConfigured() bool {
	return c.Library.Root != ""
}

// AllowedExtensions returns the extension allow-list as a lookup set,
// lowercased for case-insensitive matching
func (c LibraryConfig) AllowedExtensions() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Extensions))
	for _, ext := range c.Extensions {
		set[strings.ToLower(ext)] = struct{}{}
	}
	return set
}
