// Package config loads the application's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Storage contains database and export locations.
type Storage struct {
	DatabasePath string `toml:"database_path"`
	ExportDir    string `toml:"export_dir"`
}

// Recording contains the capture pipeline timings, in milliseconds.
type Recording struct {
	DebounceMs      int `toml:"debounce_ms"`
	SettleDelayMs   int `toml:"settle_delay_ms"`
	HighlightHoldMs int `toml:"highlight_hold_ms"`
}

// Browser contains Chrome launch settings.
type Browser struct {
	Headless           bool   `toml:"headless"`
	NoSandbox          bool   `toml:"no_sandbox"`
	UserDataDir        string `toml:"user_data_dir"`
	ScreenshotTimeoutS int    `toml:"screenshot_timeout_seconds"`
}

// Server contains the HTTP API settings.
type Server struct {
	Bind string `toml:"bind"`
}

// Redaction contains the region editor settings.
type Redaction struct {
	BlurSigma       float64 `toml:"blur_sigma"`
	BlurPasses      int     `toml:"blur_passes"`
	MaxDisplayWidth int     `toml:"max_display_width"`
}

// AI contains the optional description endpoint. An empty endpoint
// disables the feature.
type AI struct {
	Endpoint        string  `toml:"endpoint"`
	SystemPrompt    string  `toml:"system_prompt"`
	Temperature     float64 `toml:"temperature"`
	ReasoningEffort string  `toml:"reasoning_effort"`
}

// Logging contains log output settings.
type Logging struct {
	Level string `toml:"level"`
}

// Config encapsulates all settings.
type Config struct {
	Storage   Storage   `toml:"storage"`
	Recording Recording `toml:"recording"`
	Browser   Browser   `toml:"browser"`
	Server    Server    `toml:"server"`
	Redaction Redaction `toml:"redaction"`
	AI        AI        `toml:"ai"`
	Logging   Logging   `toml:"logging"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Storage: Storage{
			DatabasePath: "~/.local/share/stepguide/guides.db",
			ExportDir:    "./export",
		},
		Recording: Recording{
			DebounceMs:      1000,
			SettleDelayMs:   300,
			HighlightHoldMs: 200,
		},
		Browser: Browser{
			Headless:           false,
			ScreenshotTimeoutS: 5,
		},
		Server: Server{
			Bind: "127.0.0.1:8754",
		},
		Redaction: Redaction{
			BlurSigma:       5,
			BlurPasses:      3,
			MaxDisplayWidth: 1200,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/stepguide/config.toml")
}

// Load parses and validates a configuration file layered over the
// defaults. An empty path falls back to the default location; a missing
// file means defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		path, err = expandPath(path)
		if err != nil {
			return nil, err
		}
	}

	if file, err := os.Open(path); err == nil {
		defer file.Close()
		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Storage.DatabasePath == "" {
		return errors.New("storage.database_path must be set")
	}
	if c.Recording.DebounceMs < 0 || c.Recording.SettleDelayMs < 0 || c.Recording.HighlightHoldMs < 0 {
		return errors.New("recording timings must not be negative")
	}
	if c.Server.Bind == "" {
		return errors.New("server.bind must be set")
	}
	if c.Redaction.BlurSigma <= 0 {
		return errors.New("redaction.blur_sigma must be positive")
	}
	if c.Redaction.BlurPasses < 1 {
		return errors.New("redaction.blur_passes must be at least 1")
	}
	if c.Redaction.MaxDisplayWidth < 100 {
		return errors.New("redaction.max_display_width must be at least 100")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}

func (c *Config) normalize() error {
	var err error
	if c.Storage.DatabasePath, err = expandPath(c.Storage.DatabasePath); err != nil {
		return err
	}
	if c.Storage.ExportDir, err = expandPath(c.Storage.ExportDir); err != nil {
		return err
	}
	if c.Browser.UserDataDir != "" {
		if c.Browser.UserDataDir, err = expandPath(c.Browser.UserDataDir); err != nil {
			return err
		}
	}
	return nil
}

// Debounce returns the debounce interval as a duration.
func (r Recording) Debounce() time.Duration { return time.Duration(r.DebounceMs) * time.Millisecond }

// SettleDelay returns the settle delay as a duration.
func (r Recording) SettleDelay() time.Duration {
	return time.Duration(r.SettleDelayMs) * time.Millisecond
}

// HighlightHold returns the highlight hold as a duration.
func (r Recording) HighlightHold() time.Duration {
	return time.Duration(r.HighlightHoldMs) * time.Millisecond
}

// ScreenshotTimeout returns the per-capture timeout as a duration.
func (b Browser) ScreenshotTimeout() time.Duration {
	return time.Duration(b.ScreenshotTimeoutS) * time.Second
}

func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}
