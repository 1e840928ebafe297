// Package config loads sqlistudio settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full settings tree. Durations are written as Go duration
// strings ("750ms", "30s", "720h").
type Config struct {
	Editor    EditorConfig    `yaml:"editor"`
	History   HistoryConfig   `yaml:"history"`
	Suggest   SuggestConfig   `yaml:"suggest"`
	Transport TransportConfig `yaml:"transport"`
}

// EditorConfig tunes how typed request text is reconciled.
type EditorConfig struct {
	// Debounce is the quiet interval after the last keystroke.
	Debounce time.Duration `yaml:"debounce"`

	// IdleThreshold is how long a focused editor must be idle before
	// parsing. Zero means the same as Debounce.
	IdleThreshold time.Duration `yaml:"idle_threshold"`
}

// HistoryConfig controls the application log.
type HistoryConfig struct {
	Enabled bool          `yaml:"enabled"`
	Path    string        `yaml:"path"`
	MaxAge  time.Duration `yaml:"max_age"`
}

// SuggestConfig points at the payload analysis service.
type SuggestConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	MaxRPS  float64       `yaml:"max_rps"`
	DBType  string        `yaml:"db_type"`
}

// TransportConfig configures how modified requests are sent.
type TransportConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	Proxy           string        `yaml:"proxy"`
	RandomAgent     bool          `yaml:"random_agent"`
	MaxRPS          float64       `yaml:"max_rps"`
	FollowRedirects bool          `yaml:"follow_redirects"`
	Insecure        bool          `yaml:"insecure"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Editor: EditorConfig{
			Debounce: time.Second,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "~/.sqlistudio/history.db",
			MaxAge:  30 * 24 * time.Hour,
		},
		Suggest: SuggestConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 60 * time.Second,
			MaxRPS:  2,
			DBType:  "mysql",
		},
		Transport: TransportConfig{
			Timeout:         30 * time.Second,
			FollowRedirects: false,
		},
	}
}

// DefaultPath returns ~/.sqlistudio/config.yaml.
func DefaultPath() string {
	return filepath.Join("~", ".sqlistudio", "config.yaml")
}

// Load reads path over the defaults. A missing file yields the defaults;
// keys absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(ExpandHome(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	path = ExpandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.Editor.Debounce <= 0 {
		return fmt.Errorf("editor.debounce must be positive, got %s", c.Editor.Debounce)
	}
	if c.Editor.IdleThreshold < 0 {
		return fmt.Errorf("editor.idle_threshold must not be negative")
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path is required when history is enabled")
	}
	if c.History.MaxAge < 0 {
		return fmt.Errorf("history.max_age must not be negative")
	}
	if c.Suggest.MaxRPS < 0 || c.Transport.MaxRPS < 0 {
		return fmt.Errorf("max_rps must not be negative")
	}
	if c.Suggest.Timeout < 0 || c.Transport.Timeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
