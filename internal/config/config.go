package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. MP3TAG_SPOTIFY_CLIENT_ID.
const EnvPrefix = "MP3TAG"

const (
	SourceSpotify = "spotify"
	SourceMelon   = "melon"
)

// Config contains the program configuration
type Config struct {
	Verbose             bool          `yaml:"verbose" envconfig:"VERBOSE"`
	Sources             []string      `yaml:"sources" envconfig:"SOURCES"`
	Spotify             SpotifyConfig `yaml:"spotify" envconfig:"SPOTIFY"`
	Melon               MelonConfig   `yaml:"melon" envconfig:"MELON"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold" envconfig:"CONFIDENCE_THRESHOLD"`
	Rename              bool          `yaml:"rename" envconfig:"RENAME"`
	LogDir              string        `yaml:"log_dir" envconfig:"LOG_DIR"`
}

// SpotifyConfig holds the client credentials of a Spotify application.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id" envconfig:"CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" envconfig:"CLIENT_SECRET"`
}

// Configured reports whether both credentials are set.
func (s SpotifyConfig) Configured() bool {
	return strings.TrimSpace(s.ClientID) != "" && strings.TrimSpace(s.ClientSecret) != ""
}

// MelonConfig tunes the Melon scraper.
type MelonConfig struct {
	UserAgent string        `yaml:"user_agent" envconfig:"USER_AGENT"`
	RateLimit time.Duration `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Verbose:             false,
		Sources:             []string{SourceSpotify},
		Melon:               MelonConfig{RateLimit: 500 * time.Millisecond},
		ConfidenceThreshold: 0.7,
		LogDir:              GetDefaultLogPath(),
	}
}

// LoadConfigFile loads configuration from a YAML file.
// If path is empty, searches standard locations. Returns defaults if no file found.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.LogDir = ExpandHome(cfg.LogDir)

	return cfg, nil
}

// ApplyEnv overrides cfg with MP3TAG_* environment variables.
func ApplyEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	cfg.LogDir = ExpandHome(cfg.LogDir)
	return nil
}

// Load reads the config file (searching standard locations when path is
// empty), applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg, err := LoadConfigFile(path)
	if err != nil {
		return cfg, err
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(xdg.Home, path[2:])
	}
	return path
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	locations := []string{
		"./mp3tag.yaml",
		"./mp3tag.yml",
		filepath.Join(xdg.ConfigHome, "mp3tag", "config.yaml"),
		filepath.Join(xdg.ConfigHome, "mp3tag", "config.yml"),
		filepath.Join(xdg.Home, ".mp3tag.yaml"),
		filepath.Join(xdg.Home, ".mp3tag.yml"),
	}

	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// SaveConfigFile saves the current configuration to a YAML file
func SaveConfigFile(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Credentials live in this file.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the default config file path
func GetDefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "mp3tag", "config.yaml")
}

// GetDefaultLogPath returns the default log directory path
func GetDefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "mp3tag", "logs")
}

// Validate checks if the configuration is valid. Missing Spotify credentials
// are reported when the provider is built, so commands that never search
// still work without them.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return errors.New("at least one source is required")
	}
	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if s != SourceSpotify && s != SourceMelon {
			return fmt.Errorf("unknown source %q, valid sources: %s, %s", s, SourceSpotify, SourceMelon)
		}
		if seen[s] {
			return fmt.Errorf("source %q listed twice", s)
		}
		seen[s] = true
	}

	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be between 0.0 and 1.0, got %.2f", c.ConfidenceThreshold)
	}

	if c.Melon.RateLimit < 0 {
		return fmt.Errorf("melon.rate_limit cannot be negative, got %s", c.Melon.RateLimit)
	}

	return nil
}

// HasSource reports whether name is one of the configured sources.
func (c *Config) HasSource(name string) bool {
	for _, s := range c.Sources {
		if s == name {
			return true
		}
	}
	return false
}
