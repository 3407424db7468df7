// Package config resolves logshack client configuration.
//
// Sources are layered, later ones winning: built-in defaults, the YAML file
// (~/.logshack/config.yaml), a .env file in the working directory, LOGSHACK_*
// environment variables. The CLI applies its flags on top of the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DirName is the per-user configuration directory under $HOME.
const DirName = ".logshack"

// ClientConfig holds configuration for the logshack client.
type ClientConfig struct {
	Server        string        `yaml:"server" env:"SERVER"`                 // Main API base URL (without /api)
	ContestServer string        `yaml:"contest_server" env:"CONTEST_SERVER"` // Contest service base URL; empty means Server
	StatePath     string        `yaml:"state_path" env:"STATE"`              // SQLite session state file; ":memory:" disables persistence
	LogLevel      string        `yaml:"log_level" env:"LOG_LEVEL"`           // debug, info, warn, error
	LogFormat     string        `yaml:"log_format" env:"LOG_FORMAT"`         // text, json
	Timeout       time.Duration `yaml:"timeout" env:"TIMEOUT"`               // Per-request HTTP timeout
	RateLimit     float64       `yaml:"rate_limit" env:"RATE_LIMIT"`         // Max requests per second; 0 means unlimited
	APIKey        string        `yaml:"api_key" env:"API_KEY"`               // Upload key; prompted when empty

	ArchiveRegion   string `yaml:"archive_region" env:"ARCHIVE_REGION"`     // Region for s3:// export destinations
	ArchiveEndpoint string `yaml:"archive_endpoint" env:"ARCHIVE_ENDPOINT"` // S3-compatible endpoint override (MinIO)
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Server:    "http://localhost:5000",
		StatePath: defaultStatePath(),
		LogLevel:  "warn",
		LogFormat: "text",
		Timeout:   30 * time.Second,
	}
}

// ContestBase returns the contest service URL, falling back to the main server.
func (c ClientConfig) ContestBase() string {
	if c.ContestServer != "" {
		return c.ContestServer
	}
	return c.Server
}

// Validate checks the fields that would make every request fail.
func (c ClientConfig) Validate() error {
	if c.Server == "" {
		return errors.New("server URL is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative, got %v", c.RateLimit)
	}
	return nil
}

// Load builds a ClientConfig from defaults, the YAML file at path (the default
// location when path is empty; a missing file is not an error), .env and the
// environment.
func Load(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()

	if path == "" {
		path = DefaultPath()
	}
	if err := loadFile(path, &cfg); err != nil {
		return cfg, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "LOGSHACK_"}); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	return cfg, cfg.Validate()
}

// DefaultPath returns ~/.logshack/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(DirName, "config.yaml")
	}
	return filepath.Join(home, DirName, "config.yaml")
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(DirName, "state.db")
	}
	return filepath.Join(home, DirName, "state.db")
}

func loadFile(path string, cfg *ClientConfig) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}
