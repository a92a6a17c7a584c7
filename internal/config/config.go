// Package config loads ~/.tada/config.toml and the TADA_* environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL  = "https://todo-list.dobleb.cl"
	DefaultTimeout = 15 * time.Second

	EnvAPIURL      = "TADA_API_URL"
	EnvDebug       = "TADA_DEBUG"
	EnvConfig      = "TADA_CONFIG"
	EnvPhotoPolicy = "TADA_PHOTO_POLICY"
)

// Config is the merged configuration. Flags > environment > file > defaults.
type Config struct {
	APIURL      string    `toml:"api-url"`
	Timeout     string    `toml:"timeout"`
	RateLimit   float64   `toml:"rate-limit"`
	PhotoPolicy string    `toml:"photo-policy"`
	Theme       string    `toml:"theme"`
	Debug       bool      `toml:"debug"`
	Location    *Location `toml:"location"`
}

// Location is a fixed position used when tasks are created without explicit
// coordinates, standing in for a GPS fix.
type Location struct {
	Latitude  float64 `toml:"latitude"`
	Longitude float64 `toml:"longitude"`
}

func defaults() Config {
	return Config{
		APIURL:      DefaultAPIURL,
		Timeout:     DefaultTimeout.String(),
		PhotoPolicy: "optional",
		Theme:       "classic",
	}
}

// Path resolves the config file: TADA_CONFIG, else ~/.tada/config.toml.
func Path() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfig)); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".tada", "config.toml"), nil
}

// LoadDotEnv reads .env files into the environment without overriding
// variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// Load reads path (or Path() when empty) and applies environment overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := defaults()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	default:
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPhotoPolicy)); v != "" {
		cfg.PhotoPolicy = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDebug)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		}
	}

	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if _, err := cfg.TimeoutDuration(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// TimeoutDuration parses Timeout. Empty means the default.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if strings.TrimSpace(c.Timeout) == "" {
		return DefaultTimeout, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	return d, nil
}
