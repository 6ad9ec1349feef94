package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultListen        = "127.0.0.1:8080"
	defaultTimezone      = "UTC"
	defaultLogLevel      = "info"
	defaultLogFormat     = "text"
	defaultMaxWindowDays = 62
	defaultOwnerHeader   = "X-User-ID"
	defaultCacheTTL      = 15 * time.Minute
	defaultCacheEntries  = 1000
)

// CacheConfig tunes the expansion cache.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled" json:"enabled"`
	TTL        time.Duration `yaml:"ttl" json:"ttl"`
	MaxEntries int           `yaml:"max_entries" json:"max_entries"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone new series use when a request names none.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogFormat is text or json.
	LogFormat string `yaml:"log_format" json:"log_format"`

	// MaxWindowDays caps GET /events windows.
	MaxWindowDays int `yaml:"max_window_days" json:"max_window_days"`

	// OwnerHeader carries the owner id set by a trusted front end.
	OwnerHeader string `yaml:"owner_header" json:"owner_header"`
	// DefaultOwner is used when a request presents no identity. Empty means
	// such requests are rejected.
	DefaultOwner string `yaml:"default_owner,omitempty" json:"default_owner,omitempty"`
	// Users, if non-empty, enables HTTP Basic Authentication against this
	// username to password map. The username becomes the owner id.
	Users map[string]string `yaml:"users,omitempty" json:"users,omitempty"`

	Cache CacheConfig `yaml:"cache" json:"cache"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:        defaultListen,
		Timezone:      defaultTimezone,
		LogLevel:      defaultLogLevel,
		LogFormat:     defaultLogFormat,
		MaxWindowDays: defaultMaxWindowDays,
		OwnerHeader:   defaultOwnerHeader,
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        defaultCacheTTL,
			MaxEntries: defaultCacheEntries,
		},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled files still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = defaultLogLevel
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		c.LogFormat = defaultLogFormat
	}
	if c.MaxWindowDays <= 0 {
		c.MaxWindowDays = defaultMaxWindowDays
	}
	if c.OwnerHeader == "" {
		c.OwnerHeader = defaultOwnerHeader
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = defaultCacheTTL
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = defaultCacheEntries
	}
}

// Validate checks values Normalize cannot repair.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured default zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// MaxWindow returns MaxWindowDays as a duration.
func (c *Config) MaxWindow() time.Duration {
	return time.Duration(c.MaxWindowDays) * 24 * time.Hour
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is read, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path atomically via a temp file and rename. The parent
// directory is created 0700 and the file ends up 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".schedcore-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
