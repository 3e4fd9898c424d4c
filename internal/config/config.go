// Package config handles layered YAML configuration with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all roster configuration.
type Config struct {
	Remote  Remote  `yaml:"remote"`
	Cache   Cache   `yaml:"cache"`
	Session Session `yaml:"session"`
	Log     Log     `yaml:"log"`
}

// Remote holds the remote source settings.
type Remote struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Cache holds persisted cache settings.
type Cache struct {
	Backend     string        `yaml:"backend"`      // "file" | "sqlite" | "redis" | "memory"
	Dir         string        `yaml:"dir"`          // Directory for file and sqlite backends
	Key         string        `yaml:"key"`          // Store key for the cached entry
	TTL         time.Duration `yaml:"ttl"`          // Freshness window
	SQLitePath  string        `yaml:"sqlite_path"`  // Defaults to <dir>/roster.db
	RedisAddr   string        `yaml:"redis_addr"`   // host:port
	RedisPrefix string        `yaml:"redis_prefix"` // Prefix for Redis keys
}

// Session holds session flag settings.
type Session struct {
	ID  string `yaml:"id"`  // Session identity; empty means $ROSTER_SESSION or the parent process
	Dir string `yaml:"dir"` // Base directory for per-session stores
	Key string `yaml:"key"` // Store key for the refetch flag
}

// Log holds log file settings.
type Log struct {
	Path  string `yaml:"path"`  // Log file; empty disables logging
	Level string `yaml:"level"` // "debug" | "info" | "warn" | "error"
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	base := defaultBaseDir()
	return Config{
		Remote: Remote{
			URL:     "https://jsonplaceholder.typicode.com/users",
			Timeout: 15 * time.Second,
		},
		Cache: Cache{
			Backend:     "file",
			Dir:         base,
			Key:         "users-data",
			TTL:         24 * time.Hour,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "roster:",
		},
		Session: Session{
			Dir: filepath.Join(os.TempDir(), "roster-sessions"),
			Key: "refetch-used",
		},
		Log: Log{
			Path:  filepath.Join(base, "roster.log"),
			Level: "info",
		},
	}
}

// defaultBaseDir returns the per-user cache directory for roster,
// falling back to a relative directory when none is available.
func defaultBaseDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".roster"
	}
	return filepath.Join(dir, "roster")
}

// Load reads a single YAML config file at path and returns a Config.
// For merging multiple config sources, use LoadLayered instead.
// If the file does not exist, defaults are returned without error.
// If the file contains invalid YAML or unknown fields, an error is returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return &cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// Comment-only YAML files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadLayered loads config from multiple paths with increasing priority.
// Later paths override earlier ones. Missing files are skipped.
func LoadLayered(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		cfg.merge(layer)
	}

	return &cfg, nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	if c.Remote.URL == "" {
		return errors.New("config: remote.url cannot be empty")
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("config: remote.timeout must be positive, got %v", c.Remote.Timeout)
	}
	switch c.Cache.Backend {
	case "file", "sqlite", "memory":
		// valid
	case "redis":
		if c.Cache.RedisAddr == "" {
			return errors.New("config: cache.redis_addr cannot be empty with the redis backend")
		}
	default:
		return fmt.Errorf("config: cache.backend must be \"file\", \"sqlite\", \"redis\" or \"memory\", got %q", c.Cache.Backend)
	}
	if (c.Cache.Backend == "file" || c.Cache.Backend == "sqlite") && c.Cache.Dir == "" && c.Cache.SQLitePath == "" {
		return errors.New("config: cache.dir cannot be empty")
	}
	if c.Cache.Key == "" {
		return errors.New("config: cache.key cannot be empty")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("config: cache.ttl must be positive, got %v", c.Cache.TTL)
	}
	if c.Session.Dir == "" {
		return errors.New("config: session.dir cannot be empty")
	}
	if c.Session.Key == "" {
		return errors.New("config: session.key cannot be empty")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("config: log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}

// ApplyEnv applies environment variable overrides to the config.
// Supported variables: ROSTER_URL, ROSTER_TTL, ROSTER_CACHE_BACKEND,
// ROSTER_CACHE_DIR, ROSTER_REDIS_ADDR, ROSTER_SESSION, ROSTER_LOG.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("ROSTER_URL"); v != "" {
		c.Remote.URL = v
	}
	if v := os.Getenv("ROSTER_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid ROSTER_TTL %q: %w", v, err)
		}
		c.Cache.TTL = d
	}
	if v := os.Getenv("ROSTER_CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("ROSTER_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv("ROSTER_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("ROSTER_SESSION"); v != "" {
		c.Session.ID = v
	}
	if v := os.Getenv("ROSTER_LOG"); v != "" {
		c.Log.Path = v
	}
	return nil
}

// rawConfig mirrors Config but uses pointers to distinguish set vs unset fields.
type rawConfig struct {
	Remote  *rawRemote  `yaml:"remote"`
	Cache   *rawCache   `yaml:"cache"`
	Session *rawSession `yaml:"session"`
	Log     *rawLog     `yaml:"log"`
}

type rawRemote struct {
	URL     *string        `yaml:"url"`
	Timeout *time.Duration `yaml:"timeout"`
}

type rawCache struct {
	Backend     *string        `yaml:"backend"`
	Dir         *string        `yaml:"dir"`
	Key         *string        `yaml:"key"`
	TTL         *time.Duration `yaml:"ttl"`
	SQLitePath  *string        `yaml:"sqlite_path"`
	RedisAddr   *string        `yaml:"redis_addr"`
	RedisPrefix *string        `yaml:"redis_prefix"`
}

type rawSession struct {
	ID  *string `yaml:"id"`
	Dir *string `yaml:"dir"`
	Key *string `yaml:"key"`
}

type rawLog struct {
	Path  *string `yaml:"path"`
	Level *string `yaml:"level"`
}

// loadLayer reads a single config file into a rawConfig for selective merging.
// Returns nil if the file does not exist. Rejects unknown fields.
func loadLayer(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &raw, nil
}

// merge applies non-nil fields from a rawConfig layer onto this Config.
func (c *Config) merge(layer *rawConfig) {
	if r := layer.Remote; r != nil {
		set(&c.Remote.URL, r.URL)
		set(&c.Remote.Timeout, r.Timeout)
	}
	if r := layer.Cache; r != nil {
		set(&c.Cache.Backend, r.Backend)
		set(&c.Cache.Dir, r.Dir)
		set(&c.Cache.Key, r.Key)
		set(&c.Cache.TTL, r.TTL)
		set(&c.Cache.SQLitePath, r.SQLitePath)
		set(&c.Cache.RedisAddr, r.RedisAddr)
		set(&c.Cache.RedisPrefix, r.RedisPrefix)
	}
	if r := layer.Session; r != nil {
		set(&c.Session.ID, r.ID)
		set(&c.Session.Dir, r.Dir)
		set(&c.Session.Key, r.Key)
	}
	if r := layer.Log; r != nil {
		set(&c.Log.Path, r.Path)
		set(&c.Log.Level, r.Level)
	}
}

// set assigns *src to *dst when src is non-nil.
func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
