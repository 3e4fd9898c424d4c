// Package store provides the key/value backends behind the persisted cache
// and the session flag. Every write replaces the whole value for a key.
package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// Store is a string key/value store with whole-value overwrite semantics.
type Store interface {
	// Get returns the value for key. Returns ("", false, nil) if absent.
	Get(key string) (string, bool, error)
	// Set replaces the value for key.
	Set(key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
	// Close releases backend resources.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Sentinel errors for caller-checkable conditions.
var (
	ErrInvalidKey     = errors.New("store: invalid key")
	ErrUnknownBackend = errors.New("store: unknown backend")
)

// Options selects and configures a backend for Open.
type Options struct {
	Backend     string        // "file" | "sqlite" | "redis" | "memory"
	Dir         string        // FileStore directory
	SQLitePath  string        // SQLite database file; defaults to Dir/roster.db
	RedisAddr   string        // Redis address (host:port)
	RedisPrefix string        // Prefix applied to every Redis key
	OpTimeout   time.Duration // Per-operation timeout for network backends
}

// Open returns the backend named by opts.Backend.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case BackendFile, "":
		return NewFileStore(opts.Dir), nil
	case BackendSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join(opts.Dir, "roster.db")
		}
		return OpenSQLite(path)
	case BackendRedis:
		return NewRedisStore(opts.RedisAddr, opts.RedisPrefix, opts.OpTimeout), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// validKey rejects keys that are empty, dot-segments, or contain path separators.
// FileStore depends on this; the other backends apply it for consistency.
func validKey(key string) error {
	if key == "" || key == "." || key == ".." || key != filepath.Base(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
