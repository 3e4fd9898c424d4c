// Package cache persists the fetched record set with its receive time and
// decides whether it is still fresh.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/smileynet/roster/internal/store"
	"github.com/smileynet/roster/internal/user"
)

// Defaults for the persisted entry.
const (
	DefaultKey = "users-data"
	DefaultTTL = 24 * time.Hour
)

// ErrMalformedEntry indicates the persisted value could not be decoded.
// Load reports it through the logger only; callers see a missing entry.
var ErrMalformedEntry = errors.New("cache: malformed entry")

// Entry is the persisted record set and the time it was received from the remote source.
type Entry struct {
	Results    user.RecordSet `json:"results"`
	ReceivedAt time.Time      `json:"receivedAt"`
}

// Age returns how long ago the entry was received, relative to now.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.ReceivedAt)
}

// TimedCache stores a single Entry under one key of a store.Store.
// It is not safe for concurrent use; confine it to the Bubble Tea update loop.
type TimedCache struct {
	store  store.Store
	key    string
	ttl    time.Duration
	clock  clockwork.Clock
	logger *slog.Logger
}

// Option configures a TimedCache.
type Option func(*TimedCache)

// WithKey sets the store key (default DefaultKey).
func WithKey(key string) Option {
	return func(c *TimedCache) { c.key = key }
}

// WithTTL sets the freshness window (default DefaultTTL).
func WithTTL(ttl time.Duration) Option {
	return func(c *TimedCache) { c.ttl = ttl }
}

// WithClock sets the time source.
func WithClock(clock clockwork.Clock) Option {
	return func(c *TimedCache) { c.clock = clock }
}

// WithLogger sets the logger for recoverable failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *TimedCache) { c.logger = l }
}

// New creates a TimedCache over s.
func New(s store.Store, opts ...Option) *TimedCache {
	c := &TimedCache{
		store:  s,
		key:    DefaultKey,
		ttl:    DefaultTTL,
		clock:  clockwork.NewRealClock(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TTL returns the freshness window.
func (c *TimedCache) TTL() time.Duration {
	return c.ttl
}

// Now returns the cache clock's current time.
func (c *TimedCache) Now() time.Time {
	return c.clock.Now()
}

// Load returns the persisted entry. Missing, unreadable, malformed, and
// empty entries all report false.
func (c *TimedCache) Load() (Entry, bool) {
	raw, ok, err := c.store.Get(c.key)
	if err != nil {
		c.logger.Error("cache read failed", "key", c.key, "error", err)
		return Entry{}, false
	}
	if !ok {
		return Entry{}, false
	}

	entry, err := decode(raw)
	if err != nil {
		c.logger.Warn("discarding cache entry", "key", c.key, "error", err)
		return Entry{}, false
	}
	if len(entry.Results) == 0 {
		c.logger.Warn("discarding empty cache entry", "key", c.key)
		return Entry{}, false
	}
	return entry, true
}

// Save overwrites the entry with results received at receivedAt.
// Empty results are not persisted; clearing is the caller's decision.
func (c *TimedCache) Save(results user.RecordSet, receivedAt time.Time) {
	if len(results) == 0 {
		c.logger.Debug("refusing to persist empty results", "key", c.key)
		return
	}
	data, err := json.Marshal(Entry{Results: results, ReceivedAt: receivedAt})
	if err != nil {
		c.logger.Error("cache encode failed", "key", c.key, "error", err)
		return
	}
	if err := c.store.Set(c.key, string(data)); err != nil {
		c.logger.Error("cache write failed", "key", c.key, "error", err)
	}
}

// SaveNow saves results stamped with the current time.
func (c *TimedCache) SaveNow(results user.RecordSet) {
	c.Save(results, c.clock.Now())
}

// Clear removes the entry. Safe to call when no entry exists.
func (c *TimedCache) Clear() {
	if err := c.store.Remove(c.key); err != nil {
		c.logger.Error("cache clear failed", "key", c.key, "error", err)
	}
}

// IsStale reports whether an entry received at receivedAt has outlived the TTL.
func (c *TimedCache) IsStale(receivedAt time.Time) bool {
	return IsStale(c.clock.Now(), receivedAt, c.ttl)
}

// Fresh returns the entry when it exists and is within the TTL.
func (c *TimedCache) Fresh() (Entry, bool) {
	entry, ok := c.Load()
	if !ok || c.IsStale(entry.ReceivedAt) {
		return Entry{}, false
	}
	return entry, true
}

// IsStale reports whether now - receivedAt exceeds ttl.
func IsStale(now, receivedAt time.Time, ttl time.Duration) bool {
	return now.Sub(receivedAt) > ttl
}

func decode(raw string) (Entry, error) {
	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrMalformedEntry, err)
	}
	if entry.ReceivedAt.IsZero() {
		return Entry{}, fmt.Errorf("%w: missing receivedAt", ErrMalformedEntry)
	}
	return entry, nil
}
