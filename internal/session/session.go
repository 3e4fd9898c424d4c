// Package session tracks whether the one-shot manual refetch has been used
// in the current terminal session.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/smileynet/roster/internal/store"
)

// DefaultKey is the session store key holding the used flag.
const DefaultKey = "refetch-used"

// EnvVar names the environment variable that carries the session identity.
const EnvVar = "ROSTER_SESSION"

// usedValue is the stored form of a set flag. Any other value reads as unset.
const usedValue = "true"

// ErrRefetchUsed is returned when the refetch was already used this session.
var ErrRefetchUsed = errors.New("session: refetch can be used once per session")

// Gate is a sticky per-session boolean.
type Gate struct {
	store  store.Store
	key    string
	logger *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithKey sets the store key (default DefaultKey).
func WithKey(key string) Option {
	return func(g *Gate) { g.key = key }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

// NewGate creates a Gate backed by a session-scoped store.
func NewGate(s store.Store, opts ...Option) *Gate {
	g := &Gate{store: s, key: DefaultKey, logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(g)
	}
	return g
}

// IsUsed reports whether MarkUsed has been called in this session.
// An unreadable store reads as unused.
func (g *Gate) IsUsed() bool {
	v, ok, err := g.store.Get(g.key)
	if err != nil {
		g.logger.Error("session read failed", "key", g.key, "error", err)
		return false
	}
	return ok && v == usedValue
}

// MarkUsed sets the flag for the rest of the session.
func (g *Gate) MarkUsed() error {
	if err := g.store.Set(g.key, usedValue); err != nil {
		return fmt.Errorf("session: marking used: %w", err)
	}
	return nil
}

// Reset clears the flag, as if a new session had started.
func (g *Gate) Reset() error {
	if err := g.store.Remove(g.key); err != nil {
		return fmt.Errorf("session: reset: %w", err)
	}
	return nil
}

// ResolveID picks the session identity: configured if set, then $ROSTER_SESSION,
// then the parent process (the invoking shell), so that repeated runs from one
// shell share a session.
func ResolveID(configured string) string {
	if configured != "" {
		return configured
	}
	if v := os.Getenv(EnvVar); v != "" {
		return v
	}
	return fmt.Sprintf("ppid-%d", os.Getppid())
}

// NewID returns a fresh random session identity.
func NewID() string {
	return uuid.NewString()
}

// DefaultBaseDir is where session stores live unless configured. It sits in
// the temp directory so that sessions do not survive a reboot.
func DefaultBaseDir() string {
	return filepath.Join(os.TempDir(), "roster-sessions")
}

// Dir returns the store directory for session id under base.
func Dir(base, id string) string {
	return filepath.Join(base, sanitize(id))
}

func sanitize(id string) string {
	id = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
	if id == "" {
		return "_"
	}
	return id
}
