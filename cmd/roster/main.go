package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"

	"github.com/smileynet/roster/internal/cache"
	"github.com/smileynet/roster/internal/config"
	"github.com/smileynet/roster/internal/controller"
	"github.com/smileynet/roster/internal/display"
	"github.com/smileynet/roster/internal/listview"
	"github.com/smileynet/roster/internal/logging"
	"github.com/smileynet/roster/internal/remote"
	"github.com/smileynet/roster/internal/session"
	"github.com/smileynet/roster/internal/store"
	"github.com/smileynet/roster/internal/user"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Globals holds flags shared by every command. They override config.
type Globals struct {
	Config    string        `help:"Extra config file layered over user and project config." type:"path"`
	URL       string        `help:"Remote users URL." name:"url"`
	TTL       time.Duration `help:"Cache freshness window." name:"ttl"`
	Backend   string        `help:"Cache backend (file, sqlite, redis, memory)."`
	SessionID string        `help:"Session identity for the one-shot refetch." name:"session-id"`
}

// CLI is the top-level command structure for roster.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version." short:"V"`
	View    ViewCmd          `cmd:"" default:"withargs" help:"Show the user list (interactive on a terminal)."`
	List    ListCmd          `cmd:"" help:"Print the user list as plain text."`
	Delete  DeleteCmd        `cmd:"" help:"Delete a user from the cached list."`
	Status  StatusCmd        `cmd:"" help:"Show cache and session state."`
	Clear   ClearCmd         `cmd:"" help:"Clear the cached list."`
	Session SessionCmd       `cmd:"" help:"Start a new session or end the current one."`
}

// loadConfig loads layered config from user and project paths with env
// overrides, then applies the global flags.
func (g *Globals) loadConfig() (*config.Config, error) {
	paths := []string{userConfigPath(), filepath.Join(".roster", "config.yaml")}
	if g.Config != "" {
		paths = append(paths, g.Config)
	}
	cfg, err := config.LoadLayered(paths...)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	// Apply CLI flag overrides.
	if g.URL != "" {
		cfg.Remote.URL = g.URL
	}
	if g.TTL != 0 {
		cfg.Cache.TTL = g.TTL
	}
	if g.Backend != "" {
		cfg.Cache.Backend = g.Backend
	}
	if g.SessionID != "" {
		cfg.Session.ID = g.SessionID
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// userConfigPath returns $XDG_CONFIG_HOME/roster/config.yaml, falling back
// to ~/.config.
func userConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return os.ExpandEnv("$HOME/.config/roster/config.yaml")
	}
	return filepath.Join(dir, "roster", "config.yaml")
}

// app holds the wired components for one command invocation.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	cache     *cache.TimedCache
	gate      *session.Gate
	ctl       *controller.Controller
	sessionID string
	closers   []func() error
}

// setup loads config and wires the components.
func (g *Globals) setup() (*app, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cfg)
}

// newApp wires stores, cache, session gate, loader, and controller from cfg.
func newApp(cfg *config.Config) (*app, error) {
	logger, closeLog, err := logging.Open(cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, closers: []func() error{closeLog}}

	cacheStore, err := store.Open(store.Options{
		Backend:     cfg.Cache.Backend,
		Dir:         cfg.Cache.Dir,
		SQLitePath:  cfg.Cache.SQLitePath,
		RedisAddr:   cfg.Cache.RedisAddr,
		RedisPrefix: cfg.Cache.RedisPrefix,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.closers = append(a.closers, cacheStore.Close)

	a.sessionID = session.ResolveID(cfg.Session.ID)
	sessionStore := store.NewFileStore(session.Dir(cfg.Session.Dir, a.sessionID))

	a.cache = cache.New(cacheStore,
		cache.WithKey(cfg.Cache.Key),
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithLogger(logger),
	)
	a.gate = session.NewGate(sessionStore,
		session.WithKey(cfg.Session.Key),
		session.WithLogger(logger),
	)
	loader := remote.NewLoader(
		remote.WithTimeout(cfg.Remote.Timeout),
		remote.WithLogger(logger),
	)
	a.ctl = controller.New(a.cache, listview.New(), a.gate, loader,
		controller.WithURL(cfg.Remote.URL),
		controller.WithLogger(logger),
	)

	logger.Debug("roster starting",
		"backend", cfg.Cache.Backend, "session", a.sessionID, "url", cfg.Remote.URL)
	return a, nil
}

// Close releases the stores and the log file, last opened first.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// signalContext returns a context cancelled on interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// --- View command ---

// ViewCmd shows the user list, interactively when stdout is a terminal.
type ViewCmd struct {
	NoTUI bool `help:"Force plain text output even if stdout is a TTY." default:"false"`
}

// Run executes the view command.
func (v *ViewCmd) Run(g *Globals) error {
	a, err := g.setup()
	if err != nil {
		return fmt.Errorf("view: %w", err)
	}
	defer func() { _ = a.Close() }()

	ctx, stop := signalContext()
	defer stop()

	d := display.New(display.Options{Writer: os.Stdout, ForcePlain: v.NoTUI})
	return d.Run(ctx, a.ctl)
}

// --- List command ---

// ListCmd prints the user list as plain text.
type ListCmd struct {
	Width int `help:"Layout width; narrower than 70 prints cards." default:"100"`
}

// Run executes the list command.
func (l *ListCmd) Run(g *Globals) error {
	a, err := g.setup()
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	defer func() { _ = a.Close() }()

	ctx, stop := signalContext()
	defer stop()

	return l.run(ctx, os.Stdout, a)
}

// run prints the list with the given app, enabling testable wiring.
func (l *ListCmd) run(ctx context.Context, w io.Writer, a *app) error {
	return display.NewPlain(w, l.Width).Run(ctx, a.ctl)
}

// --- Delete command ---

// DeleteCmd removes one user from the cached list.
type DeleteCmd struct {
	ID int `arg:"" help:"User ID to delete."`
}

// errNoCachedList is returned when delete finds nothing fresh to edit.
var errNoCachedList = errors.New("no cached list; run roster list first")

// Run executes the delete command.
func (d *DeleteCmd) Run(g *Globals) error {
	a, err := g.setup()
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	defer func() { _ = a.Close() }()

	return d.run(os.Stdout, a)
}

// run deletes against the cached list only; it never fetches.
func (d *DeleteCmd) run(w io.Writer, a *app) error {
	if needFetch := a.ctl.Start(); needFetch {
		return fmt.Errorf("delete: %w", errNoCachedList)
	}

	list := a.ctl.List()
	u, ok := findUser(list, d.ID)
	if !ok {
		return fmt.Errorf("delete: no user with id %d", d.ID)
	}
	if err := a.ctl.Delete(d.ID); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	_, _ = fmt.Fprintf(w, "Deleted %s (%d remaining)\n", u.Name, list.Len())
	if a.ctl.Affordance() {
		_, _ = fmt.Fprintln(w, "No users left. Run roster view to fetch them again (once per session).")
	}
	return nil
}

// --- Status command ---

// StatusCmd reports cache and session state without fetching.
type StatusCmd struct{}

// Run executes the status command.
func (s *StatusCmd) Run(g *Globals) error {
	a, err := g.setup()
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	defer func() { _ = a.Close() }()

	return s.run(os.Stdout, a)
}

func (s *StatusCmd) run(w io.Writer, a *app) error {
	st := a.ctl.Inspect()

	_, _ = fmt.Fprintf(w, "backend:  %s\n", a.cfg.Cache.Backend)
	if !st.HasEntry {
		_, _ = fmt.Fprintln(w, "cache:    empty")
	} else {
		freshness := "fresh"
		if st.Stale {
			freshness = "stale"
		}
		_, _ = fmt.Fprintf(w, "cache:    %d users, %s\n", st.Count, freshness)
		_, _ = fmt.Fprintf(w, "received: %s (%s ago, ttl %s)\n",
			st.ReceivedAt.Format(time.RFC3339), st.Age.Round(time.Second), st.TTL)
	}
	used := "available"
	if st.RefetchUsed {
		used = "used"
	}
	_, _ = fmt.Fprintf(w, "session:  %s (refetch %s)\n", a.sessionID, used)
	return nil
}

// --- Clear command ---

// ClearCmd removes the cached list.
type ClearCmd struct{}

// Run executes the clear command.
func (c *ClearCmd) Run(g *Globals) error {
	a, err := g.setup()
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	defer func() { _ = a.Close() }()

	return c.run(os.Stdout, a)
}

func (c *ClearCmd) run(w io.Writer, a *app) error {
	a.cache.Clear()
	_, _ = fmt.Fprintln(w, "Cleared cached users")
	return nil
}

// --- Session command ---

// SessionCmd prints a fresh session export line, or ends the current session.
type SessionCmd struct {
	End bool `help:"Reset the current session so the refetch is available again."`
}

// Run executes the session command.
func (s *SessionCmd) Run(g *Globals) error {
	a, err := g.setup()
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	defer func() { _ = a.Close() }()

	return s.run(os.Stdout, a)
}

func (s *SessionCmd) run(w io.Writer, a *app) error {
	if !s.End {
		_, _ = fmt.Fprintf(w, "export %s=%s\n", session.EnvVar, session.NewID())
		return nil
	}
	if err := a.gate.Reset(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Ended session %s\n", a.sessionID)
	return nil
}

// findUser returns the rendered row with the given id.
func findUser(l *listview.List, id int) (user.User, bool) {
	for _, u := range l.Rows() {
		if u.ID == id {
			return u, true
		}
	}
	return user.User{}, false
}

const (
	exitSuccess = 0
	exitRemote  = 1
	exitSetup   = 2
)

// exitCode maps an error to the appropriate exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var re *remote.Error
	if errors.As(err, &re) {
		return exitRemote
	}
	return exitSetup
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("roster"),
		kong.Description("Browse and prune a cached user list."),
		kong.Vars{"version": version + " " + commit + " " + date},
	)
	err := ctx.Run(&cli.Globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}
