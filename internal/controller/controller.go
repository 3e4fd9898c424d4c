// Package controller decides between cached and remote data, and keeps the
// persisted cache and the rendered list consistent.
//
// All methods except Fetch must run on one goroutine (the Bubble Tea update
// loop). Fetch only calls the loader, so it can run inside a tea.Cmd.
package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/smileynet/roster/internal/cache"
	"github.com/smileynet/roster/internal/listview"
	"github.com/smileynet/roster/internal/remote"
	"github.com/smileynet/roster/internal/session"
	"github.com/smileynet/roster/internal/user"
)

// Fetcher loads the record set from the remote source.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (user.RecordSet, error)
}

// Source reports where the rendered rows came from.
type Source string

const (
	SourceNone   Source = ""
	SourceCache  Source = "cache"
	SourceRemote Source = "remote"
)

// Controller wires the cache, the list, the session gate, and the loader.
type Controller struct {
	cache   *cache.TimedCache
	list    *listview.List
	gate    *session.Gate
	loader  Fetcher
	url     string
	logger  *slog.Logger
	deletes *DeleteCoordinator
	empty   *EmptyState
	source  Source
}

// Option configures a Controller.
type Option func(*Controller)

// WithURL sets the remote URL (default remote.DefaultURL).
func WithURL(url string) Option {
	return func(c *Controller) { c.url = url }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New creates a Controller. It registers itself as the list's render hook so
// that every full render re-arms the empty-state observer.
func New(c *cache.TimedCache, l *listview.List, gate *session.Gate, loader Fetcher, opts ...Option) *Controller {
	ctl := &Controller{
		cache:  c,
		list:   l,
		gate:   gate,
		loader: loader,
		url:    remote.DefaultURL,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(ctl)
	}
	ctl.deletes = NewDeleteCoordinator(l, c, ctl.logger)
	ctl.empty = NewEmptyState(gate, ctl.logger)
	l.OnRender(ctl.empty.Arm)
	return ctl
}

// Start consults the cache once. A fresh entry is rendered and Start returns
// false. A missing or stale entry is cleared and Start returns true: the
// caller must Fetch and then Apply.
func (c *Controller) Start() (needFetch bool) {
	entry, ok := c.cache.Load()
	if !ok {
		c.logger.Info("no cached users, fetching")
		c.cache.Clear()
		return true
	}
	if c.cache.IsStale(entry.ReceivedAt) {
		c.logger.Info("outdated data, clearing cache",
			"received_at", entry.ReceivedAt, "ttl", c.cache.TTL())
		c.cache.Clear()
		return true
	}
	c.logger.Info("rendering users from cache",
		"count", len(entry.Results), "received_at", entry.ReceivedAt)
	c.source = SourceCache
	c.list.Render(entry.Results)
	return false
}

// Fetch asks the loader for the record set. It does not touch the cache or
// the list; pass a successful result to Apply.
func (c *Controller) Fetch(ctx context.Context) (user.RecordSet, error) {
	return c.loader.Fetch(ctx, c.url)
}

// Apply persists a successful fetch, stamped now, and renders it.
// An empty result clears the cache instead of persisting it.
func (c *Controller) Apply(users user.RecordSet) {
	if len(users) == 0 {
		c.cache.Clear()
	} else {
		c.cache.SaveNow(users)
	}
	c.source = SourceRemote
	c.list.Render(users)
}

// Load runs the startup flow synchronously: Start, then Fetch and Apply if
// needed. A failed fetch leaves the cache and the list untouched.
func (c *Controller) Load(ctx context.Context) error {
	if !c.Start() {
		return nil
	}
	users, err := c.Fetch(ctx)
	if err != nil {
		return err
	}
	c.Apply(users)
	return nil
}

// Delete removes a user from the list and the cache.
func (c *Controller) Delete(id int) error {
	return c.deletes.Delete(id)
}

// Refetch activates the empty-list affordance. It returns true when the
// caller must Fetch and Apply.
func (c *Controller) Refetch() (bool, error) {
	return c.empty.Activate()
}

// Affordance reports whether the refetch affordance is shown.
func (c *Controller) Affordance() bool {
	return c.empty.Offered()
}

// EmptyPhase returns the empty-state phase.
func (c *Controller) EmptyPhase() EmptyPhase {
	return c.empty.Phase()
}

// List returns the rendered list.
func (c *Controller) List() *listview.List {
	return c.list
}

// Source reports where the current rows came from.
func (c *Controller) Source() Source {
	return c.source
}

// URL returns the remote URL.
func (c *Controller) URL() string {
	return c.url
}

// Status is a snapshot of the persisted state.
type Status struct {
	HasEntry    bool
	Count       int
	ReceivedAt  time.Time
	Age         time.Duration
	TTL         time.Duration
	Stale       bool
	RefetchUsed bool
}

// Inspect reports the persisted cache and session state without rendering.
func (c *Controller) Inspect() Status {
	st := Status{TTL: c.cache.TTL(), RefetchUsed: c.gate.IsUsed()}
	entry, ok := c.cache.Load()
	if !ok {
		return st
	}
	st.HasEntry = true
	st.Count = len(entry.Results)
	st.ReceivedAt = entry.ReceivedAt
	st.Age = entry.Age(c.cache.Now())
	st.Stale = c.cache.IsStale(entry.ReceivedAt)
	return st
}
