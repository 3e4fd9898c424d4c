package controller

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/smileynet/roster/internal/cache"
	"github.com/smileynet/roster/internal/listview"
)

// ErrNoCacheEntry indicates a delete arrived while no cache entry exists.
// Rows are only shown after a successful load, so this is a bug in the caller.
var ErrNoCacheEntry = errors.New("controller: delete without a cache entry")

// DeleteCoordinator applies a delete to the view and then the cache, so the
// view may briefly lead the cache but never trail it.
type DeleteCoordinator struct {
	list   *listview.List
	cache  *cache.TimedCache
	logger *slog.Logger
}

// NewDeleteCoordinator creates a DeleteCoordinator.
func NewDeleteCoordinator(l *listview.List, c *cache.TimedCache, logger *slog.Logger) *DeleteCoordinator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DeleteCoordinator{list: l, cache: c, logger: logger}
}

// Delete removes user id from the view and the persisted entry. The entry
// keeps its original receive time. Removing the last user clears both.
func (d *DeleteCoordinator) Delete(id int) error {
	d.list.RemoveRow(id)

	entry, ok := d.cache.Load()
	if !ok {
		d.logger.Error("delete without a cache entry", "id", id)
		return fmt.Errorf("%w: id %d", ErrNoCacheEntry, id)
	}

	remaining := entry.Results.Without(id)
	if len(remaining) > 0 {
		d.cache.Save(remaining, entry.ReceivedAt)
		d.logger.Info("deleted user", "id", id, "remaining", len(remaining))
		return nil
	}

	d.list.Clear()
	d.cache.Clear()
	d.logger.Info("deleted last user, cache cleared", "id", id)
	return nil
}
