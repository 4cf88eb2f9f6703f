package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"tasksync/internal/cache"
	"tasksync/internal/service"
)

// Guard rebuilds the cache from the remote store. It is the only
// reconciliation mechanism; there is no incremental diff.
type Guard struct {
	remote service.Service
	cache  *cache.Cache
	log    *slog.Logger

	mu     sync.Mutex
	filter cache.Filter
}

// Filter returns the filter of the most recent successful resync.
func (g *Guard) Filter() cache.Filter {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.filter
}

// Resync fetches a full snapshot and replaces the cache with it. Subscribers
// receive a reset event carrying filter. On failure the cache is left as is.
func (g *Guard) Resync(ctx context.Context, filter cache.Filter) error {
	tasks, err := g.remote.List(ctx)
	if err != nil {
		g.log.Warn("resync failed", "op", "list", "filter", filter, "error", err)
		return err
	}
	g.cache.ReplaceAll(tasks, filter)
	g.mu.Lock()
	g.filter = filter
	g.mu.Unlock()
	g.log.Info("resync complete", "filter", filter, "tasks", len(tasks))
	return nil
}

// recover resyncs after a detected desync and returns cause wrapped in
// ErrDesync, joined with the resync error if that failed too.
func (g *Guard) recover(ctx context.Context, cause error) error {
	if err := g.Resync(ctx, g.Filter()); err != nil {
		return errors.Join(fmt.Errorf("%w: %w", ErrDesync, cause), fmt.Errorf("resync: %w", err))
	}
	return fmt.Errorf("%w: %w", ErrDesync, cause)
}
