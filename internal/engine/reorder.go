package engine

import (
	"context"
	"fmt"
	"log/slog"

	"tasksync/internal/cache"
	"tasksync/internal/service"
)

// ReorderEngine moves tasks inside their status partition.
type ReorderEngine struct {
	remote service.Service
	cache  *cache.Cache
	guard  *Guard
	log    *slog.Logger
}

// Move moves task id from oldIndex to newIndex of its partition's ordered view.
//
// The new order is written into the cache before the remote call because the
// move is already visible to the user. If the remote store rejects it the
// cache is rebuilt from a fresh snapshot and the error wraps ErrDesync.
func (r *ReorderEngine) Move(ctx context.Context, id string, oldIndex, newIndex int) error {
	t, ok := r.cache.Get(id)
	if !ok {
		return r.guard.recover(ctx, fmt.Errorf("%w: %s", ErrTaskNotFound, id))
	}
	status := t.Status

	view := r.cache.Partition(status)
	if oldIndex < 0 || oldIndex >= len(view) || newIndex < 0 || newIndex >= len(view) {
		return r.guard.recover(ctx, fmt.Errorf("%w: move %d -> %d in %s of %d", ErrIndexOutOfRange, oldIndex, newIndex, status, len(view)))
	}
	if view[oldIndex].ID != id {
		return r.guard.recover(ctx, fmt.Errorf("%w: %s is not at %s index %d", ErrTaskNotFound, id, status, oldIndex))
	}

	order := splice(view, oldIndex, newIndex)
	if err := r.cache.ApplyOrder(status, order); err != nil {
		return r.guard.recover(ctx, err)
	}

	if err := r.remote.Reposition(ctx, id, oldIndex, newIndex, status); err != nil {
		r.log.Warn("reorder failed, resyncing", "op", "reposition", "id", id, "from", oldIndex, "to", newIndex, "status", status, "error", err)
		return r.guard.recover(ctx, err)
	}
	r.log.Debug("task moved", "id", id, "from", oldIndex, "to", newIndex, "status", status)
	return nil
}

// splice removes the element at from and reinserts it at to, returning the
// resulting ID order.
func splice(view []service.Task, from, to int) []string {
	ids := make([]string, 0, len(view))
	for i, t := range view {
		if i != from {
			ids = append(ids, t.ID)
		}
	}
	moved := view[from].ID
	ids = append(ids, "")
	copy(ids[to+1:], ids[to:])
	ids[to] = moved
	return ids
}
