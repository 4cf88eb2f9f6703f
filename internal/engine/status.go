package engine

import (
	"context"
	"fmt"
	"log/slog"

	"tasksync/internal/cache"
	"tasksync/internal/service"
)

// StatusEngine toggles tasks between todo and done.
type StatusEngine struct {
	remote    service.Service
	cache     *cache.Cache
	guard     *Guard
	reorder   *ReorderEngine
	log       *slog.Logger
	placement Placement
}

// Toggle patches the task to the complement of its cached status and, once the
// remote store confirms, updates the cache. A rejected patch leaves the cache
// untouched. It returns the new status.
func (s *StatusEngine) Toggle(ctx context.Context, id string) (service.Status, error) {
	t, ok := s.cache.Get(id)
	if !ok {
		return "", s.guard.recover(ctx, fmt.Errorf("%w: %s", ErrTaskNotFound, id))
	}
	newStatus := t.Status.Complement()

	if err := s.remote.Patch(ctx, id, service.StatusPatch(newStatus)); err != nil {
		s.log.Warn("status change failed", "op", "patch", "id", id, "status", newStatus, "error", err)
		return t.Status, err
	}

	if s.placement == PlacementReposition {
		return newStatus, s.reposition(ctx, id, newStatus)
	}

	if !s.cache.SetStatus(id, newStatus, laneFor(newStatus)) {
		return newStatus, s.guard.recover(ctx, fmt.Errorf("%w: %s", ErrTaskNotFound, id))
	}
	s.log.Debug("status changed", "id", id, "status", newStatus)
	return newStatus, nil
}

// laneFor is the placement policy: completed tasks show first, reopened
// tasks show last.
func laneFor(status service.Status) cache.Lane {
	if status == service.StatusDone {
		return cache.LaneHead
	}
	return cache.LaneTail
}

func (s *StatusEngine) reposition(ctx context.Context, id string, status service.Status) error {
	if !s.cache.SetStatus(id, status, cache.LanePositional) {
		return s.guard.recover(ctx, fmt.Errorf("%w: %s", ErrTaskNotFound, id))
	}

	view := s.cache.Partition(status)
	from := indexOf(view, id)
	to := len(view) - 1
	if status == service.StatusDone {
		to = 0
	}
	return s.reorder.Move(ctx, id, from, to)
}

func indexOf(tasks []service.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
