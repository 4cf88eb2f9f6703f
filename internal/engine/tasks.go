package engine

import (
	"context"
	"fmt"
	"strings"

	"tasksync/internal/service"
)

// Create creates a task and caches the record returned by the remote store.
func (e *Engine) Create(ctx context.Context, title string) (service.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return service.Task{}, ErrEmptyTitle
	}

	t, err := e.remote.Create(ctx, title)
	if err != nil {
		e.log.Warn("create failed", "op", "create", "error", err)
		return service.Task{}, err
	}
	if err := e.cache.Insert(t); err != nil {
		return t, e.guard.recover(ctx, err)
	}
	e.log.Debug("task created", "id", t.ID, "position", t.Position)
	return t, nil
}

// Delete removes a task remotely, then from the cache. A failed delete leaves
// the cache untouched and triggers a resync.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if err := e.remote.Remove(ctx, id); err != nil {
		e.log.Warn("delete failed, resyncing", "op", "remove", "id", id, "error", err)
		return e.guard.recover(ctx, err)
	}
	e.cache.RemoveByID(id)
	e.log.Debug("task deleted", "id", id)
	return nil
}

// Rename changes a task's title. An unchanged title issues no remote call.
func (e *Engine) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	t, ok := e.cache.Get(id)
	if !ok {
		return e.guard.recover(ctx, fmt.Errorf("%w: %s", ErrTaskNotFound, id))
	}
	if t.Title == title {
		return nil
	}

	if err := e.remote.Patch(ctx, id, service.TitlePatch(title)); err != nil {
		e.log.Warn("rename failed", "op", "patch", "id", id, "error", err)
		return err
	}
	e.cache.SetTitle(id, title)
	return nil
}
