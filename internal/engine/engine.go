// Package engine drives the remote store and keeps the task cache in step
// with it.
//
// Mutations follow two contracts. Create, delete, rename and status changes
// touch the cache only after the remote store confirms them. A move is
// applied to the cache first and then submitted; if the submission fails the
// cache is discarded and rebuilt from a fresh remote snapshot.
//
// The engine does not serialize operations on the same task. Concurrent calls
// proceed independently and the remote store decides the outcome.
package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"tasksync/internal/cache"
	"tasksync/internal/service"
)

var (
	// ErrEmptyTitle is returned when a title is empty after trimming.
	ErrEmptyTitle = errors.New("title required")

	// ErrTaskNotFound is returned when a task is missing from the cache.
	ErrTaskNotFound = errors.New("task not found")

	// ErrIndexOutOfRange is returned when a move index does not address
	// the task's partition.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrDesync wraps failures after which the cache was rebuilt from the
	// remote store.
	ErrDesync = errors.New("local state resynchronized")
)

// Placement decides where a task lands in its new partition after a status
// change.
type Placement string

const (
	// PlacementOverlay shows a completed task first and a reopened task last
	// without rewriting any position.
	PlacementOverlay Placement = "overlay"

	// PlacementReposition moves the task to index 0 (done) or to the end
	// (todo) through the reorder protocol.
	PlacementReposition Placement = "reposition"
)

// ParsePlacement parses a placement name. An empty string means PlacementOverlay.
func ParsePlacement(s string) (Placement, error) {
	switch Placement(s) {
	case "", PlacementOverlay:
		return PlacementOverlay, nil
	case PlacementReposition:
		return PlacementReposition, nil
	}
	return "", errors.New("invalid placement: " + s)
}

// Engine owns the cache mutations for one remote store.
type Engine struct {
	remote    service.Service
	cache     *cache.Cache
	log       *slog.Logger
	placement Placement

	guard   *Guard
	status  *StatusEngine
	reorder *ReorderEngine
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithPlacement sets the status transition placement policy.
func WithPlacement(p Placement) Option {
	return func(e *Engine) {
		if p != "" {
			e.placement = p
		}
	}
}

// New creates an Engine that mirrors remote into c.
func New(remote service.Service, c *cache.Cache, opts ...Option) *Engine {
	e := &Engine{
		remote:    remote,
		cache:     c,
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		placement: PlacementOverlay,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.guard = &Guard{remote: remote, cache: c, log: e.log, filter: cache.FilterAll}
	e.reorder = &ReorderEngine{remote: remote, cache: c, guard: e.guard, log: e.log}
	e.status = &StatusEngine{remote: remote, cache: c, guard: e.guard, reorder: e.reorder, log: e.log, placement: e.placement}
	return e
}

// Cache returns the read-only view of the mirrored tasks.
func (e *Engine) Cache() cache.Reader {
	return e.cache
}

// Load fills the cache from the remote store under filter.
func (e *Engine) Load(ctx context.Context, filter cache.Filter) error {
	return e.guard.Resync(ctx, filter)
}

// Resync discards the cache and reloads it under filter.
func (e *Engine) Resync(ctx context.Context, filter cache.Filter) error {
	return e.guard.Resync(ctx, filter)
}

// Toggle flips a task between todo and done.
func (e *Engine) Toggle(ctx context.Context, id string) (service.Status, error) {
	return e.status.Toggle(ctx, id)
}

// Move moves a task inside its partition from oldIndex to newIndex.
func (e *Engine) Move(ctx context.Context, id string, oldIndex, newIndex int) error {
	return e.reorder.Move(ctx, id, oldIndex, newIndex)
}
