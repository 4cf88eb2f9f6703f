// Package service defines the backend-agnostic interface for remote task operations.
package service

import "context"

// Service is the operation set against the remote task store.
// Every call is all-or-nothing from the caller's perspective: it either
// returns a result or a *RemoteError, never a partial effect.
// Engines never import a backend SDK directly.
type Service interface {
	// List returns the full task snapshot for the current user.
	List(ctx context.Context) ([]Task, error)

	// Create creates a task with the given title. The remote store assigns
	// the ID, sets status todo and appends it to the todo partition.
	Create(ctx context.Context, title string) (Task, error)

	// Remove deletes a task. A retry after a prior success may fail with
	// ErrNotFound; callers treat any failure as a hard failure.
	Remove(ctx context.Context, id string) error

	// Patch updates the title or status of a task.
	Patch(ctx context.Context, id string, p Patch) error

	// Reposition moves a task inside its status partition. Both endpoints
	// are sent so the remote store can shift the neighbours atomically.
	Reposition(ctx context.Context, id string, oldPosition, newPosition int, status Status) error
}
