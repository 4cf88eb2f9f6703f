package engine

import (
	"context"
	"fmt"

	"tasksync/internal/cache"
)

// Intent is a typed user action.
type Intent interface {
	intent()
}

type (
	CreateTask struct{ Title string }
	DeleteTask struct{ ID string }
	RenameTask struct{ ID, Title string }
	ToggleStatus struct{ ID string }
	MoveTask   struct {
		ID       string
		OldIndex int
		NewIndex int
	}
	Refresh struct{ Filter cache.Filter }
)

func (CreateTask) intent()   {}
func (DeleteTask) intent()   {}
func (RenameTask) intent()   {}
func (ToggleStatus) intent() {}
func (MoveTask) intent()     {}
func (Refresh) intent()      {}

// Dispatch runs an intent against the engine.
func (e *Engine) Dispatch(ctx context.Context, in Intent) error {
	switch in := in.(type) {
	case CreateTask:
		_, err := e.Create(ctx, in.Title)
		return err
	case DeleteTask:
		return e.Delete(ctx, in.ID)
	case RenameTask:
		return e.Rename(ctx, in.ID, in.Title)
	case ToggleStatus:
		_, err := e.Toggle(ctx, in.ID)
		return err
	case MoveTask:
		return e.Move(ctx, in.ID, in.OldIndex, in.NewIndex)
	case Refresh:
		return e.Resync(ctx, in.Filter)
	}
	return fmt.Errorf("unknown intent %T", in)
}
