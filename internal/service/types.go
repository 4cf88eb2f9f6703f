package service

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusTodo Status = "todo"
	StatusDone Status = "done"
)

// Statuses lists the partitions in presentation order.
var Statuses = []Status{StatusTodo, StatusDone}

// Complement returns the other lifecycle state.
func (s Status) Complement() Status {
	if s == StatusDone {
		return StatusTodo
	}
	return StatusDone
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusTodo || s == StatusDone
}

// ParseStatus parses a status name (case-insensitive, trimmed).
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("invalid status: %q", s)
	}
	return st, nil
}

// Task represents a single task record as confirmed by the remote store.
type Task struct {
	ID       string
	Title    string
	Status   Status
	Position int
	OwnerID  string

	// UpdatedAt and Version are opaque remote metadata.
	UpdatedAt string
	Version   string
}

// Patch carries the fields of a partial update. Nil fields are left unchanged.
type Patch struct {
	Title  *string
	Status *Status
}

// TitlePatch returns a patch that sets the title.
func TitlePatch(title string) Patch {
	return Patch{Title: &title}
}

// StatusPatch returns a patch that sets the status.
func StatusPatch(status Status) Patch {
	return Patch{Status: &status}
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Status == nil
}
