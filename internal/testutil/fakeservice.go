// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"tasksync/internal/service"
)

// DefaultOwner is the owner ID assigned to tasks created by FakeService.
const DefaultOwner = "owner-1"

// Call records one remote operation issued against FakeService.
type Call struct {
	Op          string
	ID          string
	Title       string
	Patch       service.Patch
	OldPosition int
	NewPosition int
	Status      service.Status
}

// FakeService is an in-memory implementation of service.Service for testing.
// It keeps the remote store's ordering rules: dense positions per status,
// append on create, done placed first and todo placed last on status change,
// and neighbour shifting on reposition starting from the stored position.
type FakeService struct {
	mu     sync.Mutex
	tasks  map[string]*service.Task
	nextID int
	calls  []Call

	// Error injection for testing
	ListErr       error
	CreateErr     error
	RemoveErr     error
	PatchErr      error
	RepositionErr error

	// Hooks run before the operation is applied, outside the lock.
	BeforeList       func()
	BeforeReposition func()
}

var _ service.Service = (*FakeService)(nil)

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{tasks: make(map[string]*service.Task)}
}

// AddTask seeds a task directly into the store, appended to its partition.
func (f *FakeService) AddTask(id, title string, status service.Status) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &service.Task{
		ID:       id,
		Title:    title,
		Status:   status,
		Position: f.countLocked(status),
		OwnerID:  DefaultOwner,
		Version:  "0",
	}
	f.tasks[id] = t
	return *t
}

// SetPosition overwrites a stored position without shifting neighbours.
// Used to simulate remote state the client has not seen.
func (f *FakeService) SetPosition(id string, pos int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tasks[id]; ok {
		t.Position = pos
	}
}

// Task returns a stored task.
func (f *FakeService) Task(id string) (service.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return service.Task{}, false
	}
	return *t, true
}

// Order returns the IDs of a partition sorted by position.
func (f *FakeService) Order(status service.Status) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, t := range f.partitionLocked(status) {
		ids = append(ids, t.ID)
	}
	return ids
}

// Calls returns the operations issued so far.
func (f *FakeService) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallOps returns the operation names issued so far.
func (f *FakeService) CallOps() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ops := make([]string, len(f.calls))
	for i, c := range f.calls {
		ops[i] = c.Op
	}
	return ops
}

// ResetCalls clears the call log.
func (f *FakeService) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// List implements service.Service.
func (f *FakeService) List(ctx context.Context) ([]service.Task, error) {
	if f.BeforeList != nil {
		f.BeforeList()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: "list"})
	if f.ListErr != nil {
		return nil, service.Wrap("list", "", f.ListErr)
	}

	var out []service.Task
	for _, st := range service.Statuses {
		for _, t := range f.partitionLocked(st) {
			out = append(out, *t)
		}
	}
	return out, nil
}

// Create implements service.Service.
func (f *FakeService) Create(ctx context.Context, title string) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: "create", Title: title})
	if f.CreateErr != nil {
		return service.Task{}, service.Wrap("create", "", f.CreateErr)
	}
	if strings.TrimSpace(title) == "" {
		return service.Task{}, &service.RemoteError{Op: "create", Code: 400, Err: service.ErrRejected}
	}

	f.nextID++
	t := &service.Task{
		ID:       "task-" + strconv.Itoa(f.nextID),
		Title:    title,
		Status:   service.StatusTodo,
		Position: f.countLocked(service.StatusTodo),
		OwnerID:  DefaultOwner,
		Version:  "0",
	}
	f.tasks[t.ID] = t
	return *t, nil
}

// Remove implements service.Service.
func (f *FakeService) Remove(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: "remove", ID: id})
	if f.RemoveErr != nil {
		return service.Wrap("remove", id, f.RemoveErr)
	}

	t, ok := f.tasks[id]
	if !ok {
		return &service.RemoteError{Op: "remove", ID: id, Code: 404, Err: service.ErrNotFound}
	}
	delete(f.tasks, id)
	f.closeGapLocked(t.Status, t.Position)
	return nil
}

// Patch implements service.Service.
func (f *FakeService) Patch(ctx context.Context, id string, p service.Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: "patch", ID: id, Patch: p})
	if f.PatchErr != nil {
		return service.Wrap("patch", id, f.PatchErr)
	}

	t, ok := f.tasks[id]
	if !ok {
		return &service.RemoteError{Op: "patch", ID: id, Code: 404, Err: service.ErrNotFound}
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Status != nil && *p.Status != t.Status {
		old := t.Status
		oldPos := t.Position
		t.Status = *p.Status
		f.closeGapLocked(old, oldPos)
		if t.Status == service.StatusDone {
			for _, o := range f.tasks {
				if o.ID != id && o.Status == service.StatusDone {
					o.Position++
				}
			}
			t.Position = 0
		} else {
			t.Position = f.countLocked(service.StatusTodo) - 1
		}
	}
	t.Version = bump(t.Version)
	return nil
}

// Reposition implements service.Service.
func (f *FakeService) Reposition(ctx context.Context, id string, oldPosition, newPosition int, status service.Status) error {
	if f.BeforeReposition != nil {
		f.BeforeReposition()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: "reposition", ID: id, OldPosition: oldPosition, NewPosition: newPosition, Status: status})
	if f.RepositionErr != nil {
		return service.Wrap("reposition", id, f.RepositionErr)
	}

	t, ok := f.tasks[id]
	if !ok {
		return &service.RemoteError{Op: "reposition", ID: id, Code: 404, Err: service.ErrNotFound}
	}
	if t.Status != status {
		return &service.RemoteError{Op: "reposition", ID: id, Code: 409, Err: service.ErrConflict}
	}
	n := f.countLocked(status)
	if oldPosition < 0 || oldPosition >= n || newPosition < 0 || newPosition >= n {
		return &service.RemoteError{Op: "reposition", ID: id, Code: 400, Err: service.ErrRejected}
	}

	// The stored position is authoritative; oldPosition only has to be in range.
	oldPosition = t.Position

	for _, o := range f.tasks {
		if o.ID == id || o.Status != status {
			continue
		}
		switch {
		case newPosition > oldPosition && o.Position > oldPosition && o.Position <= newPosition:
			o.Position--
		case newPosition < oldPosition && o.Position >= newPosition && o.Position < oldPosition:
			o.Position++
		}
	}
	t.Position = newPosition
	t.Version = bump(t.Version)
	return nil
}

func (f *FakeService) countLocked(status service.Status) int {
	n := 0
	for _, t := range f.tasks {
		if t.Status == status {
			n++
		}
	}
	return n
}

func (f *FakeService) closeGapLocked(status service.Status, pos int) {
	for _, t := range f.tasks {
		if t.Status == status && t.Position > pos {
			t.Position--
		}
	}
}

func (f *FakeService) partitionLocked(status service.Status) []*service.Task {
	var out []*service.Task
	for _, t := range f.tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func bump(version string) string {
	n, err := strconv.Atoi(version)
	if err != nil {
		return fmt.Sprintf("%s+1", version)
	}
	return strconv.Itoa(n + 1)
}
