// Package googletasks implements the service.Service interface using Google Tasks API.
//
// One Google task list is the remote store. needsAction tasks form the todo
// partition and completed tasks the done partition; subtasks are ignored.
// Google orders tasks by an opaque position string, so dense per-status
// positions are derived on every List.
package googletasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"tasksync/internal/config"
	"tasksync/internal/service"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// PageSize is the number of tasks fetched per request.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	statusNeedsAction = "needsAction"
	statusCompleted   = "completed"
)

// Client implements service.Service using Google Tasks API.
type Client struct {
	svc    *tasks.Service
	listID string
	log    *slog.Logger
}

var _ service.Service = (*Client)(nil)

// New creates a client for the list configured in cfg.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Client, error) {
	hc, err := authorizedClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithHTTPClient(ctx, hc, cfg.GoogleTasks.ListID, log)
}

// NewWithHTTPClient creates a client with a custom HTTP client. Extra options
// are passed to the API client (for testing, e.g. option.WithEndpoint).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, listID string, log *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	if listID == "" {
		listID = DefaultListID
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{svc: svc, listID: listID, log: log}, nil
}

// List implements service.Service.
func (c *Client) List(ctx context.Context) ([]service.Task, error) {
	items, err := c.fetch(ctx)
	if err != nil {
		return nil, service.Wrap("list", "", err)
	}
	return toTasks(items, c.listID), nil
}

// Create implements service.Service. The task is appended after the last
// open task.
func (c *Client) Create(ctx context.Context, title string) (service.Task, error) {
	items, err := c.fetch(ctx)
	if err != nil {
		return service.Task{}, service.Wrap("create", "", err)
	}
	todo := partition(items, statusNeedsAction)

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	call := c.svc.Tasks.Insert(c.listID, &tasks.Task{Title: title, Status: statusNeedsAction})
	if len(todo) > 0 {
		call = call.Previous(todo[len(todo)-1].Id)
	}
	created, err := call.Context(ctx).Do()
	if err != nil {
		return service.Task{}, service.Wrap("create", "", err)
	}

	t, ok := toTask(created, c.listID)
	if !ok {
		return service.Task{}, service.Wrap("create", created.Id, fmt.Errorf("%w: unexpected status %q", service.ErrDecode, created.Status))
	}
	t.Position = len(todo)
	return t, nil
}

// Remove implements service.Service.
func (c *Client) Remove(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	if err := c.svc.Tasks.Delete(c.listID, id).Context(ctx).Do(); err != nil {
		return service.Wrap("remove", id, err)
	}
	return nil
}

// Patch implements service.Service.
func (c *Client) Patch(ctx context.Context, id string, p service.Patch) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	if _, err := c.svc.Tasks.Patch(c.listID, id, toPatch(p)).Context(ctx).Do(); err != nil {
		return service.Wrap("patch", id, err)
	}
	return nil
}

// Reposition implements service.Service. Google moves a task behind a named
// sibling, so the target index is translated into the ID of the task that
// will precede it.
func (c *Client) Reposition(ctx context.Context, id string, oldPosition, newPosition int, status service.Status) error {
	items, err := c.fetch(ctx)
	if err != nil {
		return service.Wrap("reposition", id, err)
	}

	var stored *tasks.Task
	for _, it := range items {
		if it.Id == id {
			stored = it
			break
		}
	}
	if stored == nil {
		return &service.RemoteError{Op: "reposition", ID: id, Code: http.StatusNotFound, Err: service.ErrNotFound}
	}
	if st, _ := fromGoogleStatus(stored.Status); st != status {
		return &service.RemoteError{Op: "reposition", ID: id, Code: http.StatusConflict,
			Err: fmt.Errorf("%w: task is %s, not %s", service.ErrConflict, st, status)}
	}

	order := ids(partition(items, toGoogleStatus(status)))
	if oldPosition < 0 || oldPosition >= len(order) || newPosition < 0 || newPosition >= len(order) {
		return &service.RemoteError{Op: "reposition", ID: id, Code: http.StatusBadRequest,
			Err: fmt.Errorf("%w: positions %d -> %d outside 0..%d", service.ErrRejected, oldPosition, newPosition, len(order)-1)}
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	call := c.svc.Tasks.Move(c.listID, id)
	if prev := previousFor(order, id, newPosition); prev != "" {
		call = call.Previous(prev)
	}
	if _, err := call.Context(ctx).Do(); err != nil {
		return service.Wrap("reposition", id, err)
	}
	c.log.Debug("google task moved", "id", id, "to", newPosition)
	return nil
}

// fetch returns every top-level task of the list, completed and hidden ones
// included.
func (c *Client) fetch(ctx context.Context) ([]*tasks.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var items []*tasks.Task
	err := c.svc.Tasks.List(c.listID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, it := range resp.Items {
				if it.Parent != "" || it.Deleted {
					continue
				}
				items = append(items, it)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// partition returns the tasks with the given Google status sorted by their
// position string.
func partition(items []*tasks.Task, status string) []*tasks.Task {
	var out []*tasks.Task
	for _, it := range items {
		if it.Status == status {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out
}

// toTasks converts a snapshot to service tasks with dense positions per
// status.
func toTasks(items []*tasks.Task, listID string) []service.Task {
	var out []service.Task
	for _, gs := range []string{statusNeedsAction, statusCompleted} {
		for i, it := range partition(items, gs) {
			t, ok := toTask(it, listID)
			if !ok {
				continue
			}
			t.Position = i
			out = append(out, t)
		}
	}
	return out
}

func toTask(it *tasks.Task, listID string) (service.Task, bool) {
	st, ok := fromGoogleStatus(it.Status)
	if !ok {
		return service.Task{}, false
	}
	return service.Task{
		ID:        it.Id,
		Title:     it.Title,
		Status:    st,
		OwnerID:   listID,
		UpdatedAt: it.Updated,
		Version:   it.Etag,
	}, true
}

func toPatch(p service.Patch) *tasks.Task {
	t := &tasks.Task{}
	if p.Title != nil {
		t.Title = *p.Title
		t.ForceSendFields = append(t.ForceSendFields, "Title")
	}
	if p.Status != nil {
		t.Status = toGoogleStatus(*p.Status)
		if *p.Status == service.StatusTodo {
			// Reopening requires clearing the completion timestamp.
			t.NullFields = append(t.NullFields, "Completed")
		}
	}
	return t
}

func fromGoogleStatus(s string) (service.Status, bool) {
	switch s {
	case statusNeedsAction:
		return service.StatusTodo, true
	case statusCompleted:
		return service.StatusDone, true
	}
	return "", false
}

func toGoogleStatus(s service.Status) string {
	if s == service.StatusDone {
		return statusCompleted
	}
	return statusNeedsAction
}

func ids(items []*tasks.Task) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Id
	}
	return out
}

// previousFor returns the ID that precedes id once it sits at newIndex of
// order, or "" when it becomes first.
func previousFor(order []string, id string, newIndex int) string {
	rest := make([]string, 0, len(order))
	for _, o := range order {
		if o != id {
			rest = append(rest, o)
		}
	}
	if newIndex <= 0 || len(rest) == 0 {
		return ""
	}
	if newIndex > len(rest) {
		newIndex = len(rest)
	}
	return rest[newIndex-1]
}

