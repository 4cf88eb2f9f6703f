// Package rest implements service.Service against the /tasks REST API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"tasksync/internal/service"
)

const (
	// APITimeout is the default timeout for API calls.
	APITimeout = 5 * time.Second

	tasksPath = "/tasks"
)

// Client implements service.Service over HTTP with bearer authentication.
type Client struct {
	http    *http.Client
	baseURL string
	timeout time.Duration
	log     *slog.Logger
	base    *http.Client
}

var _ service.Service = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for per-request debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithBaseClient sets the HTTP client the bearer transport wraps (for testing).
func WithBaseClient(hc *http.Client) Option {
	return func(c *Client) {
		c.base = hc
	}
}

// New creates a client for the API rooted at baseURL, e.g.
// "http://localhost:5000/api". Every request carries token as a bearer
// credential.
func New(ctx context.Context, baseURL, token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: remote token is empty", service.ErrNoCredentials)
	}
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid base url: %q", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		timeout: APITimeout,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.base)
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	c.http = oauth2.NewClient(ctx, src)
	return c, nil
}

// List implements service.Service.
func (c *Client) List(ctx context.Context) ([]service.Task, error) {
	var wire []wireTask
	if err := c.do(ctx, "list", "", http.MethodGet, tasksPath, nil, &wire); err != nil {
		return nil, err
	}

	tasks := make([]service.Task, 0, len(wire))
	for _, w := range wire {
		t, err := w.toTask()
		if err != nil {
			return nil, service.Wrap("list", "", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Create implements service.Service.
func (c *Client) Create(ctx context.Context, title string) (service.Task, error) {
	var w wireTask
	body := map[string]string{"title": title}
	if err := c.do(ctx, "create", "", http.MethodPost, tasksPath, body, &w); err != nil {
		return service.Task{}, err
	}
	t, err := w.toTask()
	if err != nil {
		return service.Task{}, service.Wrap("create", "", err)
	}
	return t, nil
}

// Remove implements service.Service.
func (c *Client) Remove(ctx context.Context, id string) error {
	return c.do(ctx, "remove", id, http.MethodDelete, taskPath(id), nil, nil)
}

// Patch implements service.Service.
func (c *Client) Patch(ctx context.Context, id string, p service.Patch) error {
	body := wirePatch{Title: p.Title}
	if p.Status != nil {
		s := string(*p.Status)
		body.Status = &s
	}
	return c.do(ctx, "patch", id, http.MethodPatch, taskPath(id), body, nil)
}

// Reposition implements service.Service.
func (c *Client) Reposition(ctx context.Context, id string, oldPosition, newPosition int, status service.Status) error {
	body := wireReorder{OldPosition: oldPosition, NewPosition: newPosition, Status: string(status)}
	return c.do(ctx, "reposition", id, http.MethodPatch, taskPath(id)+"/reorder", body, nil)
}

func taskPath(id string) string {
	return tasksPath + "/" + url.PathEscape(id)
}

// do issues one request. Non-2xx responses are turned into *googleapi.Error
// by CheckResponse and then classified by service.Wrap.
func (c *Client) do(ctx context.Context, op, id, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return service.Wrap(op, id, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return service.Wrap(op, id, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("remote call failed", "method", method, "path", path, "error", err)
		return service.Wrap(op, id, err)
	}
	defer googleapi.CloseBody(res)
	c.log.Debug("remote call", "method", method, "path", path, "status", res.StatusCode, "duration", time.Since(start))

	if err := googleapi.CheckResponse(res); err != nil {
		return service.Wrap(op, id, err)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return service.Wrap(op, id, fmt.Errorf("%w: %v", service.ErrDecode, err))
	}
	return nil
}

// wireTask is the JSON shape of a task on the wire.
type wireTask struct {
	ID        string          `json:"_id"`
	AltID     string          `json:"id,omitempty"`
	Title     string          `json:"title"`
	Status    string          `json:"status"`
	Position  int             `json:"position"`
	UserID    string          `json:"userId"`
	UpdatedAt string          `json:"updatedAt"`
	Version   json.RawMessage `json:"__v"`
}

// versionText keeps the opaque version token as text whatever JSON type the
// store used for it.
func versionText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func (w wireTask) toTask() (service.Task, error) {
	id := w.ID
	if id == "" {
		id = w.AltID
	}
	if id == "" {
		return service.Task{}, fmt.Errorf("%w: task without id", service.ErrDecode)
	}
	status, err := service.ParseStatus(w.Status)
	if err != nil {
		return service.Task{}, fmt.Errorf("%w: task %s: %v", service.ErrDecode, id, err)
	}
	if w.Position < 0 {
		return service.Task{}, fmt.Errorf("%w: task %s: negative position %d", service.ErrDecode, id, w.Position)
	}

	t := service.Task{
		ID:        id,
		Title:     w.Title,
		Status:    status,
		Position:  w.Position,
		OwnerID:   w.UserID,
		UpdatedAt: w.UpdatedAt,
		Version:   versionText(w.Version),
	}
	return t, nil
}

type wirePatch struct {
	Title  *string `json:"title,omitempty"`
	Status *string `json:"status,omitempty"`
}

type wireReorder struct {
	OldPosition int    `json:"oldPosition"`
	NewPosition int    `json:"newPosition"`
	Status      string `json:"status"`
}
