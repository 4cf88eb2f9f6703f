package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tasksync/internal/server"
)

type apiClient struct {
	t     *testing.T
	base  string
	token string
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	h, err := server.NewHandler(openStore(t), server.Options{
		Tokens: map[string]string{"tok-alice": "alice", "tok-bob": "bob"},
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func (c apiClient) do(method, path, body string) (int, []byte) {
	c.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, c.base+path, r)
	if err != nil {
		c.t.Fatalf("NewRequest: %v", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	data, _ := io.ReadAll(res.Body)
	return res.StatusCode, data
}

func (c apiClient) create(title string) server.Task {
	c.t.Helper()
	code, body := c.do("POST", "/api/tasks", `{"title":"`+title+`"}`)
	if code != http.StatusCreated {
		c.t.Fatalf("create status = %d: %s", code, body)
	}
	var tk server.Task
	if err := json.Unmarshal(body, &tk); err != nil {
		c.t.Fatalf("decode: %v", err)
	}
	return tk
}

func TestAPI_Unauthorized(t *testing.T) {
	srv := newTestServer(t)

	for _, token := range []string{"", "wrong"} {
		code, body := apiClient{t, srv.URL, token}.do("GET", "/api/tasks", "")
		if code != http.StatusUnauthorized {
			t.Errorf("token %q: status = %d, want 401", token, code)
		}
		if !strings.Contains(string(body), `"code":401`) {
			t.Errorf("token %q: body = %s", token, body)
		}
	}
}

func TestAPI_CreateAndList(t *testing.T) {
	srv := newTestServer(t)
	alice := apiClient{t, srv.URL, "tok-alice"}

	first := alice.create("  write tests ")
	if first.Title != "write tests" || first.Status != "todo" || first.Position != 0 || first.UserID != "alice" {
		t.Errorf("created = %+v", first)
	}
	alice.create("ship")

	code, body := alice.do("GET", "/api/tasks", "")
	if code != http.StatusOK {
		t.Fatalf("list status = %d", code)
	}
	var tasks []server.Task
	if err := json.Unmarshal(body, &tasks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tasks) != 2 || tasks[1].Position != 1 {
		t.Errorf("tasks = %+v", tasks)
	}

	_, body = apiClient{t, srv.URL, "tok-bob"}.do("GET", "/api/tasks", "")
	if strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("bob sees %s", body)
	}
}

func TestAPI_Validation(t *testing.T) {
	srv := newTestServer(t)
	alice := apiClient{t, srv.URL, "tok-alice"}
	tk := alice.create("a")

	tests := []struct {
		name, method, path, body string
	}{
		{"empty title", "POST", "/api/tasks", `{"title":"   "}`},
		{"missing title", "POST", "/api/tasks", `{}`},
		{"not json", "POST", "/api/tasks", `title=a`},
		{"unknown status", "PATCH", "/api/tasks/" + tk.ID, `{"status":"archived"}`},
		{"empty patch", "PATCH", "/api/tasks/" + tk.ID, `{}`},
		{"negative position", "PATCH", "/api/tasks/" + tk.ID + "/reorder", `{"oldPosition":-1,"newPosition":0,"status":"todo"}`},
		{"missing status", "PATCH", "/api/tasks/" + tk.ID + "/reorder", `{"oldPosition":0,"newPosition":0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := alice.do(tt.method, tt.path, tt.body)
			if code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", code, body)
			}
		})
	}
}

func TestAPI_ReorderStatusCodes(t *testing.T) {
	srv := newTestServer(t)
	alice := apiClient{t, srv.URL, "tok-alice"}
	a := alice.create("a")
	alice.create("b")

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"ok", "/api/tasks/" + a.ID + "/reorder", `{"oldPosition":0,"newPosition":1,"status":"todo"}`, http.StatusOK},
		{"status mismatch", "/api/tasks/" + a.ID + "/reorder", `{"oldPosition":1,"newPosition":0,"status":"done"}`, http.StatusConflict},
		{"out of range", "/api/tasks/" + a.ID + "/reorder", `{"oldPosition":1,"newPosition":5,"status":"todo"}`, http.StatusBadRequest},
		{"unknown", "/api/tasks/nope/reorder", `{"oldPosition":0,"newPosition":1,"status":"todo"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, body := alice.do("PATCH", tt.path, tt.body); code != tt.want {
				t.Errorf("status = %d, want %d: %s", code, tt.want, body)
			}
		})
	}
}

func TestAPI_DeleteAndPatch(t *testing.T) {
	srv := newTestServer(t)
	alice := apiClient{t, srv.URL, "tok-alice"}
	a := alice.create("a")

	code, body := alice.do("PATCH", "/api/tasks/"+a.ID, `{"status":"done","title":"A"}`)
	if code != http.StatusOK {
		t.Fatalf("patch status = %d: %s", code, body)
	}
	var tk server.Task
	_ = json.Unmarshal(body, &tk)
	if tk.Status != "done" || tk.Title != "A" || tk.Version != 1 {
		t.Errorf("patched = %+v", tk)
	}

	if code, _ := alice.do("DELETE", "/api/tasks/"+a.ID, ""); code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", code)
	}
	if code, _ := alice.do("DELETE", "/api/tasks/"+a.ID, ""); code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", code)
	}
}
