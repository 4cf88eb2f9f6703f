package server_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"tasksync/internal/server"
)

func openStore(t *testing.T) *server.Store {
	t.Helper()
	s, err := server.Open(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// order returns task IDs of one status, checking positions are dense.
func order(t *testing.T, s *server.Store, owner, status string) []string {
	t.Helper()
	tasks, err := s.List(context.Background(), owner)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var ids []string
	for _, tk := range tasks {
		if tk.Status != status {
			continue
		}
		if tk.Position != len(ids) {
			t.Errorf("%s position = %d, want %d", tk.ID, tk.Position, len(ids))
		}
		ids = append(ids, tk.ID)
	}
	return ids
}

func seed(t *testing.T, s *server.Store, owner string, titles ...string) []string {
	t.Helper()
	var ids []string
	for _, title := range titles {
		tk, err := s.Create(context.Background(), owner, title)
		if err != nil {
			t.Fatalf("Create(%q): %v", title, err)
		}
		ids = append(ids, tk.ID)
	}
	return ids
}

func strptr(s string) *string { return &s }

func TestStore_CreateAppends(t *testing.T) {
	s := openStore(t)
	ids := seed(t, s, "alice", "a", "b", "c")
	seed(t, s, "bob", "other")

	if got := order(t, s, "alice", "todo"); !reflect.DeepEqual(got, ids) {
		t.Errorf("todo = %v, want %v", got, ids)
	}
	if got := order(t, s, "bob", "todo"); len(got) != 1 {
		t.Errorf("bob todo = %v, want one task", got)
	}
}

func TestStore_DeleteClosesGap(t *testing.T) {
	s := openStore(t)
	ids := seed(t, s, "alice", "a", "b", "c")

	if err := s.Delete(context.Background(), "alice", ids[1]); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, want := order(t, s, "alice", "todo"), []string{ids[0], ids[2]}; !reflect.DeepEqual(got, want) {
		t.Errorf("todo = %v, want %v", got, want)
	}
	if err := s.Delete(context.Background(), "alice", ids[1]); !errors.Is(err, server.ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestStore_OwnerIsolation(t *testing.T) {
	s := openStore(t)
	ids := seed(t, s, "alice", "a")

	if err := s.Delete(context.Background(), "bob", ids[0]); !errors.Is(err, server.ErrNotFound) {
		t.Errorf("Delete by other owner = %v, want ErrNotFound", err)
	}
}

func TestStore_PatchStatusPlacement(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	ids := seed(t, s, "alice", "a", "b", "c")

	for _, id := range []string{ids[0], ids[2]} {
		if _, err := s.Patch(ctx, "alice", id, nil, strptr("done")); err != nil {
			t.Fatalf("Patch: %v", err)
		}
	}
	// Most recently completed first.
	if got, want := order(t, s, "alice", "done"), []string{ids[2], ids[0]}; !reflect.DeepEqual(got, want) {
		t.Errorf("done = %v, want %v", got, want)
	}
	if got, want := order(t, s, "alice", "todo"), []string{ids[1]}; !reflect.DeepEqual(got, want) {
		t.Errorf("todo = %v, want %v", got, want)
	}

	// Reopened tasks go last.
	tk, err := s.Patch(ctx, "alice", ids[2], nil, strptr("todo"))
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if tk.Position != 1 || tk.Version != 2 {
		t.Errorf("reopened = position %d version %d, want 1, 2", tk.Position, tk.Version)
	}
	if got, want := order(t, s, "alice", "todo"), []string{ids[1], ids[2]}; !reflect.DeepEqual(got, want) {
		t.Errorf("todo = %v, want %v", got, want)
	}
}

func TestStore_PatchTitle(t *testing.T) {
	s := openStore(t)
	ids := seed(t, s, "alice", "a")

	tk, err := s.Patch(context.Background(), "alice", ids[0], strptr("renamed"), nil)
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if tk.Title != "renamed" || tk.Status != "todo" || tk.Position != 0 {
		t.Errorf("patched = %+v", tk)
	}
}

func TestStore_Reorder(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []int
	}{
		{"forward", 0, 2, []int{1, 2, 0}},
		{"backward", 2, 0, []int{2, 0, 1}},
		{"middle", 1, 2, []int{0, 2, 1}},
		{"same", 1, 1, []int{0, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openStore(t)
			ids := seed(t, s, "alice", "a", "b", "c")

			if _, err := s.Reorder(context.Background(), "alice", ids[tt.from], tt.from, tt.to, "todo"); err != nil {
				t.Fatalf("Reorder: %v", err)
			}
			var want []string
			for _, i := range tt.want {
				want = append(want, ids[i])
			}
			if got := order(t, s, "alice", "todo"); !reflect.DeepEqual(got, want) {
				t.Errorf("todo = %v, want %v", got, want)
			}
		})
	}
}

func TestStore_ReorderErrors(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	ids := seed(t, s, "alice", "a", "b")

	if _, err := s.Reorder(ctx, "alice", ids[0], 0, 1, "done"); !errors.Is(err, server.ErrConflict) {
		t.Errorf("status mismatch = %v, want ErrConflict", err)
	}
	if _, err := s.Reorder(ctx, "alice", ids[0], 0, 2, "todo"); !errors.Is(err, server.ErrInvalid) {
		t.Errorf("out of range = %v, want ErrInvalid", err)
	}
	if _, err := s.Reorder(ctx, "alice", "missing", 0, 1, "todo"); !errors.Is(err, server.ErrNotFound) {
		t.Errorf("missing = %v, want ErrNotFound", err)
	}
	if got := order(t, s, "alice", "todo"); !reflect.DeepEqual(got, ids) {
		t.Errorf("failed reorders changed order to %v", got)
	}
}

func TestOpen_Locked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	s, err := server.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := server.Open(path); !errors.Is(err, server.ErrLocked) {
		t.Errorf("second Open = %v, want ErrLocked", err)
	}
}
