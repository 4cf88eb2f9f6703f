package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store errors. Handlers map them to HTTP status codes.
var (
	ErrNotFound = errors.New("task not found")
	ErrConflict = errors.New("task state conflict")
	ErrInvalid  = errors.New("invalid request")
	ErrLocked   = errors.New("database is in use by another process")
)

const (
	statusTodo = "todo"
	statusDone = "done"
)

// Task is a stored task in its wire form.
type Task struct {
	ID        string `json:"_id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Position  int    `json:"position"`
	UserID    string `json:"userId"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
	Version   int    `json:"__v"`
}

// Store persists tasks in SQLite. Within one owner and status, positions are
// always 0..N-1.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
	path string
	now  func() time.Time
}

// Open opens or creates the database at path and takes an exclusive lock on
// it for the lifetime of the Store.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock database: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection serializes every transaction.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	s := &Store{db: db, lock: lock, path: path, now: time.Now}
	if err := s.initSchema(context.Background()); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database and releases the lock.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if uerr := s.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}

func (s *Store) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	owner      TEXT NOT NULL,
	title      TEXT NOT NULL,
	status     TEXT NOT NULL CHECK (status IN ('todo', 'done')),
	position   INTEGER NOT NULL,
	version    INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_owner_status ON tasks(owner, status, position);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

const taskColumns = "id, owner, title, status, position, version, created_at, updated_at"

func scanTask(row interface{ Scan(...any) error }) (Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Status, &t.Position, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// List returns the owner's tasks, todo before done, each by position.
func (s *Store) List(ctx context.Context, owner string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE owner = ? ORDER BY status = 'done', position", owner)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Create appends a todo task.
func (s *Store) Create(ctx context.Context, owner, title string) (Task, error) {
	var created Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		n, err := countTx(ctx, tx, owner, statusTodo)
		if err != nil {
			return err
		}
		ts := s.timestamp()
		created = Task{
			ID:        uuid.NewString(),
			Title:     title,
			Status:    statusTodo,
			Position:  n,
			UserID:    owner,
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO tasks ("+taskColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			created.ID, owner, created.Title, created.Status, created.Position, created.Version, created.CreatedAt, created.UpdatedAt)
		return err
	})
	if err != nil {
		return Task{}, err
	}
	return created, nil
}

// Delete removes a task and closes the gap it leaves.
func (s *Store) Delete(ctx context.Context, owner, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := getTx(ctx, tx, owner, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id); err != nil {
			return err
		}
		return closeGapTx(ctx, tx, owner, t.Status, t.Position)
	})
}

// Patch updates the title and/or status. A status change closes the gap in
// the old partition and places the task first in done or last in todo.
func (s *Store) Patch(ctx context.Context, owner, id string, title, status *string) (Task, error) {
	var updated Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := getTx(ctx, tx, owner, id)
		if err != nil {
			return err
		}
		if title != nil {
			t.Title = *title
		}
		if status != nil && *status != t.Status {
			if err := closeGapTx(ctx, tx, owner, t.Status, t.Position); err != nil {
				return err
			}
			t.Status = *status
			if t.Status == statusDone {
				if _, err := tx.ExecContext(ctx,
					"UPDATE tasks SET position = position + 1 WHERE owner = ? AND status = ?", owner, statusDone); err != nil {
					return err
				}
				t.Position = 0
			} else {
				n, err := countTx(ctx, tx, owner, statusTodo)
				if err != nil {
					return err
				}
				t.Position = n
			}
		}
		t.Version++
		t.UpdatedAt = s.timestamp()
		_, err = tx.ExecContext(ctx,
			"UPDATE tasks SET title = ?, status = ?, position = ?, version = ?, updated_at = ? WHERE id = ?",
			t.Title, t.Status, t.Position, t.Version, t.UpdatedAt, t.ID)
		updated = t
		return err
	})
	if err != nil {
		return Task{}, err
	}
	return updated, nil
}

// Reorder moves a task to newPosition inside its partition, shifting the
// tasks in between. status must match the stored status and both positions
// must address the partition; the stored position is the move's origin.
func (s *Store) Reorder(ctx context.Context, owner, id string, oldPosition, newPosition int, status string) (Task, error) {
	var moved Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := getTx(ctx, tx, owner, id)
		if err != nil {
			return err
		}
		if t.Status != status {
			return fmt.Errorf("%w: task %s is %s, not %s", ErrConflict, id, t.Status, status)
		}
		n, err := countTx(ctx, tx, owner, status)
		if err != nil {
			return err
		}
		if oldPosition < 0 || oldPosition >= n || newPosition < 0 || newPosition >= n {
			return fmt.Errorf("%w: positions %d -> %d outside 0..%d", ErrInvalid, oldPosition, newPosition, n-1)
		}

		from := t.Position
		switch {
		case newPosition > from:
			_, err = tx.ExecContext(ctx,
				"UPDATE tasks SET position = position - 1 WHERE owner = ? AND status = ? AND position > ? AND position <= ?",
				owner, status, from, newPosition)
		case newPosition < from:
			_, err = tx.ExecContext(ctx,
				"UPDATE tasks SET position = position + 1 WHERE owner = ? AND status = ? AND position >= ? AND position < ?",
				owner, status, newPosition, from)
		}
		if err != nil {
			return err
		}

		t.Position = newPosition
		t.Version++
		t.UpdatedAt = s.timestamp()
		_, err = tx.ExecContext(ctx,
			"UPDATE tasks SET position = ?, version = ?, updated_at = ? WHERE id = ?",
			t.Position, t.Version, t.UpdatedAt, t.ID)
		moved = t
		return err
	})
	if err != nil {
		return Task{}, err
	}
	return moved, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func getTx(ctx context.Context, tx *sql.Tx, owner, id string) (Task, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ? AND owner = ?", id, owner)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, err
}

func countTx(ctx context.Context, tx *sql.Tx, owner, status string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks WHERE owner = ? AND status = ?", owner, status).Scan(&n)
	return n, err
}

func closeGapTx(ctx context.Context, tx *sql.Tx, owner, status string, pos int) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE tasks SET position = position - 1 WHERE owner = ? AND status = ? AND position > ?", owner, status, pos)
	return err
}
