package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/tasklist/internal/database"
	"github.com/dukerupert/tasklist/internal/model"
	"github.com/google/uuid"
)

// TaskStore persists tasks. Reads and writes are scoped by owner; GetByID
// is the only unscoped lookup and exists to re-read freshly inserted rows.
type TaskStore struct {
	db      *sql.DB
	dialect database.Dialect
	now     func() time.Time
}

func NewTaskStore(db *sql.DB, d database.Dialect) *TaskStore {
	return &TaskStore{db: db, dialect: d, now: time.Now}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var status string
	err := scanner.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Status = model.TaskStatus(status)
	return &t, nil
}

const taskCols = `id, user_id, title, description, status, created_at, updated_at`

// Insert stores t under t.UserID, assigning its id and timestamps.
func (s *TaskStore) Insert(ctx context.Context, t *model.Task) (*model.Task, error) {
	if t.UserID == "" {
		return nil, ErrMissingOwner
	}
	id := uuid.NewString()
	now := s.now().UTC()

	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(
		`INSERT INTO tasks (id, user_id, title, description, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		id, t.UserID, t.Title, t.Description, string(t.Status), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *TaskStore) GetByID(ctx context.Context, id string) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(`SELECT `+taskCols+` FROM tasks WHERE id = ?`), id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// GetOwnedByID returns nil when the task does not exist or belongs to
// someone else; callers cannot tell the two apart.
func (s *TaskStore) GetOwnedByID(ctx context.Context, id, ownerID string) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT `+taskCols+` FROM tasks WHERE id = ? AND user_id = ?`),
		id, ownerID,
	)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get owned task: %w", err)
	}
	return t, nil
}

// Save writes the mutable fields of t back, matching on both id and owner.
// It returns nil if no owned row matched.
func (s *TaskStore) Save(ctx context.Context, t *model.Task) (*model.Task, error) {
	result, err := s.db.ExecContext(ctx, s.dialect.Rebind(
		`UPDATE tasks SET title = ?, description = ?, status = ?, updated_at = ? WHERE id = ? AND user_id = ?`),
		t.Title, t.Description, string(t.Status), s.now().UTC(), t.ID, t.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetOwnedByID(ctx, t.ID, t.UserID)
}

// DeleteOwnedByID hard-deletes the task and reports whether a row was removed.
func (s *TaskStore) DeleteOwnedByID(ctx context.Context, id, ownerID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM tasks WHERE id = ? AND user_id = ?`), id, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *TaskStore) CountMatching(ctx context.Context, f Filter) (int, error) {
	if f.ownerID == "" {
		return 0, ErrMissingOwner
	}
	where, args := f.where()

	var total int
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(`SELECT COUNT(*) FROM tasks WHERE `+where), args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return total, nil
}

// FindMatching returns one page of matching tasks, newest first. A page past
// the end yields an empty, non-nil slice.
func (s *TaskStore) FindMatching(ctx context.Context, f Filter, p model.PageRequest) ([]model.Task, error) {
	if f.ownerID == "" {
		return nil, ErrMissingOwner
	}
	where, args := f.where()
	args = append(args, p.Limit, p.Offset())

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(
		`SELECT `+taskCols+` FROM tasks WHERE `+where+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}
