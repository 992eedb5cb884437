package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/clinicnet/internal/core/domain"
	"github.com/vietddude/clinicnet/internal/infra/storage"
)

// FailedTaskRepo implements storage.FailedTaskRepository using PostgreSQL.
type FailedTaskRepo struct {
	db *DB
}

// NewFailedTaskRepo creates a new PostgreSQL failed task repository.
func NewFailedTaskRepo(db *DB) *FailedTaskRepo {
	return &FailedTaskRepo{db: db}
}

type failedTaskRow struct {
	ID        string    `db:"id"`
	TaskID    string    `db:"task_id"`
	Operation string    `db:"operation"`
	ErrorMsg  string    `db:"error_msg"`
	Category  string    `db:"category"`
	Code      string    `db:"code"`
	Attempts  int       `db:"attempts"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

func (r failedTaskRow) toDomain() *domain.FailedTask {
	return &domain.FailedTask{
		ID:        r.ID,
		TaskID:    r.TaskID,
		Operation: r.Operation,
		Error:     r.ErrorMsg,
		Category:  domain.Category(r.Category),
		Code:      domain.Code(r.Code),
		Attempts:  r.Attempts,
		Status:    domain.FailedTaskStatus(r.Status),
		CreatedAt: r.CreatedAt,
	}
}

// Add archives a failed task.
func (r *FailedTaskRepo) Add(ctx context.Context, t *domain.FailedTask) error {
	query := `
		INSERT INTO failed_tasks (id, task_id, operation, error_msg, category, code, attempts, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	status := string(t.Status)
	if status == "" {
		status = string(domain.FailedTaskStatusPending)
	}
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		t.ID,
		t.TaskID,
		t.Operation,
		t.Error,
		string(t.Category),
		string(t.Code),
		t.Attempts,
		status,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add failed task: %w", err)
	}
	return nil
}

// List returns pending failed tasks, newest first.
func (r *FailedTaskRepo) List(ctx context.Context, limit int) ([]*domain.FailedTask, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, task_id, operation, error_msg, category, code, attempts, status, created_at
		FROM failed_tasks
		WHERE status = 'pending'
		ORDER BY created_at DESC
		LIMIT $1
	`

	var rows []failedTaskRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list failed tasks: %w", err)
	}

	tasks := make([]*domain.FailedTask, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.toDomain())
	}
	return tasks, nil
}

// MarkResolved marks a failed task as resolved.
func (r *FailedTaskRepo) MarkResolved(ctx context.Context, id string) error {
	query := `
		UPDATE failed_tasks
		SET status = 'resolved'
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to resolve task %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrFailedTaskNotFound
	}
	return nil
}

// Count returns the number of pending failed tasks.
func (r *FailedTaskRepo) Count(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM failed_tasks
		WHERE status = 'pending'
	`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("failed to count failed tasks: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes tasks archived before the given time.
func (r *FailedTaskRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM failed_tasks
		WHERE created_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune failed tasks: %w", err)
	}
	return res.RowsAffected()
}
