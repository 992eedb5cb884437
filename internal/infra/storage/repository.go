package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/clinicnet/internal/core/domain"
)

var (
	// ErrFailedTaskNotFound is returned when a failed task doesn't exist
	ErrFailedTaskNotFound = errors.New("failed task not found")
)

// FailedTaskRepository archives tasks that exhausted their retries
type FailedTaskRepository interface {
	// Add archives a failed task
	Add(ctx context.Context, task *domain.FailedTask) error

	// List returns the most recent pending failed tasks, newest first
	List(ctx context.Context, limit int) ([]*domain.FailedTask, error)

	// MarkResolved marks a failed task as handled
	MarkResolved(ctx context.Context, id string) error

	// Count returns the number of pending failed tasks
	Count(ctx context.Context) (int, error)

	// DeleteOlderThan removes tasks archived before the given time, whatever their status
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}
