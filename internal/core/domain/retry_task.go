package domain

import (
	"context"
	"time"
)

// Operation is a deferred unit of work. A nil return means success.
type Operation func(ctx context.Context) error

// TaskContext describes an operation for user-facing messages.
type TaskContext struct {
	Operation  string            `json:"operation,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// RetryTask is a failed operation waiting in the retry queue.
type RetryTask struct {
	ID            string
	Operation     Operation
	Context       TaskContext
	Attempt       int
	EnqueuedAt    time.Time
	LastAttemptAt time.Time
}
