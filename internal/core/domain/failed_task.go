package domain

import "time"

// FailedTask is the archived record of a task that exhausted its retries.
type FailedTask struct {
	ID        string           `json:"id"`
	TaskID    string           `json:"task_id"`
	Operation string           `json:"operation"`
	Error     string           `json:"error_msg"`
	Category  Category         `json:"category"`
	Code      Code             `json:"code,omitempty"`
	Attempts  int              `json:"attempts"`
	Status    FailedTaskStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

type FailedTaskStatus string

const (
	FailedTaskStatusPending  FailedTaskStatus = "pending"
	FailedTaskStatusResolved FailedTaskStatus = "resolved"
	FailedTaskStatusIgnored  FailedTaskStatus = "ignored"
)
