package domain

import "time"

type NoticeKind string

const (
	NoticeConnectionRestored NoticeKind = "connection_restored"
	NoticeTerminalFailure    NoticeKind = "terminal_failure"
	NoticeFailure            NoticeKind = "error"
)

type NoticeLevel string

const (
	LevelInfo    NoticeLevel = "info"
	LevelWarning NoticeLevel = "warning"
	LevelError   NoticeLevel = "error"
)

// Notice is a user-facing notification emitted by the recovery layer.
type Notice struct {
	ID             string               `json:"id"`
	Kind           NoticeKind           `json:"kind"`
	Level          NoticeLevel          `json:"level"`
	Message        string               `json:"message"`
	TaskID         string               `json:"task_id,omitempty"`
	Context        TaskContext          `json:"context"`
	Attempts       int                  `json:"attempts,omitempty"`
	Error          string               `json:"error,omitempty"`
	Classification *ErrorClassification `json:"classification,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}
