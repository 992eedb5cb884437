// Package health provides retry queue health monitoring and status reporting.
package health

// SystemStatus represents the overall health state of the agent.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// Report contains the full health report.
type Report struct {
	Status         SystemStatus `json:"status"`
	Online         bool         `json:"online"`
	State          string       `json:"state"`
	QueueDepth     int          `json:"queue_depth"`
	PendingRetries int          `json:"pending_retries"`
	Capacity       int          `json:"capacity"`
	FailedTasks    int          `json:"failed_tasks"`
	StorageError   string       `json:"storage_error,omitempty"`
}
