package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/clinicnet/internal/infra/storage"
	"github.com/vietddude/clinicnet/internal/recovery/coordinator"
)

const (
	cacheTTL            = 2 * time.Second
	criticalFailedTasks = 50
)

// StatsSource reports retry queue statistics.
type StatsSource interface {
	Stats() coordinator.Stats
}

// FailedCounter counts archived failures.
type FailedCounter interface {
	Count(ctx context.Context) (int, error)
}

var _ FailedCounter = (storage.FailedTaskRepository)(nil)

// Monitor aggregates health status from the coordinator and the archive.
type Monitor struct {
	stats      StatsSource
	failed     FailedCounter
	now        func() time.Time
	lastCheck  time.Time
	lastReport *Report
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor. failed may be nil.
func NewMonitor(stats StatsSource, failed FailedCounter) *Monitor {
	return &Monitor{
		stats:  stats,
		failed: failed,
		now:    time.Now,
	}
}

// CheckHealth builds a report, reusing the previous one for a short while.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastReport != nil && m.now().Sub(m.lastCheck) < cacheTTL {
		return *m.lastReport
	}

	s := m.stats.Stats()
	report := Report{
		Status:         StatusHealthy,
		Online:         s.Online,
		State:          s.State,
		QueueDepth:     s.QueueDepth,
		PendingRetries: s.Pending,
		Capacity:       s.Capacity,
	}

	if m.failed != nil {
		count, err := m.failed.Count(ctx)
		if err != nil {
			report.StorageError = err.Error()
		} else {
			report.FailedTasks = count
		}
	}

	switch {
	case s.State == coordinator.StateDestroyed || !s.Online || report.FailedTasks > criticalFailedTasks:
		report.Status = StatusCritical
	case s.Capacity > 0 && s.QueueDepth+s.Pending >= s.Capacity,
		report.FailedTasks > 0,
		report.StorageError != "":
		report.Status = StatusDegraded
	}

	m.lastCheck = m.now()
	m.lastReport = &report
	return report
}
