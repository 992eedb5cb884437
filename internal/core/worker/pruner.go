package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/clinicnet/internal/infra/storage"
)

// Pruner deletes archived failures older than the retention period.
type Pruner struct {
	retention time.Duration
	repo      storage.FailedTaskRepository
	log       *slog.Logger
	now       func() time.Time
}

// NewPruner creates a new Pruner worker.
func NewPruner(retention time.Duration, repo storage.FailedTaskRepository) *Pruner {
	return &Pruner{
		retention: retention,
		repo:      repo,
		log:       slog.Default().With("component", "pruner"),
		now:       time.Now,
	}
}

// Interval returns how often the pruner runs: 10% of retention, between 1m and 1h.
func (p *Pruner) Interval() time.Duration {
	interval := min(p.retention/10, 1*time.Hour)
	return max(interval, 1*time.Minute)
}

// Start runs the pruner loop until ctx is done.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	ticker := time.NewTicker(p.Interval())
	defer ticker.Stop()

	// Initial prune
	p.Prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Prune(ctx)
		}
	}
}

// Prune runs a single pass and returns the number of deleted rows.
func (p *Pruner) Prune(ctx context.Context) int64 {
	threshold := p.now().Add(-p.retention)

	n, err := p.repo.DeleteOlderThan(ctx, threshold)
	if err != nil {
		p.log.Error("Failed to prune archived failures", "before", threshold, "error", err)
		return 0
	}
	if n > 0 {
		p.log.Info("Pruned archived failures", "count", n, "before", threshold)
	}
	return n
}
