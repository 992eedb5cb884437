package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/clinicnet/internal/core/domain"
	"github.com/vietddude/clinicnet/internal/infra/storage/memory"
)

func TestPruner_Prune(t *testing.T) {
	repo := memory.NewFailedRepo(memory.NewMemoryStorage())
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_ = repo.Add(ctx, &domain.FailedTask{ID: "a", CreatedAt: now.Add(-10 * 24 * time.Hour)})
	_ = repo.Add(ctx, &domain.FailedTask{ID: "b", CreatedAt: now.Add(-time.Hour)})

	p := NewPruner(7*24*time.Hour, repo)
	p.now = func() time.Time { return now }

	if n := p.Prune(ctx); n != 1 {
		t.Errorf("expected 1 pruned, got %d", n)
	}
	if count, _ := repo.Count(ctx); count != 1 {
		t.Errorf("expected 1 remaining, got %d", count)
	}
}

type brokenRepo struct{ *memory.FailedRepo }

func (brokenRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return 0, errors.New("connection reset")
}

func TestPruner_RepoError(t *testing.T) {
	p := NewPruner(time.Hour, brokenRepo{})
	if n := p.Prune(context.Background()); n != 0 {
		t.Errorf("expected 0 on error, got %d", n)
	}
}

func TestPruner_Interval(t *testing.T) {
	tests := []struct {
		retention time.Duration
		want      time.Duration
	}{
		{5 * time.Minute, time.Minute},
		{30 * time.Minute, 3 * time.Minute},
		{30 * 24 * time.Hour, time.Hour},
	}
	for _, tt := range tests {
		if got := NewPruner(tt.retention, nil).Interval(); got != tt.want {
			t.Errorf("retention %s: expected %s, got %s", tt.retention, tt.want, got)
		}
	}
}

func TestPruner_DisabledReturnsImmediately(t *testing.T) {
	done := make(chan struct{})
	go func() {
		NewPruner(0, nil).Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled pruner should return")
	}
}
