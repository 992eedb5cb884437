package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/clinicnet/internal/core/domain"
	"github.com/vietddude/clinicnet/internal/infra/storage"
)

type MemoryStorage struct {
	failed map[string]*domain.FailedTask
	mu     sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		failed: make(map[string]*domain.FailedTask),
	}
}

// -----------------------------------------------------------------------------
// Failed Task Repository
// -----------------------------------------------------------------------------

type FailedRepo struct {
	store *MemoryStorage
}

func NewFailedRepo(store *MemoryStorage) *FailedRepo {
	return &FailedRepo{store: store}
}

func (r *FailedRepo) Add(ctx context.Context, task *domain.FailedTask) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *task
	if cp.Status == "" {
		cp.Status = domain.FailedTaskStatusPending
	}
	r.store.failed[cp.ID] = &cp
	return nil
}

func (r *FailedRepo) List(ctx context.Context, limit int) ([]*domain.FailedTask, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*domain.FailedTask, 0, len(r.store.failed))
	for _, t := range r.store.failed {
		if t.Status != domain.FailedTaskStatusPending {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *FailedRepo) MarkResolved(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.failed[id]
	if !ok {
		return storage.ErrFailedTaskNotFound
	}
	t.Status = domain.FailedTaskStatusResolved
	return nil
}

func (r *FailedRepo) Count(ctx context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	count := 0
	for _, t := range r.store.failed {
		if t.Status == domain.FailedTaskStatusPending {
			count++
		}
	}
	return count, nil
}

func (r *FailedRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for id, t := range r.store.failed {
		if t.CreatedAt.Before(before) {
			delete(r.store.failed, id)
			n++
		}
	}
	return n, nil
}
