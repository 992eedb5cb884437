package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vietddude/clinicnet/internal/core/domain"
	"github.com/vietddude/clinicnet/internal/infra/storage"
)

// ArchiveNotifier records terminal failures so they can be inspected or replayed
// later. Other notice kinds are ignored.
type ArchiveNotifier struct {
	repo storage.FailedTaskRepository
}

// NewArchiveNotifier creates an archive notifier over repo.
func NewArchiveNotifier(repo storage.FailedTaskRepository) *ArchiveNotifier {
	return &ArchiveNotifier{repo: repo}
}

func (a *ArchiveNotifier) Notify(ctx context.Context, n domain.Notice) error {
	if n.Kind != domain.NoticeTerminalFailure {
		return nil
	}

	task := &domain.FailedTask{
		ID:        uuid.New().String(),
		TaskID:    n.TaskID,
		Operation: n.Context.Operation,
		Error:     n.Error,
		Category:  domain.CategoryUnknown,
		Attempts:  n.Attempts,
		Status:    domain.FailedTaskStatusPending,
		CreatedAt: n.CreatedAt,
	}
	if n.Classification != nil {
		task.Category = n.Classification.Category
		task.Code = n.Classification.Code
	}

	if err := a.repo.Add(ctx, task); err != nil {
		return fmt.Errorf("failed to archive task %s: %w", n.TaskID, err)
	}
	return nil
}
