package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/clinicnet/internal/core/domain"
	"github.com/vietddude/clinicnet/internal/infra/storage/memory"
)

// =============================================================================
// Multi
// =============================================================================

func TestMulti_FansOutAndJoinsErrors(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	var delivered int
	count := NotifierFunc(func(ctx context.Context, n domain.Notice) error {
		delivered++
		return nil
	})
	fail := func(err error) Notifier {
		return NotifierFunc(func(ctx context.Context, n domain.Notice) error { return err })
	}

	m := Multi{count, fail(errA), nil, fail(errB), count}
	err := m.Notify(context.Background(), domain.Notice{Kind: domain.NoticeFailure})

	if delivered != 2 {
		t.Errorf("every notifier should run, got %d deliveries", delivered)
	}
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("expected both errors joined, got %v", err)
	}
}

func TestMulti_Empty(t *testing.T) {
	if err := (Multi{}).Notify(context.Background(), domain.Notice{}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

// =============================================================================
// LogNotifier
// =============================================================================

func TestLogNotifier_Levels(t *testing.T) {
	tests := []struct {
		level domain.NoticeLevel
		want  string
	}{
		{domain.LevelInfo, "level=INFO"},
		{domain.LevelWarning, "level=WARN"},
		{domain.LevelError, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			n := NewLogNotifier(logger)

			err := n.Notify(context.Background(), domain.Notice{
				Kind:    domain.NoticeTerminalFailure,
				Level:   tt.level,
				Message: "Failed to book slot",
				TaskID:  "task-1",
				Context: domain.TaskContext{Operation: "book slot"},
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			out := buf.String()
			if !strings.Contains(out, tt.want) {
				t.Errorf("expected %s in %q", tt.want, out)
			}
			if !strings.Contains(out, "task_id=task-1") || !strings.Contains(out, `operation="book slot"`) {
				t.Errorf("missing attributes in %q", out)
			}
		})
	}
}

// =============================================================================
// ArchiveNotifier
// =============================================================================

func TestArchiveNotifier_StoresTerminalFailures(t *testing.T) {
	repo := memory.NewFailedRepo(memory.NewMemoryStorage())
	a := NewArchiveNotifier(repo)
	ctx := context.Background()

	cls := domain.NewClassification(domain.ClassificationParams{
		Category:  domain.CategoryNetwork,
		Code:      domain.CodeConnectionRefused,
		Message:   "Unable to connect to server.",
		Retryable: true,
	})

	notices := []domain.Notice{
		{Kind: domain.NoticeConnectionRestored, CreatedAt: time.Now()},
		{Kind: domain.NoticeFailure, CreatedAt: time.Now()},
		{
			Kind:           domain.NoticeTerminalFailure,
			TaskID:         "task-7",
			Context:        domain.TaskContext{Operation: "save notes"},
			Attempts:       3,
			Error:          "dial tcp: connection refused",
			Classification: &cls,
			CreatedAt:      time.Now(),
		},
	}
	for _, n := range notices {
		if err := a.Notify(ctx, n); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	tasks, err := repo.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 archived task, got %d", len(tasks))
	}
	got := tasks[0]
	if got.TaskID != "task-7" || got.Operation != "save notes" || got.Attempts != 3 {
		t.Errorf("unexpected task %+v", got)
	}
	if got.Category != domain.CategoryNetwork || got.Code != domain.CodeConnectionRefused {
		t.Errorf("unexpected classification %s/%s", got.Category, got.Code)
	}
	if got.ID == "" {
		t.Error("archived task needs an id")
	}
}

type failingRepo struct{ *memory.FailedRepo }

func (failingRepo) Add(ctx context.Context, task *domain.FailedTask) error {
	return errors.New("disk full")
}

func TestArchiveNotifier_RepoError(t *testing.T) {
	a := NewArchiveNotifier(failingRepo{})
	err := a.Notify(context.Background(), domain.Notice{Kind: domain.NoticeTerminalFailure, TaskID: "t"})
	if err == nil || !strings.Contains(err.Error(), "failed to archive task t") {
		t.Errorf("expected wrapped error, got %v", err)
	}
}
