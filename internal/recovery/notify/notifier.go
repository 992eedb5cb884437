// Package notify delivers user-facing notices emitted by the recovery layer.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vietddude/clinicnet/internal/core/domain"
	"github.com/vietddude/clinicnet/internal/recovery/metrics"
)

// Notifier receives notices. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notice) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n domain.Notice) error

func (f NotifierFunc) Notify(ctx context.Context, n domain.Notice) error { return f(ctx, n) }

// Nop discards every notice.
var Nop Notifier = NotifierFunc(func(context.Context, domain.Notice) error { return nil })

// LogNotifier writes notices to a structured logger.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a notifier backed by logger (slog.Default when nil).
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{log: logger.With("component", "notify")}
}

func (l *LogNotifier) Notify(ctx context.Context, n domain.Notice) error {
	attrs := []any{"kind", n.Kind, "notice_id", n.ID}
	if n.TaskID != "" {
		attrs = append(attrs, "task_id", n.TaskID)
	}
	if n.Context.Operation != "" {
		attrs = append(attrs, "operation", n.Context.Operation)
	}
	if n.Classification != nil {
		attrs = append(attrs, "category", n.Classification.Category, "code", n.Classification.Code)
	}

	switch n.Level {
	case domain.LevelError:
		l.log.ErrorContext(ctx, n.Message, attrs...)
	case domain.LevelWarning:
		l.log.WarnContext(ctx, n.Message, attrs...)
	default:
		l.log.InfoContext(ctx, n.Message, attrs...)
	}
	return nil
}

// Multi fans a notice out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n domain.Notice) error {
	metrics.NotificationsTotal.WithLabelValues(string(n.Kind)).Inc()

	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
