package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/clinicnet/internal/core/domain"
)

// ExecuteWithRetry runs op inline, waiting out the backoff between attempts.
// It makes at most maxAttempts calls (the configured MaxRetries when
// maxAttempts <= 0). A non-retryable failure, or the failure of the last
// attempt, is returned unchanged. Nothing is queued or reported.
func (c *Coordinator) ExecuteWithRetry(ctx context.Context, op domain.Operation, maxAttempts int) error {
	if maxAttempts <= 0 {
		maxAttempts = c.cfg.MaxRetries
	}

	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		cls := c.classifyErr(err)
		if !cls.Retryable || attempt >= maxAttempts {
			return err
		}

		delay := c.strategy.GetDelay(attempt - 1)
		if cls.RetryAfter > delay {
			delay = cls.RetryAfter
		}

		c.log.Debug("Retrying after failure",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"delay", delay,
			"code", cls.Code,
		)

		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// Execute is ExecuteWithRetry for operations that produce a value.
func Execute[T any](
	ctx context.Context,
	c *Coordinator,
	maxAttempts int,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	var out T
	err := c.ExecuteWithRetry(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	}, maxAttempts)
	return out, err
}

// Submit runs op once. A retryable failure is handed to the queue and Submit
// returns nil; the caller hears about it again only through a terminal
// notice. Any other failure is reported immediately and returned as a
// *domain.ClassifiedError.
func (c *Coordinator) Submit(ctx context.Context, op domain.Operation, taskCtx domain.TaskContext) error {
	err := op(ctx)
	if err == nil {
		return nil
	}

	cls := c.classifyErr(err)
	if cls.Retryable {
		if c.Enqueue(op, taskCtx) == "" {
			return fmt.Errorf("%w: %w", ErrDestroyed, err)
		}
		return nil
	}

	c.notify(domain.Notice{
		ID:             uuid.New().String(),
		Kind:           domain.NoticeFailure,
		Level:          domain.LevelError,
		Message:        cls.Message,
		Context:        taskCtx,
		Error:          err.Error(),
		Classification: &cls,
		CreatedAt:      time.Now(),
	})
	return &domain.ClassifiedError{Classification: cls, Err: err}
}
