package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/clinicnet/internal/core/domain"
	"github.com/vietddude/clinicnet/internal/recovery/connectivity"
)

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func newExecCoordinator(t *testing.T, cfg Config) (*Coordinator, *sleepRecorder) {
	t.Helper()
	rec := &sleepRecorder{}
	c := New(cfg, connectivity.NewManual(true), nil,
		WithSleep(rec.sleep),
		WithRand(func() float64 { return 0 }),
	)
	t.Cleanup(c.Destroy)
	return c, rec
}

// =============================================================================
// ExecuteWithRetry
// =============================================================================

func TestExecuteWithRetry_NetworkBlip(t *testing.T) {
	c, rec := newExecCoordinator(t, DefaultConfig())

	calls := 0
	err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &domain.RequestError{Code: domain.TransportNetwork}
		}
		return nil
	}, 3)

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 invocations, got %d", calls)
	}
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(rec.delays) != 2 || rec.delays[0] != want[0] || rec.delays[1] != want[1] {
		t.Errorf("expected delays %v, got %v", want, rec.delays)
	}
}

func TestExecuteWithRetry_RealWait(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseDelay = 10 * time.Millisecond
	c := New(cfg, connectivity.NewManual(true), nil)
	t.Cleanup(c.Destroy)

	calls := 0
	start := time.Now()
	err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &domain.RequestError{Code: domain.TransportTimedOut}
		}
		return nil
	}, 3)

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("expected at least 30ms of backoff, got %v", elapsed)
	}
}

func TestExecuteWithRetry_NonRetryableReturnsImmediately(t *testing.T) {
	c, rec := newExecCoordinator(t, DefaultConfig())

	orig := &domain.ResponseError{StatusCode: 404}
	calls := 0
	err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) error {
		calls++
		return orig
	}, 3)

	if err != orig {
		t.Errorf("expected the original error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 invocation, got %d", calls)
	}
	if len(rec.delays) != 0 {
		t.Errorf("expected no waits, got %v", rec.delays)
	}
}

func TestExecuteWithRetry_ExhaustedReturnsLastError(t *testing.T) {
	c, rec := newExecCoordinator(t, DefaultConfig())

	calls := 0
	var last error
	err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) error {
		calls++
		last = &domain.ResponseError{StatusCode: 503}
		return last
	}, 4)

	if err != last {
		t.Errorf("expected last failure, got %v", err)
	}
	if calls != 4 {
		t.Errorf("expected 4 invocations, got %d", calls)
	}
	if len(rec.delays) != 3 || rec.delays[2] != 4*time.Second {
		t.Errorf("unexpected delays %v", rec.delays)
	}
}

func TestExecuteWithRetry_DefaultAttempts(t *testing.T) {
	c, _ := newExecCoordinator(t, DefaultConfig())

	calls := 0
	_ = c.ExecuteWithRetry(context.Background(), func(ctx context.Context) error {
		calls++
		return errRefused
	}, 0)

	if calls != 3 {
		t.Errorf("expected MaxRetries invocations, got %d", calls)
	}
}

func TestExecuteWithRetry_HonorsRetryAfter(t *testing.T) {
	c, rec := newExecCoordinator(t, DefaultConfig())

	calls := 0
	_ = c.ExecuteWithRetry(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return &domain.ResponseError{StatusCode: 429, Body: []byte(`{"retry_after": 5}`)}
		}
		return nil
	}, 3)

	if len(rec.delays) != 1 || rec.delays[0] != 5*time.Second {
		t.Errorf("expected a 5s wait, got %v", rec.delays)
	}
}

func TestExecuteWithRetry_CanceledDuringWait(t *testing.T) {
	c := New(DefaultConfig(), connectivity.NewManual(true), nil)
	t.Cleanup(c.Destroy)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := c.ExecuteWithRetry(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errRefused
	}, 3)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 invocation, got %d", calls)
	}
}

func TestExecute_ReturnsValue(t *testing.T) {
	c, _ := newExecCoordinator(t, DefaultConfig())

	calls := 0
	got, err := Execute(context.Background(), c, 3, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errRefused
		}
		return "slot-42", nil
	})

	if err != nil || got != "slot-42" {
		t.Errorf("expected slot-42, got %q, %v", got, err)
	}
}
