package backoff

import (
	"errors"
	"testing"
	"time"

	"github.com/vietddude/clinicnet/internal/core/domain"
)

func noJitter() float64  { return 0 }
func maxJitter() float64 { return 0.999999 }

func TestBackoff_Delay(t *testing.T) {
	strategy := DefaultBackoff(nil)
	strategy.InitialDelay = 1 * time.Second
	strategy.MaxDelay = 10 * time.Second
	strategy.Rand = noJitter

	// Attempt 0: 1*2^0 = 1s
	if d := strategy.GetDelay(0); d != 1*time.Second {
		t.Errorf("expected 1s, got %v", d)
	}

	// Attempt 1: 1*2^1 = 2s
	if d := strategy.GetDelay(1); d != 2*time.Second {
		t.Errorf("expected 2s, got %v", d)
	}

	// Attempt 2: 1*2^2 = 4s
	if d := strategy.GetDelay(2); d != 4*time.Second {
		t.Errorf("expected 4s, got %v", d)
	}

	// Attempt 10: Cap at MaxDelay (10s)
	if d := strategy.GetDelay(10); d != 10*time.Second {
		t.Errorf("expected 10s, got %v", d)
	}
}

func TestBackoff_Jitter(t *testing.T) {
	strategy := DefaultBackoff(nil)
	strategy.Rand = maxJitter

	for attempt := 0; attempt < 8; attempt++ {
		base := strategy.BaseDelay(attempt)
		d := strategy.GetDelay(attempt)
		if d < base {
			t.Errorf("attempt %d: delay %v below base %v", attempt, d, base)
		}
		if limit := base + base/10; d > limit {
			t.Errorf("attempt %d: delay %v above base+10%% %v", attempt, d, limit)
		}
	}
}

func TestBackoff_DefaultRandStaysInRange(t *testing.T) {
	strategy := DefaultBackoff(nil)
	for i := 0; i < 100; i++ {
		d := strategy.GetDelay(1)
		if d < 2*time.Second || d >= 2200*time.Millisecond {
			t.Fatalf("delay %v outside [2s, 2.2s)", d)
		}
	}
}

func TestBackoff_CapAppliesBeforeJitter(t *testing.T) {
	strategy := DefaultBackoff(nil)
	strategy.Rand = maxJitter

	if b := strategy.BaseDelay(20); b != 30*time.Second {
		t.Errorf("expected base capped at 30s, got %v", b)
	}
	if d := strategy.GetDelay(20); d > 33*time.Second {
		t.Errorf("expected at most 33s with jitter, got %v", d)
	}
}

func TestBackoff_ShouldRetry(t *testing.T) {
	strategy := DefaultBackoff(nil)
	strategy.MaxAttempts = 3

	transient := &domain.RequestError{Code: domain.TransportConnectionRefused}

	if !strategy.ShouldRetry(transient, 0) {
		t.Error("should retry attempt 0")
	}
	if !strategy.ShouldRetry(transient, 2) {
		t.Error("should retry attempt 2")
	}
	if strategy.ShouldRetry(transient, 3) {
		t.Error("should NOT retry attempt 3 (max reached)")
	}
	if strategy.ShouldRetry(errors.New("form locked"), 0) {
		t.Error("should NOT retry a non-transient error")
	}
}

func TestBackoff_CustomClassifier(t *testing.T) {
	strategy := DefaultBackoff(func(err error) domain.ErrorClassification {
		return domain.NewClassification(domain.ClassificationParams{
			Category:  domain.CategoryServer,
			Retryable: true,
		})
	})

	if !strategy.ShouldRetry(errors.New("anything"), 0) {
		t.Error("custom classifier should make the error retryable")
	}
}
