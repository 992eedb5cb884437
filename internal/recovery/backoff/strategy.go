package backoff

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/vietddude/clinicnet/internal/core/domain"
	"github.com/vietddude/clinicnet/internal/recovery/classifier"
)

// RetryStrategy defines how retries should be handled.
type RetryStrategy interface {
	// GetDelay returns the delay before the given retry (0-indexed).
	GetDelay(attempt int) time.Duration

	// ShouldRetry checks if we should retry based on the error and attempt count.
	ShouldRetry(err error, attempt int) bool
}

// ExponentialBackoff doubles the delay on every retry and adds jitter so that
// clients coming back online together do not retry in lockstep.
type ExponentialBackoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
	// Jitter is the upper bound of the random addition, as a fraction of the delay.
	Jitter     float64
	Classifier classifier.Classifier
	// Rand returns a value in [0, 1). Defaults to math/rand/v2.
	Rand func() float64
}

// DefaultBackoff returns the portal defaults: 1s, 2s, 4s ... capped at 30s, 3 attempts,
// up to 10% jitter.
func DefaultBackoff(c classifier.Classifier) *ExponentialBackoff {
	if c == nil {
		c = classifier.Classify
	}
	return &ExponentialBackoff{
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		MaxAttempts:  3,
		Jitter:       0.1,
		Classifier:   c,
		Rand:         rand.Float64,
	}
}

// BaseDelay calculates InitialDelay * 2^attempt, capped at MaxDelay.
func (s *ExponentialBackoff) BaseDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(s.InitialDelay) * math.Pow(2, float64(attempt))
	if s.MaxDelay > 0 && delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}
	return time.Duration(delay)
}

// GetDelay returns BaseDelay plus a random jitter of up to Jitter * BaseDelay.
func (s *ExponentialBackoff) GetDelay(attempt int) time.Duration {
	base := s.BaseDelay(attempt)
	if s.Jitter <= 0 {
		return base
	}
	r := rand.Float64
	if s.Rand != nil {
		r = s.Rand
	}
	return base + time.Duration(float64(base)*s.Jitter*r())
}

// ShouldRetry checks if error is transient and max attempts not exceeded.
func (s *ExponentialBackoff) ShouldRetry(err error, attempt int) bool {
	if attempt >= s.MaxAttempts {
		return false
	}
	return s.classify(err).Retryable
}

func (s *ExponentialBackoff) classify(err error) domain.ErrorClassification {
	if s.Classifier == nil {
		return classifier.Classify(err)
	}
	return s.Classifier(err)
}
