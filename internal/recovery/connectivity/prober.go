package connectivity

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/clinicnet/internal/core/domain"
	"github.com/vietddude/clinicnet/internal/recovery/metrics"
)

// Pinger checks whether the backend can be reached.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// ProberConfig holds probe timing.
type ProberConfig struct {
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold int           `yaml:"failure_threshold"` // consecutive failures before going offline
}

// DefaultProberConfig returns sensible defaults.
func DefaultProberConfig() ProberConfig {
	return ProberConfig{
		Interval:         5 * time.Second,
		Timeout:          2 * time.Second,
		FailureThreshold: 2,
	}
}

// Prober is a Watcher that polls the backend. Any HTTP response counts as
// reachable; only transport failures count against connectivity.
type Prober struct {
	*broadcaster
	pinger Pinger
	cfg    ProberConfig
	log    *slog.Logger

	mu       sync.Mutex
	failures int
}

// NewProber creates a prober. It starts optimistic (online) until probes say otherwise.
func NewProber(pinger Pinger, cfg ProberConfig, logger *slog.Logger) *Prober {
	def := DefaultProberConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		broadcaster: newBroadcaster(true),
		pinger:      pinger,
		cfg:         cfg,
		log:         logger.With("component", "connectivity"),
	}
}

// Run probes until ctx is done.
func (p *Prober) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}

// Check runs a single probe and returns the resulting state.
func (p *Prober) Check(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	err := p.pinger.Ping(probeCtx)
	cancel()

	if reachable(err) {
		p.mu.Lock()
		p.failures = 0
		p.mu.Unlock()

		if p.set(true) {
			p.log.Info("Backend reachable again")
		}
		metrics.ConnectivityOnline.Set(1)
		return true
	}

	// The parent context ending is shutdown, not an outage.
	if ctx.Err() != nil {
		return p.Online()
	}

	p.mu.Lock()
	p.failures++
	failures := p.failures
	p.mu.Unlock()

	p.log.Debug("Probe failed", "failures", failures, "error", err)
	if failures < p.cfg.FailureThreshold {
		return p.Online()
	}

	if p.set(false) {
		p.log.Warn("Backend unreachable, going offline", "failures", failures, "error", err)
	}
	metrics.ConnectivityOnline.Set(0)
	return false
}

func reachable(err error) bool {
	if err == nil {
		return true
	}
	var respErr *domain.ResponseError
	return errors.As(err, &respErr)
}
