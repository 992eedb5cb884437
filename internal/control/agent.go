package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/clinicnet/internal/core/config"
	"github.com/vietddude/clinicnet/internal/core/domain"
	"github.com/vietddude/clinicnet/internal/core/worker"
	"github.com/vietddude/clinicnet/internal/infra/api"
	redisclient "github.com/vietddude/clinicnet/internal/infra/redis"
	"github.com/vietddude/clinicnet/internal/infra/storage"
	"github.com/vietddude/clinicnet/internal/infra/storage/memory"
	"github.com/vietddude/clinicnet/internal/infra/storage/postgres"
	"github.com/vietddude/clinicnet/internal/recovery/connectivity"
	"github.com/vietddude/clinicnet/internal/recovery/coordinator"
	"github.com/vietddude/clinicnet/internal/recovery/health"
	"github.com/vietddude/clinicnet/internal/recovery/notify"
)

const shutdownTimeout = 5 * time.Second

// Agent wires the portal client, connectivity probe, retry coordinator and
// health endpoints for one session.
type Agent struct {
	cfg          *config.AppConfig
	api          *api.Client
	prober       *connectivity.Prober
	coord        *coordinator.Coordinator
	failedRepo   storage.FailedTaskRepository
	pruner       *worker.Pruner
	healthMon    *health.Monitor
	healthServer *health.Server
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger

	group    *errgroup.Group
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// AgentOption customizes NewAgent.
type AgentOption func(*agentOptions)

type agentOptions struct {
	watcher    connectivity.Watcher
	httpClient *http.Client
	logger     *slog.Logger
}

// WithWatcher replaces the HTTP prober with an externally driven watcher.
func WithWatcher(w connectivity.Watcher) AgentOption {
	return func(o *agentOptions) { o.watcher = w }
}

// WithHTTPClient sets the client used to reach the backend.
func WithHTTPClient(c *http.Client) AgentOption {
	return func(o *agentOptions) { o.httpClient = c }
}

// WithAgentLogger sets the logger.
func WithAgentLogger(l *slog.Logger) AgentOption {
	return func(o *agentOptions) { o.logger = l }
}

// NewAgent creates an Agent with all dependencies initialized.
func NewAgent(ctx context.Context, cfg *config.AppConfig, opts ...AgentOption) (*Agent, error) {
	o := agentOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	a := &Agent{
		cfg: cfg,
		log: o.logger.With("component", "agent"),
	}

	// 1. Initialize Storage
	if cfg.DatabaseEnabled() {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		a.db = db
		a.failedRepo = postgres.NewFailedTaskRepo(db)
		a.log.Info("Using PostgreSQL storage")
	} else {
		a.failedRepo = memory.NewFailedRepo(memory.NewMemoryStorage())
		a.log.Info("Using Memory storage")
	}

	a.pruner = worker.NewPruner(cfg.Archive.Retention, a.failedRepo)

	// 2. Notifiers
	notifiers := notify.Multi{
		notify.NewLogNotifier(o.logger),
		notify.NewArchiveNotifier(a.failedRepo),
	}
	if cfg.RedisEnabled() {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			a.closeResources()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		a.redisClient = client
		notifiers = append(notifiers, redisclient.NewNoticePublisher(client, cfg.Notify.Redis))
		a.log.Info("Publishing notices to Redis", "stream", cfg.Notify.Redis.Stream)
	}

	// 3. Backend client and connectivity
	a.api = api.NewClient(cfg.API, o.httpClient)

	watcher := o.watcher
	if watcher == nil {
		a.prober = connectivity.NewProber(a.api, cfg.Connectivity, o.logger)
		watcher = a.prober
	}

	// 4. Retry coordinator, exactly one per agent
	a.coord = coordinator.New(cfg.Retry, watcher, notifiers, coordinator.WithLogger(o.logger))

	// 5. Health
	a.healthMon = health.NewMonitor(a.coord, a.failedRepo)
	a.healthServer = health.NewServer(a.healthMon, cfg.Server.Port)

	return a, nil
}

// Start launches the prober and the health server in the background.
func (a *Agent) Start(ctx context.Context) error {
	a.log.Info("Starting agent", "port", a.cfg.Server.Port, "backend", a.cfg.API.BaseURL)

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	a.group = g
	a.cancel = cancel

	if a.prober != nil {
		g.Go(func() error {
			if err := a.prober.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("connectivity prober: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		a.pruner.Start(gctx)
		return nil
	})

	g.Go(func() error {
		a.log.Info("Starting health server", "port", a.cfg.Server.Port)
		if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.healthServer.Stop(shutdownCtx)
	})

	return nil
}

// Wait blocks until the background tasks exit and returns the first error.
func (a *Agent) Wait() error {
	if a.group == nil {
		return nil
	}
	return a.group.Wait()
}

// Stop destroys the coordinator, stops background tasks and closes resources.
func (a *Agent) Stop(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		a.log.Info("Stopping agent...")

		a.coord.Destroy()

		if a.cancel != nil {
			a.cancel()
			done := make(chan error, 1)
			go func() { done <- a.group.Wait() }()
			select {
			case err = <-done:
			case <-ctx.Done():
				err = ctx.Err()
			}
		}

		a.closeResources()
	})
	return err
}

func (a *Agent) closeResources() {
	if a.api != nil {
		a.api.Close()
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}
}

// Submit runs op once and queues it for retry on a transient failure.
func (a *Agent) Submit(ctx context.Context, op domain.Operation, taskCtx domain.TaskContext) error {
	return a.coord.Submit(ctx, op, taskCtx)
}

// ExecuteWithRetry runs op inline with backoff.
func (a *Agent) ExecuteWithRetry(ctx context.Context, op domain.Operation, maxAttempts int) error {
	return a.coord.ExecuteWithRetry(ctx, op, maxAttempts)
}

// Classify turns err into an ErrorClassification.
func (a *Agent) Classify(err error) domain.ErrorClassification {
	return a.coord.Classify(err)
}

// API returns the backend client.
func (a *Agent) API() *api.Client { return a.api }

// Coordinator returns the retry coordinator.
func (a *Agent) Coordinator() *coordinator.Coordinator { return a.coord }

// FailedTasks lists archived terminal failures, newest first.
func (a *Agent) FailedTasks(ctx context.Context, limit int) ([]*domain.FailedTask, error) {
	return a.failedRepo.List(ctx, limit)
}

// Health returns the current health report.
func (a *Agent) Health(ctx context.Context) health.Report {
	return a.healthMon.CheckHealth(ctx)
}
