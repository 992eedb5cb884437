// Package coordinator replays failed backend calls with exponential backoff.
//
// A Coordinator owns a bounded FIFO queue of retry tasks. One goroutine at a
// time drains the queue; a failed task is re-appended after a backoff delay
// until it succeeds or runs out of attempts, at which point a single terminal
// notice is emitted. Going offline suspends draining without dropping tasks.
//
// Construct exactly one Coordinator per portal session and call Destroy when
// the session ends; every instance registers its own connectivity handler.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/vietddude/clinicnet/internal/core/domain"
	"github.com/vietddude/clinicnet/internal/recovery/backoff"
	"github.com/vietddude/clinicnet/internal/recovery/classifier"
	"github.com/vietddude/clinicnet/internal/recovery/connectivity"
	"github.com/vietddude/clinicnet/internal/recovery/metrics"
	"github.com/vietddude/clinicnet/internal/recovery/notify"
)

// ErrDestroyed is returned when work is handed to a destroyed coordinator.
var ErrDestroyed = errors.New("retry coordinator destroyed")

const notifyTimeout = 5 * time.Second

const (
	msgConnectionRestored = "Connection restored."
	msgTerminalGeneric    = "The request failed after multiple attempts. Please try again later."
	msgTerminalOperation  = "Failed to %s after multiple attempts. Please try again later."
)

// Config holds retry queue settings.
type Config struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
	Jitter     float64       `yaml:"jitter"`
	Capacity   int           `yaml:"capacity"`
}

// DefaultConfig returns the portal defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Jitter:     0.1,
		Capacity:   10,
	}
}

func (cfg Config) withDefaults() Config {
	def := DefaultConfig()
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	return cfg
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithClassifier replaces the default classifier.
func WithClassifier(c classifier.Classifier) Option {
	return func(co *Coordinator) { co.classify = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(co *Coordinator) { co.log = l }
}

// WithSleep replaces the wait used by ExecuteWithRetry.
func WithSleep(f func(ctx context.Context, d time.Duration) error) Option {
	return func(co *Coordinator) { co.sleep = f }
}

// WithRand replaces the jitter source. f must return values in [0, 1).
func WithRand(f func() float64) Option {
	return func(co *Coordinator) { co.rand = f }
}

// Stats is a point-in-time view of the coordinator.
type Stats struct {
	State      string `json:"state"`
	Online     bool   `json:"online"`
	QueueDepth int    `json:"queue_depth"`
	Pending    int    `json:"pending_retries"`
	Capacity   int    `json:"capacity"`
}

// Coordinator is the retry queue. All methods are safe for concurrent use.
type Coordinator struct {
	cfg      Config
	strategy *backoff.ExponentialBackoff
	classify classifier.Classifier
	watcher  connectivity.Watcher
	notifier notify.Notifier
	log      *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
	rand     func() float64

	ctx    context.Context
	cancel context.CancelFunc
	subID  connectivity.SubscriptionID
	wg     sync.WaitGroup

	mu        sync.Mutex
	machine   *fsm.FSM
	queue     []*domain.RetryTask
	timers    map[string]*scheduled
	online    bool
	running   bool
	destroyed bool
}

// scheduled is a task waiting out its backoff delay.
type scheduled struct {
	task  *domain.RetryTask
	timer *time.Timer
}

// New creates a coordinator and subscribes it to watcher. A nil watcher is
// treated as always online; a nil notifier drops notices.
func New(
	cfg Config,
	watcher connectivity.Watcher,
	notifier notify.Notifier,
	opts ...Option,
) *Coordinator {
	if watcher == nil {
		watcher = connectivity.NewManual(true)
	}
	if notifier == nil {
		notifier = notify.Nop
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		cfg:      cfg.withDefaults(),
		classify: classifier.Classify,
		watcher:  watcher,
		notifier: notifier,
		log:      slog.Default(),
		sleep:    sleepContext,
		rand:     rand.Float64,
		ctx:      ctx,
		cancel:   cancel,
		timers:   make(map[string]*scheduled),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "retry")

	c.strategy = &backoff.ExponentialBackoff{
		InitialDelay: c.cfg.BaseDelay,
		MaxDelay:     c.cfg.MaxDelay,
		MaxAttempts:  c.cfg.MaxRetries,
		Jitter:       c.cfg.Jitter,
		Classifier:   c.classify,
		Rand:         c.rand,
	}

	// Subscribe before reading the state so that no transition is missed; the
	// handler blocks on c.mu until initialization is done.
	c.mu.Lock()
	c.subID = watcher.Subscribe(c.handleConnectivity)
	c.online = watcher.Online()
	c.machine = newStateMachine(c.online)
	c.mu.Unlock()

	metrics.RetryQueueDepth.Set(0)
	return c
}

// Enqueue hands a failed operation to the queue and returns its task ID. When
// the queue is full the oldest task is dropped without being retried or
// reported. Enqueue returns "" once the coordinator is destroyed.
func (c *Coordinator) Enqueue(op domain.Operation, taskCtx domain.TaskContext) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed {
		return ""
	}

	for len(c.queue)+len(c.timers) >= c.cfg.Capacity {
		c.evictOldestLocked()
	}

	task := &domain.RetryTask{
		ID:         uuid.New().String(),
		Operation:  op,
		Context:    taskCtx,
		EnqueuedAt: time.Now(),
	}
	c.queue = append(c.queue, task)
	metrics.RetryQueueDepth.Set(float64(len(c.queue)))

	c.log.Debug("Task enqueued", "task_id", task.ID, "operation", taskCtx.Operation, "depth", len(c.queue))
	c.startLocked()
	return task.ID
}

// evictOldestLocked drops the task with the earliest EnqueuedAt, whether it is
// queued or waiting out a backoff delay.
func (c *Coordinator) evictOldestLocked() {
	var oldest *domain.RetryTask
	idx := -1
	for i, t := range c.queue {
		if oldest == nil || t.EnqueuedAt.Before(oldest.EnqueuedAt) {
			oldest, idx = t, i
		}
	}
	for _, s := range c.timers {
		if oldest == nil || s.task.EnqueuedAt.Before(oldest.EnqueuedAt) {
			oldest, idx = s.task, -1
		}
	}
	if oldest == nil {
		return
	}

	if idx >= 0 {
		c.queue = append(c.queue[:idx], c.queue[idx+1:]...)
	} else {
		c.timers[oldest.ID].timer.Stop()
		delete(c.timers, oldest.ID)
	}

	metrics.RetryEvictionsTotal.Inc()
	c.log.Warn("Retry queue full, dropped oldest task",
		"task_id", oldest.ID,
		"operation", oldest.Context.Operation,
		"capacity", c.cfg.Capacity,
	)
}

// startLocked launches the processing goroutine if there is work and nothing
// is already draining the queue.
func (c *Coordinator) startLocked() {
	if c.running || c.destroyed || !c.online || len(c.queue) == 0 {
		return
	}
	c.running = true
	c.transition(eventProcess)
	c.wg.Add(1)
	go c.process()
}

func (c *Coordinator) process() {
	defer c.wg.Done()

	for {
		c.mu.Lock()
		if c.destroyed || !c.online || len(c.queue) == 0 {
			c.running = false
			if !c.destroyed && c.online {
				c.transition(eventDrain)
			}
			c.mu.Unlock()
			return
		}
		task := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]
		metrics.RetryQueueDepth.Set(float64(len(c.queue)))
		c.mu.Unlock()

		err := c.run(task)
		if err == nil {
			metrics.RetryAttemptsTotal.WithLabelValues("success").Inc()
			c.log.Debug("Retry succeeded", "task_id", task.ID, "attempt", task.Attempt+1)
			continue
		}
		metrics.RetryAttemptsTotal.WithLabelValues("failure").Inc()
		c.handleFailure(task, err)
	}
}

// run executes one attempt, turning a panic into an error.
func (c *Coordinator) run(task *domain.RetryTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	task.LastAttemptAt = time.Now()
	return task.Operation(c.ctx)
}

func (c *Coordinator) handleFailure(task *domain.RetryTask, err error) {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}

	task.Attempt++
	if task.Attempt >= c.cfg.MaxRetries {
		c.mu.Unlock()
		c.reportTerminal(task, err)
		return
	}

	delay := c.strategy.GetDelay(task.Attempt - 1)
	if cls := c.classifyErr(err); cls.RetryAfter > delay {
		delay = cls.RetryAfter
	}

	s := &scheduled{task: task}
	s.timer = time.AfterFunc(delay, func() { c.requeue(task) })
	c.timers[task.ID] = s
	c.mu.Unlock()

	c.log.Debug("Retry scheduled", "task_id", task.ID, "attempt", task.Attempt, "delay", delay, "error", err)
}

// requeue appends a task whose backoff delay elapsed.
func (c *Coordinator) requeue(task *domain.RetryTask) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.timers[task.ID]; !ok || c.destroyed {
		// evicted or destroyed meanwhile
		return
	}
	delete(c.timers, task.ID)
	c.queue = append(c.queue, task)
	metrics.RetryQueueDepth.Set(float64(len(c.queue)))
	c.startLocked()
}

func (c *Coordinator) reportTerminal(task *domain.RetryTask, err error) {
	metrics.TerminalFailuresTotal.Inc()
	cls := c.classifyErr(err)

	c.log.Warn("Task failed after all retries",
		"task_id", task.ID,
		"operation", task.Context.Operation,
		"attempts", task.Attempt,
		"error", err,
	)

	c.notify(domain.Notice{
		ID:             uuid.New().String(),
		Kind:           domain.NoticeTerminalFailure,
		Level:          domain.LevelError,
		Message:        terminalMessage(task.Context),
		TaskID:         task.ID,
		Context:        task.Context,
		Attempts:       task.Attempt,
		Error:          err.Error(),
		Classification: &cls,
		CreatedAt:      time.Now(),
	})
}

func terminalMessage(tc domain.TaskContext) string {
	if tc.Operation == "" {
		return msgTerminalGeneric
	}
	return fmt.Sprintf(msgTerminalOperation, tc.Operation)
}

func (c *Coordinator) handleConnectivity(online bool) {
	c.mu.Lock()
	if c.destroyed || c.online == online {
		c.mu.Unlock()
		return
	}
	c.online = online

	if !online {
		c.transition(eventDisconnect)
		depth := len(c.queue)
		c.mu.Unlock()
		c.log.Info("Offline, retry queue suspended", "depth", depth)
		return
	}

	c.transition(eventReconnect)
	if c.running {
		// the previous drain is still settling its in-flight attempt
		c.transition(eventProcess)
	}
	c.startLocked()
	depth := len(c.queue)
	c.mu.Unlock()

	c.log.Info("Online, retry queue resumed", "depth", depth)
	c.notify(domain.Notice{
		ID:        uuid.New().String(),
		Kind:      domain.NoticeConnectionRestored,
		Level:     domain.LevelInfo,
		Message:   msgConnectionRestored,
		CreatedAt: time.Now(),
	})
}

func (c *Coordinator) notify(n domain.Notice) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := c.notifier.Notify(ctx, n); err != nil {
		c.log.Warn("Failed to deliver notice", "kind", n.Kind, "error", err)
	}
}

func (c *Coordinator) classifyErr(err error) domain.ErrorClassification {
	cls := c.classify(err)
	metrics.ClassificationsTotal.WithLabelValues(string(cls.Category), string(cls.Code)).Inc()
	return cls
}

// Destroy detaches from the connectivity watcher, cancels the in-flight
// attempt, stops pending backoff timers and clears the queue. It is safe to
// call more than once, but not from inside a queued operation.
func (c *Coordinator) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	c.transition(eventDestroy)
	for id, s := range c.timers {
		s.timer.Stop()
		delete(c.timers, id)
	}
	dropped := len(c.queue)
	c.queue = nil
	c.mu.Unlock()

	c.watcher.Unsubscribe(c.subID)
	c.cancel()
	c.wg.Wait()

	metrics.RetryQueueDepth.Set(0)
	c.log.Info("Retry coordinator destroyed", "dropped", dropped)
}

// State returns the queue state name.
func (c *Coordinator) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Current()
}

// Stats returns a snapshot of the queue.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		State:      c.machine.Current(),
		Online:     c.online,
		QueueDepth: len(c.queue),
		Pending:    len(c.timers),
		Capacity:   c.cfg.Capacity,
	}
}

// Queued returns the IDs of queued tasks in processing order.
func (c *Coordinator) Queued() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, len(c.queue))
	for i, t := range c.queue {
		ids[i] = t.ID
	}
	return ids
}

// Classify exposes the coordinator's classifier.
func (c *Coordinator) Classify(err error) domain.ErrorClassification {
	return c.classifyErr(err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
