// Package workers runs background tasks on a polling worker pool.
package workers

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jrazmi/growlog/sdk/environment"
	"github.com/jrazmi/growlog/sdk/logger"
)

var (
	ErrWorkerShutdown  = errors.New("worker should shutdown")
	ErrPoolShutdown    = errors.New("pool should shutdown")
	ErrNoWorkAvailable = errors.New("no work available")
	ErrPoolRunning     = errors.New("pool already running")
)

// Options represents the exportable worker configuration
type Options struct {
	Name         string        `yaml:"name" env:"WORKER_NAME" default:"worker"`
	WorkerCount  int           `yaml:"count" env:"WORKER_COUNT" default:"1"`
	PollInterval time.Duration `yaml:"poll_interval" env:"WORKER_POLL_INTERVAL" default:"5s"`
	IdleInterval time.Duration `yaml:"idle_interval" env:"WORKER_IDLE_INTERVAL" default:"1m"`
	MaxRetries   int           `yaml:"max_retries" env:"WORKER_MAX_RETRIES" default:"3"`
}

// options holds the internal runtime configuration
type options struct {
	name         string
	workerCount  int
	pollInterval time.Duration
	idleInterval time.Duration
	maxRetries   int
	retryDelay   time.Duration
	middlewares  []Middleware
	metrics      PoolMetrics
	logger       *logger.Logger
}

// Option is a function that configures the worker pool options
type Option func(*options)

// WorkerPool runs tasks from a processor on a fixed number of workers.
// Workers poll at the poll interval while work is flowing and back off to
// the idle interval when the processor has none.
type WorkerPool[T Task] struct {
	processor    Processor[T]
	name         string
	workerCount  int
	pollInterval time.Duration
	idleInterval time.Duration
	maxRetries   int
	retryDelay   time.Duration
	log          *logger.Logger

	workFunc         WorkFunc
	middlewares      []Middleware
	preProcessHooks  []PreProcessHook[T]
	postProcessHooks []PostProcessHook[T]
	metrics          PoolMetrics

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	workers sync.WaitGroup
	errors  chan error
}

// WithName sets the worker pool name
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithWorkerCount sets the number of workers
func WithWorkerCount(count int) Option {
	return func(o *options) {
		o.workerCount = count
	}
}

// WithPollInterval sets how often to poll while work is available
func WithPollInterval(interval time.Duration) Option {
	return func(o *options) {
		o.pollInterval = interval
	}
}

// WithIdleInterval sets how long to wait when no work is available
func WithIdleInterval(interval time.Duration) Option {
	return func(o *options) {
		o.idleInterval = interval
	}
}

// WithLogger sets a custom logger
func WithLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.logger = log
	}
}

// WithMaxRetries sets the maximum number of process attempts per task
func WithMaxRetries(maxRetries int) Option {
	return func(o *options) {
		o.maxRetries = maxRetries
	}
}

// WithRetryDelay sets the first backoff delay; it doubles per attempt.
func WithRetryDelay(delay time.Duration) Option {
	return func(o *options) {
		o.retryDelay = delay
	}
}

// WithMiddleware wraps every work cycle.
func WithMiddleware(middlewares ...Middleware) Option {
	return func(o *options) {
		o.middlewares = append(o.middlewares, middlewares...)
	}
}

// WithMetrics sets a metrics collector
func WithMetrics(metrics PoolMetrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// NewFromEnv creates a new worker pool using environment variables
func NewFromEnv[T Task](prefix string, processor Processor[T], opts ...Option) (*WorkerPool[T], error) {
	var cfg Options
	if err := environment.ParseEnvTags(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing worker config: %w", err)
	}
	return New(processor, cfg, opts...), nil
}

// New creates a worker pool from cfg; options override it.
func New[T Task](processor Processor[T], cfg Options, opts ...Option) *WorkerPool[T] {
	o := &options{
		name:         cfg.Name,
		workerCount:  cfg.WorkerCount,
		pollInterval: cfg.PollInterval,
		idleInterval: cfg.IdleInterval,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   time.Second,
		metrics:      NoOpMetrics{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.NewDiscard()
	}
	if o.name == "" {
		o.name = "worker"
	}
	if o.workerCount <= 0 {
		o.workerCount = 1
	}
	if o.pollInterval <= 0 {
		o.pollInterval = 5 * time.Second
	}
	if o.idleInterval <= 0 {
		o.idleInterval = 30 * time.Second
	}

	pool := &WorkerPool[T]{
		processor:    processor,
		name:         o.name,
		workerCount:  o.workerCount,
		pollInterval: o.pollInterval,
		idleInterval: o.idleInterval,
		maxRetries:   o.maxRetries,
		retryDelay:   o.retryDelay,
		log:          o.logger,
		middlewares:  o.middlewares,
		metrics:      o.metrics,
	}
	pool.buildMiddlewareChain()
	return pool
}

// Start runs the workers and blocks until ctx is done, Stop is called, or
// a worker asks for the pool to shut down. In the last case the worker's
// error is returned.
func (wp *WorkerPool[T]) Start(ctx context.Context) error {
	wp.mu.Lock()
	if wp.running {
		wp.mu.Unlock()
		return ErrPoolRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	wp.cancel = cancel
	wp.running = true
	wp.errors = make(chan error, wp.workerCount)
	wp.mu.Unlock()

	started := time.Now()
	wp.log.InfoContext(ctx, "starting worker pool",
		"name", wp.name,
		"worker_count", wp.workerCount,
		"poll_interval", wp.pollInterval,
		"idle_interval", wp.idleInterval,
	)

	for i := range wp.workerCount {
		workerID := fmt.Sprintf("%s-worker-%d", wp.name, i+1)
		wp.workers.Add(1)
		go wp.worker(ctx, cancel, workerID)
	}
	wp.workers.Wait()
	cancel()
	close(wp.errors)

	wp.mu.Lock()
	wp.running = false
	wp.mu.Unlock()

	wp.log.InfoContext(context.Background(), "worker pool stopped", "name", wp.name, "total_runtime", time.Since(started))
	for err := range wp.errors {
		return err
	}
	return nil
}

// Stop asks the workers to finish their current cycle and return.
func (wp *WorkerPool[T]) Stop() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if !wp.running {
		return
	}
	wp.log.Info("stopping worker pool", "name", wp.name)
	wp.cancel()
}

// Running reports whether Start is in progress.
func (wp *WorkerPool[T]) Running() bool {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.running
}

func (wp *WorkerPool[T]) worker(ctx context.Context, stopPool context.CancelFunc, workerID string) {
	defer wp.workers.Done()
	wp.metrics.WorkerStarted(wp.name)
	defer wp.metrics.WorkerStopped(wp.name)

	wp.log.DebugContext(ctx, "worker started", "worker_id", workerID, "pool", wp.name)
	defer wp.log.DebugContext(context.Background(), "worker stopped", "worker_id", workerID, "pool", wp.name)

	currentInterval := time.Millisecond
	ticker := time.NewTicker(currentInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		err := wp.workWithPanicRecovery(ctx, workerID)

		newInterval := wp.pollInterval
		switch {
		case err == nil:
		case errors.Is(err, ErrWorkerShutdown):
			wp.log.InfoContext(ctx, "worker shutting down as requested", "worker_id", workerID)
			return
		case errors.Is(err, ErrPoolShutdown):
			wp.log.ErrorContext(ctx, "worker requesting pool shutdown", "worker_id", workerID, "error", err)
			select {
			case wp.errors <- fmt.Errorf("worker %s: %w", workerID, err):
			default:
			}
			stopPool()
			return
		case errors.Is(err, ErrNoWorkAvailable):
			newInterval = wp.idleInterval
		case ctx.Err() != nil:
			return
		default:
			wp.log.ErrorContext(ctx, "task processing error", "worker_id", workerID, "error", err)
		}

		if newInterval != currentInterval {
			wp.log.DebugContext(ctx, "polling interval changed", "worker_id", workerID, "interval", newInterval)
			currentInterval = newInterval
			ticker.Reset(newInterval)
		}
	}
}

// workWithPanicRecovery runs one cycle, turning a panic outside Process
// into an error.
func (wp *WorkerPool[T]) workWithPanicRecovery(ctx context.Context, workerID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			wp.log.ErrorContext(ctx, "panic recovered in worker",
				"worker_id", workerID,
				"panic", r,
				"stack_trace", string(debug.Stack()))
			wp.metrics.WorkerPanicked(wp.name)
			err = fmt.Errorf("panic recovered: %v", r)
		}
	}()
	return wp.workFunc(ctx, workerID)
}

// work runs Checkout, Process and then Complete or Fail.
func (wp *WorkerPool[T]) work(ctx context.Context, workerID string) error {
	task, err := wp.processor.Checkout(ctx, workerID)
	if err != nil {
		if errors.Is(err, ErrNoWorkAvailable) {
			return err
		}
		wp.metrics.CheckoutFailed(wp.name)
		return fmt.Errorf("checkout failed: %w", err)
	}
	wp.metrics.TaskCheckedOut(wp.name)

	for _, hook := range wp.preProcessHooks {
		if err := hook(ctx, task); err != nil {
			wp.log.ErrorContext(ctx, "pre-process hook failed", "task_id", task.GetID(), "error", err)
		}
	}

	start := time.Now()
	processed, processErr := wp.processSafely(ctx, task)
	took := time.Since(start)

	hookTask := processed
	if processErr != nil {
		hookTask = task
	}
	for _, hook := range wp.postProcessHooks {
		if err := hook(ctx, hookTask, processErr); err != nil {
			wp.log.ErrorContext(ctx, "post-process hook failed", "task_id", task.GetID(), "error", err)
		}
	}

	if processErr != nil {
		wp.metrics.TaskFailed(wp.name, took)
		if failErr := wp.processor.Fail(ctx, task, processErr); failErr != nil {
			wp.log.ErrorContext(ctx, "failed to mark task as failed", "task_id", task.GetID(), "error", failErr)
		}
		return fmt.Errorf("task processing error: %w", processErr)
	}

	wp.metrics.TaskCompleted(wp.name, took)
	if err := wp.processor.Complete(ctx, processed, took); err != nil {
		wp.log.ErrorContext(ctx, "failed to mark task as complete", "task_id", task.GetID(), "error", err)
	}
	wp.log.DebugContext(ctx, "task completed", "worker_id", workerID, "task_id", task.GetID(), "took", took)
	return nil
}

// processSafely retries Process, turning a panic into a task failure.
func (wp *WorkerPool[T]) processSafely(ctx context.Context, task T) (processed T, err error) {
	defer func() {
		if r := recover(); r != nil {
			wp.log.ErrorContext(ctx, "panic recovered in task",
				"task_id", task.GetID(),
				"panic", r,
				"stack_trace", string(debug.Stack()))
			wp.metrics.WorkerPanicked(wp.name)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return wp.processWithRetry(ctx, task)
}

// processWithRetry calls Process up to maxRetries times with exponential
// backoff.
func (wp *WorkerPool[T]) processWithRetry(ctx context.Context, task T) (T, error) {
	maxAttempts := max(wp.maxRetries, 1)

	var (
		lastErr   error
		processed T
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			wp.metrics.RetryAttempted(wp.name)
			delay := wp.retryDelay * time.Duration(1<<(attempt-2))
			select {
			case <-ctx.Done():
				return processed, ctx.Err()
			case <-time.After(delay):
			}
		}

		processed, lastErr = wp.processor.Process(ctx, task)
		if lastErr == nil {
			return processed, nil
		}
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		wp.log.ErrorContext(ctx, "task processing attempt failed",
			"task_id", task.GetID(),
			"attempt", attempt,
			"error", lastErr)
	}
	return processed, fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}
