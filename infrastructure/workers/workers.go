// Package workers runs a pool of goroutines that check out, process and
// settle tasks handed out by a Processor.
package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jrazmi/devcamper/sdk/environment"
)

var (
	ErrWorkerShutdown  = errors.New("worker should shutdown")
	ErrPoolShutdown    = errors.New("pool should shutdown")
	ErrNoWorkAvailable = errors.New("no work available")
)

// Options represents the exportable worker configuration
type Options struct {
	Name         string        `env:"WORKER_NAME" default:"worker"`
	WorkerCount  int           `env:"WORKER_COUNT" default:"2"`
	PollInterval time.Duration `env:"WORKER_POLL_INTERVAL" default:"100ms"`
	IdleInterval time.Duration `env:"WORKER_IDLE_INTERVAL" default:"5s"`
	MaxRetries   int           `env:"WORKER_MAX_RETRIES" default:"3"`
	RetryDelay   time.Duration `env:"WORKER_RETRY_DELAY" default:"500ms"`
}

type options struct {
	name         string
	workerCount  int
	pollInterval time.Duration
	idleInterval time.Duration
	maxRetries   int
	retryDelay   time.Duration
	middlewares  []Middleware
	metrics      WorkerPoolMetrics
	logger       *slog.Logger
}

// Option configures the worker pool
type Option func(*options)

// WorkerPool runs workerCount workers against one processor.
type WorkerPool[T Task] struct {
	processor    Processor[T]
	name         string
	workerCount  int
	pollInterval time.Duration
	idleInterval time.Duration
	maxRetries   int
	retryDelay   time.Duration
	log          *slog.Logger

	workFunc         WorkFunc
	middlewares      []Middleware
	preProcessHooks  []PreProcessHook[T]
	postProcessHooks []PostProcessHook[T]
	metrics          WorkerPoolMetrics

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	done    chan struct{}
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

// WithPollInterval sets how often a busy worker asks for more work
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
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMaxRetries sets the maximum number of process attempts
func WithMaxRetries(maxRetries int) Option {
	return func(o *options) {
		o.maxRetries = maxRetries
	}
}

// WithRetryDelay sets the delay before the first retry. It doubles per attempt.
func WithRetryDelay(delay time.Duration) Option {
	return func(o *options) {
		o.retryDelay = delay
	}
}

// WithMiddleware wraps every unit of work
func WithMiddleware(middlewares ...Middleware) Option {
	return func(o *options) {
		o.middlewares = append(o.middlewares, middlewares...)
	}
}

// WithMetrics sets a custom metrics collector
func WithMetrics(metrics WorkerPoolMetrics) Option {
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

// New creates a new worker pool with cfg and applies opts
func New[T Task](processor Processor[T], cfg Options, opts ...Option) *WorkerPool[T] {
	o := &options{
		name:         cfg.Name,
		workerCount:  cfg.WorkerCount,
		pollInterval: cfg.PollInterval,
		idleInterval: cfg.IdleInterval,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		metrics:      NewNoOpMetrics(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.workerCount <= 0 {
		o.workerCount = 1
	}
	if o.pollInterval <= 0 {
		o.pollInterval = 100 * time.Millisecond
	}
	if o.idleInterval <= 0 {
		o.idleInterval = 5 * time.Second
	}
	if o.retryDelay <= 0 {
		o.retryDelay = 500 * time.Millisecond
	}
	if o.name == "" {
		o.name = "worker"
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
		errors:       make(chan error, o.workerCount),
	}
	pool.buildMiddlewareChain()

	return pool
}

// Name returns the pool name.
func (wp *WorkerPool[T]) Name() string {
	return wp.name
}

// Errors reports workers that asked for the pool to shut down.
func (wp *WorkerPool[T]) Errors() <-chan error {
	return wp.errors
}

// Start runs the workers and blocks until ctx is canceled, Stop is called or
// every worker has exited.
func (wp *WorkerPool[T]) Start(ctx context.Context) error {
	wp.mu.Lock()
	if wp.running {
		wp.mu.Unlock()
		return fmt.Errorf("pool %s already running", wp.name)
	}
	wp.ctx, wp.cancel = context.WithCancel(ctx)
	wp.done = make(chan struct{})
	wp.running = true
	wp.mu.Unlock()

	started := time.Now()
	wp.log.InfoContext(ctx, "starting worker pool",
		"name", wp.name,
		"worker_count", wp.workerCount,
		"poll_interval", wp.pollInterval,
		"idle_interval", wp.idleInterval)
	wp.metrics.Start(ctx, wp.name)

	var wake <-chan struct{}
	if n, ok := wp.processor.(Notifier); ok {
		wake = n.Ready()
	}

	for i := range wp.workerCount {
		workerID := fmt.Sprintf("%s-worker-%d", wp.name, i+1)
		wp.workers.Add(1)
		go wp.worker(workerID, wake)
	}
	wp.workers.Wait()

	wp.metrics.Stop(ctx)

	wp.mu.Lock()
	wp.running = false
	wp.cancel()
	close(wp.done)
	wp.mu.Unlock()

	wp.log.InfoContext(ctx, "worker pool stopped", "name", wp.name, "total_runtime", time.Since(started))
	return nil
}

// Stop cancels the workers and waits for Start to return.
func (wp *WorkerPool[T]) Stop() {
	wp.mu.Lock()
	if !wp.running {
		wp.mu.Unlock()
		return
	}
	wp.log.InfoContext(wp.ctx, "stopping worker pool", "name", wp.name)
	wp.cancel()
	done := wp.done
	wp.mu.Unlock()

	<-done
}

// Running reports whether Start is active.
func (wp *WorkerPool[T]) Running() bool {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.running
}

func (wp *WorkerPool[T]) worker(workerID string, wake <-chan struct{}) {
	defer wp.workers.Done()
	defer wp.metrics.RecordWorkerStopped()

	wp.metrics.RecordWorkerStarted()
	wp.log.DebugContext(wp.ctx, "worker started", "worker_id", workerID, "pool", wp.name)

	interval := time.Millisecond
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-wp.ctx.Done():
			wp.log.DebugContext(context.Background(), "worker stopped", "worker_id", workerID, "pool", wp.name)
			return
		case <-wake:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-timer.C:
		}

		err := wp.workWithPanicRecovery(wp.ctx, workerID)

		switch {
		case err == nil:
			interval = wp.pollInterval
		case errors.Is(err, ErrWorkerShutdown):
			wp.log.InfoContext(wp.ctx, "worker shutting down as requested", "worker_id", workerID)
			return
		case errors.Is(err, ErrPoolShutdown):
			wp.log.ErrorContext(wp.ctx, "worker requesting pool shutdown", "worker_id", workerID, "error", err)
			select {
			case wp.errors <- fmt.Errorf("worker %s: %w", workerID, err):
			default:
			}
			wp.cancel()
			return
		case errors.Is(err, ErrNoWorkAvailable):
			interval = wp.idleInterval
		default:
			interval = wp.pollInterval
			wp.log.ErrorContext(wp.ctx, "task processing error", "worker_id", workerID, "error", err)
		}

		timer.Reset(interval)
	}
}

// workWithPanicRecovery runs the middleware wrapped work function.
func (wp *WorkerPool[T]) workWithPanicRecovery(ctx context.Context, workerID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			wp.log.ErrorContext(ctx, "panic recovered in worker",
				"worker_id", workerID,
				"panic", r,
				"stack_trace", string(debug.Stack()))
			wp.metrics.RecordWorkerPanic()
			err = fmt.Errorf("panic recovered: %v", r)
		}
	}()

	return wp.workFunc(ctx, workerID)
}

// work runs Checkout -> Process -> Complete/Fail for one task.
func (wp *WorkerPool[T]) work(ctx context.Context, workerID string) error {
	task, err := wp.processor.Checkout(ctx, workerID)
	if err != nil {
		wp.metrics.RecordCheckoutError()
		if errors.Is(err, ErrNoWorkAvailable) {
			return err
		}
		return fmt.Errorf("checkout failed: %w", err)
	}
	wp.metrics.RecordTaskCheckedOut()

	var (
		processErr error
		processed  T
		started    = time.Now()
	)

	defer func() {
		duration := time.Since(started)

		if r := recover(); r != nil {
			wp.log.ErrorContext(ctx, "panic recovered in task",
				"worker_id", workerID,
				"task_id", task.GetID(),
				"panic", r,
				"stack_trace", string(debug.Stack()))
			wp.metrics.RecordWorkerPanic()
			processErr = fmt.Errorf("panic: %v", r)
		}

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
			wp.metrics.RecordTaskFailed(duration)
			if err := wp.processor.Fail(ctx, task, processErr); err != nil {
				wp.log.ErrorContext(ctx, "failed to mark task as failed", "task_id", task.GetID(), "error", err)
			}
			return
		}

		wp.metrics.RecordTaskCompleted(duration)
		if err := wp.processor.Complete(ctx, processed, int(duration.Milliseconds())); err != nil {
			wp.log.ErrorContext(ctx, "failed to mark task as complete", "task_id", task.GetID(), "error", err)
		}
	}()

	for _, hook := range wp.preProcessHooks {
		if err := hook(ctx, task); err != nil {
			wp.log.ErrorContext(ctx, "pre-process hook failed", "task_id", task.GetID(), "error", err)
		}
	}

	processed, processErr = wp.processWithRetry(ctx, task)
	if processErr != nil {
		return fmt.Errorf("task processing error: %w", processErr)
	}

	wp.log.DebugContext(ctx, "task completed", "worker_id", workerID, "task_id", task.GetID())
	return nil
}

// processWithRetry calls Process up to maxRetries times with exponential
// backoff between attempts.
func (wp *WorkerPool[T]) processWithRetry(ctx context.Context, task T) (T, error) {
	attempts := max(wp.maxRetries, 1)

	var (
		lastErr   error
		processed T
		tried     int
	)

	for attempt := 1; attempt <= attempts; attempt++ {
		tried = attempt
		if attempt > 1 {
			wp.metrics.RecordRetryAttempt()
			delay := wp.retryDelay * time.Duration(1<<(attempt-2))
			select {
			case <-ctx.Done():
				return processed, ctx.Err()
			case <-time.After(delay):
			}
		}

		processed, lastErr = wp.processor.Process(ctx, task)
		if lastErr == nil {
			if attempt > 1 {
				wp.metrics.RecordRetrySuccess()
			}
			return processed, nil
		}
		if errors.Is(lastErr, ErrPermanent) {
			break
		}
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}

		wp.log.WarnContext(ctx, "task processing attempt failed",
			"task_id", task.GetID(),
			"attempt", attempt,
			"error", lastErr)
	}

	if tried > 1 {
		wp.metrics.RecordRetryExhausted()
	}

	return processed, fmt.Errorf("failed after %d attempts: %w", tried, lastErr)
}

// GetMetrics returns the collector snapshot.
func (wp *WorkerPool[T]) GetMetrics() MetricsSnapshot {
	return wp.metrics.GetSnapshot()
}
