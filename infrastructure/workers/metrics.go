package workers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkerPoolMetrics collects pool orchestration metrics
type WorkerPoolMetrics interface {
	RecordWorkerStarted()
	RecordWorkerStopped()
	RecordWorkerPanic()

	RecordTaskCheckedOut()
	RecordTaskCompleted(duration time.Duration)
	RecordTaskFailed(duration time.Duration)
	RecordCheckoutError()

	RecordRetryAttempt()
	RecordRetrySuccess()
	RecordRetryExhausted()

	GetSnapshot() MetricsSnapshot

	Start(ctx context.Context, poolName string)
	Stop(ctx context.Context)
}

// MetricsSnapshot is a point-in-time view of pool metrics
type MetricsSnapshot struct {
	WorkersStarted int64 `json:"workers_started"`
	WorkersStopped int64 `json:"workers_stopped"`
	WorkersActive  int64 `json:"workers_active"`
	WorkerPanics   int64 `json:"worker_panics"`

	TasksCheckedOut int64 `json:"tasks_checked_out"`
	TasksCompleted  int64 `json:"tasks_completed"`
	TasksFailed     int64 `json:"tasks_failed"`
	TasksInProgress int64 `json:"tasks_in_progress"`
	CheckoutErrors  int64 `json:"checkout_errors"`

	RetryAttempts    int64 `json:"retry_attempts"`
	RetrySuccesses   int64 `json:"retry_successes"`
	RetriesExhausted int64 `json:"retries_exhausted"`

	TotalDuration   time.Duration `json:"total_duration"`
	AverageDuration time.Duration `json:"average_duration"`
	MaxDuration     time.Duration `json:"max_duration"`

	CollectedAt time.Time     `json:"collected_at"`
	Uptime      time.Duration `json:"uptime"`
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

func NewNoOpMetrics() WorkerPoolMetrics {
	return &NoOpMetrics{}
}

func (n *NoOpMetrics) RecordWorkerStarted()                       {}
func (n *NoOpMetrics) RecordWorkerStopped()                       {}
func (n *NoOpMetrics) RecordWorkerPanic()                         {}
func (n *NoOpMetrics) RecordTaskCheckedOut()                      {}
func (n *NoOpMetrics) RecordTaskCompleted(duration time.Duration) {}
func (n *NoOpMetrics) RecordTaskFailed(duration time.Duration)    {}
func (n *NoOpMetrics) RecordCheckoutError()                       {}
func (n *NoOpMetrics) RecordRetryAttempt()                        {}
func (n *NoOpMetrics) RecordRetrySuccess()                        {}
func (n *NoOpMetrics) RecordRetryExhausted()                      {}
func (n *NoOpMetrics) GetSnapshot() MetricsSnapshot               { return MetricsSnapshot{} }
func (n *NoOpMetrics) Start(ctx context.Context, poolName string) {}
func (n *NoOpMetrics) Stop(ctx context.Context)                   {}

// InMemoryMetrics counts in process.
type InMemoryMetrics struct {
	workersStarted atomic.Int64
	workersStopped atomic.Int64
	workerPanics   atomic.Int64

	tasksCheckedOut atomic.Int64
	tasksCompleted  atomic.Int64
	tasksFailed     atomic.Int64
	checkoutErrors  atomic.Int64

	retryAttempts    atomic.Int64
	retrySuccesses   atomic.Int64
	retriesExhausted atomic.Int64

	totalDurationNs atomic.Int64
	maxDurationNs   atomic.Int64

	mu        sync.RWMutex
	startTime time.Time
}

func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{}
}

func (m *InMemoryMetrics) Start(ctx context.Context, poolName string) {
	m.mu.Lock()
	m.startTime = time.Now()
	m.mu.Unlock()
}

func (m *InMemoryMetrics) Stop(ctx context.Context) {}

func (m *InMemoryMetrics) RecordWorkerStarted()  { m.workersStarted.Add(1) }
func (m *InMemoryMetrics) RecordWorkerStopped()  { m.workersStopped.Add(1) }
func (m *InMemoryMetrics) RecordWorkerPanic()    { m.workerPanics.Add(1) }
func (m *InMemoryMetrics) RecordTaskCheckedOut() { m.tasksCheckedOut.Add(1) }
func (m *InMemoryMetrics) RecordCheckoutError()  { m.checkoutErrors.Add(1) }
func (m *InMemoryMetrics) RecordRetryAttempt()   { m.retryAttempts.Add(1) }
func (m *InMemoryMetrics) RecordRetrySuccess()   { m.retrySuccesses.Add(1) }
func (m *InMemoryMetrics) RecordRetryExhausted() { m.retriesExhausted.Add(1) }

func (m *InMemoryMetrics) RecordTaskCompleted(duration time.Duration) {
	m.tasksCompleted.Add(1)
	m.observe(duration)
}

func (m *InMemoryMetrics) RecordTaskFailed(duration time.Duration) {
	m.tasksFailed.Add(1)
	m.observe(duration)
}

func (m *InMemoryMetrics) observe(d time.Duration) {
	m.totalDurationNs.Add(int64(d))
	for {
		cur := m.maxDurationNs.Load()
		if int64(d) <= cur || m.maxDurationNs.CompareAndSwap(cur, int64(d)) {
			return
		}
	}
}

func (m *InMemoryMetrics) GetSnapshot() MetricsSnapshot {
	now := time.Now()
	m.mu.RLock()
	started := m.startTime
	m.mu.RUnlock()

	workersStarted := m.workersStarted.Load()
	workersStopped := m.workersStopped.Load()
	completed := m.tasksCompleted.Load()
	failed := m.tasksFailed.Load()
	checkedOut := m.tasksCheckedOut.Load()
	total := completed + failed
	totalNs := m.totalDurationNs.Load()

	var avg time.Duration
	if total > 0 {
		avg = time.Duration(totalNs / total)
	}
	var uptime time.Duration
	if !started.IsZero() {
		uptime = now.Sub(started)
	}

	return MetricsSnapshot{
		WorkersStarted:   workersStarted,
		WorkersStopped:   workersStopped,
		WorkersActive:    workersStarted - workersStopped,
		WorkerPanics:     m.workerPanics.Load(),
		TasksCheckedOut:  checkedOut,
		TasksCompleted:   completed,
		TasksFailed:      failed,
		TasksInProgress:  checkedOut - total,
		CheckoutErrors:   m.checkoutErrors.Load(),
		RetryAttempts:    m.retryAttempts.Load(),
		RetrySuccesses:   m.retrySuccesses.Load(),
		RetriesExhausted: m.retriesExhausted.Load(),
		TotalDuration:    time.Duration(totalNs),
		AverageDuration:  avg,
		MaxDuration:      time.Duration(m.maxDurationNs.Load()),
		CollectedAt:      now,
		Uptime:           uptime,
	}
}

// PrometheusMetrics exports pool metrics labelled by pool name and keeps an
// in-memory copy for snapshots.
type PrometheusMetrics struct {
	*InMemoryMetrics

	pool     string
	workers  *prometheus.GaugeVec
	tasks    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	retries  *prometheus.CounterVec
	panics   *prometheus.CounterVec
}

// NewPrometheusMetrics registers the pool collectors with reg. Collectors
// already registered by another pool are reused.
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) *PrometheusMetrics {
	m := &PrometheusMetrics{
		InMemoryMetrics: NewInMemoryMetrics(),
		workers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_pool_active_workers",
			Help:      "Workers currently running",
		}, []string{"pool"}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_pool_tasks_total",
			Help:      "Tasks settled by outcome",
		}, []string{"pool", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_pool_task_duration_seconds",
			Help:      "Task processing time",
			Buckets:   prometheus.DefBuckets,
		}, []string{"pool"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_pool_retries_total",
			Help:      "Retry attempts by result",
		}, []string{"pool", "result"}),
		panics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_pool_panics_total",
			Help:      "Recovered panics",
		}, []string{"pool"}),
	}

	m.workers = register(reg, m.workers)
	m.tasks = register(reg, m.tasks)
	m.duration = register(reg, m.duration)
	m.retries = register(reg, m.retries)
	m.panics = register(reg, m.panics)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *PrometheusMetrics) Start(ctx context.Context, poolName string) {
	m.pool = poolName
	m.InMemoryMetrics.Start(ctx, poolName)
}

func (m *PrometheusMetrics) RecordWorkerStarted() {
	m.InMemoryMetrics.RecordWorkerStarted()
	m.workers.WithLabelValues(m.pool).Inc()
}

func (m *PrometheusMetrics) RecordWorkerStopped() {
	m.InMemoryMetrics.RecordWorkerStopped()
	m.workers.WithLabelValues(m.pool).Dec()
}

func (m *PrometheusMetrics) RecordWorkerPanic() {
	m.InMemoryMetrics.RecordWorkerPanic()
	m.panics.WithLabelValues(m.pool).Inc()
}

func (m *PrometheusMetrics) RecordTaskCompleted(duration time.Duration) {
	m.InMemoryMetrics.RecordTaskCompleted(duration)
	m.tasks.WithLabelValues(m.pool, "completed").Inc()
	m.duration.WithLabelValues(m.pool).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordTaskFailed(duration time.Duration) {
	m.InMemoryMetrics.RecordTaskFailed(duration)
	m.tasks.WithLabelValues(m.pool, "failed").Inc()
	m.duration.WithLabelValues(m.pool).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordRetryAttempt() {
	m.InMemoryMetrics.RecordRetryAttempt()
	m.retries.WithLabelValues(m.pool, "attempt").Inc()
}

func (m *PrometheusMetrics) RecordRetrySuccess() {
	m.InMemoryMetrics.RecordRetrySuccess()
	m.retries.WithLabelValues(m.pool, "success").Inc()
}

func (m *PrometheusMetrics) RecordRetryExhausted() {
	m.InMemoryMetrics.RecordRetryExhausted()
	m.retries.WithLabelValues(m.pool, "exhausted").Inc()
}
