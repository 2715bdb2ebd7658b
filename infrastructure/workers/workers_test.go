package workers_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrazmi/devcamper/infrastructure/workers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type job struct {
	ID    string
	Fails int
	Panic bool
}

func (j job) GetID() string {
	return j.ID
}

// queueProcessor hands out jobs in order and records their outcome.
type queueProcessor struct {
	mu        sync.Mutex
	queue     []job
	attempts  map[string]int
	completed []string
	failed    []string
	ready     chan struct{}
}

func newQueueProcessor(jobs ...job) *queueProcessor {
	return &queueProcessor{
		queue:    jobs,
		attempts: make(map[string]int),
		ready:    make(chan struct{}, 1),
	}
}

func (p *queueProcessor) push(j job) {
	p.mu.Lock()
	p.queue = append(p.queue, j)
	p.mu.Unlock()
	select {
	case p.ready <- struct{}{}:
	default:
	}
}

func (p *queueProcessor) Ready() <-chan struct{} {
	return p.ready
}

func (p *queueProcessor) Checkout(ctx context.Context, workerID string) (job, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return job{}, workers.ErrNoWorkAvailable
	}
	j := p.queue[0]
	p.queue = p.queue[1:]
	return j, nil
}

func (p *queueProcessor) Process(ctx context.Context, j job) (job, error) {
	p.mu.Lock()
	p.attempts[j.ID]++
	n := p.attempts[j.ID]
	p.mu.Unlock()

	if j.Panic {
		panic("boom")
	}
	if j.Fails < 0 {
		return j, fmt.Errorf("bad input: %w", workers.ErrPermanent)
	}
	if n <= j.Fails {
		return j, errors.New("transient")
	}
	return j, nil
}

func (p *queueProcessor) Complete(ctx context.Context, j job, ms int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, j.ID)
	return nil
}

func (p *queueProcessor) Fail(ctx context.Context, j job, err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, j.ID)
	return nil
}

func (p *queueProcessor) settled() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.completed) + len(p.failed)
}

func (p *queueProcessor) attemptsFor(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts[id]
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() workers.Options {
	return workers.Options{
		Name:         "test",
		WorkerCount:  2,
		PollInterval: 5 * time.Millisecond,
		IdleInterval: 20 * time.Millisecond,
		MaxRetries:   3,
		RetryDelay:   time.Millisecond,
	}
}

func run(t *testing.T, pool interface{ Start(context.Context) error }) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, pool.Start(ctx))
	}()
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("pool did not stop")
		}
	}
}

func TestWorkerPoolProcessesEverything(t *testing.T) {
	p := newQueueProcessor(job{ID: "a"}, job{ID: "b"}, job{ID: "c"})
	metrics := workers.NewInMemoryMetrics()
	pool := workers.New[job](p, testOptions(), workers.WithLogger(quiet()), workers.WithMetrics(metrics))

	stop := run(t, pool)
	require.Eventually(t, func() bool { return p.settled() == 3 }, 2*time.Second, 5*time.Millisecond)
	stop()

	assert.ElementsMatch(t, []string{"a", "b", "c"}, p.completed)
	assert.Empty(t, p.failed)
	snap := pool.GetMetrics()
	assert.Equal(t, int64(3), snap.TasksCompleted)
	assert.Equal(t, int64(2), snap.WorkersStarted)
	assert.Equal(t, int64(0), snap.WorkersActive)
	assert.False(t, pool.Running())
}

func TestWorkerPoolRetries(t *testing.T) {
	p := newQueueProcessor(job{ID: "flaky", Fails: 2}, job{ID: "broken", Fails: 10}, job{ID: "bad", Fails: -1})
	metrics := workers.NewInMemoryMetrics()
	pool := workers.New[job](p, testOptions(), workers.WithLogger(quiet()), workers.WithMetrics(metrics))

	stop := run(t, pool)
	require.Eventually(t, func() bool { return p.settled() == 3 }, 2*time.Second, 5*time.Millisecond)
	stop()

	assert.Equal(t, []string{"flaky"}, p.completed)
	assert.ElementsMatch(t, []string{"broken", "bad"}, p.failed)
	assert.Equal(t, 3, p.attemptsFor("flaky"))
	assert.Equal(t, 3, p.attemptsFor("broken"))
	assert.Equal(t, 1, p.attemptsFor("bad"))

	snap := metrics.GetSnapshot()
	assert.Equal(t, int64(1), snap.RetrySuccesses)
	assert.Equal(t, int64(1), snap.RetriesExhausted)
}

func TestWorkerPoolRecoversTaskPanics(t *testing.T) {
	p := newQueueProcessor(job{ID: "explodes", Panic: true}, job{ID: "fine"})
	opts := testOptions()
	opts.WorkerCount = 1
	opts.MaxRetries = 1
	metrics := workers.NewInMemoryMetrics()
	pool := workers.New[job](p, opts, workers.WithLogger(quiet()), workers.WithMetrics(metrics))

	stop := run(t, pool)
	require.Eventually(t, func() bool { return p.settled() == 2 }, 2*time.Second, 5*time.Millisecond)
	stop()

	assert.Equal(t, []string{"explodes"}, p.failed)
	assert.Equal(t, []string{"fine"}, p.completed)
	assert.Equal(t, int64(1), metrics.GetSnapshot().WorkerPanics)
}

func TestWorkerPoolWakesOnReady(t *testing.T) {
	p := newQueueProcessor()
	opts := testOptions()
	opts.WorkerCount = 1
	opts.IdleInterval = time.Hour
	pool := workers.New[job](p, opts, workers.WithLogger(quiet()))

	stop := run(t, pool)
	defer stop()

	time.Sleep(20 * time.Millisecond)
	p.push(job{ID: "late"})
	require.Eventually(t, func() bool { return p.settled() == 1 }, time.Second, 5*time.Millisecond)
}

func TestWorkerPoolStop(t *testing.T) {
	pool := workers.New[job](newQueueProcessor(), testOptions(), workers.WithLogger(quiet()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = pool.Start(context.Background())
	}()
	require.Eventually(t, pool.Running, time.Second, time.Millisecond)

	pool.Stop()
	<-done
	assert.False(t, pool.Running())
	pool.Stop()
}

func TestWorkerPoolHooksAndMiddleware(t *testing.T) {
	p := newQueueProcessor(job{ID: "a"}, job{ID: "b", Fails: -1})

	var calls atomic.Int32
	counter := func(next workers.WorkFunc) workers.WorkFunc {
		return func(ctx context.Context, workerID string) error {
			calls.Add(1)
			return next(ctx, workerID)
		}
	}

	opts := testOptions()
	opts.WorkerCount = 1
	pool := workers.New[job](p, opts, workers.WithLogger(quiet()), workers.WithMiddleware(counter))

	var mu sync.Mutex
	var pre []string
	var post []string
	pool.AddPreProcessHooks(func(ctx context.Context, j job) error {
		mu.Lock()
		defer mu.Unlock()
		pre = append(pre, j.ID)
		return nil
	})
	pool.AddPostProcessHooks(func(ctx context.Context, j job, err error) error {
		mu.Lock()
		defer mu.Unlock()
		post = append(post, fmt.Sprintf("%s:%t", j.ID, err == nil))
		return nil
	}, workers.LogOutcomeHook[job](quiet()))

	stop := run(t, pool)
	require.Eventually(t, func() bool { return p.settled() == 2 }, 2*time.Second, 5*time.Millisecond)
	stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, pre)
	assert.Equal(t, []string{"a:true", "b:false"}, post)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestConsecutiveErrorShutdown(t *testing.T) {
	p := newQueueProcessor()
	for i := range 5 {
		p.queue = append(p.queue, job{ID: fmt.Sprintf("bad-%d", i), Fails: -1})
	}
	opts := testOptions()
	opts.WorkerCount = 1
	pool := workers.New[job](p, opts, workers.WithLogger(quiet()), workers.WithMiddleware(workers.ConsecutiveErrorShutdown(1)))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = pool.Start(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not shut down")
	}
	assert.Equal(t, 2, p.settled())
}

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := workers.NewPrometheusMetrics(reg, "test")
	again := workers.NewPrometheusMetrics(reg, "test")
	require.NotNil(t, again)

	p := newQueueProcessor(job{ID: "a"}, job{ID: "b", Fails: -1})
	opts := testOptions()
	opts.WorkerCount = 1
	pool := workers.New[job](p, opts, workers.WithLogger(quiet()), workers.WithMetrics(metrics))

	stop := run(t, pool)
	require.Eventually(t, func() bool { return p.settled() == 2 }, 2*time.Second, 5*time.Millisecond)
	stop()

	n, err := testutil.GatherAndCount(reg, "test_worker_pool_tasks_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(1), metrics.GetSnapshot().TasksCompleted)
	assert.Equal(t, int64(1), metrics.GetSnapshot().TasksFailed)
}
