// Package metrics holds the prometheus collectors updated by the request
// middleware.
package metrics

import (
	"context"
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devcamper_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	duration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devcamper_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	errorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "devcamper_http_errors_total",
		Help: "Requests answered with an error",
	})
	panicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "devcamper_http_panics_total",
		Help: "Handler panics recovered",
	})
	goroutines = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "devcamper_goroutines",
		Help: "Goroutines sampled every thousand requests",
	})
)

var requestCount atomic.Int64

type ctxKey int

const key ctxKey = 1

type values struct {
	start time.Time
}

// Set stamps the request start on ctx.
func Set(ctx context.Context) context.Context {
	return context.WithValue(ctx, key, &values{start: time.Now()})
}

// AddRequests records a finished request and returns the running total.
func AddRequests(ctx context.Context, method, route string, status int) int64 {
	requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	if v, ok := ctx.Value(key).(*values); ok {
		duration.WithLabelValues(method, route).Observe(time.Since(v.start).Seconds())
	}
	return requestCount.Add(1)
}

// AddErrors counts a request answered with an error.
func AddErrors(ctx context.Context) {
	errorsTotal.Inc()
}

// AddPanics counts a recovered panic.
func AddPanics(ctx context.Context) {
	panicsTotal.Inc()
}

// AddGoroutines samples the goroutine count.
func AddGoroutines(ctx context.Context) int {
	n := runtime.NumGoroutine()
	goroutines.Set(float64(n))
	return n
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
