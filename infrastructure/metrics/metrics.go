// Package metrics exposes Prometheus collectors for delegate operations,
// statements, HTTP requests and worker pools.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/infrastructure/workers"
)

const namespace = "growlog"

// Collector holds every growlog metric, registered on one registry.
type Collector struct {
	gatherer prometheus.Gatherer

	DelegateOps      *prometheus.CounterVec
	DelegateDuration *prometheus.HistogramVec
	QueryDuration    *prometheus.HistogramVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	WorkersActive    *prometheus.GaugeVec
	WorkerPanics     *prometheus.CounterVec
	Tasks            *prometheus.CounterVec
	TaskDuration     *prometheus.HistogramVec
	Retries          *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Collector{
		gatherer: reg,

		DelegateOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delegate_operations_total",
			Help:      "Delegate operations by model, action and outcome.",
		}, []string{"model", "action", "outcome"}),
		DelegateDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delegate_operation_duration_seconds",
			Help:      "Delegate operation duration in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"model", "action"}),
		QueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Statement duration in seconds by backend.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"target"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		WorkersActive: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers_active",
			Help:      "Running workers per pool.",
		}, []string{"pool"}),
		WorkerPanics: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_panics_total",
			Help:      "Recovered worker panics per pool.",
		}, []string{"pool"}),
		Tasks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_tasks_total",
			Help:      "Worker tasks by pool and outcome.",
		}, []string{"pool", "outcome"}),
		TaskDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_task_duration_seconds",
			Help:      "Worker task duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"pool"}),
		Retries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_retries_total",
			Help:      "Task retry attempts per pool.",
		}, []string{"pool"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Outcome classifies a delegate error for the outcome label.
func Outcome(err error) string {
	var known *repositories.KnownRequestError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, repositories.ErrValidation):
		return "validation"
	case errors.As(err, &known):
		return known.Code
	case errors.Is(err, repositories.ErrNotFound):
		return "not_found"
	}
	return "error"
}

// Observe implements repositories.Observer.
func (c *Collector) Observe(model, action string, took time.Duration, err error) {
	c.DelegateOps.WithLabelValues(model, action, Outcome(err)).Inc()
	c.DelegateDuration.WithLabelValues(model, action).Observe(took.Seconds())
}

// ObserveQuery implements repositories.QueryHook.
func (c *Collector) ObserveQuery(e repositories.QueryEvent) {
	c.QueryDuration.WithLabelValues(e.Target).Observe(e.Duration.Seconds())
}

// ObserveHTTP records one served request.
func (c *Collector) ObserveHTTP(method, route string, status int, took time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

// Pool returns worker pool metrics backed by the collector.
func (c *Collector) Pool() workers.PoolMetrics {
	return poolMetrics{c}
}

type poolMetrics struct {
	c *Collector
}

func (p poolMetrics) WorkerStarted(pool string)  { p.c.WorkersActive.WithLabelValues(pool).Inc() }
func (p poolMetrics) WorkerStopped(pool string)  { p.c.WorkersActive.WithLabelValues(pool).Dec() }
func (p poolMetrics) WorkerPanicked(pool string) { p.c.WorkerPanics.WithLabelValues(pool).Inc() }
func (p poolMetrics) TaskCheckedOut(pool string) { p.c.Tasks.WithLabelValues(pool, "checked_out").Inc() }
func (p poolMetrics) CheckoutFailed(pool string) { p.c.Tasks.WithLabelValues(pool, "checkout_failed").Inc() }
func (p poolMetrics) RetryAttempted(pool string) { p.c.Retries.WithLabelValues(pool).Inc() }

func (p poolMetrics) TaskCompleted(pool string, took time.Duration) {
	p.c.Tasks.WithLabelValues(pool, "completed").Inc()
	p.c.TaskDuration.WithLabelValues(pool).Observe(took.Seconds())
}

func (p poolMetrics) TaskFailed(pool string, took time.Duration) {
	p.c.Tasks.WithLabelValues(pool, "failed").Inc()
	p.c.TaskDuration.WithLabelValues(pool).Observe(took.Seconds())
}
