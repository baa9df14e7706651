// Package metrics exposes Prometheus collectors for the catalog service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	workerTasksTotal           *prometheus.CounterVec
	taskQueueDepth             prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		workerTasksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worker_tasks_total",
				Help: "Total number of queue tasks processed, labeled by kind and result.",
			},
			[]string{"kind", "result"},
		)

		taskQueueDepth = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "task_queue_depth",
				Help: "Number of tasks waiting in the in-process queue.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveTask increments the worker task counter.
func ObserveTask(kind, result string) {
	Init()
	workerTasksTotal.WithLabelValues(kind, result).Inc()
}

// SetQueueDepth records the current task queue backlog.
func SetQueueDepth(depth int) {
	Init()
	taskQueueDepth.Set(float64(depth))
}
