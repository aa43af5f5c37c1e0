package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики выполнения functions.
var (
	// ExecutionsTotal — количество выполнений по итоговому статусу.
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bricks_executions_total",
		Help: "Total number of function executions by final status",
	}, []string{"status"})

	// ExecutionDuration — длительность выполнения function.
	ExecutionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bricks_execution_duration_seconds",
		Help:    "Function execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	// BrickInvocationsTotal — количество вызовов bricks по типу и результату.
	BrickInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bricks_brick_invocations_total",
		Help: "Total number of brick invocations by type and result",
	}, []string{"brick_type", "result"})

	// ValidationFailuresTotal — количество снимков, не прошедших проверку.
	ValidationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bricks_validation_failures_total",
		Help: "Total number of function snapshots rejected by validation",
	})
)

// RegisterActiveExecutions отдаёт количество выполняющихся запусков
// как gauge bricks_active_executions.
func RegisterActiveExecutions(count func() int) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "bricks_active_executions",
		Help: "Number of function executions currently running",
	}, func() float64 {
		return float64(count())
	})
}

// Метрики HTTP API.
var (
	// HTTPRequestsTotal — количество запросов по шаблону маршрута и статусу.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bricks_http_requests_total",
		Help: "Total number of HTTP requests by route pattern and status code",
	}, []string{"route", "code"})

	// HTTPRequestDuration — длительность обработки запроса.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bricks_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// Метрики worker.
var (
	// RunRequestsTotal — обработанные запросы из runs.requested по итогу.
	RunRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bricks_run_requests_total",
		Help: "Total number of queued run requests processed by the worker",
	}, []string{"status"})
)
