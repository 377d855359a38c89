// Package metrics provides Prometheus metrics for block operations and HTTP
// traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kb"

var (
	// OperationsTotal counts document operations.
	// Labels: op (insert, move, ...), result (applied, noop, rejected)
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "blocks",
			Name:      "operations_total",
			Help:      "Total number of block operations by kind and outcome",
		},
		[]string{"op", "result"},
	)

	// RevisionConflicts counts optimistic concurrency rejections.
	RevisionConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "revision_conflicts_total",
			Help:      "Total number of writes rejected because the base revision was stale",
		},
	)

	// RequestDuration tracks HTTP request latency.
	// Labels: method, route, status
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

const (
	ResultApplied  = "applied"
	ResultNoop     = "noop"
	ResultRejected = "rejected"
)

// RecordOperation records the outcome of one block operation.
func RecordOperation(op string, changed bool, err error) {
	result := ResultApplied
	switch {
	case err != nil:
		result = ResultRejected
	case !changed:
		result = ResultNoop
	}
	OperationsTotal.WithLabelValues(op, result).Inc()
}

// ObserveRequest records one served HTTP request.
func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
