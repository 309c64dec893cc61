package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/helmetwatch/internal/errors"
)

// CoordinatorMetrics counts and times coordinator operations.
type CoordinatorMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	violationsCreated *prometheus.CounterVec
	activeSessions    prometheus.Gauge
}

// NewCoordinatorMetrics creates and registers the coordinator collectors.
func NewCoordinatorMetrics(registry *prometheus.Registry) (*CoordinatorMetrics, error) {
	m := &CoordinatorMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register coordinator metrics: %w", err)
	}
	return m, nil
}

func (m *CoordinatorMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "coordinator",
			Name:      "operations_total",
			Help:      "Total number of coordinator operations by outcome",
		},
		[]string{"operation", "status"}, // status: success or the error category
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "coordinator",
			Name:      "operation_duration_seconds",
			Help:      "Time taken by coordinator operations",
			Buckets:   prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
		},
		[]string{"operation"},
	)

	m.violationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "violations_created_total",
			Help:      "Total number of violations recorded",
		},
		[]string{"source"}, // source: api, mqtt, sample
	)

	m.activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "active_sessions",
		Help:      "Number of active detection sessions as last observed",
	})
}

// RecordOperation counts one operation and observes its duration. Failures
// are labeled with their error category.
func (m *CoordinatorMetrics) RecordOperation(operation string, duration time.Duration, err error) {
	m.operationsTotal.WithLabelValues(operation, statusLabel(err)).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordViolationCreated counts a new violation from source.
func (m *CoordinatorMetrics) RecordViolationCreated(source string) {
	m.violationsCreated.WithLabelValues(source).Inc()
}

// SetActiveSessions sets the active session gauge.
func (m *CoordinatorMetrics) SetActiveSessions(count int64) {
	m.activeSessions.Set(float64(count))
}

// Describe implements the prometheus.Collector interface.
func (m *CoordinatorMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.operationsTotal.Describe(ch)
	m.operationDuration.Describe(ch)
	m.violationsCreated.Describe(ch)
	m.activeSessions.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *CoordinatorMetrics) Collect(ch chan<- prometheus.Metric) {
	m.operationsTotal.Collect(ch)
	m.operationDuration.Collect(ch)
	m.violationsCreated.Collect(ch)
	m.activeSessions.Collect(ch)
}

// statusLabel maps an operation error to a bounded label value
func statusLabel(err error) string {
	if err == nil {
		return StatusSuccess
	}
	var ee *errors.EnhancedError
	if errors.As(err, &ee) && ee.Category != "" {
		return string(ee.Category)
	}
	return StatusError
}
