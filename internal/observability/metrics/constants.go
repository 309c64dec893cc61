// Package metrics provides the Prometheus collectors for HelmetWatch components.
package metrics

import "time"

// Namespace prefixes every metric name.
const Namespace = "helmetwatch"

// Status label values.
const (
	// StatusSuccess labels an operation that returned no error.
	StatusSuccess = "success"
	// StatusError labels a failure with no more specific category.
	StatusError = "error"
)

// Histogram bucket configuration constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~4s range).
	BucketStart1ms = 0.001
	// BucketStart64B is the starting bucket for payload size histograms.
	BucketStart64B = 64.0
	// BucketFactor2 is the exponential growth factor for histogram buckets.
	BucketFactor2 = 2
	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
)

// ShutdownTimeout bounds graceful shutdown of the metrics endpoint.
const ShutdownTimeout = 5 * time.Second
