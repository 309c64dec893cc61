// Package coordinator is the single entry point transports use to drive the
// operational state: detection sessions, the status projection, the violation
// ledger and operator settings.
//
// Every method validates its input before touching the store and returns
// categorized errors from internal/errors. Callers branch on
// errors.IsValidation, errors.IsNotFound and errors.IsConflict; anything else
// is a store failure.
package coordinator

import (
	"context"
	"time"

	"github.com/tphakala/helmetwatch/internal/datastore/repository"
	"github.com/tphakala/helmetwatch/internal/errors"
	"github.com/tphakala/helmetwatch/internal/logger"
)

// MetricsRecorder receives operation outcomes. It is satisfied by
// observability.Metrics.
type MetricsRecorder interface {
	RecordOperation(operation string, duration time.Duration, err error)
	RecordViolationCreated(source string)
	SetActiveSessions(count int64)
}

// HealthProbe evaluates host health for the system_health_check action.
type HealthProbe interface {
	Check(ctx context.Context) (string, error)
}

// Coordinator sequences repository calls into the operations exposed to
// transports. It holds no mutable state of its own.
type Coordinator struct {
	repos   *repository.Set
	logger  logger.Logger
	metrics MetricsRecorder
	probe   HealthProbe
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. The default is the global "coordinator" module.
func WithLogger(l logger.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records operation counts and durations.
func WithMetrics(m MetricsRecorder) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithHealthProbe enables host checks when a health check carries no explicit value.
func WithHealthProbe(p HealthProbe) Option {
	return func(c *Coordinator) {
		c.probe = p
	}
}

// New creates a Coordinator over repos.
func New(repos *repository.Set, opts ...Option) *Coordinator {
	c := &Coordinator{
		repos:  repos,
		logger: logger.Global().Module("coordinator"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// observe reports an operation outcome to the metrics recorder
func (c *Coordinator) observe(operation string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordOperation(operation, time.Since(start), err)
}

// storeError wraps errors that escaped the repositories uncategorized, such
// as a failed commit. Already categorized errors pass through unchanged.
func storeError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return err
	}

	b := errors.New(err).
		Component(componentCoordinator).
		Context("operation", operation)

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		// category detected from the context error
	default:
		b = b.Category(errors.CategoryDatabase)
	}
	return b.Build()
}
