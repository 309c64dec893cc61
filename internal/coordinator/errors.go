package coordinator

import (
	"github.com/tphakala/helmetwatch/internal/errors"
)

const componentCoordinator = "coordinator"

// Sentinel errors returned by coordinator operations.
var (
	ErrSessionActive          = errors.NewStd("a detection session is already active")
	ErrMultipleActiveSessions = errors.NewStd("more than one active detection session")
	ErrCameraSourceRequired   = errors.NewStd("camera source is required")
	ErrNegativeDetections     = errors.NewStd("total detections must not be negative")
	ErrImagePathRequired      = errors.NewStd("image path is required")
	ErrConfidenceOutOfRange   = errors.NewStd("confidence must be between 0 and 1")
	ErrInvalidCameraStatus    = errors.NewStd("camera status must be connected or disconnected")
	ErrNegativeFPS            = errors.NewStd("processing fps must not be negative")
	ErrNegativeDetectionCount = errors.NewStd("detection count must not be negative")
	ErrEmptySystemHealth      = errors.NewStd("system health must not be empty")
	ErrInvalidViolationID     = errors.NewStd("invalid violation id")
	ErrEmptySettingKey        = errors.NewStd("setting key must not be empty")
	ErrNoSettings             = errors.NewStd("no settings to update")
)

// invalid builds a validation error for a rejected input
func invalid(sentinel error, operation string, kv ...any) error {
	b := errors.New(sentinel).
		Component(componentCoordinator).
		Category(errors.CategoryValidation).
		Priority(errors.PriorityLow).
		Context("operation", operation)
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			b = b.Context(key, kv[i+1])
		}
	}
	return b.Build()
}

// conflict builds a conflict error for a request that clashes with current state
func conflict(sentinel error, operation string) error {
	return errors.New(sentinel).
		Component(componentCoordinator).
		Category(errors.CategoryConflict).
		Priority(errors.PriorityLow).
		Context("operation", operation).
		Build()
}
