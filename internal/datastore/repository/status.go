package repository

import (
	"context"
	"time"

	"github.com/tphakala/helmetwatch/internal/datastore/entities"
)

// StatusRepository owns the system status projection.
//
// Reads are not linearizable with concurrent writers: a caller may observe a
// snapshot that a concurrent Apply is about to supersede.
type StatusRepository interface {
	// Get returns the most recently updated status row, creating the default
	// row on first use.
	Get(ctx context.Context) (*entities.SystemStatus, error)
	// Apply writes the set fields of update and stamps updated_at. An empty
	// update fails with ErrNoFields.
	Apply(ctx context.Context, update StatusUpdate) (*entities.SystemStatus, error)
}

// StatusUpdate is a partial status write. Nil fields are left untouched.
// ClearLastDetection sets last_detection to NULL and is ignored when
// LastDetection is set.
type StatusUpdate struct {
	ProcessingFPS      *float64
	DetectionCount     *int64
	LastDetection      *time.Time
	ClearLastDetection bool
	CameraStatus       *entities.CameraStatus
	SystemHealth       *string
}

// IsEmpty reports whether the update sets no field.
func (u StatusUpdate) IsEmpty() bool {
	return u.ProcessingFPS == nil &&
		u.DetectionCount == nil &&
		u.LastDetection == nil &&
		!u.ClearLastDetection &&
		u.CameraStatus == nil &&
		u.SystemHealth == nil
}

// assignments maps the set fields to their columns. Column names are fixed
// here and never derived from caller input.
func (u StatusUpdate) assignments() map[string]any {
	set := make(map[string]any, 5)
	if u.ProcessingFPS != nil {
		set["processing_fps"] = *u.ProcessingFPS
	}
	if u.DetectionCount != nil {
		set["detection_count"] = *u.DetectionCount
	}
	switch {
	case u.LastDetection != nil:
		set["last_detection"] = u.LastDetection.UTC()
	case u.ClearLastDetection:
		set["last_detection"] = nil
	}
	if u.CameraStatus != nil {
		set["camera_status"] = *u.CameraStatus
	}
	if u.SystemHealth != nil {
		set["system_health"] = *u.SystemHealth
	}
	return set
}

// MarkSessionStarted is the status transition applied when a session starts.
func MarkSessionStarted() StatusUpdate {
	camera := entities.CameraConnected
	health := entities.HealthGood
	return StatusUpdate{CameraStatus: &camera, SystemHealth: &health}
}

// MarkSessionStopped is the status transition applied when sessions stop.
func MarkSessionStopped() StatusUpdate {
	camera := entities.CameraDisconnected
	fps := 0.0
	return StatusUpdate{CameraStatus: &camera, ProcessingFPS: &fps}
}
