package entities

import "time"

// SessionStatus is the lifecycle state of a detection session.
type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionStopped SessionStatus = "stopped"
)

// DefaultCameraSource is used when a session is started without a camera.
const DefaultCameraSource = "0"

// DetectionSession records one run of the detection pipeline against a
// camera source. At most one row has status active.
type DetectionSession struct {
	ID              uint          `gorm:"primaryKey"`
	CameraSource    string        `gorm:"type:varchar(64);not null"`
	Status          SessionStatus `gorm:"type:varchar(16);not null;index"`
	SessionStart    time.Time     `gorm:"not null;index"`
	SessionEnd      *time.Time    // set on stop
	TotalDetections int           `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM.
func (DetectionSession) TableName() string {
	return "detection_sessions"
}

// IsActive reports whether the session is still running.
func (s *DetectionSession) IsActive() bool {
	return s.Status == SessionActive
}
