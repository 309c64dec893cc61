package entities

import "time"

// CameraStatus reports whether the pipeline has a live camera feed.
type CameraStatus string

const (
	CameraConnected    CameraStatus = "connected"
	CameraDisconnected CameraStatus = "disconnected"
)

// Well-known system health values. SystemHealth is free text, these are
// the values the service itself writes.
const (
	HealthGood     = "good"
	HealthDegraded = "degraded"
)

// StatusSingletonID is the primary key of the lazily created status row.
const StatusSingletonID uint = 1

// SystemStatus is the rolling snapshot read by dashboards. The most recently
// updated row is authoritative.
type SystemStatus struct {
	ID             uint         `gorm:"primaryKey"`
	ProcessingFPS  float64      `gorm:"column:processing_fps;not null;default:0"`
	DetectionCount int64        `gorm:"not null;default:0"`
	LastDetection  *time.Time
	CameraStatus   CameraStatus `gorm:"type:varchar(16);not null;default:'disconnected'"`
	SystemHealth   string       `gorm:"type:varchar(64);not null;default:'good'"`
	UpdatedAt      time.Time    `gorm:"not null;index"`
}

// TableName returns the table name for GORM.
func (SystemStatus) TableName() string {
	return "system_status"
}

// DefaultSystemStatus returns the row created when no status exists yet.
func DefaultSystemStatus(now time.Time) SystemStatus {
	return SystemStatus{
		ID:           StatusSingletonID,
		CameraStatus: CameraDisconnected,
		SystemHealth: HealthGood,
		UpdatedAt:    now,
	}
}
