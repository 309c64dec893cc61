package mqtt

import (
	"time"

	"github.com/tphakala/helmetwatch/internal/coordinator"
	"github.com/tphakala/helmetwatch/internal/datastore/entities"
	"github.com/tphakala/helmetwatch/internal/datastore/repository"
)

// ViolationMessage is the payload published by the detection pipeline on
// <prefix>/violations. Field names match the HTTP create body.
type ViolationMessage struct {
	ImagePath              string     `json:"image_path"`
	LicensePlateText       *string    `json:"license_plate_text,omitempty"`
	LicensePlateConfidence *float64   `json:"license_plate_confidence,omitempty"`
	DetectionConfidence    *float64   `json:"detection_confidence,omitempty"`
	CameraSource           *string    `json:"camera_source,omitempty"`
	ViolationTime          *time.Time `json:"violation_time,omitempty"`
}

func (m *ViolationMessage) input() coordinator.ViolationInput {
	return coordinator.ViolationInput{
		ImagePath:              m.ImagePath,
		LicensePlateText:       m.LicensePlateText,
		LicensePlateConfidence: m.LicensePlateConfidence,
		DetectionConfidence:    m.DetectionConfidence,
		CameraSource:           m.CameraSource,
		ViolationTime:          m.ViolationTime,
		Source:                 coordinator.SourceMQTT,
	}
}

// StatusMessage is a partial status published on <prefix>/status. Absent
// keys leave the stored value untouched.
type StatusMessage struct {
	ProcessingFPS  *float64   `json:"processing_fps,omitempty"`
	DetectionCount *int64     `json:"detection_count,omitempty"`
	LastDetection  *time.Time `json:"last_detection,omitempty"`
	CameraStatus   *string    `json:"camera_status,omitempty"`
	SystemHealth   *string    `json:"system_health,omitempty"`
}

func (m *StatusMessage) update() repository.StatusUpdate {
	u := repository.StatusUpdate{
		ProcessingFPS:  m.ProcessingFPS,
		DetectionCount: m.DetectionCount,
		LastDetection:  m.LastDetection,
		SystemHealth:   m.SystemHealth,
	}
	if m.CameraStatus != nil {
		cs := entities.CameraStatus(*m.CameraStatus)
		u.CameraStatus = &cs
	}
	return u
}
