package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/tphakala/helmetwatch/internal/coordinator"
	"github.com/tphakala/helmetwatch/internal/datastore/entities"
	"github.com/tphakala/helmetwatch/internal/datastore/repository"
)

// ViolationResponse is the JSON form of a stored violation
type ViolationResponse struct {
	ID                     uint      `json:"id"`
	ViolationTime          time.Time `json:"violation_time"`
	ImagePath              string    `json:"image_path"`
	LicensePlateText       *string   `json:"license_plate_text"`
	LicensePlateConfidence *float64  `json:"license_plate_confidence"`
	DetectionConfidence    *float64  `json:"detection_confidence"`
	CameraSource           *string   `json:"camera_source"`
	Reviewed               bool      `json:"reviewed"`
	Flagged                bool      `json:"flagged"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func newViolationResponse(v *entities.Violation) ViolationResponse {
	return ViolationResponse{
		ID:                     v.ID,
		ViolationTime:          v.ViolationTime.UTC(),
		ImagePath:              v.ImagePath,
		LicensePlateText:       v.LicensePlateText,
		LicensePlateConfidence: v.LicensePlateConfidence,
		DetectionConfidence:    v.DetectionConfidence,
		CameraSource:           v.CameraSource,
		Reviewed:               v.Reviewed,
		Flagged:                v.Flagged,
		CreatedAt:              v.CreatedAt.UTC(),
		UpdatedAt:              v.UpdatedAt.UTC(),
	}
}

func newViolationResponses(vs []entities.Violation) []ViolationResponse {
	out := make([]ViolationResponse, 0, len(vs))
	for i := range vs {
		out = append(out, newViolationResponse(&vs[i]))
	}
	return out
}

// Pagination describes the window returned by a list request
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// ViolationListResponse is the body of GET /api/v2/violations
type ViolationListResponse struct {
	Violations []ViolationResponse `json:"violations"`
	Pagination Pagination          `json:"pagination"`
}

func newViolationListResponse(p *coordinator.ViolationPage) ViolationListResponse {
	return ViolationListResponse{
		Violations: newViolationResponses(p.Violations),
		Pagination: Pagination{
			Page:       p.Page,
			Limit:      p.Limit,
			Total:      p.Total,
			TotalPages: p.TotalPages,
		},
	}
}

// CreateViolationRequest is the body of POST /api/v2/violations
type CreateViolationRequest struct {
	ImagePath              string     `json:"image_path"`
	LicensePlateText       *string    `json:"license_plate_text"`
	LicensePlateConfidence *float64   `json:"license_plate_confidence"`
	DetectionConfidence    *float64   `json:"detection_confidence"`
	CameraSource           *string    `json:"camera_source"`
	ViolationTime          *time.Time `json:"violation_time"`
}

func (r *CreateViolationRequest) input() coordinator.ViolationInput {
	return coordinator.ViolationInput{
		ImagePath:              r.ImagePath,
		LicensePlateText:       r.LicensePlateText,
		LicensePlateConfidence: r.LicensePlateConfidence,
		DetectionConfidence:    r.DetectionConfidence,
		CameraSource:           r.CameraSource,
		ViolationTime:          r.ViolationTime,
		Source:                 coordinator.SourceAPI,
	}
}

// UpdateViolationRequest is the body of PUT /api/v2/violations/:id
type UpdateViolationRequest struct {
	Reviewed *bool `json:"reviewed"`
	Flagged  *bool `json:"flagged"`
}

// SampleResponse is the body of POST /api/v2/violations/sample
type SampleResponse struct {
	Message    string              `json:"message"`
	Count      int                 `json:"count"`
	Violations []ViolationResponse `json:"violations"`
}

// MessageResponse carries a human readable confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

// StatusResponse is the JSON form of the system status row
type StatusResponse struct {
	ProcessingFPS  float64    `json:"processing_fps"`
	DetectionCount int64      `json:"detection_count"`
	LastDetection  *time.Time `json:"last_detection"`
	CameraStatus   string     `json:"camera_status"`
	SystemHealth   string     `json:"system_health"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func newStatusResponse(s *entities.SystemStatus) StatusResponse {
	resp := StatusResponse{
		ProcessingFPS:  s.ProcessingFPS,
		DetectionCount: s.DetectionCount,
		CameraStatus:   string(s.CameraStatus),
		SystemHealth:   s.SystemHealth,
		UpdatedAt:      s.UpdatedAt.UTC(),
	}
	if s.LastDetection != nil {
		t := s.LastDetection.UTC()
		resp.LastDetection = &t
	}
	return resp
}

// StatusUpdateRequest is a partial status; absent keys are left untouched
// and an explicit null last_detection clears it
type StatusUpdateRequest struct {
	ProcessingFPS  *float64     `json:"processing_fps"`
	DetectionCount *int64       `json:"detection_count"`
	LastDetection  optionalTime `json:"last_detection"`
	CameraStatus   *string      `json:"camera_status"`
	SystemHealth   *string      `json:"system_health"`
}

// optionalTime tells an absent key apart from an explicit null
type optionalTime struct {
	Present bool
	Value   *time.Time
}

func (o *optionalTime) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	o.Value = &t
	return nil
}

func (r *StatusUpdateRequest) update() repository.StatusUpdate {
	u := repository.StatusUpdate{
		ProcessingFPS:      r.ProcessingFPS,
		DetectionCount:     r.DetectionCount,
		LastDetection:      r.LastDetection.Value,
		ClearLastDetection: r.LastDetection.Present && r.LastDetection.Value == nil,
		SystemHealth:       r.SystemHealth,
	}
	if r.CameraStatus != nil {
		cs := entities.CameraStatus(*r.CameraStatus)
		u.CameraStatus = &cs
	}
	return u
}

// SessionResponse is the JSON form of a detection session
type SessionResponse struct {
	ID              uint       `json:"id"`
	CameraSource    string     `json:"camera_source"`
	Status          string     `json:"status"`
	SessionStart    time.Time  `json:"session_start"`
	SessionEnd      *time.Time `json:"session_end"`
	TotalDetections int        `json:"total_detections"`
}

func newSessionResponse(s *entities.DetectionSession) *SessionResponse {
	if s == nil {
		return nil
	}
	resp := &SessionResponse{
		ID:              s.ID,
		CameraSource:    s.CameraSource,
		Status:          string(s.Status),
		SessionStart:    s.SessionStart.UTC(),
		TotalDetections: s.TotalDetections,
	}
	if s.SessionEnd != nil {
		t := s.SessionEnd.UTC()
		resp.SessionEnd = &t
	}
	return resp
}
