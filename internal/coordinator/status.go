package coordinator

import (
	"context"
	"strings"
	"time"

	"github.com/tphakala/helmetwatch/internal/datastore/entities"
	"github.com/tphakala/helmetwatch/internal/datastore/repository"
	"github.com/tphakala/helmetwatch/internal/logger"
)

// GetStatus returns the current status projection, creating the default row
// on first use. The snapshot may be superseded by a concurrent update.
func (c *Coordinator) GetStatus(ctx context.Context) (status *entities.SystemStatus, err error) {
	const op = "get_status"
	defer func(start time.Time) { c.observe(op, start, err) }(time.Now())

	status, err = c.repos.Status.Get(ctx)
	if err != nil {
		return nil, storeError(err, op)
	}
	return status, nil
}

// ApplyStatusUpdate writes the set fields of update and returns the updated
// projection. An update with no fields is rejected.
func (c *Coordinator) ApplyStatusUpdate(ctx context.Context, update repository.StatusUpdate) (status *entities.SystemStatus, err error) {
	const op = "apply_status_update"
	defer func(start time.Time) { c.observe(op, start, err) }(time.Now())

	if err := validateStatusUpdate(update, op); err != nil {
		return nil, err
	}

	status, err = c.repos.Status.Apply(ctx, update)
	if err != nil {
		return nil, storeError(err, op)
	}
	return status, nil
}

// RecordHealth sets system_health. An empty health asks the host probe when
// one is configured, records "degraded" when the probe fails and "good" when
// there is no probe.
func (c *Coordinator) RecordHealth(ctx context.Context, health string) (status *entities.SystemStatus, err error) {
	const op = "record_health"
	defer func(start time.Time) { c.observe(op, start, err) }(time.Now())

	health = strings.TrimSpace(health)
	if health == "" && c.probe != nil {
		health, err = c.probe.Check(ctx)
		if err != nil {
			c.logger.Warn("host health probe failed", logger.Error(err))
			health = entities.HealthDegraded
		}
	}
	if health == "" {
		health = entities.HealthGood
	}

	status, err = c.repos.Status.Apply(ctx, repository.StatusUpdate{SystemHealth: &health})
	if err != nil {
		return nil, storeError(err, op)
	}

	c.logger.Debug("system health recorded", logger.String("system_health", health))
	return status, nil
}

func validateStatusUpdate(u repository.StatusUpdate, op string) error {
	if u.IsEmpty() {
		return invalid(repository.ErrNoFields, op)
	}
	if u.ProcessingFPS != nil && *u.ProcessingFPS < 0 {
		return invalid(ErrNegativeFPS, op, "processing_fps", *u.ProcessingFPS)
	}
	if u.DetectionCount != nil && *u.DetectionCount < 0 {
		return invalid(ErrNegativeDetectionCount, op, "detection_count", *u.DetectionCount)
	}
	if u.CameraStatus != nil {
		switch *u.CameraStatus {
		case entities.CameraConnected, entities.CameraDisconnected:
		default:
			return invalid(ErrInvalidCameraStatus, op, "camera_status", string(*u.CameraStatus))
		}
	}
	if u.SystemHealth != nil && strings.TrimSpace(*u.SystemHealth) == "" {
		return invalid(ErrEmptySystemHealth, op)
	}
	return nil
}
