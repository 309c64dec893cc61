package coordinator

import (
	"context"
	"strings"
	"time"

	"github.com/tphakala/helmetwatch/internal/datastore/entities"
	"github.com/tphakala/helmetwatch/internal/datastore/repository"
	"github.com/tphakala/helmetwatch/internal/errors"
	"github.com/tphakala/helmetwatch/internal/logger"
)

// StartSession opens a detection session on cameraSource and marks the
// camera connected. An empty source selects the default camera. Fails with a
// conflict while another session is active.
func (c *Coordinator) StartSession(ctx context.Context, cameraSource string) (session *entities.DetectionSession, err error) {
	const op = "start_session"
	defer func(start time.Time) { c.observe(op, start, err) }(time.Now())

	cameraSource = strings.TrimSpace(cameraSource)
	if cameraSource == "" {
		cameraSource = entities.DefaultCameraSource
	}

	err = c.repos.Transaction(ctx, func(tx *repository.Set) error {
		active, err := tx.Sessions.CountActive(ctx)
		if err != nil {
			return err
		}
		if active > 0 {
			return conflict(ErrSessionActive, op)
		}

		session, err = tx.Sessions.Start(ctx, cameraSource)
		if err != nil {
			return err
		}

		_, err = tx.Status.Apply(ctx, repository.MarkSessionStarted())
		return err
	})
	if err != nil {
		// the unique index catches a start that raced past the count
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, conflict(ErrSessionActive, op)
		}
		return nil, storeError(err, op)
	}

	if c.metrics != nil {
		c.metrics.SetActiveSessions(1)
	}
	c.logger.Info("detection session started",
		logger.Uint("session_id", session.ID),
		logger.String("camera_source", cameraSource))

	return session, nil
}

// StopSession stops every active session, recording totalDetections on each,
// and marks the camera disconnected with zero fps. Stopping with no active
// session still applies the status transition.
func (c *Coordinator) StopSession(ctx context.Context, totalDetections int) (err error) {
	const op = "stop_session"
	defer func(start time.Time) { c.observe(op, start, err) }(time.Now())

	if totalDetections < 0 {
		return invalid(ErrNegativeDetections, op, "total_detections", totalDetections)
	}

	var stopped int64
	err = c.repos.Transaction(ctx, func(tx *repository.Set) error {
		var err error
		stopped, err = tx.Sessions.StopAll(ctx, totalDetections, tx.Now())
		if err != nil {
			return err
		}

		_, err = tx.Status.Apply(ctx, repository.MarkSessionStopped())
		return err
	})
	if err != nil {
		return storeError(err, op)
	}

	if c.metrics != nil {
		c.metrics.SetActiveSessions(0)
	}
	if stopped > 1 {
		c.logger.Warn("stopped more than one active session",
			logger.Int64("stopped", stopped))
	}
	c.logger.Info("detection stopped",
		logger.Int64("stopped", stopped),
		logger.Int("total_detections", totalDetections))

	return nil
}

// ChangeCamera switches the active session to cameraSource. With no active
// session it is a no-op; with more than one it fails with a conflict.
func (c *Coordinator) ChangeCamera(ctx context.Context, cameraSource string) (err error) {
	const op = "change_camera"
	defer func(start time.Time) { c.observe(op, start, err) }(time.Now())

	cameraSource = strings.TrimSpace(cameraSource)
	if cameraSource == "" {
		return invalid(ErrCameraSourceRequired, op)
	}

	var changed int64
	err = c.repos.Transaction(ctx, func(tx *repository.Set) error {
		active, err := tx.Sessions.CountActive(ctx)
		if err != nil {
			return err
		}
		if active > 1 {
			return conflict(ErrMultipleActiveSessions, op)
		}

		changed, err = tx.Sessions.ChangeCamera(ctx, cameraSource)
		return err
	})
	if err != nil {
		return storeError(err, op)
	}

	if changed == 0 {
		c.logger.Debug("camera change ignored, no active session",
			logger.String("camera_source", cameraSource))
		return nil
	}
	c.logger.Info("camera changed", logger.String("camera_source", cameraSource))
	return nil
}

// CurrentSession returns the active session, or nil when none is active.
func (c *Coordinator) CurrentSession(ctx context.Context) (session *entities.DetectionSession, err error) {
	const op = "current_session"
	defer func(start time.Time) { c.observe(op, start, err) }(time.Now())

	session, err = c.repos.Sessions.Current(ctx)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(err, op)
	}
	return session, nil
}
