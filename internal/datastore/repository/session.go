package repository

import (
	"context"
	"time"

	"github.com/tphakala/helmetwatch/internal/datastore/entities"
)

// SessionRepository handles detection session lifecycle operations.
type SessionRepository interface {
	// Start inserts a new active session.
	Start(ctx context.Context, cameraSource string) (*entities.DetectionSession, error)
	// StopAll stops every active session and returns the number stopped.
	StopAll(ctx context.Context, totalDetections int, at time.Time) (int64, error)
	// ChangeCamera sets the camera source on every active session. Zero rows
	// affected is not an error.
	ChangeCamera(ctx context.Context, cameraSource string) (int64, error)
	// Current returns the most recently started active session or ErrSessionNotFound.
	Current(ctx context.Context) (*entities.DetectionSession, error)
	// CountActive returns the number of active sessions. Inside a MySQL
	// transaction the active rows are locked until commit.
	CountActive(ctx context.Context) (int64, error)
	// GetByID returns any session, active or stopped.
	GetByID(ctx context.Context, id uint) (*entities.DetectionSession, error)
}
