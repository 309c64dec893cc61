package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/helmetwatch/internal/datastore/entities"
	"github.com/tphakala/helmetwatch/internal/errors"
)

// sessionRepository implements SessionRepository.
type sessionRepository struct {
	db      *gorm.DB
	isMySQL bool
	now     func() time.Time
}

// NewSessionRepository creates a new SessionRepository.
// Parameters:
//   - db: GORM database connection or transaction
//   - isMySQL: true for MySQL, enables row locking in CountActive
//   - now: clock used for session_start
func NewSessionRepository(db *gorm.DB, isMySQL bool, now func() time.Time) SessionRepository {
	return &sessionRepository{db: db, isMySQL: isMySQL, now: now}
}

func (r *sessionRepository) Start(ctx context.Context, cameraSource string) (*entities.DetectionSession, error) {
	session := &entities.DetectionSession{
		CameraSource: cameraSource,
		Status:       entities.SessionActive,
		SessionStart: r.now(),
	}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, dbError(err, "start_session", "camera_source", cameraSource)
	}
	return session, nil
}

func (r *sessionRepository) StopAll(ctx context.Context, totalDetections int, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&entities.DetectionSession{}).
		Where("status = ?", entities.SessionActive).
		Updates(map[string]any{
			"status":           entities.SessionStopped,
			"session_end":      at.UTC(),
			"total_detections": totalDetections,
		})
	if result.Error != nil {
		return 0, dbError(result.Error, "stop_sessions")
	}
	return result.RowsAffected, nil
}

func (r *sessionRepository) ChangeCamera(ctx context.Context, cameraSource string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&entities.DetectionSession{}).
		Where("status = ?", entities.SessionActive).
		Update("camera_source", cameraSource)
	if result.Error != nil {
		return 0, dbError(result.Error, "change_camera", "camera_source", cameraSource)
	}
	return result.RowsAffected, nil
}

func (r *sessionRepository) Current(ctx context.Context) (*entities.DetectionSession, error) {
	var session entities.DetectionSession
	err := r.db.WithContext(ctx).
		Where("status = ?", entities.SessionActive).
		Order("session_start DESC, id DESC").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(ErrSessionNotFound, "current_session")
	}
	if err != nil {
		return nil, dbError(err, "current_session")
	}
	return &session, nil
}

func (r *sessionRepository) CountActive(ctx context.Context) (int64, error) {
	q := r.db.WithContext(ctx).Model(&entities.DetectionSession{}).
		Where("status = ?", entities.SessionActive)

	if r.isMySQL {
		// COUNT(*) cannot take FOR UPDATE on its own; lock the ids instead
		var ids []uint
		if err := q.Clauses(clause.Locking{Strength: "UPDATE"}).
			Pluck("id", &ids).Error; err != nil {
			return 0, dbError(err, "count_active_sessions")
		}
		return int64(len(ids)), nil
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, dbError(err, "count_active_sessions")
	}
	return count, nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id uint) (*entities.DetectionSession, error) {
	var session entities.DetectionSession
	err := r.db.WithContext(ctx).First(&session, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(ErrSessionNotFound, "get_session", "session_id", id)
	}
	if err != nil {
		return nil, dbError(err, "get_session", "session_id", id)
	}
	return &session, nil
}
