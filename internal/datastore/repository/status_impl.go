package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/helmetwatch/internal/datastore/entities"
	"github.com/tphakala/helmetwatch/internal/errors"
)

// statusRepository implements StatusRepository.
type statusRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStatusRepository creates a new StatusRepository.
func NewStatusRepository(db *gorm.DB, now func() time.Time) StatusRepository {
	return &statusRepository{db: db, now: now}
}

func (r *statusRepository) Get(ctx context.Context) (*entities.SystemStatus, error) {
	status, err := r.current(r.db.WithContext(ctx))
	if err != nil {
		return nil, dbError(err, "get_status")
	}
	return status, nil
}

func (r *statusRepository) Apply(ctx context.Context, update StatusUpdate) (*entities.SystemStatus, error) {
	if update.IsEmpty() {
		return nil, noFields("apply_status_update")
	}

	var applied *entities.SystemStatus
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := r.current(tx)
		if err != nil {
			return err
		}

		set := update.assignments()
		set["updated_at"] = r.now()

		if err := tx.Model(&entities.SystemStatus{}).
			Where("id = ?", current.ID).
			Updates(set).Error; err != nil {
			return err
		}

		var row entities.SystemStatus
		if err := tx.First(&row, current.ID).Error; err != nil {
			return err
		}
		applied = &row
		return nil
	})
	if err != nil {
		return nil, dbError(err, "apply_status_update")
	}
	return applied, nil
}

// current reads the authoritative row. When the table is empty the default
// row is inserted under the well-known id, so concurrent first reads converge
// on one row instead of racing to create several.
func (r *statusRepository) current(db *gorm.DB) (*entities.SystemStatus, error) {
	var status entities.SystemStatus
	err := latestStatus(db).First(&status).Error
	if err == nil {
		return &status, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	def := entities.DefaultSystemStatus(r.now())
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&def).Error; err != nil {
		return nil, err
	}

	if err := latestStatus(db).First(&status).Error; err != nil {
		return nil, err
	}
	return &status, nil
}

func latestStatus(db *gorm.DB) *gorm.DB {
	return db.Model(&entities.SystemStatus{}).Order("updated_at DESC, id DESC")
}
