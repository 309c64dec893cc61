package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/helmetwatch/internal/datastore/entities"
	"github.com/tphakala/helmetwatch/internal/errors"
)

// violationRepository implements ViolationRepository.
type violationRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewViolationRepository creates a new ViolationRepository.
func NewViolationRepository(db *gorm.DB, now func() time.Time) ViolationRepository {
	return &violationRepository{db: db, now: now}
}

func (r *violationRepository) Create(ctx context.Context, violation *entities.Violation) error {
	r.prepare(violation)
	if err := r.db.WithContext(ctx).Create(violation).Error; err != nil {
		return dbError(err, "create_violation", "image_path", violation.ImagePath)
	}
	return nil
}

func (r *violationRepository) CreateBatch(ctx context.Context, violations []entities.Violation) error {
	if len(violations) == 0 {
		return nil
	}
	for i := range violations {
		r.prepare(&violations[i])
	}
	if err := r.db.WithContext(ctx).Create(&violations).Error; err != nil {
		return dbError(err, "create_violations", "count", len(violations))
	}
	return nil
}

// prepare stamps unset timestamps from the repository clock and normalizes
// them to UTC. gorm leaves non-zero CreatedAt/UpdatedAt alone on insert, so
// UpdateFlags and Create share one clock.
func (r *violationRepository) prepare(v *entities.Violation) {
	now := r.now()
	if v.ViolationTime.IsZero() {
		v.ViolationTime = now
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = now
	}
	v.ViolationTime = v.ViolationTime.UTC()
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
}

func (r *violationRepository) GetByID(ctx context.Context, id uint) (*entities.Violation, error) {
	var violation entities.Violation
	err := r.db.WithContext(ctx).First(&violation, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(ErrViolationNotFound, "get_violation", "violation_id", id)
	}
	if err != nil {
		return nil, dbError(err, "get_violation", "violation_id", id)
	}
	return &violation, nil
}

func (r *violationRepository) UpdateFlags(ctx context.Context, id uint, flags ViolationFlags) (*entities.Violation, error) {
	if flags.IsEmpty() {
		return nil, noFields("update_violation")
	}

	set := flags.assignments()
	set["updated_at"] = r.now()

	err := r.db.WithContext(ctx).
		Model(&entities.Violation{}).
		Where("id = ?", id).
		Updates(set).Error
	if err != nil {
		return nil, dbError(err, "update_violation", "violation_id", id)
	}

	// MySQL reports zero affected rows when values are unchanged, so
	// existence is decided by reading the row back
	return r.GetByID(ctx, id)
}

func (r *violationRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entities.Violation{}, id)
	if result.Error != nil {
		return dbError(result.Error, "delete_violation", "violation_id", id)
	}
	if result.RowsAffected == 0 {
		return notFound(ErrViolationNotFound, "delete_violation", "violation_id", id)
	}
	return nil
}

func (r *violationRepository) List(ctx context.Context, filter ViolationFilter, page Page) ([]entities.Violation, int64, error) {
	page = page.Normalize()

	query := filter.apply(r.db.WithContext(ctx).Model(&entities.Violation{})).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, dbError(err, "count_violations")
	}

	violations := make([]entities.Violation, 0, min(page.Limit, int(total)))
	if total > 0 {
		err := query.
			Order("violation_time DESC, id DESC").
			Offset(page.Offset()).
			Limit(page.Limit).
			Find(&violations).Error
		if err != nil {
			return nil, 0, dbError(err, "list_violations",
				"page", page.Page, "limit", page.Limit)
		}
	}

	return violations, total, nil
}
