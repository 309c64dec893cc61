package coordinator

import (
	"context"
	"strings"
	"time"

	"github.com/tphakala/helmetwatch/internal/datastore/entities"
	"github.com/tphakala/helmetwatch/internal/datastore/repository"
	"github.com/tphakala/helmetwatch/internal/logger"
)

// Violation sources used as the metrics label.
const (
	SourceAPI    = "api"
	SourceMQTT   = "mqtt"
	SourceSample = "sample"
)

// ViolationInput is a new violation record. Only ImagePath is required.
type ViolationInput struct {
	ImagePath              string
	LicensePlateText       *string
	LicensePlateConfidence *float64
	DetectionConfidence    *float64
	CameraSource           *string
	// ViolationTime defaults to now
	ViolationTime *time.Time
	// Source labels where the record came from; it is not stored
	Source string
}

// ViolationPage is one page of a filtered violation listing.
type ViolationPage struct {
	Violations []entities.Violation
	Page       int
	Limit      int
	Total      int64
	TotalPages int64
}

// CreateViolation appends a violation to the ledger.
func (c *Coordinator) CreateViolation(ctx context.Context, in ViolationInput) (violation *entities.Violation, err error) {
	const op = "create_violation"
	defer func(start time.Time) { c.observe(op, start, err) }(time.Now())

	if err := validateViolationInput(&in, op); err != nil {
		return nil, err
	}

	violation = in.entity()
	if err := c.repos.Violations.Create(ctx, violation); err != nil {
		return nil, storeError(err, op)
	}

	if c.metrics != nil {
		c.metrics.RecordViolationCreated(in.sourceLabel())
	}
	c.logger.Debug("violation recorded",
		logger.Uint("violation_id", violation.ID),
		logger.String("source", in.sourceLabel()))

	return violation, nil
}

// GetViolation returns one violation by id.
func (c *Coordinator) GetViolation(ctx context.Context, id uint) (violation *entities.Violation, err error) {
	const op = "get_violation"
	defer func(start time.Time) { c.observe(op, start, err) }(time.Now())

	if id == 0 {
		return nil, invalid(ErrInvalidViolationID, op)
	}

	violation, err = c.repos.Violations.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, op)
	}
	return violation, nil
}

// UpdateViolation changes the reviewed and flagged flags of a violation and
// returns the updated row. Unset flags are left untouched.
func (c *Coordinator) UpdateViolation(ctx context.Context, id uint, flags repository.ViolationFlags) (violation *entities.Violation, err error) {
	const op = "update_violation"
	defer func(start time.Time) { c.observe(op, start, err) }(time.Now())

	if id == 0 {
		return nil, invalid(ErrInvalidViolationID, op)
	}
	if flags.IsEmpty() {
		return nil, invalid(repository.ErrNoFields, op, "violation_id", id)
	}

	violation, err = c.repos.Violations.UpdateFlags(ctx, id, flags)
	if err != nil {
		return nil, storeError(err, op)
	}
	return violation, nil
}

// DeleteViolation removes a violation by id.
func (c *Coordinator) DeleteViolation(ctx context.Context, id uint) (err error) {
	const op = "delete_violation"
	defer func(start time.Time) { c.observe(op, start, err) }(time.Now())

	if id == 0 {
		return invalid(ErrInvalidViolationID, op)
	}

	if err := c.repos.Violations.Delete(ctx, id); err != nil {
		return storeError(err, op)
	}
	c.logger.Info("violation deleted", logger.Uint("violation_id", id))
	return nil
}

// ListViolations returns one page of violations matching filter, newest
// first. Page values below 1 fall back to page 1 and 20 per page. The count
// and the page are separate reads and may disagree under concurrent writes.
func (c *Coordinator) ListViolations(ctx context.Context, filter repository.ViolationFilter, page repository.Page) (result *ViolationPage, err error) {
	const op = "list_violations"
	defer func(start time.Time) { c.observe(op, start, err) }(time.Now())

	page = page.Normalize()

	items, total, err := c.repos.Violations.List(ctx, filter, page)
	if err != nil {
		return nil, storeError(err, op)
	}
	if items == nil {
		items = []entities.Violation{}
	}

	return &ViolationPage{
		Violations: items,
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      total,
		TotalPages: page.TotalPages(total),
	}, nil
}

// validateViolationInput trims string fields and checks ranges
func validateViolationInput(in *ViolationInput, op string) error {
	in.ImagePath = strings.TrimSpace(in.ImagePath)
	if in.ImagePath == "" {
		return invalid(ErrImagePathRequired, op)
	}
	if !inUnitRange(in.LicensePlateConfidence) {
		return invalid(ErrConfidenceOutOfRange, op, "field", "license_plate_confidence")
	}
	if !inUnitRange(in.DetectionConfidence) {
		return invalid(ErrConfidenceOutOfRange, op, "field", "detection_confidence")
	}
	return nil
}

// inUnitRange reports whether an optional confidence is absent or in [0, 1]
func inUnitRange(v *float64) bool {
	return v == nil || (*v >= 0 && *v <= 1)
}

func (in *ViolationInput) entity() *entities.Violation {
	v := &entities.Violation{
		ImagePath:              in.ImagePath,
		LicensePlateText:       in.LicensePlateText,
		LicensePlateConfidence: in.LicensePlateConfidence,
		DetectionConfidence:    in.DetectionConfidence,
		CameraSource:           in.CameraSource,
	}
	if in.ViolationTime != nil {
		v.ViolationTime = *in.ViolationTime
	}
	return v
}

func (in *ViolationInput) sourceLabel() string {
	if in.Source == "" {
		return SourceAPI
	}
	return in.Source
}
