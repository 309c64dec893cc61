package repository

import (
	"context"

	"github.com/tphakala/helmetwatch/internal/datastore/entities"
)

// ViolationRepository handles the violation ledger.
type ViolationRepository interface {
	Create(ctx context.Context, violation *entities.Violation) error
	// CreateBatch inserts several violations in one statement.
	CreateBatch(ctx context.Context, violations []entities.Violation) error
	GetByID(ctx context.Context, id uint) (*entities.Violation, error)
	// UpdateFlags changes only reviewed, flagged and updated_at.
	UpdateFlags(ctx context.Context, id uint, flags ViolationFlags) (*entities.Violation, error)
	Delete(ctx context.Context, id uint) error
	// List returns one page ordered by violation_time descending, plus the
	// number of rows matching the filter. Not linearizable with concurrent
	// writers.
	List(ctx context.Context, filter ViolationFilter, page Page) ([]entities.Violation, int64, error)
}

// ViolationFlags is a partial update of the two mutable review flags.
type ViolationFlags struct {
	Reviewed *bool
	Flagged  *bool
}

// IsEmpty reports whether neither flag is set.
func (f ViolationFlags) IsEmpty() bool {
	return f.Reviewed == nil && f.Flagged == nil
}

func (f ViolationFlags) assignments() map[string]any {
	set := make(map[string]any, 3)
	if f.Reviewed != nil {
		set["reviewed"] = *f.Reviewed
	}
	if f.Flagged != nil {
		set["flagged"] = *f.Flagged
	}
	return set
}
