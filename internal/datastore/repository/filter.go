package repository

import (
	"time"

	"gorm.io/gorm"
)

// Pagination defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 20
)

// ViolationFilter is a conjunction of optional predicates. Nil fields are
// omitted from the query entirely.
type ViolationFilter struct {
	Reviewed  *bool
	Flagged   *bool
	StartDate *time.Time // violation_time >= StartDate
	EndDate   *time.Time // violation_time <= EndDate
}

// apply adds the set predicates as parameterized conditions.
func (f ViolationFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Reviewed != nil {
		q = q.Where("reviewed = ?", *f.Reviewed)
	}
	if f.Flagged != nil {
		q = q.Where("flagged = ?", *f.Flagged)
	}
	if f.StartDate != nil {
		q = q.Where("violation_time >= ?", f.StartDate.UTC())
	}
	if f.EndDate != nil {
		q = q.Where("violation_time <= ?", f.EndDate.UTC())
	}
	return q
}

// Page selects a window of results. Page is 1-based.
type Page struct {
	Page  int
	Limit int
}

// Normalize fills defaults for unset or non-positive values.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	return p
}

// Offset returns the number of rows skipped before this page.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages returns the page count for total rows at this page size.
func (p Page) TotalPages(total int64) int64 {
	if p.Limit < 1 || total <= 0 {
		return 0
	}
	limit := int64(p.Limit)
	return (total + limit - 1) / limit
}
