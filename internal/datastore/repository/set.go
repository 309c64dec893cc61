package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Set bundles the repositories over one database handle.
type Set struct {
	db      *gorm.DB
	isMySQL bool
	now     func() time.Time

	Sessions   SessionRepository
	Status     StatusRepository
	Violations ViolationRepository
	Settings   SettingsRepository
}

// NewSet creates repositories over db. A nil clock means time.Now in UTC.
func NewSet(db *gorm.DB, isMySQL bool, now func() time.Time) *Set {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	utcNow := func() time.Time { return now().UTC() }

	return &Set{
		db:         db,
		isMySQL:    isMySQL,
		now:        utcNow,
		Sessions:   NewSessionRepository(db, isMySQL, utcNow),
		Status:     NewStatusRepository(db, utcNow),
		Violations: NewViolationRepository(db, utcNow),
		Settings:   NewSettingsRepository(db, utcNow),
	}
}

// Transaction runs fn with a Set bound to one transaction. Returning an
// error from fn rolls everything back.
func (s *Set) Transaction(ctx context.Context, fn func(tx *Set) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewSet(tx, s.isMySQL, s.now))
	})
}

// Now returns the clock shared by the repositories.
func (s *Set) Now() time.Time {
	return s.now()
}
