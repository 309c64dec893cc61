package repository

import (
	"context"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/tphakala/helmetwatch/internal/errors"
)

// Sentinel errors for repository operations.
var (
	// ErrSessionNotFound indicates no active detection session exists.
	ErrSessionNotFound = errors.NewStd("session not found")

	// ErrViolationNotFound indicates the requested violation does not exist.
	ErrViolationNotFound = errors.NewStd("violation not found")

	// ErrNoFields indicates an update carried no fields to apply.
	ErrNoFields = errors.NewStd("no fields to update")

	// ErrDuplicateKey indicates a unique constraint violation.
	ErrDuplicateKey = errors.NewStd("duplicate key")
)

// mysqlDuplicateEntry is the MySQL error number for ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

const componentDatastore = "datastore"

// notFound wraps a not-found sentinel with its category
func notFound(sentinel error, operation string, kv ...any) error {
	return withContext(errors.New(sentinel).
		Component(componentDatastore).
		Category(errors.CategoryNotFound).
		Context("operation", operation), kv).
		Build()
}

// noFields reports an empty partial update
func noFields(operation string) error {
	return errors.New(ErrNoFields).
		Component(componentDatastore).
		Category(errors.CategoryValidation).
		Context("operation", operation).
		Build()
}

// dbError categorizes a store failure. Unique violations become conflicts and
// context errors keep their timeout or cancellation category.
func dbError(err error, operation string, kv ...any) error {
	category := errors.CategoryDatabase
	priority := errors.PriorityMedium

	switch {
	case IsUniqueViolation(err):
		category = errors.CategoryConflict
		priority = errors.PriorityLow
		err = errors.Join(ErrDuplicateKey, err)
	case errors.Is(err, context.DeadlineExceeded):
		category = errors.CategoryTimeout
	case errors.Is(err, context.Canceled):
		category = errors.CategoryCancellation
		priority = errors.PriorityLow
	}

	return withContext(errors.New(err).
		Component(componentDatastore).
		Category(category).
		Priority(priority).
		Context("operation", operation), kv).
		Build()
}

func withContext(b *errors.ErrorBuilder, kv []any) *errors.ErrorBuilder {
	for i := 0; i < len(kv)-1; i += 2 {
		if key, ok := kv[i].(string); ok {
			b = b.Context(key, kv[i+1])
		}
	}
	return b
}

// IsUniqueViolation reports whether err is a unique or primary key
// constraint failure from SQLite or MySQL.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}

	return errors.Is(err, gorm.ErrDuplicatedKey)
}
