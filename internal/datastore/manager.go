// Package datastore opens the relational store backing the operational state
// and prepares its schema.
package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/helmetwatch/internal/datastore/entities"
	"github.com/tphakala/helmetwatch/internal/datastore/repository"
	"github.com/tphakala/helmetwatch/internal/logger"
)

// slowQueryThreshold is the duration after which queries are logged at warn.
const slowQueryThreshold = 200 * time.Millisecond

// singleActiveIndex enforces at most one active detection session.
const singleActiveIndex = "idx_detection_sessions_single_active"

// Manager defines the interface for database lifecycle operations.
type Manager interface {
	// Initialize creates the schema and constraints.
	Initialize() error
	// DB returns the underlying GORM database.
	DB() *gorm.DB
	// Path returns the database location (file path for SQLite, host/database for MySQL).
	Path() string
	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error
	// Close closes the database connection.
	Close() error
	// IsMySQL returns true if this is a MySQL manager.
	IsMySQL() bool
}

// Repositories returns a repository set over the manager's connection.
func Repositories(m Manager) *repository.Set {
	return repository.NewSet(m.DB(), m.IsMySQL(), nil)
}

// gormConfig is shared by both backends. Timestamps are generated in UTC.
func gormConfig(log logger.Logger) *gorm.Config {
	return &gorm.Config{
		Logger:  logger.NewGormLoggerAdapter(log, slowQueryThreshold),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// migrate runs auto-migration for all tables
func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(entities.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// ensureIndex creates an index with raw DDL when the migrator does not see it
func ensureIndex(db *gorm.DB, model any, name, ddl string) error {
	if db.Migrator().HasIndex(model, name) {
		return nil
	}
	if err := db.Exec(ddl).Error; err != nil {
		return fmt.Errorf("failed to create index %s: %w", name, err)
	}
	return nil
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}
