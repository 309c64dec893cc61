package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/helmetwatch/internal/datastore/entities"
	"github.com/tphakala/helmetwatch/internal/logger"
)

// SQLiteManager handles the SQLite database.
type SQLiteManager struct {
	db     *gorm.DB
	dbPath string
}

// NewSQLiteManager opens (creating if needed) the SQLite database at dbPath.
func NewSQLiteManager(dbPath string, log logger.Logger) (*SQLiteManager, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Build DSN with recommended SQLite pragmas
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", dbPath)

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	return &SQLiteManager{db: db, dbPath: dbPath}, nil
}

// Initialize creates the schema and the single-active-session index.
func (m *SQLiteManager) Initialize() error {
	if err := migrate(m.db); err != nil {
		return err
	}

	// SQLite supports partial indexes, so uniqueness only applies to active rows
	return ensureIndex(m.db, &entities.DetectionSession{}, singleActiveIndex,
		"CREATE UNIQUE INDEX IF NOT EXISTS "+singleActiveIndex+
			" ON detection_sessions(status) WHERE status = 'active'")
}

// DB returns the underlying GORM database.
func (m *SQLiteManager) DB() *gorm.DB { return m.db }

// Path returns the database file path.
func (m *SQLiteManager) Path() string { return m.dbPath }

// Ping checks the connection.
func (m *SQLiteManager) Ping(ctx context.Context) error { return ping(ctx, m.db) }

// Close closes the database connection.
func (m *SQLiteManager) Close() error { return closeDB(m.db) }

// IsMySQL returns false for SQLite manager.
func (m *SQLiteManager) IsMySQL() bool { return false }
