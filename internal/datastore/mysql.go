package datastore

import (
	"context"
	"fmt"
	"net"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tphakala/helmetwatch/internal/datastore/entities"
	"github.com/tphakala/helmetwatch/internal/logger"
)

// MySQLConfig holds MySQL connection settings.
type MySQLConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DSN formats the config as a go-sql-driver DSN. Times are read and
// written in UTC.
func (c *MySQLConfig) DSN() string {
	mc := mysqldriver.NewConfig()
	mc.User = c.Username
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, c.Port)
	mc.DBName = c.Database
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// MySQLManager handles the MySQL database.
type MySQLManager struct {
	db       *gorm.DB
	location string // host:port/database for display
}

// NewMySQLManager connects to MySQL using cfg.
func NewMySQLManager(cfg *MySQLConfig, log logger.Logger) (*MySQLManager, error) {
	m, err := NewMySQLManagerFromDSN(cfg.DSN(), log)
	if err != nil {
		return nil, err
	}
	m.location = fmt.Sprintf("%s:%s/%s", cfg.Host, cfg.Port, cfg.Database)
	return m, nil
}

// NewMySQLManagerFromDSN connects to MySQL using a prepared DSN.
func NewMySQLManagerFromDSN(dsn string, log logger.Logger) (*MySQLManager, error) {
	parsed, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	if !parsed.ParseTime {
		return nil, fmt.Errorf("MySQL DSN must set parseTime=true")
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &MySQLManager{
		db:       db,
		location: fmt.Sprintf("%s/%s", parsed.Addr, parsed.DBName),
	}, nil
}

// Initialize creates the schema and the single-active-session index.
func (m *MySQLManager) Initialize() error {
	if err := migrate(m.db); err != nil {
		return err
	}

	// MySQL has no partial indexes. A functional key part that is NULL for
	// stopped rows gives the same guarantee, since UNIQUE admits many NULLs.
	return ensureIndex(m.db, &entities.DetectionSession{}, singleActiveIndex,
		"CREATE UNIQUE INDEX "+singleActiveIndex+
			" ON detection_sessions ((CASE WHEN status = 'active' THEN 1 END))")
}

// DB returns the underlying GORM database.
func (m *MySQLManager) DB() *gorm.DB { return m.db }

// Path returns host:port/database.
func (m *MySQLManager) Path() string { return m.location }

// Ping checks the connection.
func (m *MySQLManager) Ping(ctx context.Context) error { return ping(ctx, m.db) }

// Close closes the database connection.
func (m *MySQLManager) Close() error { return closeDB(m.db) }

// IsMySQL returns true for MySQL manager.
func (m *MySQLManager) IsMySQL() bool { return true }
