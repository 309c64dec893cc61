package datastore

import (
	"fmt"

	"github.com/tphakala/helmetwatch/internal/conf"
	"github.com/tphakala/helmetwatch/internal/logger"
)

// Open connects to the backend enabled in settings and initializes the
// schema. The caller owns the returned manager and must Close it.
func Open(settings *conf.Settings, log logger.Logger) (Manager, error) {
	log = log.Module("datastore")

	var (
		m   Manager
		err error
	)

	switch {
	case settings.Output.MySQL.Enabled:
		mc := settings.Output.MySQL
		m, err = NewMySQLManager(&MySQLConfig{
			Host:     mc.Host,
			Port:     mc.Port,
			Username: mc.Username,
			Password: mc.Password,
			Database: mc.Database,
		}, log.Module("mysql"))
	case settings.Output.SQLite.Enabled:
		m, err = NewSQLiteManager(settings.Output.SQLite.Path, log.Module("sqlite"))
	default:
		return nil, fmt.Errorf("no database backend enabled")
	}
	if err != nil {
		return nil, err
	}

	if err := m.Initialize(); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("failed to initialize database at %s: %w", m.Path(), err)
	}

	log.Info("database ready",
		logger.String("path", m.Path()),
		logger.Bool("mysql", m.IsMySQL()))

	return m, nil
}
