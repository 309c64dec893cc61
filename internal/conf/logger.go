package conf

import "github.com/tphakala/helmetwatch/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// The logger is fetched from the global logger each time since config is
// loaded before the central logger exists.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
