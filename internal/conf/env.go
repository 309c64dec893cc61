// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tphakala/helmetwatch/internal/logger"
)

// envPrefix is prepended to every environment variable name
const envPrefix = "HELMETWATCH"

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "HELMETWATCH_DEBUG", validateEnvBool},
		{"logging.default_level", "HELMETWATCH_LOG_LEVEL", validateEnvLogLevel},

		// Web server
		{"webserver.listen", "HELMETWATCH_LISTEN", validateEnvListen},
		{"webserver.maxpagelimit", "HELMETWATCH_MAX_PAGE_LIMIT", validateEnvNonNegativeInt},

		// Storage
		{"output.sqlite.enabled", "HELMETWATCH_SQLITE_ENABLED", validateEnvBool},
		{"output.sqlite.path", "HELMETWATCH_SQLITE_PATH", validateEnvPath},
		{"output.mysql.enabled", "HELMETWATCH_MYSQL_ENABLED", validateEnvBool},
		{"output.mysql.host", "HELMETWATCH_MYSQL_HOST", nil},
		{"output.mysql.port", "HELMETWATCH_MYSQL_PORT", validateEnvPort},
		{"output.mysql.username", "HELMETWATCH_MYSQL_USERNAME", nil},
		{"output.mysql.password", "HELMETWATCH_MYSQL_PASSWORD", nil},
		{"output.mysql.database", "HELMETWATCH_MYSQL_DATABASE", nil},

		// Integrations
		{"mqtt.enabled", "HELMETWATCH_MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", "HELMETWATCH_MQTT_BROKER", validateEnvBrokerURL},
		{"mqtt.username", "HELMETWATCH_MQTT_USERNAME", nil},
		{"mqtt.password", "HELMETWATCH_MQTT_PASSWORD", nil},
		{"sentry.enabled", "HELMETWATCH_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "HELMETWATCH_SENTRY_DSN", nil},
		{"telemetry.enabled", "HELMETWATCH_TELEMETRY_ENABLED", validateEnvBool},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	bindings := getEnvBindings()
	var warnings []string

	for _, binding := range bindings {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		// Validate the value if it's set and validation function is provided
		if binding.Validate != nil {
			if envValue, ok := os.LookupEnv(binding.EnvVar); ok {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// Environment variable validation functions

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value: %s", value)
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("unknown log level: %s", value)
	}
}

func validateEnvListen(value string) error {
	if _, _, err := net.SplitHostPort(value); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %s", value)
	}
	return nil
}

func validateEnvNonNegativeInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fmt.Errorf("must be a non-negative integer: %s", value)
	}
	return nil
}

func validateEnvBrokerURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid broker URL: %w", err)
	}
	switch u.Scheme {
	case "tcp", "ssl", "tls", "ws", "wss", "mqtt", "mqtts":
		return nil
	default:
		return fmt.Errorf("unsupported broker scheme: %q", u.Scheme)
	}
}

// validateEnvPath rejects empty paths and paths that escape via ".."
func validateEnvPath(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("path cannot be empty")
	}
	for part := range strings.SplitSeq(filepath.ToSlash(filepath.Clean(value)), "/") {
		if part == ".." {
			return fmt.Errorf("path traversal detected: %s", value)
		}
	}
	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	// Nested keys such as webserver.bodylimit map to HELMETWATCH_WEBSERVER_BODYLIMIT
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	return bindEnvVars()
}

// loadDotEnv loads a .env file from the working directory if one exists.
// Variables already present in the environment take precedence.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(".env"); err != nil {
		GetLogger().Warn("failed to load .env file", logger.Error(err))
	}
}
