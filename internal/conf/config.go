// Package conf loads HelmetWatch settings from config.yaml, environment
// variables and built-in defaults.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/helmetwatch/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Settings contains all configuration options for the service
type Settings struct {
	Debug bool // true to enable debug mode

	WebServer WebServerSettings    `yaml:"webserver"` // REST API listener and limits
	Output    OutputSettings       `yaml:"output"`    // storage backend selection
	Logging   logger.LoggingConfig `yaml:"logging"`   // console and file logging
	Telemetry TelemetrySettings    `yaml:"telemetry"` // prometheus endpoint
	Sentry    SentrySettings       `yaml:"sentry"`    // error reporting
	MQTT      MQTTSettings         `yaml:"mqtt"`      // pipeline event ingest
	Health    HealthSettings       `yaml:"health"`    // host probe thresholds
}

// WebServerSettings contains settings for the REST API server
type WebServerSettings struct {
	Listen         string        // address to listen on, e.g. ":8000"
	BodyLimit      string        // maximum request body size, e.g. "1M"
	RateLimit      float64       // requests per second per client, 0 disables limiting
	RateBurst      int           // burst allowance for the rate limiter
	AllowOrigins   []string      // CORS allowed origins
	MaxPageLimit   int           // upper bound for the violations page size, 0 means unbounded
	IdempotencyTTL time.Duration // how long Idempotency-Key responses are replayed
}

// OutputSettings selects where operational state is stored
type OutputSettings struct {
	SQLite SQLiteSettings `yaml:"sqlite"`
	MySQL  MySQLSettings  `yaml:"mysql"`
}

// SQLiteSettings contains settings for the SQLite backend
type SQLiteSettings struct {
	Enabled bool   // true to store state in SQLite
	Path    string // path to the SQLite database file
}

// MySQLSettings contains settings for the MySQL backend
type MySQLSettings struct {
	Enabled  bool   // true to store state in MySQL
	Username string // MySQL database username
	Password string // MySQL database user password
	Database string // MySQL database name
	Host     string // MySQL database host
	Port     string // MySQL database port
}

// TelemetrySettings controls the prometheus metrics endpoint
type TelemetrySettings struct {
	Enabled bool   // true to expose /metrics
	Listen  string // metrics listener address
}

// SentrySettings controls error reporting
type SentrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
}

// MQTTSettings configures the optional pipeline ingest subscriber
type MQTTSettings struct {
	Enabled  bool   // true to subscribe to pipeline events
	Broker   string // MQTT broker URL, e.g. tcp://localhost:1883
	ClientID string // client identifier, generated when empty
	Username string
	Password string
	Topic    string // topic prefix, events arrive on <prefix>/violations and <prefix>/status
	QoS      byte   // subscription quality of service, 0 to 2
}

// HealthSettings sets the host probe thresholds used by system_health_check
type HealthSettings struct {
	MemoryThreshold float64 // memory usage percent considered degraded
	DiskThreshold   float64 // disk usage percent considered degraded
	StoragePath     string  // filesystem checked for disk usage
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables. When
// configFile is empty the default config paths are searched.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper(configFile string) error {
	loadDotEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return fmt.Errorf("error getting default config paths: %w", err)
		}
		for _, path := range configPaths {
			viper.AddConfigPath(path)
		}
	}

	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		GetLogger().Warn("environment variable issues", logger.Error(err))
	}

	err := viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded config.yaml to the first default path
func createDefaultConfig() error {
	dir, err := userConfigDir()
	if err != nil {
		return fmt.Errorf("error getting user config directory: %w", err)
	}
	configPath := filepath.Join(dir, configFileName)

	defaultConfig, err := getDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, defaultConfig, 0o644); err != nil { //nolint:gosec // config is not secret until edited
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("error reading embedded config: %w", err)
	}
	return data, nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath. It overwrites the existing
// file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	// Write to a temporary file first so the rename is atomic
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}

	return nil
}
