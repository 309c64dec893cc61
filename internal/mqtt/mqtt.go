// mqtt.go: Package mqtt subscribes to detection pipeline events and feeds them
// into the coordinator.
//
// Two topics are consumed under the configured prefix:
//
//	<prefix>/violations  JSON violation record, recorded with CreateViolation
//	<prefix>/status      JSON partial status, applied with ApplyStatusUpdate
//
// Payloads that fail to decode or validate are logged and dropped; the
// pipeline is not told. Nothing is published back.
package mqtt

import (
	"strings"
	"time"

	"github.com/tphakala/helmetwatch/internal/conf"
	"github.com/tphakala/helmetwatch/internal/logger"
)

// Topic suffixes appended to the configured prefix.
const (
	ViolationsTopic = "violations"
	StatusTopic     = "status"
)

// Message kinds used as the metrics label.
const (
	kindViolation = "violation"
	kindStatus    = "status"
)

// Config holds the configuration for the MQTT subscriber.
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
	// Connection timeouts
	ConnectTimeout    time.Duration
	DisconnectTimeout time.Duration
	// HandlerTimeout bounds the store work done for one message
	HandlerTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable default values
func DefaultConfig() Config {
	return Config{
		ClientID:          "helmetwatch",
		TopicPrefix:       "helmetwatch",
		QoS:               1,
		ConnectTimeout:    30 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
		HandlerTimeout:    5 * time.Second,
	}
}

// ConfigFromSettings builds a Config from the mqtt settings section.
func ConfigFromSettings(settings *conf.MQTTSettings) Config {
	cfg := DefaultConfig()
	cfg.Broker = settings.Broker
	cfg.Username = settings.Username
	cfg.Password = settings.Password
	cfg.QoS = settings.QoS
	if settings.ClientID != "" {
		cfg.ClientID = settings.ClientID
	}
	if settings.Topic != "" {
		cfg.TopicPrefix = settings.Topic
	}
	return cfg
}

// Topics returns the subscribed topics keyed by message kind.
func (c Config) Topics() map[string]string {
	prefix := strings.TrimSuffix(c.TopicPrefix, "/")
	return map[string]string{
		kindViolation: prefix + "/" + ViolationsTopic,
		kindStatus:    prefix + "/" + StatusTopic,
	}
}

// GetLogger returns the module logger for MQTT ingest
func GetLogger() logger.Logger {
	return logger.Global().Module("mqtt")
}
