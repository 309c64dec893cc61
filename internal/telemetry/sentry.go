// Package telemetry provides opt-in, privacy-filtered error reporting to Sentry
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/helmetwatch/internal/conf"
	"github.com/tphakala/helmetwatch/internal/errors"
	"github.com/tphakala/helmetwatch/internal/logger"
)

// flushTimeout bounds how long Flush waits for queued events
const flushTimeout = 2 * time.Second

// reportedCategories are the error categories forwarded to Sentry. Caller
// mistakes such as validation failures stay local.
var reportedCategories = []errors.ErrorCategory{
	errors.CategoryDatabase,
	errors.CategoryConfiguration,
	errors.CategorySystem,
	errors.CategoryMQTTConnection,
}

// GetLogger returns the module logger for telemetry
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}

// InitSentry initializes the Sentry SDK when enabled in settings and registers
// the error reporter with internal/errors. Telemetry is opt-in; when disabled
// this is a no-op.
func InitSentry(settings *conf.Settings, version string) error {
	return initSentry(settings, version, nil)
}

// initSentry accepts a transport so tests can capture events
func initSentry(settings *conf.Settings, version string, transport sentry.Transport) error {
	if !settings.Sentry.Enabled {
		GetLogger().Debug("sentry telemetry is disabled (opt-in required)")
		return nil
	}

	environment := settings.Sentry.Environment
	if environment == "" {
		environment = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      environment,
		ServerName:       "", // never report the hostname
		Release:          fmt.Sprintf("helmetwatch@%s", version),
		BeforeSend:       beforeSend,
		Transport:        transport,
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true, reportedCategories...))

	GetLogger().Info("sentry telemetry initialized",
		logger.String("environment", environment),
		logger.String("release", version))
	return nil
}

// Flush waits for queued events to be delivered.
func Flush() bool {
	return sentry.Flush(flushTimeout)
}

func beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	return applyPrivacyFilters(event)
}

// applyPrivacyFilters strips host and user identifying data from an event
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}
