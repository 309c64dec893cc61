// conf/validate.go

package conf

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/labstack/gommon/bytes"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateOutputSettings(&settings.Output); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateMQTTSettings(&settings.MQTT); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateSentrySettings(&settings.Sentry); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateHealthSettings(&settings.Health); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateWebServerSettings(settings *WebServerSettings) error {
	var errs []string

	if _, _, err := net.SplitHostPort(settings.Listen); err != nil {
		errs = append(errs, fmt.Sprintf("invalid webserver listen address %q", settings.Listen))
	}

	if settings.BodyLimit != "" {
		if _, err := bytes.Parse(settings.BodyLimit); err != nil {
			errs = append(errs, fmt.Sprintf("invalid webserver body limit %q", settings.BodyLimit))
		}
	}

	if settings.RateLimit < 0 {
		errs = append(errs, "webserver rate limit must not be negative")
	}

	if settings.MaxPageLimit < 0 {
		errs = append(errs, "webserver max page limit must not be negative")
	}

	if settings.IdempotencyTTL < 0 {
		errs = append(errs, "webserver idempotency ttl must not be negative")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateOutputSettings(settings *OutputSettings) error {
	switch {
	case settings.SQLite.Enabled && settings.MySQL.Enabled:
		return errors.New("only one of output.sqlite and output.mysql can be enabled")
	case !settings.SQLite.Enabled && !settings.MySQL.Enabled:
		return errors.New("either output.sqlite or output.mysql must be enabled")
	case settings.SQLite.Enabled && settings.SQLite.Path == "":
		return errors.New("output.sqlite.path is required")
	case settings.MySQL.Enabled && (settings.MySQL.Host == "" || settings.MySQL.Database == "" || settings.MySQL.Username == ""):
		return errors.New("output.mysql requires host, database and username")
	}
	return nil
}

func validateMQTTSettings(settings *MQTTSettings) error {
	if !settings.Enabled {
		return nil
	}

	var errs []string

	if settings.Broker == "" {
		errs = append(errs, "mqtt broker is required when mqtt is enabled")
	} else if _, err := url.Parse(settings.Broker); err != nil {
		errs = append(errs, fmt.Sprintf("invalid mqtt broker URL: %v", err))
	}

	if settings.Topic == "" {
		errs = append(errs, "mqtt topic prefix is required when mqtt is enabled")
	}

	if settings.QoS > 2 {
		errs = append(errs, "mqtt qos must be 0, 1 or 2")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateSentrySettings(settings *SentrySettings) error {
	if settings.Enabled && settings.DSN == "" {
		return errors.New("sentry dsn is required when sentry is enabled")
	}
	return nil
}

func validateHealthSettings(settings *HealthSettings) error {
	if settings.MemoryThreshold <= 0 || settings.MemoryThreshold > 100 {
		return fmt.Errorf("health memory threshold must be in (0, 100], got %v", settings.MemoryThreshold)
	}
	if settings.DiskThreshold <= 0 || settings.DiskThreshold > 100 {
		return fmt.Errorf("health disk threshold must be in (0, 100], got %v", settings.DiskThreshold)
	}
	return nil
}
