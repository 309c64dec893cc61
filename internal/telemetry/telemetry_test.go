package telemetry

import (
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/helmetwatch/internal/conf"
	"github.com/tphakala/helmetwatch/internal/errors"
)

const testDSN = "https://public@sentry.example.com/1"

func TestInitSentryDisabledIsNoop(t *testing.T) {
	require.NoError(t, InitSentry(&conf.Settings{}, "test"))
	assert.Nil(t, errors.GetTelemetryReporter())
}

func TestInitSentryReportsSelectedCategories(t *testing.T) {
	t.Cleanup(func() { errors.SetTelemetryReporter(nil) })

	transport := NewMockTransport()
	settings := &conf.Settings{Sentry: conf.SentrySettings{Enabled: true, DSN: testDSN, Environment: "test"}}
	require.NoError(t, initSentry(settings, "1.2.3", transport))

	// validation errors are caller mistakes and stay local
	_ = errors.New(errors.NewStd("bad input")).
		Component("coordinator").
		Category(errors.CategoryValidation).
		Build()

	_ = errors.New(errors.NewStd("database is locked")).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", "create_violation").
		Context("dsn", "user:secret@tcp(db:3306)/helmetwatch").
		Build()

	require.True(t, transport.WaitForEventCount(1, 2*time.Second))
	events := transport.GetEvents()
	require.Len(t, events, 1)

	event := events[0]
	assert.Equal(t, "datastore", event.Tags["component"])
	assert.Equal(t, "database", event.Tags["category"])
	assert.Equal(t, "test", event.Environment)
	assert.Equal(t, "helmetwatch@1.2.3", event.Release)
	assert.Empty(t, event.ServerName)
	assert.NotContains(t, event.Message, "secret")
}

func TestApplyPrivacyFilters(t *testing.T) {
	t.Parallel()

	event := &sentry.Event{
		ServerName: "edge-box-01",
		User:       sentry.User{ID: "operator"},
		Contexts: map[string]sentry.Context{
			"os":     {"name": "linux"},
			"device": {"arch": "arm64"},
			"trace":  {"trace_id": "abc"},
		},
		Extra: map[string]any{"component": "datastore", "path": "/home/op/db"},
		Tags:  map[string]string{"hostname": "edge-box-01", "category": "database"},
	}

	filtered := applyPrivacyFilters(event)

	assert.Empty(t, filtered.ServerName)
	assert.True(t, filtered.User.IsEmpty())
	assert.NotContains(t, filtered.Contexts, "os")
	assert.NotContains(t, filtered.Contexts, "device")
	assert.Contains(t, filtered.Contexts, "trace")
	assert.Equal(t, map[string]any{"component": "datastore"}, filtered.Extra)
	assert.Equal(t, map[string]string{"category": "database"}, filtered.Tags)
}
