package mqtt

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/helmetwatch/internal/conf"
	"github.com/tphakala/helmetwatch/internal/coordinator"
	"github.com/tphakala/helmetwatch/internal/datastore/entities"
	"github.com/tphakala/helmetwatch/internal/datastore/repository"
	"github.com/tphakala/helmetwatch/internal/errors"
	"github.com/tphakala/helmetwatch/internal/logger"
	"github.com/tphakala/helmetwatch/internal/observability/metrics"
	sharedtest "github.com/tphakala/helmetwatch/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeIngestor records calls and applies the coordinator's validation rules
// for image_path only
type fakeIngestor struct {
	mu         sync.Mutex
	violations []coordinator.ViolationInput
	updates    []repository.StatusUpdate
	storeErr   error
}

func (f *fakeIngestor) CreateViolation(_ context.Context, in coordinator.ViolationInput) (*entities.Violation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in.ImagePath == "" {
		return nil, errors.New(coordinator.ErrImagePathRequired).Category(errors.CategoryValidation).Build()
	}
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	f.violations = append(f.violations, in)
	return &entities.Violation{ID: uint(len(f.violations)), ImagePath: in.ImagePath}, nil
}

func (f *fakeIngestor) ApplyStatusUpdate(_ context.Context, u repository.StatusUpdate) (*entities.SystemStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, u)
	return &entities.SystemStatus{ID: entities.StatusSingletonID}, nil
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func newTestHandler(t *testing.T) (*Handler, *fakeIngestor, *metrics.MQTTMetrics) {
	t.Helper()
	m, err := metrics.NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	ingest := &fakeIngestor{}
	return NewHandler(ingest, m, logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)), ingest, m
}

func TestHandleViolation(t *testing.T) {
	t.Parallel()
	h, ingest, m := newTestHandler(t)

	payload := []byte(`{
		"image_path": "/violations/2024/cam0_0001.jpg",
		"license_plate_text": "ABC-123",
		"license_plate_confidence": 0.91,
		"detection_confidence": 0.88,
		"camera_source": "0",
		"violation_time": "2024-06-01T10:00:00Z"
	}`)
	require.NoError(t, h.HandleViolation(t.Context(), payload))

	require.Len(t, ingest.violations, 1)
	got := ingest.violations[0]
	assert.Equal(t, "/violations/2024/cam0_0001.jpg", got.ImagePath)
	assert.Equal(t, "ABC-123", *got.LicensePlateText)
	assert.Equal(t, coordinator.SourceMQTT, got.Source)
	require.NotNil(t, got.ViolationTime)
	assert.True(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC).Equal(*got.ViolationTime))

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.MessagesReceived.WithLabelValues(kindViolation, metrics.ResultAccepted)), 0)
}

func TestHandleViolationRejects(t *testing.T) {
	t.Parallel()

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()
		h, ingest, m := newTestHandler(t)
		err := h.HandleViolation(t.Context(), []byte(`{"image_path":`))
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryMQTTPayload))
		assert.Empty(t, ingest.violations)
		assert.InDelta(t, 1.0, testutil.ToFloat64(m.MessagesReceived.WithLabelValues(kindViolation, metrics.ResultInvalid)), 0)
	})

	t.Run("validation failure", func(t *testing.T) {
		t.Parallel()
		h, _, m := newTestHandler(t)
		err := h.HandleViolation(t.Context(), []byte(`{"camera_source":"0"}`))
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
		assert.InDelta(t, 1.0, testutil.ToFloat64(m.MessagesReceived.WithLabelValues(kindViolation, metrics.ResultInvalid)), 0)
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()
		h, ingest, m := newTestHandler(t)
		ingest.storeErr = errors.New(errors.NewStd("database is locked")).Category(errors.CategoryDatabase).Build()
		err := h.HandleViolation(t.Context(), []byte(`{"image_path":"/v/1.jpg"}`))
		require.Error(t, err)
		assert.InDelta(t, 1.0, testutil.ToFloat64(m.MessagesReceived.WithLabelValues(kindViolation, metrics.ResultFailed)), 0)
	})
}

func TestHandleStatusPartial(t *testing.T) {
	t.Parallel()
	h, ingest, _ := newTestHandler(t)

	require.NoError(t, h.HandleStatus(t.Context(), []byte(`{"processing_fps": 24.5, "camera_status": "connected"}`)))

	require.Len(t, ingest.updates, 1)
	u := ingest.updates[0]
	require.NotNil(t, u.ProcessingFPS)
	assert.InDelta(t, 24.5, *u.ProcessingFPS, 1e-9)
	require.NotNil(t, u.CameraStatus)
	assert.Equal(t, entities.CameraConnected, *u.CameraStatus)
	assert.Nil(t, u.DetectionCount, "absent keys stay untouched")
	assert.Nil(t, u.SystemHealth)
}

func TestSubscriberRoutesByTopic(t *testing.T) {
	t.Parallel()
	h, ingest, _ := newTestHandler(t)

	cfg := DefaultConfig()
	cfg.TopicPrefix = "site-a/"
	s := NewSubscriber(cfg, h, nil, logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC))

	s.route(nil, fakeMessage{topic: "site-a/violations", payload: []byte(`{"image_path":"/v/1.jpg"}`)})
	s.route(nil, fakeMessage{topic: "site-a/status", payload: []byte(`{"system_health":"good"}`)})
	s.route(nil, fakeMessage{topic: "site-a/other", payload: []byte(`{}`)})

	assert.Len(t, ingest.violations, 1)
	assert.Len(t, ingest.updates, 1)
	assert.False(t, s.IsConnected())
}

func TestSubscriberRunFailsWithoutBroker(t *testing.T) {
	t.Parallel()
	h, _, _ := newTestHandler(t)

	cfg := DefaultConfig()
	cfg.Broker = "tcp://127.0.0.1:1"
	cfg.ClientID = "helmetwatch-test"
	cfg.ConnectTimeout = sharedtest.ShortTestTimeout
	s := NewSubscriber(cfg, h, nil, sharedtest.Logger())

	done := make(chan struct{})
	var runErr error
	go func() {
		defer close(done)
		runErr = s.Run(t.Context())
	}()

	sharedtest.WaitForChannel(t, done, sharedtest.DefaultTestTimeout, "Run did not give up on an unreachable broker")
	require.Error(t, runErr)
	assert.True(t, errors.IsCategory(runErr, errors.CategoryMQTTConnection))
	assert.False(t, s.IsConnected())
}

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	cfg := ConfigFromSettings(&conf.MQTTSettings{
		Broker:   "tcp://broker:1883",
		Username: "pipeline",
		Topic:    "yard",
		QoS:      2,
	})

	assert.Equal(t, "tcp://broker:1883", cfg.Broker)
	assert.Equal(t, "helmetwatch", cfg.ClientID, "client id keeps its default")
	assert.Equal(t, byte(2), cfg.QoS)
	assert.Equal(t, map[string]string{
		kindViolation: "yard/violations",
		kindStatus:    "yard/status",
	}, cfg.Topics())
}
