package coordinator_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/helmetwatch/internal/coordinator"
	"github.com/tphakala/helmetwatch/internal/datastore"
	"github.com/tphakala/helmetwatch/internal/datastore/entities"
	"github.com/tphakala/helmetwatch/internal/datastore/repository"
	"github.com/tphakala/helmetwatch/internal/errors"
	"github.com/tphakala/helmetwatch/internal/testutil"
)

var testStart = testutil.Epoch

type recordedOp struct {
	operation string
	failed    bool
}

// fakeMetrics captures what the coordinator reports
type fakeMetrics struct {
	mu       sync.Mutex
	ops      []recordedOp
	created  map[string]int
	sessions []int64
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{created: make(map[string]int)}
}

func (m *fakeMetrics) RecordOperation(operation string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, recordedOp{operation: operation, failed: err != nil})
}

func (m *fakeMetrics) RecordViolationCreated(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created[source]++
}

func (m *fakeMetrics) SetActiveSessions(count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, count)
}

type fakeProbe struct {
	health string
	err    error
}

func (p fakeProbe) Check(context.Context) (string, error) {
	return p.health, p.err
}

// newTestCoordinator returns a coordinator over a fresh SQLite database
func newTestCoordinator(t *testing.T, opts ...coordinator.Option) (*coordinator.Coordinator, datastore.Manager) {
	t.Helper()

	m := testutil.NewSQLite(t)
	repos := repository.NewSet(m.DB(), false, testutil.NewStepClock().Now)

	opts = append([]coordinator.Option{coordinator.WithLogger(testutil.Logger())}, opts...)
	return coordinator.New(repos, opts...), m
}

func ptr[T any](v T) *T { return testutil.Ptr(v) }

func TestStartStopLifecycle(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t)
	ctx := t.Context()

	current, err := c.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	session, err := c.StartSession(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultCameraSource, session.CameraSource)
	assert.Equal(t, entities.SessionActive, session.Status)

	status, err := c.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.CameraConnected, status.CameraStatus)
	assert.Equal(t, entities.HealthGood, status.SystemHealth)

	current, err = c.CurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, session.ID, current.ID)

	_, err = c.ApplyStatusUpdate(ctx, repository.StatusUpdate{ProcessingFPS: ptr(24.0)})
	require.NoError(t, err)

	require.NoError(t, c.StopSession(ctx, 7))

	current, err = c.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	status, err = c.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.CameraDisconnected, status.CameraStatus)
	assert.Zero(t, status.ProcessingFPS)
}

func TestStartSessionWhileActiveConflicts(t *testing.T) {
	t.Parallel()
	c, m := newTestCoordinator(t)
	ctx := t.Context()

	_, err := c.StartSession(ctx, "0")
	require.NoError(t, err)

	_, err = c.StartSession(ctx, "1")
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
	assert.ErrorIs(t, err, coordinator.ErrSessionActive)

	var active int64
	require.NoError(t, m.DB().Model(&entities.DetectionSession{}).
		Where("status = ?", entities.SessionActive).Count(&active).Error)
	assert.Equal(t, int64(1), active)

	current, err := c.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0", current.CameraSource, "the rejected start changed nothing")
}

func TestStopSessionWithoutActiveSession(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t)
	ctx := t.Context()

	_, err := c.ApplyStatusUpdate(ctx, repository.StatusUpdate{
		ProcessingFPS: ptr(15.0),
		CameraStatus:  ptr(entities.CameraConnected),
	})
	require.NoError(t, err)

	require.NoError(t, c.StopSession(ctx, 0))

	status, err := c.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.CameraDisconnected, status.CameraStatus)
	assert.Zero(t, status.ProcessingFPS)
}

func TestStopSessionRejectsNegativeTotal(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t)
	ctx := t.Context()

	_, err := c.StartSession(ctx, "0")
	require.NoError(t, err)

	err = c.StopSession(ctx, -1)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	current, err := c.CurrentSession(ctx)
	require.NoError(t, err)
	assert.NotNil(t, current, "validation runs before any store write")
}

func TestStopRecordsTotalDetections(t *testing.T) {
	t.Parallel()
	c, m := newTestCoordinator(t)
	ctx := t.Context()

	session, err := c.StartSession(ctx, "video.mp4")
	require.NoError(t, err)
	require.NoError(t, c.StopSession(ctx, 42))

	var row entities.DetectionSession
	require.NoError(t, m.DB().First(&row, session.ID).Error)
	assert.Equal(t, entities.SessionStopped, row.Status)
	assert.Equal(t, 42, row.TotalDetections)
	require.NotNil(t, row.SessionEnd)
	assert.True(t, row.SessionEnd.After(row.SessionStart))

	// a new session can start once the old one is stopped
	_, err = c.StartSession(ctx, "1")
	require.NoError(t, err)
}

func TestChangeCamera(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t)
	ctx := t.Context()

	err := c.ChangeCamera(ctx, "  ")
	require.Error(t, err)
	assert.ErrorIs(t, err, coordinator.ErrCameraSourceRequired)
	assert.True(t, errors.IsValidation(err))

	require.NoError(t, c.ChangeCamera(ctx, "1"), "no active session is a no-op")

	_, err = c.StartSession(ctx, "0")
	require.NoError(t, err)
	require.NoError(t, c.ChangeCamera(ctx, "rtsp://cam/2"))

	current, err := c.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "rtsp://cam/2", current.CameraSource)
}

func TestApplyStatusUpdateValidation(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t)
	ctx := t.Context()

	tests := []struct {
		name   string
		update repository.StatusUpdate
		want   error
	}{
		{"empty", repository.StatusUpdate{}, repository.ErrNoFields},
		{"negative fps", repository.StatusUpdate{ProcessingFPS: ptr(-1.0)}, coordinator.ErrNegativeFPS},
		{"negative count", repository.StatusUpdate{DetectionCount: ptr(int64(-3))}, coordinator.ErrNegativeDetectionCount},
		{"unknown camera status", repository.StatusUpdate{CameraStatus: ptr(entities.CameraStatus("rebooting"))}, coordinator.ErrInvalidCameraStatus},
		{"blank health", repository.StatusUpdate{SystemHealth: ptr(" ")}, coordinator.ErrEmptySystemHealth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.ApplyStatusUpdate(ctx, tt.update)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, errors.IsValidation(err))
		})
	}
}

func TestApplyStatusUpdatePartial(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t)
	ctx := t.Context()

	last := testStart.Add(-time.Minute)
	status, err := c.ApplyStatusUpdate(ctx, repository.StatusUpdate{
		DetectionCount: ptr(int64(3)),
		LastDetection:  &last,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), status.DetectionCount)
	require.NotNil(t, status.LastDetection)
	assert.True(t, last.Equal(*status.LastDetection))
	assert.Equal(t, entities.CameraDisconnected, status.CameraStatus)

	status, err = c.ApplyStatusUpdate(ctx, repository.StatusUpdate{SystemHealth: ptr("degraded")})
	require.NoError(t, err)
	assert.Equal(t, int64(3), status.DetectionCount, "unset fields keep their value")
	assert.Equal(t, "degraded", status.SystemHealth)
}

func TestRecordHealth(t *testing.T) {
	t.Parallel()

	t.Run("default good", func(t *testing.T) {
		t.Parallel()
		c, _ := newTestCoordinator(t)
		status, err := c.RecordHealth(t.Context(), "")
		require.NoError(t, err)
		assert.Equal(t, entities.HealthGood, status.SystemHealth)
	})

	t.Run("explicit value wins over probe", func(t *testing.T) {
		t.Parallel()
		c, _ := newTestCoordinator(t, coordinator.WithHealthProbe(fakeProbe{health: "degraded"}))
		status, err := c.RecordHealth(t.Context(), "maintenance")
		require.NoError(t, err)
		assert.Equal(t, "maintenance", status.SystemHealth)
	})

	t.Run("probe result", func(t *testing.T) {
		t.Parallel()
		c, _ := newTestCoordinator(t, coordinator.WithHealthProbe(fakeProbe{health: "degraded"}))
		status, err := c.RecordHealth(t.Context(), "")
		require.NoError(t, err)
		assert.Equal(t, "degraded", status.SystemHealth)
	})

	t.Run("probe failure reports degraded", func(t *testing.T) {
		t.Parallel()
		c, _ := newTestCoordinator(t, coordinator.WithHealthProbe(fakeProbe{err: errors.NewStd("no procfs")}))
		status, err := c.RecordHealth(t.Context(), "")
		require.NoError(t, err)
		assert.Equal(t, entities.HealthDegraded, status.SystemHealth)
	})
}

func TestCreateViolationValidation(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t)
	ctx := t.Context()

	tests := []struct {
		name  string
		input coordinator.ViolationInput
		want  error
	}{
		{"missing image path", coordinator.ViolationInput{ImagePath: "   "}, coordinator.ErrImagePathRequired},
		{"plate confidence above one", coordinator.ViolationInput{ImagePath: "/v/1.jpg", LicensePlateConfidence: ptr(1.5)}, coordinator.ErrConfidenceOutOfRange},
		{"negative detection confidence", coordinator.ViolationInput{ImagePath: "/v/1.jpg", DetectionConfidence: ptr(-0.1)}, coordinator.ErrConfidenceOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.CreateViolation(ctx, tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, errors.IsValidation(err))
		})
	}

	page, err := c.ListViolations(ctx, repository.ViolationFilter{}, repository.Page{})
	require.NoError(t, err)
	assert.Zero(t, page.Total, "rejected inputs never reach the store")
}

func TestCreateViolationDefaults(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t)
	ctx := t.Context()

	v, err := c.CreateViolation(ctx, coordinator.ViolationInput{
		ImagePath:           " /violations/a.jpg ",
		DetectionConfidence: ptr(1.0),
	})
	require.NoError(t, err)
	assert.NotZero(t, v.ID)
	assert.Equal(t, "/violations/a.jpg", v.ImagePath)
	assert.False(t, v.Reviewed)
	assert.False(t, v.Flagged)
	assert.Nil(t, v.LicensePlateText)
	assert.True(t, v.ViolationTime.After(testStart), "violation_time defaults to now")

	got, err := c.GetViolation(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ImagePath, got.ImagePath)
	require.NotNil(t, got.DetectionConfidence)
	assert.InDelta(t, 1.0, *got.DetectionConfidence, 1e-9)
}

func TestViolationNotFoundPaths(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t)
	ctx := t.Context()

	_, err := c.GetViolation(ctx, 999)
	assert.True(t, errors.IsNotFound(err))

	_, err = c.UpdateViolation(ctx, 999, repository.ViolationFlags{Reviewed: ptr(true)})
	assert.True(t, errors.IsNotFound(err))

	err = c.DeleteViolation(ctx, 999)
	assert.True(t, errors.IsNotFound(err))

	_, err = c.GetViolation(ctx, 0)
	assert.ErrorIs(t, err, coordinator.ErrInvalidViolationID)
	assert.True(t, errors.IsValidation(err))
}

func TestUpdateViolationFlags(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t)
	ctx := t.Context()

	v, err := c.CreateViolation(ctx, coordinator.ViolationInput{ImagePath: "/v/1.jpg", LicensePlateText: ptr("ABC-123")})
	require.NoError(t, err)

	_, err = c.UpdateViolation(ctx, v.ID, repository.ViolationFlags{})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	updated, err := c.UpdateViolation(ctx, v.ID, repository.ViolationFlags{Flagged: ptr(true)})
	require.NoError(t, err)
	assert.True(t, updated.Flagged)
	assert.False(t, updated.Reviewed)
	assert.Equal(t, "ABC-123", *updated.LicensePlateText)
	assert.Equal(t, v.ImagePath, updated.ImagePath)
	assert.True(t, v.ViolationTime.Equal(updated.ViolationTime))
	assert.True(t, v.CreatedAt.Equal(updated.CreatedAt), "created_at is unchanged")
	assert.True(t, updated.UpdatedAt.After(v.UpdatedAt), "updated_at advances")

	// applying the same values again still succeeds
	previous := updated.UpdatedAt
	updated, err = c.UpdateViolation(ctx, v.ID, repository.ViolationFlags{Flagged: ptr(true)})
	require.NoError(t, err)
	assert.True(t, updated.Flagged)
	assert.True(t, updated.UpdatedAt.After(previous))
	assert.True(t, v.CreatedAt.Equal(updated.CreatedAt))

	require.NoError(t, c.DeleteViolation(ctx, v.ID))
	_, err = c.GetViolation(ctx, v.ID)
	assert.True(t, errors.IsNotFound(err))
}

func TestListViolationsPagination(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t)
	ctx := t.Context()

	for i := range 25 {
		at := testStart.Add(-time.Duration(i) * time.Minute)
		_, err := c.CreateViolation(ctx, coordinator.ViolationInput{ImagePath: "/v/x.jpg", ViolationTime: &at})
		require.NoError(t, err)
	}

	page, err := c.ListViolations(ctx, repository.ViolationFilter{}, repository.Page{Page: 0, Limit: -5})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, repository.DefaultLimit, page.Limit)
	assert.Len(t, page.Violations, 20)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, int64(2), page.TotalPages)

	last, err := c.ListViolations(ctx, repository.ViolationFilter{}, repository.Page{Page: 2, Limit: 20})
	require.NoError(t, err)
	assert.Len(t, last.Violations, 5)

	beyond, err := c.ListViolations(ctx, repository.ViolationFilter{}, repository.Page{Page: 9, Limit: 20})
	require.NoError(t, err)
	assert.NotNil(t, beyond.Violations)
	assert.Empty(t, beyond.Violations)
	assert.Equal(t, int64(25), beyond.Total)
}

func TestUpsertSettingsReturnsFullMap(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t)
	ctx := t.Context()

	_, err := c.UpsertSettings(ctx, nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = c.UpsertSettings(ctx, map[string]string{"": "x"})
	assert.ErrorIs(t, err, coordinator.ErrEmptySettingKey)

	_, err = c.UpsertSettings(ctx, map[string]string{"camera_source": "0", "auto_capture": "true"})
	require.NoError(t, err)

	all, err := c.UpsertSettings(ctx, map[string]string{"camera_source": "1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"camera_source": "1", "auto_capture": "true"}, all)

	got, err := c.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, all, got)
}

func TestSeedSampleViolations(t *testing.T) {
	t.Parallel()
	c, _ := newTestCoordinator(t)
	ctx := t.Context()

	inserted, err := c.SeedSampleViolations(ctx)
	require.NoError(t, err)
	require.Len(t, inserted, 5)

	status, err := c.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), status.DetectionCount)
	require.NotNil(t, status.LastDetection)
	assert.True(t, inserted[0].ViolationTime.Equal(*status.LastDetection))

	page, err := c.ListViolations(ctx, repository.ViolationFilter{}, repository.Page{})
	require.NoError(t, err)
	require.Len(t, page.Violations, 5)
	assert.Equal(t, "/violations/2024/violation_001.jpg", page.Violations[0].ImagePath)
	assert.Equal(t, "/violations/2024/violation_005.jpg", page.Violations[4].ImagePath)

	reviewed, err := c.ListViolations(ctx, repository.ViolationFilter{Reviewed: ptr(true)}, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), reviewed.Total)

	flagged, err := c.ListViolations(ctx, repository.ViolationFilter{Flagged: ptr(true)}, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), flagged.Total)
	assert.NotNil(t, flagged.Violations[0].LicensePlateText, "flagged sample has a plate")
}

func TestMetricsRecorded(t *testing.T) {
	t.Parallel()
	metrics := newFakeMetrics()
	c, _ := newTestCoordinator(t, coordinator.WithMetrics(metrics))
	ctx := t.Context()

	_, err := c.StartSession(ctx, "0")
	require.NoError(t, err)
	_, err = c.StartSession(ctx, "0")
	require.Error(t, err)
	require.NoError(t, c.StopSession(ctx, 1))

	_, err = c.CreateViolation(ctx, coordinator.ViolationInput{ImagePath: "/v/1.jpg", Source: coordinator.SourceMQTT})
	require.NoError(t, err)
	_, err = c.CreateViolation(ctx, coordinator.ViolationInput{ImagePath: "/v/2.jpg"})
	require.NoError(t, err)

	metrics.mu.Lock()
	defer metrics.mu.Unlock()

	require.Len(t, metrics.ops, 5)
	assert.Equal(t, recordedOp{"start_session", false}, metrics.ops[0])
	assert.Equal(t, recordedOp{"start_session", true}, metrics.ops[1])
	assert.Equal(t, recordedOp{"stop_session", false}, metrics.ops[2])
	assert.Equal(t, []int64{1, 0}, metrics.sessions)
	assert.Equal(t, map[string]int{coordinator.SourceMQTT: 1, coordinator.SourceAPI: 1}, metrics.created)
}
