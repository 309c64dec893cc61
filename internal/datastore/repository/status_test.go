package repository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/helmetwatch/internal/datastore/entities"
	"github.com/tphakala/helmetwatch/internal/datastore/repository"
	"github.com/tphakala/helmetwatch/internal/errors"
)

func TestStatusGetCreatesDefaultOnce(t *testing.T) {
	t.Parallel()
	m, repos := createDatabase(t)
	ctx := t.Context()

	first, err := repos.Status.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusSingletonID, first.ID)
	assert.Zero(t, first.ProcessingFPS)
	assert.Zero(t, first.DetectionCount)
	assert.Nil(t, first.LastDetection)
	assert.Equal(t, entities.CameraDisconnected, first.CameraStatus)
	assert.Equal(t, entities.HealthGood, first.SystemHealth)

	second, err := repos.Status.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.UpdatedAt.Equal(second.UpdatedAt))

	var rows int64
	require.NoError(t, m.DB().Model(&entities.SystemStatus{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestStatusApplyLeavesUnsetFieldsUntouched(t *testing.T) {
	t.Parallel()
	_, repos := createDatabase(t)
	ctx := t.Context()

	before, err := repos.Status.Get(ctx)
	require.NoError(t, err)

	after, err := repos.Status.Apply(ctx, repository.StatusUpdate{ProcessingFPS: ptr(12.5)})
	require.NoError(t, err)

	assert.InDelta(t, 12.5, after.ProcessingFPS, 1e-9)
	assert.Equal(t, before.CameraStatus, after.CameraStatus)
	assert.Equal(t, before.SystemHealth, after.SystemHealth)
	assert.Equal(t, before.DetectionCount, after.DetectionCount)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt), "updated_at is always stamped")
}

func TestStatusApplyOnEmptyStoreInserts(t *testing.T) {
	t.Parallel()
	_, repos := createDatabase(t)
	ctx := t.Context()

	last := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	status, err := repos.Status.Apply(ctx, repository.StatusUpdate{
		DetectionCount: ptr(int64(3)),
		LastDetection:  &last,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3), status.DetectionCount)
	require.NotNil(t, status.LastDetection)
	assert.True(t, last.Equal(*status.LastDetection))
	assert.Equal(t, entities.CameraDisconnected, status.CameraStatus, "unspecified fields take defaults")
}

func TestStatusApplyClearsLastDetection(t *testing.T) {
	t.Parallel()
	_, repos := createDatabase(t)
	ctx := t.Context()

	last := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	_, err := repos.Status.Apply(ctx, repository.StatusUpdate{LastDetection: &last})
	require.NoError(t, err)

	assert.False(t, repository.StatusUpdate{ClearLastDetection: true}.IsEmpty())

	status, err := repos.Status.Apply(ctx, repository.StatusUpdate{ClearLastDetection: true})
	require.NoError(t, err)
	assert.Nil(t, status.LastDetection)

	// a value wins over the clear flag
	status, err = repos.Status.Apply(ctx, repository.StatusUpdate{LastDetection: &last, ClearLastDetection: true})
	require.NoError(t, err)
	require.NotNil(t, status.LastDetection)
	assert.True(t, last.Equal(*status.LastDetection))
}

func TestStatusApplyEmptyUpdate(t *testing.T) {
	t.Parallel()
	_, repos := createDatabase(t)

	_, err := repos.Status.Apply(t.Context(), repository.StatusUpdate{})
	require.ErrorIs(t, err, repository.ErrNoFields)
	assert.True(t, errors.IsValidation(err))
}

func TestStatusSessionTransitions(t *testing.T) {
	t.Parallel()
	_, repos := createDatabase(t)
	ctx := t.Context()

	_, err := repos.Status.Apply(ctx, repository.StatusUpdate{
		ProcessingFPS: ptr(25.0),
		SystemHealth:  ptr(entities.HealthDegraded),
	})
	require.NoError(t, err)

	started, err := repos.Status.Apply(ctx, repository.MarkSessionStarted())
	require.NoError(t, err)
	assert.Equal(t, entities.CameraConnected, started.CameraStatus)
	assert.Equal(t, entities.HealthGood, started.SystemHealth)
	assert.InDelta(t, 25.0, started.ProcessingFPS, 1e-9)

	stopped, err := repos.Status.Apply(ctx, repository.MarkSessionStopped())
	require.NoError(t, err)
	assert.Equal(t, entities.CameraDisconnected, stopped.CameraStatus)
	assert.Zero(t, stopped.ProcessingFPS)
}

func TestStatusReadsMostRecentRow(t *testing.T) {
	t.Parallel()
	m, repos := createDatabase(t)
	ctx := t.Context()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []entities.SystemStatus{
		{ID: 1, CameraStatus: entities.CameraDisconnected, SystemHealth: "old", UpdatedAt: base},
		{ID: 2, CameraStatus: entities.CameraConnected, SystemHealth: "new", UpdatedAt: base.Add(time.Minute)},
		{ID: 3, CameraStatus: entities.CameraConnected, SystemHealth: "older", UpdatedAt: base.Add(-time.Minute)},
	}
	require.NoError(t, m.DB().Create(&rows).Error)

	status, err := repos.Status.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(2), status.ID)
	assert.Equal(t, "new", status.SystemHealth)

	updated, err := repos.Status.Apply(ctx, repository.StatusUpdate{SystemHealth: ptr("degraded")})
	require.NoError(t, err)
	assert.Equal(t, uint(2), updated.ID, "writes go to the authoritative row")
}
