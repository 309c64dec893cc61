package repository_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/helmetwatch/internal/datastore/repository"
	"github.com/tphakala/helmetwatch/internal/errors"
)

func TestSettingsUpsertOverwritesOnlyGivenKeys(t *testing.T) {
	t.Parallel()
	_, repos := createDatabase(t)
	ctx := t.Context()

	require.NoError(t, repos.Settings.UpsertMany(ctx, map[string]string{"a": "1", "b": "2"}))
	require.NoError(t, repos.Settings.UpsertMany(ctx, map[string]string{"a": "3"}))

	entries, err := repos.Settings.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "3", "b": "2"}, repository.SettingsMap(entries))
}

func TestSettingsGetAllOrderedByKey(t *testing.T) {
	t.Parallel()
	_, repos := createDatabase(t)
	ctx := t.Context()

	require.NoError(t, repos.Settings.UpsertMany(ctx, map[string]string{
		"storage_path":  "./violations/",
		"auto_capture":  "true",
		"camera_source": "0",
	}))

	entries, err := repos.Settings.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "auto_capture", entries[0].SettingKey)
	assert.Equal(t, "camera_source", entries[1].SettingKey)
	assert.Equal(t, "storage_path", entries[2].SettingKey)
}

func TestSettingsEmptyUpsert(t *testing.T) {
	t.Parallel()
	_, repos := createDatabase(t)
	ctx := t.Context()

	require.NoError(t, repos.Settings.UpsertMany(ctx, map[string]string{"a": "1"}))

	err := repos.Settings.UpsertMany(ctx, map[string]string{})
	require.ErrorIs(t, err, repository.ErrNoFields)
	assert.True(t, errors.IsValidation(err))

	entries, err := repos.Settings.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1"}, repository.SettingsMap(entries))
}

func TestSettingsValuesAreOpaqueStrings(t *testing.T) {
	t.Parallel()
	_, repos := createDatabase(t)
	ctx := t.Context()

	values := map[string]string{"sensitivity": "0.70", "enabled": "TRUE", "empty": ""}
	require.NoError(t, repos.Settings.UpsertMany(ctx, values))

	entries, err := repos.Settings.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, values, repository.SettingsMap(entries))
}

func TestSettingsBatchRollsBackWithTransaction(t *testing.T) {
	t.Parallel()
	_, repos := createDatabase(t)
	ctx := t.Context()

	require.NoError(t, repos.Settings.UpsertMany(ctx, map[string]string{"a": "1"}))

	sentinel := errors.NewStd("abort")
	err := repos.Transaction(ctx, func(tx *repository.Set) error {
		if err := tx.Settings.UpsertMany(ctx, map[string]string{"a": "2", "b": "2"}); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	entries, err := repos.Settings.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1"}, repository.SettingsMap(entries))
}
