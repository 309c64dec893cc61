package repository_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/helmetwatch/internal/datastore/entities"
	"github.com/tphakala/helmetwatch/internal/datastore/repository"
	"github.com/tphakala/helmetwatch/internal/errors"
	"github.com/tphakala/helmetwatch/internal/testutil"
)

var baseTime = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

// seedViolations inserts n violations one hour apart; every third is
// reviewed and every second is flagged.
func seedViolations(t *testing.T, repos *repository.Set, n int) []entities.Violation {
	t.Helper()

	rows := make([]entities.Violation, 0, n)
	for i := range n {
		rows = append(rows, entities.Violation{
			ImagePath:     fmt.Sprintf("/violations/2024/violation_%03d.jpg", i),
			ViolationTime: baseTime.Add(time.Duration(i) * time.Hour),
			Reviewed:      i%3 == 0,
			Flagged:       i%2 == 0,
		})
	}
	require.NoError(t, repos.Violations.CreateBatch(t.Context(), rows))
	return rows
}

func TestViolationCreateGetRoundTrip(t *testing.T) {
	t.Parallel()
	_, repos := createDatabase(t)
	ctx := t.Context()

	in := &entities.Violation{
		ImagePath:              "/violations/2024/violation_001.jpg",
		LicensePlateText:       ptr("ABC-123"),
		LicensePlateConfidence: ptr(0.87),
		DetectionConfidence:    ptr(0.95),
		CameraSource:           ptr("0"),
	}
	require.NoError(t, repos.Violations.Create(ctx, in))
	assert.NotZero(t, in.ID)

	got, err := repos.Violations.GetByID(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, in.ImagePath, got.ImagePath)
	assert.Equal(t, "ABC-123", *got.LicensePlateText)
	assert.InDelta(t, 0.87, *got.LicensePlateConfidence, 1e-9)
	assert.InDelta(t, 0.95, *got.DetectionConfidence, 1e-9)
	assert.Equal(t, "0", *got.CameraSource)
	assert.False(t, got.Reviewed)
	assert.False(t, got.Flagged)
	assert.False(t, got.ViolationTime.IsZero(), "violation_time defaults to now")
	assert.False(t, got.CreatedAt.IsZero())
}

func TestViolationOptionalFieldsStayNull(t *testing.T) {
	t.Parallel()
	_, repos := createDatabase(t)
	ctx := t.Context()

	in := &entities.Violation{ImagePath: "/violations/x.jpg", ViolationTime: baseTime}
	require.NoError(t, repos.Violations.Create(ctx, in))

	got, err := repos.Violations.GetByID(ctx, in.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LicensePlateText)
	assert.Nil(t, got.LicensePlateConfidence)
	assert.Nil(t, got.DetectionConfidence)
	assert.Nil(t, got.CameraSource)
	assert.True(t, baseTime.Equal(got.ViolationTime))
}

func TestViolationGetMissing(t *testing.T) {
	t.Parallel()
	_, repos := createDatabase(t)

	_, err := repos.Violations.GetByID(t.Context(), 999)
	require.ErrorIs(t, err, repository.ErrViolationNotFound)
	assert.True(t, errors.IsNotFound(err))
}

func TestViolationListUnfiltered(t *testing.T) {
	t.Parallel()
	_, repos := createDatabase(t)
	seedViolations(t, repos, 25)

	items, total, err := repos.Violations.List(t.Context(), repository.ViolationFilter{}, repository.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	require.Len(t, items, 10)

	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].ViolationTime.After(items[i-1].ViolationTime), "ordered by violation_time descending")
	}
	assert.True(t, baseTime.Add(24*time.Hour).Equal(items[0].ViolationTime))
}

func TestViolationListDefaultsAndOffset(t *testing.T) {
	t.Parallel()
	_, repos := createDatabase(t)
	seedViolations(t, repos, 25)
	ctx := t.Context()

	items, total, err := repos.Violations.List(ctx, repository.ViolationFilter{}, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	assert.Len(t, items, repository.DefaultLimit)

	page2, _, err := repos.Violations.List(ctx, repository.ViolationFilter{}, repository.Page{Page: 2, Limit: 20})
	require.NoError(t, err)
	require.Len(t, page2, 5)
	assert.True(t, baseTime.Add(4*time.Hour).Equal(page2[0].ViolationTime))

	beyond, total, err := repos.Violations.List(ctx, repository.ViolationFilter{}, repository.Page{Page: 9, Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, beyond)
	assert.Equal(t, int64(25), total)
}

func TestViolationListReviewedPartition(t *testing.T) {
	t.Parallel()
	_, repos := createDatabase(t)
	seeded := seedViolations(t, repos, 12)
	ctx := t.Context()
	all := repository.Page{Limit: 100}

	reviewed, reviewedTotal, err := repos.Violations.List(ctx, repository.ViolationFilter{Reviewed: ptr(true)}, all)
	require.NoError(t, err)
	unreviewed, unreviewedTotal, err := repos.Violations.List(ctx, repository.ViolationFilter{Reviewed: ptr(false)}, all)
	require.NoError(t, err)

	for _, v := range reviewed {
		assert.True(t, v.Reviewed)
	}
	for _, v := range unreviewed {
		assert.False(t, v.Reviewed)
	}

	seen := make(map[uint]int)
	for _, v := range append(reviewed, unreviewed...) {
		seen[v.ID]++
	}
	assert.Len(t, seen, len(seeded))
	for id, n := range seen {
		assert.Equal(t, 1, n, "violation %d appears once", id)
	}
	assert.Equal(t, int64(len(seeded)), reviewedTotal+unreviewedTotal)
}

func TestViolationListCombinedFilters(t *testing.T) {
	t.Parallel()
	_, repos := createDatabase(t)
	seedViolations(t, repos, 12)

	filter := repository.ViolationFilter{
		Flagged:   ptr(true),
		StartDate: ptr(baseTime.Add(2 * time.Hour)),
		EndDate:   ptr(baseTime.Add(8 * time.Hour)),
	}
	items, total, err := repos.Violations.List(t.Context(), filter, repository.Page{Limit: 100})
	require.NoError(t, err)

	// flagged rows are the even hours; 2, 4, 6 and 8 fall inside the inclusive range
	assert.Equal(t, int64(4), total)
	require.Len(t, items, 4)
	for _, v := range items {
		assert.True(t, v.Flagged)
		assert.False(t, v.ViolationTime.Before(*filter.StartDate))
		assert.False(t, v.ViolationTime.After(*filter.EndDate))
	}
}

func TestViolationUpdateFlagsChangesOnlyFlags(t *testing.T) {
	t.Parallel()
	_, repos := createDatabase(t)
	ctx := t.Context()

	in := &entities.Violation{
		ImagePath:        "/violations/2024/violation_002.jpg",
		LicensePlateText: ptr("XYZ-789"),
		CameraSource:     ptr("1"),
		ViolationTime:    baseTime,
	}
	require.NoError(t, repos.Violations.Create(ctx, in))
	before, err := repos.Violations.GetByID(ctx, in.ID)
	require.NoError(t, err)

	after, err := repos.Violations.UpdateFlags(ctx, in.ID, repository.ViolationFlags{Flagged: ptr(true)})
	require.NoError(t, err)

	assert.True(t, after.Flagged)
	assert.Equal(t, before.Reviewed, after.Reviewed)
	assert.Equal(t, before.ImagePath, after.ImagePath)
	assert.Equal(t, before.LicensePlateText, after.LicensePlateText)
	assert.Equal(t, before.CameraSource, after.CameraSource)
	assert.True(t, before.ViolationTime.Equal(after.ViolationTime))
	assert.True(t, before.CreatedAt.Equal(after.CreatedAt))
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
}

func TestViolationTimestampsUseRepositoryClock(t *testing.T) {
	t.Parallel()
	_, repos := createDatabase(t)
	ctx := t.Context()

	in := &entities.Violation{ImagePath: "/violations/2024/violation_003.jpg"}
	require.NoError(t, repos.Violations.Create(ctx, in))

	stored, err := repos.Violations.GetByID(ctx, in.ID)
	require.NoError(t, err)
	assert.True(t, stored.CreatedAt.After(testutil.Epoch), "created_at %s", stored.CreatedAt)
	assert.True(t, stored.CreatedAt.Before(testutil.Epoch.Add(time.Hour)), "created_at %s", stored.CreatedAt)
	assert.True(t, stored.CreatedAt.Equal(stored.UpdatedAt))
	assert.True(t, stored.CreatedAt.Equal(stored.ViolationTime))

	for range 3 {
		updated, err := repos.Violations.UpdateFlags(ctx, in.ID, repository.ViolationFlags{Reviewed: ptr(true)})
		require.NoError(t, err)
		assert.True(t, updated.UpdatedAt.After(stored.UpdatedAt))
		assert.True(t, updated.CreatedAt.Equal(stored.CreatedAt))
		stored = updated
	}
}

func TestViolationUpdateFlagsValidation(t *testing.T) {
	t.Parallel()
	_, repos := createDatabase(t)
	ctx := t.Context()

	_, err := repos.Violations.UpdateFlags(ctx, 1, repository.ViolationFlags{})
	require.ErrorIs(t, err, repository.ErrNoFields)

	_, err = repos.Violations.UpdateFlags(ctx, 42, repository.ViolationFlags{Reviewed: ptr(true)})
	require.ErrorIs(t, err, repository.ErrViolationNotFound)
}

func TestViolationDelete(t *testing.T) {
	t.Parallel()
	_, repos := createDatabase(t)
	seedViolations(t, repos, 3)
	ctx := t.Context()

	err := repos.Violations.Delete(ctx, 999)
	require.ErrorIs(t, err, repository.ErrViolationNotFound)

	_, total, err := repos.Violations.List(ctx, repository.ViolationFilter{}, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total, "failed delete changes nothing")

	require.NoError(t, repos.Violations.Delete(ctx, 1))
	_, err = repos.Violations.GetByID(ctx, 1)
	require.ErrorIs(t, err, repository.ErrViolationNotFound)
}

func TestPageTotalPages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		limit int
		total int64
		want  int64
	}{
		{20, 0, 0},
		{20, 1, 1},
		{20, 20, 1},
		{20, 21, 2},
		{7, 50, 8},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_of_%d", tt.total, tt.limit), func(t *testing.T) {
			assert.Equal(t, tt.want, repository.Page{Page: 1, Limit: tt.limit}.TotalPages(tt.total))
		})
	}
}
