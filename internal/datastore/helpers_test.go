package datastore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tphakala/helmetwatch/internal/datastore/entities"
	"github.com/tphakala/helmetwatch/internal/datastore/repository"
)

func ptrTo[T any](v T) *T { return &v }

func seedSample(t *testing.T, repos *repository.Set) uint {
	t.Helper()

	v := &entities.Violation{ImagePath: "/violations/2024/violation_001.jpg", CameraSource: ptrTo("0")}
	require.NoError(t, repos.Violations.Create(t.Context(), v))
	return v.ID
}
