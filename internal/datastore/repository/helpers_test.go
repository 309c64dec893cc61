package repository_test

import (
	"testing"

	"github.com/tphakala/helmetwatch/internal/datastore"
	"github.com/tphakala/helmetwatch/internal/datastore/repository"
	"github.com/tphakala/helmetwatch/internal/testutil"
)

// createDatabase opens an initialized SQLite database in a temp dir.
func createDatabase(t *testing.T) (*datastore.SQLiteManager, *repository.Set) {
	t.Helper()

	m := testutil.NewSQLite(t)
	return m, repository.NewSet(m.DB(), false, testutil.NewStepClock().Now)
}

func ptr[T any](v T) *T { return testutil.Ptr(v) }
