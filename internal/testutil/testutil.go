// Package testutil provides shared test helpers for the datastore,
// coordinator and API tests.
package testutil

import (
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tphakala/helmetwatch/internal/datastore"
	"github.com/tphakala/helmetwatch/internal/logger"
)

// Common test timeout constants.
const (
	// DefaultTestTimeout is the standard timeout for most async test operations.
	DefaultTestTimeout = 5 * time.Second

	// ShortTestTimeout is for operations expected to complete quickly.
	ShortTestTimeout = 1 * time.Second
)

// Epoch is the first instant handed out by NewStepClock.
var Epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// StepClock returns a strictly increasing time on every call so recency
// ordering is deterministic.
type StepClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStepClock starts a clock at Epoch.
func NewStepClock() *StepClock {
	return &StepClock{now: Epoch}
}

// Now advances the clock by one second and returns the new time.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// Logger returns a logger that discards everything below error level.
func Logger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

// NewSQLite opens an initialized SQLite database in a temp dir. It is
// closed when the test ends.
func NewSQLite(t *testing.T) *datastore.SQLiteManager {
	t.Helper()

	m, err := datastore.NewSQLiteManager(filepath.Join(t.TempDir(), "test.db"), Logger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Initialize())

	return m
}

// WaitForChannel waits for a signal on the channel or fails after timeout.
func WaitForChannel(t *testing.T, ch <-chan struct{}, timeout time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		require.Fail(t, msg)
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
