// Package repository provides the store-facing repositories for detection
// sessions, system status, violations and settings.
//
// # Error Handling
//
// Repositories return sentinel errors (ErrSessionNotFound, ErrNoFields, etc.)
// wrapped in categorized EnhancedErrors instead of leaking GORM errors, so
// callers use errors.Is for the failure and errors.IsNotFound and friends for
// the kind. Unique constraint violations from either backend are reported as
// conflicts.
//
// # Time
//
// All timestamps are written in UTC. SQLite stores times as text, so mixing
// offsets would break ordering on session_start, updated_at and
// violation_time.
//
// # Transactions
//
// A Set bundles the four repositories over one *gorm.DB. Set.Transaction
// hands the callback a Set bound to the transaction, so every repository call
// inside it commits or rolls back together.
package repository
