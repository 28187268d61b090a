// Package sqlite provides a SQLite-backed processed-file ledger and
// scheduler store.
//
// It uses modernc.org/sqlite, a pure Go SQLite implementation that needs
// no CGO. One database file serves both stores:
//
//   - LedgerStore: processed files and the vector IDs written for each
//   - SchedulerStore: the update schedule and recent runs
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Thread Safety
//
// All operations are safe for concurrent use. The database runs in WAL mode.
package sqlite
