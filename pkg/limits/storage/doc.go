// Package storage persists budget account snapshots so committed spend
// survives process restarts.
//
// # Overview
//
// The ledger is the source of truth at runtime; backends store periodic
// snapshots of committed totals and restore them at startup. Reserved
// amounts are never persisted since reservations do not outlive the
// process.
//
// # Backends
//
//   - MemoryBackend: snapshots held in process memory, for tests and
//     deployments that accept budget loss on restart.
//   - SQLiteBackend: durable snapshots in a SQLite database with WAL
//     journaling, for single-instance deployments.
package storage
