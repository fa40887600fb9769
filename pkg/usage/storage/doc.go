// Package storage provides the bundled usage.Storage backends.
//
// # Overview
//
// Two implementations are included:
//
//   - MemoryStorage: records held in process memory, for tests and
//     ephemeral deployments.
//   - SQLiteStorage: durable append-only store for single-instance
//     deployments, with WAL journaling enabled by default.
//
// Both apply the same query semantics: filters are conjunctive, results
// are ordered newest first, and pagination applies after filtering.
package storage
