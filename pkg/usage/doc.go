// Package usage defines the append-only usage ledger: one record per
// request outcome, with the types and interfaces shared by the recorder,
// the storage backends, and the chargeback aggregator.
//
// # Overview
//
// Every request through the gateway produces exactly one usage record,
// whether it was forwarded, rate limited, denied on budget, or failed
// upstream. Only allowed records carry a cost; denials and failures are
// recorded with zero cost so reports can count blocked traffic without
// inflating spend.
//
// # Storage Backends
//
// Records are persisted via the Storage interface:
//
//   - storage.MemoryStorage: in-process, for tests
//   - storage.SQLiteStorage: durable single-instance backend
//
// Custom backends can be implemented by satisfying the Storage interface.
package usage
