// Package limits bundles the admission-control machinery: the token-bucket
// rate limiter, the budget ledger with its persistence backend, and the
// scheduled budget reset.
//
// # Overview
//
// The Manager owns the lifecycle the gateway's request path depends on:
// it restores budget accounts from the configured storage backend at
// startup, snapshots them periodically and at shutdown, and runs the
// cron-scheduled budget period reset. Request-path checks go directly to
// the limiter and ledger it exposes; the Manager itself stays off the hot
// path.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. The limiter and
// ledger carry their own locking; the Manager only coordinates background
// work.
package limits
