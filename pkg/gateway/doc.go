// Package gateway orchestrates the governed request path: identity
// resolution, rate limiting, budget reservation, the provider call,
// settlement, and usage recording.
//
// # Overview
//
// The Pipeline is the ordered control flow every completion request
// passes through:
//
//  1. Resolve identity from X-User-ID / X-Team-ID.
//  2. Resolve pricing for the (provider, model) pair; unknown models fail
//     fast as configuration errors.
//  3. Check the rate limiter for the scoped key.
//  4. Reserve the estimated cost against the user's budget.
//  5. Call the provider, strictly outside limiter and ledger locks.
//  6. Commit the actual cost (or roll back on provider failure) exactly
//     once.
//  7. Record a usage row for every outcome, including denials.
//
// The Handler exposes the pipeline over HTTP with provider-shaped routes,
// a chargeback report endpoint, health, and Prometheus metrics. The
// Server wraps it all with graceful shutdown.
//
// # Thread Safety
//
// The pipeline is stateless between requests; all shared state lives in
// the limiter, ledger, and recorder, each safe for concurrent use. Any
// number of requests may be processed concurrently.
package gateway
