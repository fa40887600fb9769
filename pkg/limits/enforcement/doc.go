// Package enforcement maps governance denials to HTTP responses.
//
// # Overview
//
// The pipeline produces denials (rate limited, budget exceeded); the
// enforcer decides whether a denial blocks the request and how it is
// rendered on the wire. Rate denials answer 429 Too Many Requests with a
// Retry-After header; budget denials answer 402 Payment Required with a
// machine-readable reason code so billing failures are distinguishable
// from transient throttling.
//
// # Modes
//
// In enforce mode denials block the request. In shadow mode denials are
// logged and counted but the request proceeds, which lets operators
// validate limits against live traffic before turning them on.
package enforcement
