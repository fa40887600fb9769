// Package report derives chargeback reports from the usage ledger.
//
// # Overview
//
// A report aggregates allowed usage records into per-user and per-team
// rows with request counts, token totals, and exact micro-USD cost, plus
// counts of blocked traffic by denial reason. Reports are derived on
// demand from stored records; nothing is pre-aggregated, so a report over
// a fixed window is idempotent.
//
// # Reconciliation
//
// The per-user rows, the per-team rows, and the totals row are built from
// the same record set in one pass, so their cost sums always agree. Only
// records with the allowed outcome contribute cost; denials and provider
// failures are counted as blocked with zero cost.
package report
