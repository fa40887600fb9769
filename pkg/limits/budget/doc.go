// Package budget tracks per-identity spending against configured limits
// using a reserve/commit/rollback protocol.
//
// # Overview
//
// Each paying user owns one account with a spending limit, a committed
// total, and a reserved total. Before a request is forwarded upstream the
// caller reserves the estimated cost; after the upstream call the
// reservation is committed with the actual cost, or rolled back if the
// call failed:
//
//	res, err := ledger.Reserve(id, estimate)
//	if err != nil {
//	    // budget exceeded, deny the request
//	}
//	usage, err := provider.Complete(ctx, req)
//	if err != nil {
//	    ledger.Rollback(res)
//	    return err
//	}
//	ledger.Commit(res, actualCost)
//
// # Admission Invariant
//
// A reservation succeeds only when committed + reserved + estimate stays
// within the limit, so concurrent requests cannot collectively oversubscribe
// a budget. The reservation is an admission gate: committing an actual cost
// above the estimate is legal and never fails.
//
// # Thread Safety
//
// Account balances are guarded by a per-account mutex; operations on
// different users do not contend. Each reservation settles exactly once;
// a second Commit or Rollback returns an error.
package budget
