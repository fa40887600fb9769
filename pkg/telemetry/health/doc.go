// Package health aggregates liveness and readiness checks for the
// gateway's collaborators.
//
// # Overview
//
// Liveness answers "is the process up" and never touches dependencies.
// Readiness runs every registered check concurrently, each under its own
// timeout, and reports degraded as soon as one dependency is unhealthy:
//
//	checker := health.New(0)
//	checker.RegisterCheck("usage-storage", func(ctx context.Context) error {
//	    _, err := store.Count(ctx, &usage.Query{Limit: 1})
//	    return err
//	})
//
// # Thread Safety
//
// All methods are safe for concurrent use.
package health
