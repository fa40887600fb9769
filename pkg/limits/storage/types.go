package storage

import (
	"context"
	"time"

	"agentgw/costgate/pkg/limits/budget"
)

// Backend defines the interface for budget account persistence.
// Implementations must be safe for concurrent use.
type Backend interface {
	// SaveAccounts upserts a snapshot of the given accounts. Accounts not
	// in the slice are left untouched.
	SaveAccounts(ctx context.Context, states []budget.AccountState) error

	// LoadAccounts returns all persisted account states.
	LoadAccounts(ctx context.Context) ([]budget.AccountState, error)

	// Cleanup removes accounts not updated since the given time. It
	// returns the number of rows deleted.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases resources held by the backend.
	// The backend must not be used after Close.
	Close() error
}
