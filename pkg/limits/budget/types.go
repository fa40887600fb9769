package budget

import (
	"errors"
	"fmt"

	"agentgw/costgate/pkg/pricing"
)

// Sentinel errors for ledger operations.
var (
	// ErrExceeded indicates a reservation would push an account past its
	// limit.
	ErrExceeded = errors.New("budget exceeded")

	// ErrSettled indicates a commit or rollback on a reservation that was
	// already settled.
	ErrSettled = errors.New("reservation already settled")
)

// Config contains the spending limits applied by a ledger.
type Config struct {
	// DefaultLimit applies to users without an explicit entry in UserLimits.
	// Zero or negative means no limit.
	DefaultLimit pricing.MicroUSD

	// UserLimits maps user IDs to per-user limits. Zero or negative means
	// no limit for that user.
	UserLimits map[string]pricing.MicroUSD
}

// ExceededError reports a denied reservation with the account balances at
// denial time.
type ExceededError struct {
	UserID    string
	Requested pricing.MicroUSD
	Committed pricing.MicroUSD
	Reserved  pricing.MicroUSD
	Limit     pricing.MicroUSD
}

// Error implements the error interface.
func (e *ExceededError) Error() string {
	return fmt.Sprintf("budget exceeded for user %q: requested %s with %s committed, %s reserved of %s limit",
		e.UserID, e.Requested, e.Committed, e.Reserved, e.Limit)
}

// Unwrap returns ErrExceeded so callers can match with errors.Is.
func (e *ExceededError) Unwrap() error {
	return ErrExceeded
}

// Usage is a point-in-time view of one account's balances.
type Usage struct {
	UserID    string
	TeamID    string
	Committed pricing.MicroUSD
	Reserved  pricing.MicroUSD

	// Limit is the configured limit; zero or negative means unlimited.
	Limit pricing.MicroUSD
}

// Remaining returns the spend still admissible, or -1 for unlimited
// accounts.
func (u Usage) Remaining() pricing.MicroUSD {
	if u.Limit <= 0 {
		return -1
	}
	remaining := u.Limit - u.Committed - u.Reserved
	if remaining < 0 {
		return 0
	}
	return remaining
}
