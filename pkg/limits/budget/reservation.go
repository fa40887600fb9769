package budget

import (
	"sync/atomic"

	"github.com/google/uuid"

	"agentgw/costgate/pkg/pricing"
)

// Reservation states.
const (
	statePending int32 = iota
	stateCommitted
	stateRolledBack
)

// Reservation is a pending hold against an account. It must be settled
// exactly once, by Ledger.Commit or Ledger.Rollback.
type Reservation struct {
	// ID uniquely identifies the reservation for logging and audit.
	ID string

	account *Account
	amount  pricing.MicroUSD
	state   atomic.Int32
}

func newReservation(account *Account, amount pricing.MicroUSD) *Reservation {
	return &Reservation{
		ID:      uuid.New().String(),
		account: account,
		amount:  amount,
	}
}

// Amount returns the reserved estimate.
func (r *Reservation) Amount() pricing.MicroUSD {
	return r.amount
}

// UserID returns the account the reservation holds against.
func (r *Reservation) UserID() string {
	return r.account.userID
}

// settle transitions the reservation out of pending. It returns false when
// the reservation was already settled.
func (r *Reservation) settle(to int32) bool {
	return r.state.CompareAndSwap(statePending, to)
}
