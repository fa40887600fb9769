package budget

import (
	"log/slog"
	"sync"

	"agentgw/costgate/pkg/identity"
	"agentgw/costgate/pkg/pricing"
)

// Account holds the balances for one paying user.
// Balance fields are guarded by mu.
type Account struct {
	mu        sync.Mutex
	userID    string
	teamID    string
	limit     pricing.MicroUSD
	committed pricing.MicroUSD
	reserved  pricing.MicroUSD
}

// AccountState is a snapshot of one account for persistence.
type AccountState struct {
	UserID    string
	TeamID    string
	Committed pricing.MicroUSD
	Limit     pricing.MicroUSD
}

// Ledger manages budget accounts keyed by user ID. Budgets follow the
// paying user across teams; the team is tracked for attribution only.
type Ledger struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.RWMutex
	accounts map[string]*Account
}

// NewLedger creates a ledger with the given limit configuration.
func NewLedger(cfg Config) *Ledger {
	return &Ledger{
		cfg:      cfg,
		logger:   slog.Default().With("component", "budget"),
		accounts: make(map[string]*Account),
	}
}

// limitFor resolves the configured limit for a user.
func (l *Ledger) limitFor(userID string) pricing.MicroUSD {
	if limit, ok := l.cfg.UserLimits[userID]; ok {
		return limit
	}
	return l.cfg.DefaultLimit
}

// getAccount returns the account for a user, creating it on first use.
func (l *Ledger) getAccount(id identity.Identity) *Account {
	l.mu.RLock()
	a, ok := l.accounts[id.UserID]
	l.mu.RUnlock()
	if ok {
		return a
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok := l.accounts[id.UserID]; ok {
		return a
	}
	a = &Account{
		userID: id.UserID,
		teamID: id.TeamID,
		limit:  l.limitFor(id.UserID),
	}
	l.accounts[id.UserID] = a
	return a
}

// Reserve places a hold of estimate against the identity's account.
//
// The reservation is denied when committed + reserved + estimate would
// exceed the account limit. A limit of zero or below means unlimited and
// always admits. Negative estimates are treated as zero.
func (l *Ledger) Reserve(id identity.Identity, estimate pricing.MicroUSD) (*Reservation, error) {
	if estimate < 0 {
		estimate = 0
	}

	a := l.getAccount(id)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.teamID = id.TeamID

	if a.limit > 0 && a.committed+a.reserved+estimate > a.limit {
		return nil, &ExceededError{
			UserID:    a.userID,
			Requested: estimate,
			Committed: a.committed,
			Reserved:  a.reserved,
			Limit:     a.limit,
		}
	}

	a.reserved += estimate
	return newReservation(a, estimate), nil
}

// Commit settles a reservation with the actual cost of the request.
//
// The actual cost replaces the estimate: the hold is released and the
// actual amount is committed, even when it exceeds the estimate. Committing
// an already settled reservation returns ErrSettled and leaves balances
// untouched.
func (l *Ledger) Commit(r *Reservation, actual pricing.MicroUSD) error {
	if !r.settle(stateCommitted) {
		return ErrSettled
	}
	if actual < 0 {
		actual = 0
	}

	a := r.account
	a.mu.Lock()
	a.reserved -= r.amount
	a.committed += actual
	a.mu.Unlock()

	l.logger.Debug("Reservation committed",
		"reservation_id", r.ID,
		"user_id", a.userID,
		"estimate", r.amount,
		"actual", actual)
	return nil
}

// Rollback releases a reservation without committing any cost.
// Rolling back an already settled reservation returns ErrSettled.
func (l *Ledger) Rollback(r *Reservation) error {
	if !r.settle(stateRolledBack) {
		return ErrSettled
	}

	a := r.account
	a.mu.Lock()
	a.reserved -= r.amount
	a.mu.Unlock()

	l.logger.Debug("Reservation rolled back",
		"reservation_id", r.ID,
		"user_id", a.userID,
		"estimate", r.amount)
	return nil
}

// Usage returns the balances for a user. The second return value reports
// whether the user has an account.
func (l *Ledger) Usage(userID string) (Usage, bool) {
	l.mu.RLock()
	a, ok := l.accounts[userID]
	l.mu.RUnlock()
	if !ok {
		return Usage{}, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return Usage{
		UserID:    a.userID,
		TeamID:    a.teamID,
		Committed: a.committed,
		Reserved:  a.reserved,
		Limit:     a.limit,
	}, true
}

// SetLimit overrides the limit for one user, creating the account if
// needed. Zero or negative removes the cap.
func (l *Ledger) SetLimit(userID string, limit pricing.MicroUSD) {
	a := l.getAccount(identity.Identity{UserID: userID, TeamID: identity.DefaultTeam})

	a.mu.Lock()
	a.limit = limit
	a.mu.Unlock()
}

// Reset zeroes the committed total for one user. In-flight reservations
// are untouched.
func (l *Ledger) Reset(userID string) {
	l.mu.RLock()
	a, ok := l.accounts[userID]
	l.mu.RUnlock()
	if !ok {
		return
	}

	a.mu.Lock()
	a.committed = 0
	a.mu.Unlock()
}

// ResetAll zeroes committed totals for every account. Used by the reset
// scheduler at the start of each budget period.
func (l *Ledger) ResetAll() int {
	l.mu.RLock()
	accounts := make([]*Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		accounts = append(accounts, a)
	}
	l.mu.RUnlock()

	for _, a := range accounts {
		a.mu.Lock()
		a.committed = 0
		a.mu.Unlock()
	}

	l.logger.Info("Budget period reset", "accounts", len(accounts))
	return len(accounts)
}

// Snapshot captures all account states for persistence.
func (l *Ledger) Snapshot() []AccountState {
	l.mu.RLock()
	accounts := make([]*Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		accounts = append(accounts, a)
	}
	l.mu.RUnlock()

	states := make([]AccountState, 0, len(accounts))
	for _, a := range accounts {
		a.mu.Lock()
		states = append(states, AccountState{
			UserID:    a.userID,
			TeamID:    a.teamID,
			Committed: a.committed,
			Limit:     a.limit,
		})
		a.mu.Unlock()
	}
	return states
}

// Restore loads previously snapshotted accounts, typically at startup.
// Reserved totals are not restored; reservations do not survive a restart.
func (l *Ledger) Restore(states []AccountState) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, s := range states {
		l.accounts[s.UserID] = &Account{
			userID:    s.UserID,
			teamID:    s.TeamID,
			committed: s.Committed,
			limit:     s.Limit,
		}
	}
}
