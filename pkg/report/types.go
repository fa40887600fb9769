package report

import (
	"time"

	"agentgw/costgate/pkg/pricing"
)

// Window bounds a report in time. Nil bounds are unbounded.
type Window struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Row is one aggregated line of a chargeback report: a user, a team, or
// the totals.
type Row struct {
	// Key is the user ID or team ID the row aggregates.
	Key string `json:"key"`

	// Requests counts allowed requests only.
	Requests int64 `json:"requests"`

	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`

	// Cost is the exact committed spend in micro-USD.
	Cost pricing.MicroUSD `json:"cost_micro_usd"`
}

// Blocked counts non-billable request outcomes in the window.
type Blocked struct {
	RateLimited    int64 `json:"rate_limited"`
	BudgetDenied   int64 `json:"budget_denied"`
	ProviderFailed int64 `json:"provider_failed"`
}

// Total returns the total number of blocked requests.
func (b Blocked) Total() int64 {
	return b.RateLimited + b.BudgetDenied + b.ProviderFailed
}

// Report is a chargeback report over one time window.
//
// PerUser and PerTeam are ordered by descending cost, ties broken by key,
// so report output over a fixed record set is deterministic.
type Report struct {
	Window  Window  `json:"window"`
	PerUser []Row   `json:"per_user"`
	PerTeam []Row   `json:"per_team"`
	Totals  Row     `json:"totals"`
	Blocked Blocked `json:"blocked"`
}
