package usage

import (
	"context"
	"io"
	"time"

	"agentgw/costgate/pkg/identity"
	"agentgw/costgate/pkg/pricing"
)

// Outcome classifies how a request was settled.
type Outcome string

const (
	// OutcomeAllowed means the request was forwarded and billed.
	OutcomeAllowed Outcome = "allowed"

	// OutcomeRateLimited means the request was denied by the rate limiter.
	OutcomeRateLimited Outcome = "rate_limited"

	// OutcomeBudgetDenied means the request was denied by the budget ledger.
	OutcomeBudgetDenied Outcome = "budget_denied"

	// OutcomeProviderFailed means the upstream provider call failed and the
	// reservation was rolled back.
	OutcomeProviderFailed Outcome = "provider_failed"
)

// Billable reports whether records with this outcome carry cost.
func (o Outcome) Billable() bool {
	return o == OutcomeAllowed
}

// Record is one row of the append-only usage ledger.
type Record struct {
	// ID is a UUID v4 assigned by the recorder.
	ID string `json:"id"`

	// RequestID correlates the record with gateway request logs.
	RequestID string `json:"request_id"`

	// Timestamp is when the request was settled.
	Timestamp time.Time `json:"timestamp"`

	// Identity is the attribution pair the request was resolved to.
	Identity identity.Identity `json:"identity"`

	Provider string `json:"provider"`
	Model    string `json:"model"`

	// Token counts as reported by the provider. Zero for denied requests.
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`

	// Cost is the exact committed cost in micro-USD. Zero unless the
	// outcome is allowed.
	Cost pricing.MicroUSD `json:"cost_micro_usd"`

	Outcome Outcome `json:"outcome"`

	// LatencyMs is the provider round-trip in milliseconds; zero for
	// requests that never reached the provider.
	LatencyMs int64 `json:"latency_ms"`
}

// Query defines filter parameters for reading back usage records.
type Query struct {
	// Time range, inclusive on both ends. Nil means unbounded.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	UserID   string  `json:"user_id,omitempty"`
	TeamID   string  `json:"team_id,omitempty"`
	Provider string  `json:"provider,omitempty"`
	Model    string  `json:"model,omitempty"`
	Outcome  Outcome `json:"outcome,omitempty"`

	// Pagination.
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Storage defines the interface for usage storage backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists one usage record.
	Store(ctx context.Context, record *Record) error

	// Query retrieves records matching the filters, newest first.
	// Returns an empty slice if no records match.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns the number of records matching the filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Exporter writes usage-derived data to an output stream in a specific
// format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
