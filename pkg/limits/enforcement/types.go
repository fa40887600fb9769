package enforcement

import (
	"time"
)

// Mode selects how denials are applied.
type Mode string

const (
	// ModeEnforce blocks denied requests.
	ModeEnforce Mode = "enforce"

	// ModeShadow logs denials but lets the request proceed.
	ModeShadow Mode = "shadow"
)

// Reason is a machine-readable denial code carried in error responses.
type Reason string

const (
	ReasonRateLimited    Reason = "rate_limited"
	ReasonBudgetExceeded Reason = "budget_exceeded"
)

// Denial describes why a request failed admission.
type Denial struct {
	// Reason is the machine-readable code.
	Reason Reason

	// Detail is a human-readable explanation included in the response body.
	Detail string

	// RetryAfter, when positive, is surfaced as a Retry-After header.
	// Only meaningful for rate denials.
	RetryAfter time.Duration
}

// Result reports how a denial was applied.
type Result struct {
	// Blocked indicates the request must not proceed.
	Blocked bool

	// Denial is the originating denial, echoed for logging.
	Denial Denial
}

// errorResponse is the JSON error envelope written on blocked requests.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
