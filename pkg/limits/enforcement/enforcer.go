package enforcement

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// Enforcer applies denials according to the configured mode and renders
// blocked requests as HTTP error responses.
type Enforcer struct {
	mode   Mode
	logger *slog.Logger
}

// NewEnforcer creates an enforcer. An empty mode defaults to enforce.
func NewEnforcer(mode Mode) *Enforcer {
	if mode == "" {
		mode = ModeEnforce
	}
	return &Enforcer{
		mode:   mode,
		logger: slog.Default().With("component", "enforcement"),
	}
}

// Mode returns the active enforcement mode.
func (e *Enforcer) Mode() Mode {
	return e.mode
}

// RateLimitDenial builds a denial for an exhausted rate bucket.
func RateLimitDenial(retryAfter time.Duration) Denial {
	return Denial{
		Reason:     ReasonRateLimited,
		Detail:     "rate limit exceeded",
		RetryAfter: retryAfter,
	}
}

// BudgetDenial builds a denial for an exhausted budget.
func BudgetDenial(detail string) Denial {
	if detail == "" {
		detail = "budget exceeded"
	}
	return Denial{
		Reason: ReasonBudgetExceeded,
		Detail: detail,
	}
}

// Apply decides whether a denial blocks the request. In shadow mode the
// denial is logged and the request proceeds.
func (e *Enforcer) Apply(d Denial) Result {
	if e.mode == ModeShadow {
		e.logger.Warn("Denial suppressed in shadow mode",
			"reason", string(d.Reason),
			"detail", d.Detail)
		return Result{Blocked: false, Denial: d}
	}
	return Result{Blocked: true, Denial: d}
}

// StatusCode returns the HTTP status a denial maps to. Budget exhaustion
// is a billing condition, not throttling, so it gets its own status.
func StatusCode(reason Reason) int {
	switch reason {
	case ReasonBudgetExceeded:
		return http.StatusPaymentRequired
	default:
		return http.StatusTooManyRequests
	}
}

// WriteDenial renders a blocked denial as an HTTP error response.
func (e *Enforcer) WriteDenial(w http.ResponseWriter, d Denial) {
	if d.RetryAfter > 0 {
		seconds := int(d.RetryAfter.Round(time.Second).Seconds())
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusCode(d.Reason))

	body := errorResponse{Error: errorBody{
		Code:    string(d.Reason),
		Message: d.Detail,
	}}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		e.logger.Error("Failed to write denial response", "error", err)
	}
}

// WriteProviderError renders an upstream provider failure as 502.
func (e *Enforcer) WriteProviderError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadGateway)

	body := errorResponse{Error: errorBody{
		Code:    "provider_error",
		Message: fmt.Sprintf("upstream provider failed: %v", err),
	}}
	if encErr := json.NewEncoder(w).Encode(body); encErr != nil {
		e.logger.Error("Failed to write provider error response", "error", encErr)
	}
}
