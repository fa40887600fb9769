package enforcement

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func TestEnforcer_EnforceModeBlocks(t *testing.T) {
	enforcer := NewEnforcer(ModeEnforce)

	result := enforcer.Apply(RateLimitDenial(30 * time.Second))
	if !result.Blocked {
		t.Error("Enforce mode must block denials")
	}
}

func TestEnforcer_ShadowModePasses(t *testing.T) {
	enforcer := NewEnforcer(ModeShadow)

	result := enforcer.Apply(BudgetDenial(""))
	if result.Blocked {
		t.Error("Shadow mode must not block denials")
	}
	if result.Denial.Reason != ReasonBudgetExceeded {
		t.Errorf("Denial reason = %q, want budget_exceeded", result.Denial.Reason)
	}
}

func TestEnforcer_DefaultModeIsEnforce(t *testing.T) {
	enforcer := NewEnforcer("")
	if enforcer.Mode() != ModeEnforce {
		t.Errorf("Mode = %q, want enforce", enforcer.Mode())
	}
}

func TestWriteDenial_RateLimited(t *testing.T) {
	enforcer := NewEnforcer(ModeEnforce)
	rec := httptest.NewRecorder()

	enforcer.WriteDenial(rec, RateLimitDenial(42*time.Second))

	if rec.Code != 429 {
		t.Errorf("Status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "42" {
		t.Errorf("Retry-After = %q, want \"42\"", got)
	}

	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON body: %v", err)
	}
	if body.Error.Code != "rate_limited" {
		t.Errorf("Error code = %q, want rate_limited", body.Error.Code)
	}
}

func TestWriteDenial_BudgetExceeded(t *testing.T) {
	enforcer := NewEnforcer(ModeEnforce)
	rec := httptest.NewRecorder()

	enforcer.WriteDenial(rec, BudgetDenial("budget exceeded for user \"charlie\""))

	if rec.Code != 402 {
		t.Errorf("Status = %d, want 402", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "" {
		t.Error("Budget denials must not carry Retry-After")
	}

	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON body: %v", err)
	}
	if body.Error.Code != "budget_exceeded" {
		t.Errorf("Error code = %q, want budget_exceeded", body.Error.Code)
	}
}

func TestWriteDenial_SubSecondRetryAfterRoundsUp(t *testing.T) {
	enforcer := NewEnforcer(ModeEnforce)
	rec := httptest.NewRecorder()

	enforcer.WriteDenial(rec, RateLimitDenial(200*time.Millisecond))

	if got := rec.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want \"1\"", got)
	}
}

func TestWriteProviderError(t *testing.T) {
	enforcer := NewEnforcer(ModeEnforce)
	rec := httptest.NewRecorder()

	enforcer.WriteProviderError(rec, errors.New("connection refused"))

	if rec.Code != 502 {
		t.Errorf("Status = %d, want 502", rec.Code)
	}

	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON body: %v", err)
	}
	if body.Error.Code != "provider_error" {
		t.Errorf("Error code = %q, want provider_error", body.Error.Code)
	}
}
