package metrics

import (
	"testing"
	"time"
)

// The collectors register with the global registry, so the real Metrics
// is constructed at most once per process. Nil-safety is what the rest of
// the test suite relies on.

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics

	// None of these may panic.
	m.RecordRequest("anthropic", "claude-haiku", "allowed", time.Second)
	m.RecordRateLimitCheck(true)
	m.RecordBudgetCheck(false)
	m.SetBudgetCommitted("alice", 1820)
	m.AddCost("anthropic", "claude-haiku", 1820)
	m.SetRecorderQueueDepth(5)
	m.AddRecorderDropped(1)
	m.RecordProviderFailure("openai")
}

func TestCheckResult(t *testing.T) {
	if checkResult(true) != "allowed" {
		t.Errorf("checkResult(true) = %q", checkResult(true))
	}
	if checkResult(false) != "denied" {
		t.Errorf("checkResult(false) = %q", checkResult(false))
	}
}
