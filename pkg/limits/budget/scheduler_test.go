package budget

import (
	"context"
	"testing"

	"agentgw/costgate/pkg/identity"
	"agentgw/costgate/pkg/pricing"
)

func TestResetScheduler_EmptyScheduleIsNoop(t *testing.T) {
	s := NewResetScheduler(NewLedger(Config{}), "")

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start with empty schedule failed: %v", err)
	}
	if s.NextRun() != nil {
		t.Error("Expected no scheduled run")
	}
	s.Stop()
}

func TestResetScheduler_InvalidSchedule(t *testing.T) {
	s := NewResetScheduler(NewLedger(Config{}), "not a cron expression")

	if err := s.Start(context.Background()); err == nil {
		t.Error("Expected error for invalid cron expression")
	}
}

func TestResetScheduler_RunReset(t *testing.T) {
	ledger := NewLedger(Config{UserLimits: map[string]pricing.MicroUSD{"charlie": 1_000}})
	res, _ := ledger.Reserve(identity.Identity{UserID: "charlie", TeamID: "product"}, 1_000)
	ledger.Commit(res, 1_000)

	s := NewResetScheduler(ledger, "0 0 1 * *")
	hookRan := false
	s.OnReset(func() { hookRan = true })

	s.runReset()

	if !hookRan {
		t.Error("Expected reset hook to run")
	}
	usage, _ := ledger.Usage("charlie")
	if usage.Committed != 0 {
		t.Errorf("Committed = %d after reset, want 0", usage.Committed)
	}
}
