package budget

import (
	"errors"
	"sync"
	"testing"

	"agentgw/costgate/pkg/identity"
	"agentgw/costgate/pkg/pricing"
)

func id(user, team string) identity.Identity {
	return identity.Identity{UserID: user, TeamID: team}
}

// ============================================================================
// Reservation Tests
// ============================================================================

func TestLedger_ReserveCommit(t *testing.T) {
	ledger := NewLedger(Config{
		UserLimits: map[string]pricing.MicroUSD{"charlie": 20_000}, // $0.02
	})

	res, err := ledger.Reserve(id("charlie", "product"), 5_000)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	usage, ok := ledger.Usage("charlie")
	if !ok {
		t.Fatal("Expected account for charlie")
	}
	if usage.Reserved != 5_000 || usage.Committed != 0 {
		t.Errorf("After reserve: %+v", usage)
	}

	if err := ledger.Commit(res, 4_200); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	usage, _ = ledger.Usage("charlie")
	if usage.Reserved != 0 {
		t.Errorf("Reserved = %d after commit, want 0", usage.Reserved)
	}
	if usage.Committed != 4_200 {
		t.Errorf("Committed = %d, want 4200", usage.Committed)
	}
}

func TestLedger_DeniesOverLimit(t *testing.T) {
	// A $0.02 limit admits requests until committed + reserved would pass
	// 20000 micro-USD.
	ledger := NewLedger(Config{
		UserLimits: map[string]pricing.MicroUSD{"charlie": 20_000},
	})

	for i := 0; i < 4; i++ {
		res, err := ledger.Reserve(id("charlie", "product"), 5_000)
		if err != nil {
			t.Fatalf("Reserve %d failed: %v", i+1, err)
		}
		if err := ledger.Commit(res, 5_000); err != nil {
			t.Fatalf("Commit %d failed: %v", i+1, err)
		}
	}

	_, err := ledger.Reserve(id("charlie", "product"), 5_000)
	if err == nil {
		t.Fatal("Expected denial at exhausted budget")
	}
	if !errors.Is(err, ErrExceeded) {
		t.Errorf("Expected ErrExceeded, got %v", err)
	}

	var exceeded *ExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("Expected ExceededError, got %T", err)
	}
	if exceeded.Committed != 20_000 || exceeded.Limit != 20_000 {
		t.Errorf("Unexpected error fields: %+v", exceeded)
	}
}

func TestLedger_ReservedCountsAgainstLimit(t *testing.T) {
	ledger := NewLedger(Config{DefaultLimit: 10_000})

	// An unsettled reservation holds budget against concurrent requests.
	if _, err := ledger.Reserve(id("alice", "eng"), 8_000); err != nil {
		t.Fatalf("First reserve failed: %v", err)
	}
	if _, err := ledger.Reserve(id("alice", "eng"), 3_000); err == nil {
		t.Fatal("Second reserve should be denied while the hold is pending")
	}
}

func TestLedger_RollbackReleasesHold(t *testing.T) {
	ledger := NewLedger(Config{DefaultLimit: 10_000})

	res, err := ledger.Reserve(id("alice", "eng"), 8_000)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if err := ledger.Rollback(res); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	usage, _ := ledger.Usage("alice")
	if usage.Reserved != 0 || usage.Committed != 0 {
		t.Errorf("After rollback: %+v", usage)
	}

	// The released hold admits the next request.
	if _, err := ledger.Reserve(id("alice", "eng"), 8_000); err != nil {
		t.Errorf("Reserve after rollback failed: %v", err)
	}
}

func TestLedger_CommitAboveEstimate(t *testing.T) {
	// The reservation is an admission gate: actual cost above the estimate
	// still commits.
	ledger := NewLedger(Config{DefaultLimit: 10_000})

	res, err := ledger.Reserve(id("alice", "eng"), 1_000)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if err := ledger.Commit(res, 9_500); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	usage, _ := ledger.Usage("alice")
	if usage.Committed != 9_500 {
		t.Errorf("Committed = %d, want 9500", usage.Committed)
	}
}

func TestLedger_UnlimitedAccount(t *testing.T) {
	ledger := NewLedger(Config{}) // zero default limit means unlimited

	res, err := ledger.Reserve(id("alice", "eng"), 1_000_000_000)
	if err != nil {
		t.Fatalf("Unlimited account denied reservation: %v", err)
	}
	if err := ledger.Commit(res, 1_000_000_000); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	usage, _ := ledger.Usage("alice")
	if usage.Remaining() != -1 {
		t.Errorf("Remaining = %d for unlimited account, want -1", usage.Remaining())
	}
}

// ============================================================================
// Exactly-Once Settlement Tests
// ============================================================================

func TestLedger_SettleExactlyOnce(t *testing.T) {
	ledger := NewLedger(Config{DefaultLimit: 10_000})

	res, _ := ledger.Reserve(id("alice", "eng"), 1_000)
	if err := ledger.Commit(res, 1_000); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if err := ledger.Commit(res, 1_000); !errors.Is(err, ErrSettled) {
		t.Errorf("Second commit: got %v, want ErrSettled", err)
	}
	if err := ledger.Rollback(res); !errors.Is(err, ErrSettled) {
		t.Errorf("Rollback after commit: got %v, want ErrSettled", err)
	}

	// Balances unchanged by the rejected settlements.
	usage, _ := ledger.Usage("alice")
	if usage.Committed != 1_000 || usage.Reserved != 0 {
		t.Errorf("Balances disturbed by rejected settlement: %+v", usage)
	}
}

func TestLedger_ConcurrentSettlement(t *testing.T) {
	ledger := NewLedger(Config{DefaultLimit: 1_000_000})

	res, _ := ledger.Reserve(id("alice", "eng"), 1_000)

	var wg sync.WaitGroup
	settled := make(chan error, 10)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			settled <- ledger.Commit(res, 1_000)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			settled <- ledger.Rollback(res)
		}()
	}
	wg.Wait()
	close(settled)

	succeeded := 0
	for err := range settled {
		if err == nil {
			succeeded++
		}
	}
	if succeeded != 1 {
		t.Errorf("%d settlements succeeded, want exactly 1", succeeded)
	}
}

// ============================================================================
// Invariant Tests
// ============================================================================

func TestLedger_ConcurrentReservationsHoldInvariant(t *testing.T) {
	const limit = 100_000
	ledger := NewLedger(Config{DefaultLimit: limit})

	var wg sync.WaitGroup
	var mu sync.Mutex
	var admitted pricing.MicroUSD

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := ledger.Reserve(id("alice", "eng"), 7_000)
			if err != nil {
				return
			}
			mu.Lock()
			admitted += 7_000
			mu.Unlock()
			ledger.Commit(res, 7_000)
		}()
	}
	wg.Wait()

	if admitted > limit {
		t.Errorf("Admitted %d micro-USD against a %d limit", admitted, limit)
	}

	usage, _ := ledger.Usage("alice")
	if usage.Committed != admitted {
		t.Errorf("Committed = %d, want %d", usage.Committed, admitted)
	}
	if usage.Reserved != 0 {
		t.Errorf("Reserved = %d after all settlements, want 0", usage.Reserved)
	}
}

func TestLedger_AccountsIndependent(t *testing.T) {
	ledger := NewLedger(Config{
		UserLimits: map[string]pricing.MicroUSD{"charlie": 1},
	})

	if _, err := ledger.Reserve(id("charlie", "product"), 1_000); err == nil {
		t.Fatal("charlie should be denied")
	}
	if _, err := ledger.Reserve(id("alice", "eng"), 1_000); err != nil {
		t.Errorf("alice should be unaffected by charlie's limit: %v", err)
	}
}

// ============================================================================
// Reset and Persistence Tests
// ============================================================================

func TestLedger_Reset(t *testing.T) {
	ledger := NewLedger(Config{DefaultLimit: 10_000})

	res, _ := ledger.Reserve(id("alice", "eng"), 10_000)
	ledger.Commit(res, 10_000)

	if _, err := ledger.Reserve(id("alice", "eng"), 1); err == nil {
		t.Fatal("Expected denial at exhausted budget")
	}

	ledger.Reset("alice")

	if _, err := ledger.Reserve(id("alice", "eng"), 10_000); err != nil {
		t.Errorf("Reserve after reset failed: %v", err)
	}
}

func TestLedger_SnapshotRestore(t *testing.T) {
	ledger := NewLedger(Config{DefaultLimit: 10_000})

	res, _ := ledger.Reserve(id("alice", "eng"), 2_500)
	ledger.Commit(res, 2_500)
	pending, _ := ledger.Reserve(id("alice", "eng"), 1_000)

	states := ledger.Snapshot()
	if len(states) != 1 {
		t.Fatalf("Snapshot returned %d states, want 1", len(states))
	}
	if states[0].Committed != 2_500 {
		t.Errorf("Snapshot committed = %d, want 2500", states[0].Committed)
	}

	// Restart: reservations do not survive, committed totals do.
	restored := NewLedger(Config{DefaultLimit: 10_000})
	restored.Restore(states)

	usage, ok := restored.Usage("alice")
	if !ok {
		t.Fatal("Expected restored account")
	}
	if usage.Committed != 2_500 || usage.Reserved != 0 {
		t.Errorf("Restored balances: %+v", usage)
	}

	ledger.Rollback(pending)
}

func TestLedger_SetLimit(t *testing.T) {
	ledger := NewLedger(Config{})

	ledger.SetLimit("alice", 100)
	if _, err := ledger.Reserve(id("alice", "eng"), 200); err == nil {
		t.Error("Expected denial after SetLimit")
	}

	ledger.SetLimit("alice", 0)
	if _, err := ledger.Reserve(id("alice", "eng"), 200); err != nil {
		t.Errorf("Expected unlimited after clearing limit: %v", err)
	}
}
