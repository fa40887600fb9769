package pricing

import (
	"errors"
	"sync"
	"testing"
)

func testTable(t *testing.T) *Table {
	t.Helper()

	table, err := NewTable(map[string]map[string]Rate{
		"anthropic": {
			"claude-haiku": {InputPerMTok: 800_000, OutputPerMTok: 4_000_000},
		},
		"openai": {
			"gpt-4o-mini": {InputPerMTok: 150_000, OutputPerMTok: 600_000},
		},
	})
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	return table
}

func TestCost_ExactFixedPoint(t *testing.T) {
	// 25 input tokens at $0.80/MTok plus 450 output tokens at $4.00/MTok
	// must be exactly $0.001820.
	rate := Rate{InputPerMTok: 800_000, OutputPerMTok: 4_000_000}

	cost := Cost(25, 450, rate)
	if cost != 1820 {
		t.Errorf("Expected 1820 micro-USD, got %d", cost)
	}
	if cost.USD() != 0.001820 {
		t.Errorf("Expected $0.001820, got %v", cost.USD())
	}
}

func TestCost_ZeroTokens(t *testing.T) {
	rate := Rate{InputPerMTok: 800_000, OutputPerMTok: 4_000_000}

	if cost := Cost(0, 0, rate); cost != 0 {
		t.Errorf("Expected zero cost for zero tokens, got %d", cost)
	}
}

func TestCost_Reproducible(t *testing.T) {
	rate := Rate{InputPerMTok: 150_000, OutputPerMTok: 600_000}

	// Summing N identical requests must equal N times one request.
	single := Cost(137, 842, rate)
	var sum MicroUSD
	for i := 0; i < 1000; i++ {
		sum += Cost(137, 842, rate)
	}
	if sum != single*1000 {
		t.Errorf("Aggregation not exact: %d != %d", sum, single*1000)
	}
}

func TestCost_RoundsHalfUp(t *testing.T) {
	// 1 token at $0.15/MTok is 0.15 micro-USD, which rounds down to 0.
	// 5 tokens is 0.75 micro-USD, which rounds up to 1.
	rate := Rate{InputPerMTok: 150_000}

	if cost := Cost(1, 0, rate); cost != 0 {
		t.Errorf("Expected 0, got %d", cost)
	}
	if cost := Cost(5, 0, rate); cost != 1 {
		t.Errorf("Expected 1, got %d", cost)
	}
}

func TestFromUSD(t *testing.T) {
	tests := []struct {
		usd  float64
		want MicroUSD
	}{
		{0, 0},
		{0.02, 20_000},
		{0.80, 800_000},
		{4.00, 4_000_000},
		{0.0000015, 2}, // rounds to nearest micro
	}

	for _, tt := range tests {
		if got := FromUSD(tt.usd); got != tt.want {
			t.Errorf("FromUSD(%v) = %d, want %d", tt.usd, got, tt.want)
		}
	}
}

func TestTable_Rate(t *testing.T) {
	table := testTable(t)

	rate, err := table.Rate("anthropic", "claude-haiku")
	if err != nil {
		t.Fatalf("Rate failed: %v", err)
	}
	if rate.InputPerMTok != 800_000 || rate.OutputPerMTok != 4_000_000 {
		t.Errorf("Unexpected rate: %+v", rate)
	}
}

func TestTable_UnknownModel(t *testing.T) {
	table := testTable(t)

	_, err := table.Rate("anthropic", "claude-nonexistent")
	if err == nil {
		t.Fatal("Expected error for unknown model")
	}

	var unknownErr *UnknownModelError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("Expected UnknownModelError, got %T", err)
	}
	if unknownErr.Provider != "anthropic" || unknownErr.Model != "claude-nonexistent" {
		t.Errorf("Unexpected error fields: %+v", unknownErr)
	}

	// Unknown provider is the same error kind.
	if _, err := table.Rate("nonexistent", "claude-haiku"); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestNewTable_Validation(t *testing.T) {
	if _, err := NewTable(map[string]map[string]Rate{
		"": {"m": {}},
	}); err == nil {
		t.Error("Expected error for empty provider")
	}

	if _, err := NewTable(map[string]map[string]Rate{
		"p": {"": {}},
	}); err == nil {
		t.Error("Expected error for empty model")
	}

	if _, err := NewTable(map[string]map[string]Rate{
		"p": {"m": {InputPerMTok: -1}},
	}); err == nil {
		t.Error("Expected error for negative rate")
	}
}

func TestNewTable_CopiesInput(t *testing.T) {
	entries := map[string]map[string]Rate{
		"p": {"m": {InputPerMTok: 100}},
	}
	table, err := NewTable(entries)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	// Mutating the source map must not affect the table.
	entries["p"]["m"] = Rate{InputPerMTok: 999}

	rate, err := table.Rate("p", "m")
	if err != nil {
		t.Fatalf("Rate failed: %v", err)
	}
	if rate.InputPerMTok != 100 {
		t.Errorf("Table observed caller mutation: %+v", rate)
	}
}

func TestResolver_Replace(t *testing.T) {
	resolver := NewResolver(testTable(t))

	if _, err := resolver.Rate("openai", "gpt-4o"); err == nil {
		t.Fatal("Expected unknown model before replace")
	}

	replacement, err := NewTable(map[string]map[string]Rate{
		"openai": {"gpt-4o": {InputPerMTok: 2_500_000, OutputPerMTok: 10_000_000}},
	})
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	resolver.Replace(replacement)

	if _, err := resolver.Rate("openai", "gpt-4o"); err != nil {
		t.Errorf("Expected gpt-4o after replace, got %v", err)
	}
	if _, err := resolver.Rate("anthropic", "claude-haiku"); err == nil {
		t.Error("Old entries must not survive a full table replacement")
	}
}

func TestResolver_ConcurrentReadsDuringReplace(t *testing.T) {
	resolver := NewResolver(testTable(t))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Readers must always see a complete table.
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				rate, err := resolver.Rate("anthropic", "claude-haiku")
				if err == nil && rate.InputPerMTok != 800_000 {
					t.Errorf("Observed torn rate: %+v", rate)
					return
				}
			}
		}()
	}

	for i := 0; i < 100; i++ {
		resolver.Replace(testTable(t))
	}
	close(stop)
	wg.Wait()
}

func TestResolver_Cost(t *testing.T) {
	resolver := NewResolver(testTable(t))

	cost, err := resolver.Cost("anthropic", "claude-haiku", 25, 450)
	if err != nil {
		t.Fatalf("Cost failed: %v", err)
	}
	if cost != 1820 {
		t.Errorf("Expected 1820 micro-USD, got %d", cost)
	}

	if _, err := resolver.Cost("anthropic", "unknown", 1, 1); err == nil {
		t.Error("Expected error for unknown model")
	}
}
