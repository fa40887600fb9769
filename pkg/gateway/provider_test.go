package gateway

import (
	"context"
	"testing"
	"time"
)

func TestSimulator_Complete(t *testing.T) {
	sim, err := NewSimulator(SimulatorConfig{Name: "anthropic", OutputTokens: 256})
	if err != nil {
		t.Fatalf("NewSimulator() error = %v", err)
	}

	resp, err := sim.Complete(context.Background(), &CompletionRequest{
		Model:   "claude-haiku",
		Payload: make([]byte, 100),
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Usage.InputTokens != 25 {
		t.Errorf("InputTokens = %d, want 25", resp.Usage.InputTokens)
	}
	if resp.Usage.OutputTokens != 256 {
		t.Errorf("OutputTokens = %d, want 256", resp.Usage.OutputTokens)
	}
	if resp.Content == "" {
		t.Error("Content should not be empty")
	}
}

func TestSimulator_RespectsRequestCap(t *testing.T) {
	sim, err := NewSimulator(SimulatorConfig{Name: "openai", OutputTokens: 256})
	if err != nil {
		t.Fatalf("NewSimulator() error = %v", err)
	}

	resp, err := sim.Complete(context.Background(), &CompletionRequest{
		Model:           "gpt-4o-mini",
		Payload:         []byte("hi"),
		MaxOutputTokens: 16,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Usage.OutputTokens != 16 {
		t.Errorf("OutputTokens = %d, want 16", resp.Usage.OutputTokens)
	}
	if resp.Usage.InputTokens != 1 {
		t.Errorf("InputTokens = %d, want 1 for tiny payload", resp.Usage.InputTokens)
	}
}

func TestSimulator_FailEvery(t *testing.T) {
	sim, err := NewSimulator(SimulatorConfig{Name: "anthropic", FailEvery: 3})
	if err != nil {
		t.Fatalf("NewSimulator() error = %v", err)
	}

	req := &CompletionRequest{Model: "claude-haiku", Payload: []byte("hello")}
	for i := 1; i <= 6; i++ {
		_, err := sim.Complete(context.Background(), req)
		wantErr := i%3 == 0
		if (err != nil) != wantErr {
			t.Errorf("call %d: err = %v, want failure %v", i, err, wantErr)
		}
	}
}

func TestSimulator_CancelledContext(t *testing.T) {
	sim, err := NewSimulator(SimulatorConfig{Name: "anthropic", Latency: time.Second})
	if err != nil {
		t.Fatalf("NewSimulator() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := sim.Complete(ctx, &CompletionRequest{Model: "claude-haiku"}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestNewSimulator_RequiresName(t *testing.T) {
	if _, err := NewSimulator(SimulatorConfig{}); err == nil {
		t.Fatal("expected error for empty name")
	}
}
