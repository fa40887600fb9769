package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CompletionRequest is the provider-bound request after admission.
type CompletionRequest struct {
	// Model is the requested model name.
	Model string

	// Payload is the raw request body forwarded to the provider.
	Payload []byte

	// MaxOutputTokens caps the completion length. Zero leaves the
	// provider default in place.
	MaxOutputTokens int64
}

// TokenUsage is the exact token consumption reported by a provider.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// CompletionResponse is a provider's answer with its measured usage.
type CompletionResponse struct {
	// Content is the completion text.
	Content string

	// Usage is the provider-reported token consumption. Cost is always
	// computed from these counts, never from estimates.
	Usage TokenUsage
}

// Provider executes one completion against an upstream LLM.
//
// Implementations must honor context cancellation and must report exact
// token usage on success. The gateway rolls back budget holds and records
// a failure row when Complete returns an error.
type Provider interface {
	// Name returns the provider identifier used for pricing lookups and
	// usage attribution.
	Name() string

	// Complete executes the request.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}

// SimulatorConfig configures a simulated provider.
type SimulatorConfig struct {
	// Name is the provider identifier, e.g. "anthropic".
	Name string

	// BytesPerToken derives simulated input tokens from payload size.
	// Default: 4.
	BytesPerToken int

	// OutputTokens is the simulated completion length. Default: 256.
	OutputTokens int64

	// Latency is slept per call to mimic upstream round trips.
	Latency time.Duration

	// FailEvery makes every Nth call fail, for exercising rollback
	// paths. Zero disables injected failures.
	FailEvery int
}

// Simulator is a deterministic in-process Provider. It stands in for real
// upstreams in demos and tests; production deployments supply their own
// Provider implementations.
type Simulator struct {
	cfg SimulatorConfig

	mu    sync.Mutex
	calls int64
}

// NewSimulator creates a simulated provider.
func NewSimulator(cfg SimulatorConfig) (*Simulator, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("simulator: name cannot be empty")
	}
	if cfg.BytesPerToken <= 0 {
		cfg.BytesPerToken = 4
	}
	if cfg.OutputTokens <= 0 {
		cfg.OutputTokens = 256
	}
	return &Simulator{cfg: cfg}, nil
}

// Name returns the provider identifier.
func (s *Simulator) Name() string {
	return s.cfg.Name
}

// Complete simulates a completion. Input tokens are derived from payload
// size; output tokens are fixed, capped by the request's max.
func (s *Simulator) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()

	if s.cfg.FailEvery > 0 && n%int64(s.cfg.FailEvery) == 0 {
		return nil, fmt.Errorf("simulated %s outage", s.cfg.Name)
	}

	if s.cfg.Latency > 0 {
		select {
		case <-time.After(s.cfg.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	inputTokens := int64(len(req.Payload) / s.cfg.BytesPerToken)
	if inputTokens < 1 {
		inputTokens = 1
	}
	outputTokens := s.cfg.OutputTokens
	if req.MaxOutputTokens > 0 && outputTokens > req.MaxOutputTokens {
		outputTokens = req.MaxOutputTokens
	}

	return &CompletionResponse{
		Content: fmt.Sprintf("simulated completion from %s/%s", s.cfg.Name, req.Model),
		Usage: TokenUsage{
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
		},
	}, nil
}
