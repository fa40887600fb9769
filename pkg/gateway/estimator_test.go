package gateway

import (
	"testing"

	"agentgw/costgate/pkg/pricing"
)

func TestEstimateTokens(t *testing.T) {
	e := NewEstimator(4, 1024)

	tests := []struct {
		name         string
		payloadBytes int
		maxOutput    int64
		wantInput    int64
		wantOutput   int64
	}{
		{name: "typical payload", payloadBytes: 400, wantInput: 100, wantOutput: 1024},
		{name: "tiny payload floors at one token", payloadBytes: 2, wantInput: 1, wantOutput: 1024},
		{name: "empty payload", payloadBytes: 0, wantInput: 1, wantOutput: 1024},
		{name: "request cap tightens output", payloadBytes: 400, maxOutput: 256, wantInput: 100, wantOutput: 256},
		{name: "request cap above assumption is ignored", payloadBytes: 400, maxOutput: 4096, wantInput: 100, wantOutput: 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, out := e.EstimateTokens(tt.payloadBytes, tt.maxOutput)
			if in != tt.wantInput || out != tt.wantOutput {
				t.Errorf("EstimateTokens(%d, %d) = %d/%d, want %d/%d",
					tt.payloadBytes, tt.maxOutput, in, out, tt.wantInput, tt.wantOutput)
			}
		})
	}
}

func TestEstimateCost(t *testing.T) {
	e := NewEstimator(4, 1024)
	rate := pricing.Rate{InputPerMTok: 800_000, OutputPerMTok: 4_000_000}

	// 100 input tokens at $0.80/MTok = 80 micro-USD; 1024 output tokens at
	// $4.00/MTok = 4096 micro-USD.
	if got := e.EstimateCost(400, 0, rate); got != 4176 {
		t.Errorf("EstimateCost() = %d, want 4176", got)
	}
}

func TestNewEstimator_Defaults(t *testing.T) {
	e := NewEstimator(0, 0)
	in, out := e.EstimateTokens(40, 0)
	if in != 10 {
		t.Errorf("input tokens = %d, want 10 with default 4 bytes/token", in)
	}
	if out != 1024 {
		t.Errorf("output tokens = %d, want default 1024", out)
	}
}
