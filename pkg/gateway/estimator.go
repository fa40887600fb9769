package gateway

import (
	"agentgw/costgate/pkg/pricing"
)

// Estimator produces the pre-flight cost estimate used for budget
// reservations. The estimate is an admission gate, not a bill: actual
// cost always comes from provider-reported token counts.
type Estimator struct {
	bytesPerToken   int
	maxOutputTokens int64
}

// NewEstimator creates an estimator. Non-positive parameters fall back to
// 4 bytes per token and a 1024-token completion assumption.
func NewEstimator(bytesPerToken int, maxOutputTokens int64) *Estimator {
	if bytesPerToken <= 0 {
		bytesPerToken = 4
	}
	if maxOutputTokens <= 0 {
		maxOutputTokens = 1024
	}
	return &Estimator{bytesPerToken: bytesPerToken, maxOutputTokens: maxOutputTokens}
}

// EstimateTokens approximates the token consumption of a request before
// it runs. Input tokens derive from payload size; output tokens assume
// the worst case, bounded by the request's own cap when it is tighter.
func (e *Estimator) EstimateTokens(payloadBytes int, maxOutputTokens int64) (inputTokens, outputTokens int64) {
	inputTokens = int64(payloadBytes / e.bytesPerToken)
	if inputTokens < 1 {
		inputTokens = 1
	}
	outputTokens = e.maxOutputTokens
	if maxOutputTokens > 0 && maxOutputTokens < outputTokens {
		outputTokens = maxOutputTokens
	}
	return inputTokens, outputTokens
}

// EstimateCost converts the token estimate to micro-USD under the given
// rate.
func (e *Estimator) EstimateCost(payloadBytes int, maxOutputTokens int64, rate pricing.Rate) pricing.MicroUSD {
	in, out := e.EstimateTokens(payloadBytes, maxOutputTokens)
	return pricing.Cost(in, out, rate)
}
