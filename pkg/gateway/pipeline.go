package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"agentgw/costgate/pkg/config"
	"agentgw/costgate/pkg/identity"
	"agentgw/costgate/pkg/limits/budget"
	"agentgw/costgate/pkg/limits/enforcement"
	"agentgw/costgate/pkg/limits/ratelimit"
	"agentgw/costgate/pkg/pricing"
	"agentgw/costgate/pkg/telemetry/metrics"
	"agentgw/costgate/pkg/usage"
)

// Request is one governed completion request entering the pipeline.
type Request struct {
	// RequestID correlates logs, records, and responses.
	RequestID string

	// Identity is the resolved attribution pair.
	Identity identity.Identity

	// Provider names the upstream the request is bound for.
	Provider string

	// Model is the requested model.
	Model string

	// Payload is the raw request body.
	Payload []byte

	// MaxOutputTokens is the request's own completion cap, zero if unset.
	MaxOutputTokens int64
}

// Result is the pipeline's verdict on one request. Exactly one of
// Response, Denial, or ProviderErr is set when Err is nil.
type Result struct {
	// Response is the provider's answer for allowed requests.
	Response *CompletionResponse

	// Denial is set when the request was blocked by rate limiting or
	// budget enforcement.
	Denial *enforcement.Denial

	// ProviderErr is set when the upstream call failed.
	ProviderErr error

	// Cost is the committed cost in micro-USD; zero for blocked and
	// failed requests.
	Cost pricing.MicroUSD

	// Outcome is the usage outcome the request settled as.
	Outcome usage.Outcome
}

// Pipeline runs the ordered governance control flow around provider calls.
type Pipeline struct {
	limiter   *ratelimit.Limiter
	scope     config.RateLimitScope
	ledger    *budget.Ledger
	resolver  *pricing.Resolver
	enforcer  *enforcement.Enforcer
	estimator *Estimator
	providers map[string]Provider
	metrics   *metrics.Metrics
	logger    *slog.Logger

	record func(*usage.Record) error

	// now is replaceable for deterministic tests.
	now func() time.Time
}

// PipelineConfig wires the pipeline's collaborators. Limiter and Metrics
// may be nil; Record may be nil when usage recording is disabled.
type PipelineConfig struct {
	Limiter   *ratelimit.Limiter
	Scope     config.RateLimitScope
	Ledger    *budget.Ledger
	Resolver  *pricing.Resolver
	Enforcer  *enforcement.Enforcer
	Estimator *Estimator
	Providers map[string]Provider
	Metrics   *metrics.Metrics
	Record    func(*usage.Record) error
}

// NewPipeline creates a pipeline.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("gateway: ledger cannot be nil")
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("gateway: pricing resolver cannot be nil")
	}
	if cfg.Enforcer == nil {
		return nil, fmt.Errorf("gateway: enforcer cannot be nil")
	}
	if cfg.Estimator == nil {
		cfg.Estimator = NewEstimator(0, 0)
	}
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("gateway: at least one provider is required")
	}
	if cfg.Scope == "" {
		cfg.Scope = config.ScopePerUser
	}

	return &Pipeline{
		limiter:   cfg.Limiter,
		scope:     cfg.Scope,
		ledger:    cfg.Ledger,
		resolver:  cfg.Resolver,
		enforcer:  cfg.Enforcer,
		estimator: cfg.Estimator,
		providers: cfg.Providers,
		metrics:   cfg.Metrics,
		logger:    slog.Default().With("component", "gateway"),
		record:    cfg.Record,
		now:       time.Now,
	}, nil
}

// UnknownProviderError reports a request routed to a provider the gateway
// does not serve.
type UnknownProviderError struct {
	Provider string
}

// Error implements the error interface.
func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider %q", e.Provider)
}

// limiterKey maps the identity onto the configured rate limit scope.
func (p *Pipeline) limiterKey(id identity.Identity) string {
	switch p.scope {
	case config.ScopeGlobal:
		return "global"
	case config.ScopePerTeam:
		return id.TeamID
	default:
		return id.UserID
	}
}

// Process runs one request through admission, the provider call, and
// settlement. It returns an error only for malformed requests (unknown
// provider or model); governance denials and provider failures are
// reported through the Result.
func (p *Pipeline) Process(ctx context.Context, req *Request) (*Result, error) {
	start := p.now()

	provider, ok := p.providers[req.Provider]
	if !ok {
		return nil, &UnknownProviderError{Provider: req.Provider}
	}

	// Unknown models are configuration errors. Failing before admission
	// means no tokens are consumed and no hold is placed for a request
	// that can never be billed.
	rate, err := p.resolver.Rate(req.Provider, req.Model)
	if err != nil {
		return nil, err
	}

	if p.limiter != nil {
		decision := p.limiter.Allow(p.limiterKey(req.Identity))
		p.metrics.RecordRateLimitCheck(decision.Allowed)
		if !decision.Allowed {
			applied := p.enforcer.Apply(enforcement.RateLimitDenial(decision.RetryAfter))
			if applied.Blocked {
				return p.settleBlocked(req, usage.OutcomeRateLimited, &applied.Denial, start), nil
			}
		}
	}

	estimate := p.estimator.EstimateCost(len(req.Payload), req.MaxOutputTokens, rate)

	reservation, err := p.ledger.Reserve(req.Identity, estimate)
	if err != nil {
		var exceeded *budget.ExceededError
		if !errors.As(err, &exceeded) {
			return nil, err
		}
		p.metrics.RecordBudgetCheck(false)
		applied := p.enforcer.Apply(enforcement.BudgetDenial(exceeded.Error()))
		if applied.Blocked {
			return p.settleBlocked(req, usage.OutcomeBudgetDenied, &applied.Denial, start), nil
		}
		// Shadow mode: the request proceeds without a hold; its spend is
		// recorded but not committed to the over-limit account.
		reservation = nil
	} else {
		p.metrics.RecordBudgetCheck(true)
	}

	// The provider call runs outside every limiter and ledger lock.
	resp, err := provider.Complete(ctx, &CompletionRequest{
		Model:           req.Model,
		Payload:         req.Payload,
		MaxOutputTokens: req.MaxOutputTokens,
	})
	if err != nil {
		if reservation != nil {
			if rbErr := p.ledger.Rollback(reservation); rbErr != nil {
				p.logger.Error("Failed to roll back reservation",
					"reservation_id", reservation.ID,
					"error", rbErr)
			}
		}
		p.metrics.RecordProviderFailure(req.Provider)

		res := &Result{ProviderErr: err, Outcome: usage.OutcomeProviderFailed}
		p.writeRecord(req, usage.OutcomeProviderFailed, 0, 0, 0, start)
		p.metrics.RecordRequest(req.Provider, req.Model, string(usage.OutcomeProviderFailed), p.now().Sub(start))
		return res, nil
	}

	actual := pricing.Cost(resp.Usage.InputTokens, resp.Usage.OutputTokens, rate)
	if reservation != nil {
		if err := p.ledger.Commit(reservation, actual); err != nil {
			p.logger.Error("Failed to commit reservation",
				"reservation_id", reservation.ID,
				"error", err)
		}
		if u, ok := p.ledger.Usage(req.Identity.UserID); ok {
			p.metrics.SetBudgetCommitted(req.Identity.UserID, u.Committed)
		}
	}
	p.metrics.AddCost(req.Provider, req.Model, actual)

	p.writeRecord(req, usage.OutcomeAllowed, resp.Usage.InputTokens, resp.Usage.OutputTokens, actual, start)
	p.metrics.RecordRequest(req.Provider, req.Model, string(usage.OutcomeAllowed), p.now().Sub(start))

	return &Result{
		Response: resp,
		Cost:     actual,
		Outcome:  usage.OutcomeAllowed,
	}, nil
}

// settleBlocked records a zero-cost denial row and builds its result.
func (p *Pipeline) settleBlocked(req *Request, outcome usage.Outcome, denial *enforcement.Denial, start time.Time) *Result {
	p.writeRecord(req, outcome, 0, 0, 0, start)
	p.metrics.RecordRequest(req.Provider, req.Model, string(outcome), p.now().Sub(start))
	return &Result{Denial: denial, Outcome: outcome}
}

// writeRecord hands one usage row to the recorder. Recording failures are
// logged and never fail the request.
func (p *Pipeline) writeRecord(req *Request, outcome usage.Outcome, inputTokens, outputTokens int64, cost pricing.MicroUSD, start time.Time) {
	if p.record == nil {
		return
	}

	record := &usage.Record{
		RequestID:    req.RequestID,
		Identity:     req.Identity,
		Provider:     req.Provider,
		Model:        req.Model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         cost,
		Outcome:      outcome,
		LatencyMs:    p.now().Sub(start).Milliseconds(),
	}
	if err := p.record(record); err != nil {
		p.logger.Error("Failed to record usage",
			"request_id", req.RequestID,
			"outcome", string(outcome),
			"error", err)
	}
}
