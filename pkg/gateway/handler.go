package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agentgw/costgate/pkg/identity"
	"agentgw/costgate/pkg/limits/budget"
	"agentgw/costgate/pkg/limits/enforcement"
	"agentgw/costgate/pkg/pricing"
	"agentgw/costgate/pkg/report"
	"agentgw/costgate/pkg/report/export"
	"agentgw/costgate/pkg/telemetry/health"
	"agentgw/costgate/pkg/usage"
)

// maxRequestBody bounds completion payload reads.
const maxRequestBody = 10 << 20 // 10 MiB

// completionBody is the subset of the inbound request body the gateway
// itself inspects; the full payload is passed through to the provider.
type completionBody struct {
	Model     string `json:"model"`
	MaxTokens int64  `json:"max_tokens"`
}

// completionReply is the gateway's response envelope for allowed requests.
type completionReply struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Content  string `json:"content"`
	Usage    struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
	CostMicroUSD pricing.MicroUSD `json:"cost_micro_usd"`
}

// budgetReply is the response body of the budget usage endpoint.
type budgetReply struct {
	UserID            string           `json:"user_id"`
	TeamID            string           `json:"team_id"`
	CommittedMicroUSD pricing.MicroUSD `json:"committed_micro_usd"`
	ReservedMicroUSD  pricing.MicroUSD `json:"reserved_micro_usd"`
	LimitMicroUSD     pricing.MicroUSD `json:"limit_micro_usd"`
	RemainingMicroUSD pricing.MicroUSD `json:"remaining_micro_usd"`
}

// Handler exposes the governed pipeline over HTTP.
type Handler struct {
	pipeline   *Pipeline
	identities *identity.Resolver
	aggregator *report.Aggregator
	ledger     *budget.Ledger
	enforcer   *enforcement.Enforcer
	health     *health.Checker
	logger     *slog.Logger
}

// HandlerConfig wires the handler's collaborators.
type HandlerConfig struct {
	Pipeline   *Pipeline
	Identities *identity.Resolver
	Aggregator *report.Aggregator
	Ledger     *budget.Ledger
	Enforcer   *enforcement.Enforcer

	// Health serves readiness checks. Nil means readiness always passes.
	Health *health.Checker
}

// NewHandler creates the HTTP handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		pipeline:   cfg.Pipeline,
		identities: cfg.Identities,
		aggregator: cfg.Aggregator,
		ledger:     cfg.Ledger,
		enforcer:   cfg.Enforcer,
		health:     cfg.Health,
		logger:     slog.Default().With("component", "gateway.handler"),
	}
}

// Routes builds the route table with the middleware chain applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/messages", h.completion("anthropic"))
	mux.HandleFunc("/v1/chat/completions", h.completion("openai"))
	mux.HandleFunc("/reports", h.reports)
	mux.HandleFunc("/budget/usage", h.budgetUsage)
	mux.HandleFunc("/healthz", h.healthz)
	mux.HandleFunc("/readyz", h.readyz)
	mux.Handle("/metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = LoggingMiddleware(handler)
	handler = RequestIDMiddleware(handler)
	handler = RecoveryMiddleware(handler)
	return handler
}

// completion returns the handler for one provider-shaped route.
func (h *Handler) completion(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "failed to read request body")
			return
		}

		var body completionBody
		if err := json.Unmarshal(payload, &body); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
			return
		}
		if body.Model == "" {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "model is required")
			return
		}

		id := h.identities.FromRequest(r)
		ctx := identity.NewContext(r.Context(), id)

		result, err := h.pipeline.Process(ctx, &Request{
			RequestID:       GetRequestID(ctx),
			Identity:        id,
			Provider:        provider,
			Model:           body.Model,
			Payload:         payload,
			MaxOutputTokens: body.MaxTokens,
		})
		if err != nil {
			var unknownModel *pricing.UnknownModelError
			if errors.As(err, &unknownModel) {
				h.writeError(w, http.StatusBadRequest, "unknown_model", err.Error())
				return
			}
			var unknownProvider *UnknownProviderError
			if errors.As(err, &unknownProvider) {
				h.writeError(w, http.StatusNotFound, "unknown_provider", err.Error())
				return
			}
			h.logger.Error("Pipeline failure", "error", err)
			h.writeError(w, http.StatusInternalServerError, "internal_error", "request processing failed")
			return
		}

		switch {
		case result.Denial != nil:
			h.enforcer.WriteDenial(w, *result.Denial)
		case result.ProviderErr != nil:
			h.enforcer.WriteProviderError(w, result.ProviderErr)
		default:
			reply := completionReply{
				ID:           GetRequestID(ctx),
				Provider:     provider,
				Model:        body.Model,
				Content:      result.Response.Content,
				CostMicroUSD: result.Cost,
			}
			reply.Usage.InputTokens = result.Response.Usage.InputTokens
			reply.Usage.OutputTokens = result.Response.Usage.OutputTokens
			h.writeJSON(w, http.StatusOK, reply)
		}
	}
}

// reports serves the chargeback report for a time window. The window is
// given as RFC 3339 start/end query parameters, both optional; format
// selects json (default), csv, or table.
func (h *Handler) reports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	if h.aggregator == nil {
		h.writeError(w, http.StatusNotFound, "reports_disabled", "usage storage is not configured")
		return
	}

	var window report.Window
	if raw := r.URL.Query().Get("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "start must be RFC 3339")
			return
		}
		window.Start = &t
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "end must be RFC 3339")
			return
		}
		window.End = &t
	}

	rep, err := h.aggregator.Build(r.Context(), window)
	if err != nil {
		var queryErr *usage.QueryError
		if errors.As(err, &queryErr) {
			h.logger.Error("Report query failed", "error", err)
		}
		h.writeError(w, http.StatusInternalServerError, "report_failed", "failed to build report")
		return
	}

	switch r.URL.Query().Get("format") {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		if err := export.NewCSVExporter(true).Export(r.Context(), rep, w); err != nil {
			h.logger.Error("CSV export failed", "error", err)
		}
	case "table":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := export.NewTableExporter().Export(r.Context(), rep, w); err != nil {
			h.logger.Error("Table export failed", "error", err)
		}
	case "", "json":
		w.Header().Set("Content-Type", "application/json")
		if err := export.NewJSONExporter(true).Export(r.Context(), rep, w); err != nil {
			h.logger.Error("JSON export failed", "error", err)
		}
	default:
		h.writeError(w, http.StatusBadRequest, "invalid_request", "format must be json, csv, or table")
	}
}

// budgetUsage serves the live balances for one user.
func (h *Handler) budgetUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	userID := r.URL.Query().Get("user")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "user is required")
		return
	}

	u, ok := h.ledger.Usage(userID)
	if !ok {
		h.writeError(w, http.StatusNotFound, "unknown_user", "no budget activity for user")
		return
	}

	h.writeJSON(w, http.StatusOK, budgetReply{
		UserID:            u.UserID,
		TeamID:            u.TeamID,
		CommittedMicroUSD: u.Committed,
		ReservedMicroUSD:  u.Reserved,
		LimitMicroUSD:     u.Limit,
		RemainingMicroUSD: u.Remaining(),
	})
}

// healthz reports liveness.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz runs the registered dependency checks. A degraded status maps
// to 503 so load balancers stop routing to the instance.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}

	status := h.health.CheckReadiness(r.Context())
	code := http.StatusOK
	if status.Status == "degraded" {
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, status)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
