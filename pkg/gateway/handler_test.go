package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"agentgw/costgate/pkg/identity"
	"agentgw/costgate/pkg/limits/budget"
	"agentgw/costgate/pkg/limits/enforcement"
	"agentgw/costgate/pkg/limits/ratelimit"
	"agentgw/costgate/pkg/pricing"
	"agentgw/costgate/pkg/report"
	"agentgw/costgate/pkg/usage"
	usagestorage "agentgw/costgate/pkg/usage/storage"
)

type handlerFixture struct {
	handler  http.Handler
	provider *fakeProvider
	ledger   *budget.Ledger
	storage  *usagestorage.MemoryStorage
}

func newHandlerFixture(t *testing.T, mutate func(*PipelineConfig, *pipelineFixture)) *handlerFixture {
	t.Helper()

	storage := usagestorage.NewMemoryStorage()
	pf := newPipelineFixture(t, func(cfg *PipelineConfig, f *pipelineFixture) {
		cfg.Record = func(r *usage.Record) error {
			if r.ID == "" {
				r.ID = r.RequestID
			}
			if r.Timestamp.IsZero() {
				r.Timestamp = time.Now().UTC()
			}
			return storage.Store(context.Background(), r)
		}
		if mutate != nil {
			mutate(cfg, f)
		}
	})

	h := NewHandler(HandlerConfig{
		Pipeline:   pf.pipeline,
		Identities: identity.NewResolver("", ""),
		Aggregator: report.NewAggregator(storage),
		Ledger:     pf.ledger,
		Enforcer:   enforcement.NewEnforcer(enforcement.ModeEnforce),
	})

	return &handlerFixture{
		handler:  h.Routes(),
		provider: pf.provider,
		ledger:   pf.ledger,
		storage:  storage,
	}
}

func postCompletion(f *handlerFixture, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHandler_CompletionAllowed(t *testing.T) {
	f := newHandlerFixture(t, nil)

	rec := postCompletion(f, "/v1/messages", `{"model":"claude-haiku","prompt":"hello"}`, map[string]string{
		"X-User-ID": "alice",
		"X-Team-ID": "engineering",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("response should carry X-Request-ID")
	}

	var reply completionReply
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if reply.Provider != "anthropic" || reply.Model != "claude-haiku" {
		t.Errorf("reply = %+v", reply)
	}
	if reply.Usage.InputTokens != 25 || reply.Usage.OutputTokens != 450 {
		t.Errorf("usage = %+v, want 25/450", reply.Usage)
	}
	if reply.CostMicroUSD != 1820 {
		t.Errorf("CostMicroUSD = %d, want 1820", reply.CostMicroUSD)
	}
}

func TestHandler_AnonymousIdentityDefaults(t *testing.T) {
	f := newHandlerFixture(t, nil)

	rec := postCompletion(f, "/v1/messages", `{"model":"claude-haiku"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	records, err := f.storage.Query(context.Background(), &usage.Query{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].Identity.UserID != "anonymous" || records[0].Identity.TeamID != "unassigned" {
		t.Errorf("identity = %+v, want anonymous/unassigned", records[0].Identity)
	}
}

func TestHandler_RateLimited(t *testing.T) {
	f := newHandlerFixture(t, func(cfg *PipelineConfig, pf *pipelineFixture) {
		limiter, err := ratelimit.NewLimiter(ratelimit.Config{
			Capacity:       1,
			RefillAmount:   1,
			RefillInterval: time.Minute,
		})
		if err != nil {
			t.Fatalf("NewLimiter() error = %v", err)
		}
		t.Cleanup(limiter.Close)
		cfg.Limiter = limiter
	})

	headers := map[string]string{"X-User-ID": "alice"}
	if rec := postCompletion(f, "/v1/messages", `{"model":"claude-haiku"}`, headers); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}

	rec := postCompletion(f, "/v1/messages", `{"model":"claude-haiku"}`, headers)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 response should carry Retry-After")
	}
	if !strings.Contains(rec.Body.String(), "rate_limited") {
		t.Errorf("body = %s, want rate_limited code", rec.Body.String())
	}
}

func TestHandler_BudgetDenied(t *testing.T) {
	f := newHandlerFixture(t, func(cfg *PipelineConfig, pf *pipelineFixture) {
		pf.ledger = budget.NewLedger(budget.Config{
			UserLimits: map[string]pricing.MicroUSD{"charlie": 100},
		})
		cfg.Ledger = pf.ledger
	})

	rec := postCompletion(f, "/v1/messages", `{"model":"claude-haiku"}`, map[string]string{
		"X-User-ID": "charlie",
	})
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402; body: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "budget_exceeded") {
		t.Errorf("body = %s, want budget_exceeded code", rec.Body.String())
	}
}

func TestHandler_ProviderFailure(t *testing.T) {
	f := newHandlerFixture(t, func(cfg *PipelineConfig, pf *pipelineFixture) {
		pf.provider.err = context.DeadlineExceeded
	})

	rec := postCompletion(f, "/v1/messages", `{"model":"claude-haiku"}`, nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "provider_error") {
		t.Errorf("body = %s, want provider_error code", rec.Body.String())
	}
}

func TestHandler_UnknownModel(t *testing.T) {
	f := newHandlerFixture(t, nil)

	rec := postCompletion(f, "/v1/messages", `{"model":"claude-imaginary"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unknown_model") {
		t.Errorf("body = %s, want unknown_model code", rec.Body.String())
	}
}

func TestHandler_InvalidBody(t *testing.T) {
	f := newHandlerFixture(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "not json"},
		{name: "missing model", body: `{"prompt":"hi"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postCompletion(f, "/v1/messages", tt.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	f := newHandlerFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/messages", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestHandler_Reports(t *testing.T) {
	f := newHandlerFixture(t, nil)

	headers := map[string]string{"X-User-ID": "alice", "X-Team-ID": "engineering"}
	for i := 0; i < 3; i++ {
		if rec := postCompletion(f, "/v1/messages", `{"model":"claude-haiku"}`, headers); rec.Code != http.StatusOK {
			t.Fatalf("completion status = %d, want 200", rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/reports", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var rep report.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if len(rep.PerUser) != 1 || rep.PerUser[0].Key != "alice" {
		t.Fatalf("PerUser = %+v, want one alice row", rep.PerUser)
	}
	if rep.PerUser[0].Requests != 3 {
		t.Errorf("Requests = %d, want 3", rep.PerUser[0].Requests)
	}
	if rep.Totals.Cost != rep.PerUser[0].Cost {
		t.Errorf("totals %d != per-user %d", rep.Totals.Cost, rep.PerUser[0].Cost)
	}
}

func TestHandler_ReportsCSV(t *testing.T) {
	f := newHandlerFixture(t, nil)

	if rec := postCompletion(f, "/v1/messages", `{"model":"claude-haiku"}`, map[string]string{"X-User-ID": "alice"}); rec.Code != http.StatusOK {
		t.Fatalf("completion status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/reports?format=csv", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), "scope,key,requests") {
		t.Errorf("body = %s, want CSV header", rec.Body.String())
	}
}

func TestHandler_ReportsBadWindow(t *testing.T) {
	f := newHandlerFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/reports?start=yesterday", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandler_BudgetUsage(t *testing.T) {
	f := newHandlerFixture(t, nil)

	if rec := postCompletion(f, "/v1/messages", `{"model":"claude-haiku"}`, map[string]string{"X-User-ID": "alice"}); rec.Code != http.StatusOK {
		t.Fatalf("completion status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/budget/usage?user=alice", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	var reply budgetReply
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if reply.CommittedMicroUSD != 1820 {
		t.Errorf("CommittedMicroUSD = %d, want 1820", reply.CommittedMicroUSD)
	}
	if reply.RemainingMicroUSD != -1 {
		t.Errorf("RemainingMicroUSD = %d, want -1 for unlimited account", reply.RemainingMicroUSD)
	}

	req = httptest.NewRequest(http.MethodGet, "/budget/usage?user=nobody", nil)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for unknown user", rec.Code)
	}
}

func TestHandler_Healthz(t *testing.T) {
	f := newHandlerFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
