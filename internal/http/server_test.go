package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"finboard/internal/core"
	"finboard/internal/credentials"
	"finboard/internal/log"
	"finboard/internal/notion"
	"finboard/internal/services"
	"finboard/internal/storage"
)

type fakeDashboard struct {
	sum   core.Summary
	err   error
	calls int
	creds credentials.Credentials
}

func (f *fakeDashboard) Load(ctx context.Context, creds credentials.Credentials) (core.Summary, error) {
	f.calls++
	f.creds = creds
	if err := f.err; err != nil {
		return core.EmptySummary(), err
	}
	if !creds.IsComplete() {
		return core.EmptySummary(), services.ErrIncompleteCredentials
	}
	return f.sum, nil
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (failingKV) Put(context.Context, string, string) error { return errors.New("disk full") }
func (failingKV) Delete(context.Context, string) error { return errors.New("disk full") }

type fakeCheck struct{ err error }

func (f fakeCheck) HealthCheck(context.Context) error { return f.err }

func quietLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

func sampleSummary() core.Summary {
	return core.Summary{
		TotalIncome:   decimal.NewFromInt(1500),
		TotalExpenses: decimal.NewFromInt(60),
		Balance:       decimal.NewFromInt(1440),
		Categories: []core.CategoryTotal{
			{Category: "Transport", Amount: decimal.NewFromInt(10), Percentage: decimal.RequireFromString("16.6667")},
			{Category: "Food", Amount: decimal.NewFromInt(50), Percentage: decimal.RequireFromString("83.3333")},
		},
		IncomeEntries:  2,
		ExpenseEntries: 3,
	}
}

func newTestServer(t *testing.T, kv credentials.KV, dash *fakeDashboard, opts Options) (*Server, *credentials.Store) {
	t.Helper()
	if kv == nil {
		kv = storage.NewMemoryKV()
	}
	store := credentials.NewStore(kv, quietLogger().Logger)
	opts.Credentials = store
	opts.Dashboard = dash
	opts.Logger = quietLogger()
	if opts.Transport == "" {
		opts.Transport = "direct"
	}
	srv := NewServer(opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, store
}

func do(srv *Server, method, target string, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON %q: %v", rr.Body.String(), err)
	}
}

func TestIndexAndHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil, &fakeDashboard{}, Options{})

	rr := do(srv, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Finboard") || !strings.Contains(body, "0,00 €") {
		t.Fatalf("index body missing heading or zero totals")
	}
	if !strings.Contains(rr.Header().Get("Content-Security-Policy"), "https://unpkg.com") {
		t.Errorf("CSP must allow the chart library: %q", rr.Header().Get("Content-Security-Policy"))
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	if rr := do(srv, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
	if rr := do(srv, http.MethodGet, "/nope", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", rr.Code)
	}
}

func TestStaticAssets(t *testing.T) {
	srv, _ := newTestServer(t, nil, &fakeDashboard{}, Options{})

	for _, p := range []string{"/static/app.js", "/static/app.css"} {
		rr := do(srv, http.MethodGet, p, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", p, rr.Code)
		}
		if rr.Header().Get("Cache-Control") == "" {
			t.Errorf("%s missing Cache-Control", p)
		}
	}
}

func TestStaticAppJS_FailedLoadResetsFigures(t *testing.T) {
	srv, _ := newTestServer(t, nil, &fakeDashboard{}, Options{})

	rr := do(srv, http.MethodGet, "/static/app.js", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	script := rr.Body.String()
	for _, want := range []string{
		`totalIncome: "0.00", totalExpenses: "0.00", balance: "0.00"`,
		"function resetSummary()",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("app.js missing %q", want)
		}
	}

	start := strings.Index(script, "function loadSummary()")
	if start < 0 {
		t.Fatal("app.js has no loadSummary")
	}
	body := script[start:]
	catchAt := strings.Index(body, ".catch(")
	finallyAt := strings.Index(body, ".finally(")
	if catchAt < 0 || finallyAt < catchAt {
		t.Fatal("loadSummary has no catch branch")
	}
	if !strings.Contains(body[catchAt:finallyAt], "resetSummary()") {
		t.Error("loadSummary catch branch does not reset the figures")
	}
}

func TestReady(t *testing.T) {
	srv, _ := newTestServer(t, nil, &fakeDashboard{}, Options{Checks: map[string]HealthChecker{"storage": fakeCheck{}}})
	if rr := do(srv, http.MethodGet, "/readyz", ""); rr.Code != http.StatusOK {
		t.Fatalf("readyz status=%d body=%s", rr.Code, rr.Body.String())
	}

	srv, _ = newTestServer(t, nil, &fakeDashboard{}, Options{Checks: map[string]HealthChecker{"amqp": fakeCheck{err: errors.New("down")}}})
	rr := do(srv, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d", rr.Code)
	}
	var body struct {
		Status string         `json:"status"`
		Checks map[string]any `json:"checks"`
	}
	decode(t, rr, &body)
	if body.Status != "not_ready" || body.Checks["amqp"] != "failed: down" {
		t.Errorf("unexpected readiness body %+v", body)
	}
}

func TestSummary_Success(t *testing.T) {
	dash := &fakeDashboard{sum: sampleSummary()}
	srv, store := newTestServer(t, nil, dash, Options{})
	if _, err := store.Save(context.Background(), "secret_abcdefgh1234", "income-db-0001", "expenses-db-0001"); err != nil {
		t.Fatal(err)
	}

	rr := do(srv, http.MethodGet, "/api/summary", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Error("summary must not be cached")
	}

	var resp summaryResponse
	decode(t, rr, &resp)
	got := resp.Summary
	if got.TotalIncome != "1500.00" || got.Balance != "1440.00" || got.Formatted.TotalIncome != "1.500,00 €" {
		t.Errorf("unexpected totals %+v", got)
	}
	if len(got.Categories) != 2 || got.Categories[0].Category != "Food" || got.Categories[0].Percentage != "83.3" {
		t.Errorf("categories not sorted by amount: %+v", got.Categories)
	}
	if got.Categories[1].PercentageFormatted != "16.7%" {
		t.Errorf("unexpected percentage %q", got.Categories[1].PercentageFormatted)
	}
	if dash.creds.ExpensesDatabaseID != "expenses-db-0001" {
		t.Errorf("load did not receive the stored credentials: %+v", dash.creds)
	}
}

func TestSummary_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		configure  bool
		wantStatus int
		wantKind   string
	}{
		{name: "incomplete", configure: false, wantStatus: http.StatusBadRequest, wantKind: services.KindIncomplete},
		{name: "unauthorized", configure: true, err: fmt.Errorf("income: %w", &notion.StatusError{StatusCode: 401, Code: "unauthorized"}), wantStatus: http.StatusBadGateway, wantKind: services.KindUnauthorized},
		{name: "forbidden", configure: true, err: &notion.StatusError{StatusCode: 403}, wantStatus: http.StatusBadGateway, wantKind: services.KindForbidden},
		{name: "transport", configure: true, err: &notion.TransportError{Via: "direct", Err: errors.New("dial tcp: refused")}, wantStatus: http.StatusServiceUnavailable, wantKind: services.KindTransport},
		{name: "timeout", configure: true, err: fmt.Errorf("expenses: %w", context.DeadlineExceeded), wantStatus: http.StatusGatewayTimeout, wantKind: services.KindTimeout},
		{name: "internal", configure: true, err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantKind: services.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, store := newTestServer(t, nil, &fakeDashboard{err: tt.err}, Options{})
			if tt.configure {
				if _, err := store.Save(context.Background(), "ntn_abcdefgh1234", "income-db-0001", "expenses-db-0001"); err != nil {
					t.Fatal(err)
				}
			}

			rr := do(srv, http.MethodGet, "/api/summary", "")
			if rr.Code != tt.wantStatus {
				t.Fatalf("status=%d, want %d", rr.Code, tt.wantStatus)
			}
			var resp summaryErrorResponse
			decode(t, rr, &resp)
			if resp.Kind != tt.wantKind || resp.Error == "" {
				t.Errorf("unexpected error body %+v", resp)
			}
			if resp.Summary.TotalIncome != "0.00" || resp.Summary.Balance != "0.00" || len(resp.Summary.Categories) != 0 {
				t.Errorf("failed load must return a zero summary, got %+v", resp.Summary)
			}
		})
	}
}

func TestSummary_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, nil, &fakeDashboard{}, Options{})
	rr := do(srv, http.MethodPost, "/api/summary", "{}")
	if rr.Code != http.StatusMethodNotAllowed || rr.Header().Get("Allow") != "GET" {
		t.Fatalf("status=%d allow=%q", rr.Code, rr.Header().Get("Allow"))
	}
}

func TestConfig_Lifecycle(t *testing.T) {
	srv, store := newTestServer(t, nil, &fakeDashboard{}, Options{Transport: "proxy"})

	var view configView
	rr := do(srv, http.MethodGet, "/api/config", "")
	decode(t, rr, &view)
	if view.Configured || view.Transport != "proxy" {
		t.Fatalf("unexpected initial view %+v", view)
	}

	rr = do(srv, http.MethodPost, "/api/config", `{"token":"  secret_abcdefgh1234 ","incomeDatabaseId":"income-db-0001","expensesDatabaseId":"expenses-db-0001"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("save status=%d body=%s", rr.Code, rr.Body.String())
	}
	decode(t, rr, &view)
	if !view.Configured || view.Token != "secret_****1234" {
		t.Errorf("unexpected saved view %+v", view)
	}
	if strings.Contains(rr.Body.String(), "abcdefgh") {
		t.Error("response leaked the token")
	}
	if !store.IsComplete() {
		t.Error("store not updated")
	}

	rr = do(srv, http.MethodDelete, "/api/config", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("clear status=%d", rr.Code)
	}
	if store.IsComplete() {
		t.Error("store not cleared")
	}

	rr = do(srv, http.MethodPut, "/api/config", "{}")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("PUT status=%d", rr.Code)
	}
}

func TestConfig_Validation(t *testing.T) {
	srv, store := newTestServer(t, nil, &fakeDashboard{}, Options{})

	rr := do(srv, http.MethodPost, "/api/config", `{"token":"bogus","incomeDatabaseId":"income-db-0001","expensesDatabaseId":"expenses-db-0001"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", rr.Code)
	}
	var resp errorResponse
	decode(t, rr, &resp)
	if resp.Field != "token" || resp.Kind != services.KindValidation {
		t.Errorf("unexpected body %+v", resp)
	}

	rr = do(srv, http.MethodPost, "/api/config", `{"token":"ntn_abcdefgh","incomeDatabaseId":"short","expensesDatabaseId":"expenses-db-0001"}`)
	decode(t, rr, &resp)
	if rr.Code != http.StatusUnprocessableEntity || resp.Field != "incomeDatabaseId" {
		t.Errorf("status=%d body=%+v", rr.Code, resp)
	}

	rr = do(srv, http.MethodPost, "/api/config", `not json`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed body status=%d", rr.Code)
	}

	if store.IsComplete() {
		t.Error("rejected input must not change the store")
	}
}

func TestConfig_StorageFailure(t *testing.T) {
	srv, _ := newTestServer(t, failingKV{}, &fakeDashboard{}, Options{})

	rr := do(srv, http.MethodPost, "/api/config", `{"token":"ntn_abcdefgh","incomeDatabaseId":"income-db-0001","expensesDatabaseId":"expenses-db-0001"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("save status=%d", rr.Code)
	}
	if rr := do(srv, http.MethodDelete, "/api/config", ""); rr.Code != http.StatusInternalServerError {
		t.Fatalf("clear status=%d", rr.Code)
	}
}

func TestProxyMount(t *testing.T) {
	proxy := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	srv, _ := newTestServer(t, nil, &fakeDashboard{}, Options{Proxy: proxy})

	if rr := do(srv, http.MethodPost, "/api/notion-proxy", `{"databaseId":"x"}`); rr.Code != http.StatusAccepted {
		t.Fatalf("proxy not mounted, status=%d", rr.Code)
	}

	srv, _ = newTestServer(t, nil, &fakeDashboard{}, Options{})
	if rr := do(srv, http.MethodPost, "/api/notion-proxy", `{}`); rr.Code != http.StatusNotFound {
		t.Fatalf("proxy should be absent, status=%d", rr.Code)
	}
}

func TestRateLimitOnMutatingRequests(t *testing.T) {
	srv, _ := newTestServer(t, nil, &fakeDashboard{}, Options{RequestsPerMinute: 2})

	for i := 0; i < 2; i++ {
		if rr := do(srv, http.MethodDelete, "/api/config", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr := do(srv, http.MethodDelete, "/api/config", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429", rr.Code)
	}

	for i := 0; i < 5; i++ {
		if rr := do(srv, http.MethodGet, "/api/config", ""); rr.Code != http.StatusOK {
			t.Fatalf("GET limited: %d", rr.Code)
		}
	}
}

func TestSuspiciousRequestsBlocked(t *testing.T) {
	srv, _ := newTestServer(t, nil, &fakeDashboard{}, Options{})
	rr := do(srv, http.MethodGet, "/.env", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("bad request")) {
		t.Errorf("unexpected body %q", rr.Body.String())
	}
}
