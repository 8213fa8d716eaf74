package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akephisit/reflexguard/internal/closeingress"
	"github.com/akephisit/reflexguard/internal/confirmation"
	"github.com/akephisit/reflexguard/internal/dispatch"
	"github.com/akephisit/reflexguard/internal/events"
	"github.com/akephisit/reflexguard/internal/executor"
	"github.com/akephisit/reflexguard/internal/risk"
	"github.com/akephisit/reflexguard/internal/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestServer(apiKey string) (http.Handler, *state.State) {
	mgr := risk.New(risk.ConfigFromEnv(), testLogger())
	confirmCfg := confirmation.FromEnv()
	st := state.New(mgr, confirmCfg)
	hub := events.NewHub(testLogger())
	exec := executor.New()
	d := dispatch.New(st, exec, hub, executor.MockEndpoint, testLogger())
	closer := closeingress.New(st, hub, testLogger())

	_, handler := New(st, d, closer, hub, confirmCfg, apiKey, testLogger())
	return handler, st
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any, apiKey string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpointsBypassAuth(t *testing.T) {
	t.Parallel()
	handler, _ := newTestServer("secret")

	rec := doJSON(t, handler, "GET", "/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("/health status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, handler, "GET", "/api/mt5/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("/api/mt5/health status = %d, want 200", rec.Code)
	}
}

func TestProtectedRouteRejectsWrongKey(t *testing.T) {
	t.Parallel()
	handler, _ := newTestServer("secret")

	rec := doJSON(t, handler, "GET", "/api/risk/status", nil, "wrong")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestStrategyInstallGetClear(t *testing.T) {
	t.Parallel()
	handler, _ := newTestServer("")

	body := map[string]any{
		"symbol":      "XAUUSD",
		"direction":   "BUY",
		"entry_zone":  map[string]float64{"low": 67000, "high": 67050},
		"take_profit": 67200,
		"stop_loss":   66950,
		"lot_size":    0.1,
	}
	rec := doJSON(t, handler, "POST", "/api/brain/strategy", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("install status = %d, want 201, body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, "GET", "/api/brain/strategy", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, handler, "DELETE", "/api/brain/strategy", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, handler, "GET", "/api/brain/strategy", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get-after-clear status = %d, want 404", rec.Code)
	}
}

func TestStrategyInstallRejectsInvalidPlan(t *testing.T) {
	t.Parallel()
	handler, _ := newTestServer("")

	body := map[string]any{
		"symbol":      "XAUUSD",
		"direction":   "BUY",
		"entry_zone":  map[string]float64{"low": 67000, "high": 67050},
		"take_profit": 1, // violates buy invariant
		"stop_loss":   66950,
		"lot_size":    0.1,
	}
	rec := doJSON(t, handler, "POST", "/api/brain/strategy", body, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body=%s", rec.Code, rec.Body.String())
	}
}

func TestRiskKillRearmStatus(t *testing.T) {
	t.Parallel()
	handler, st := newTestServer("")

	rec := doJSON(t, handler, "POST", "/api/risk/kill", map[string]any{"reason": "test stop"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("kill status = %d, want 200", rec.Code)
	}
	if !st.Risk.Status().IsKilled {
		t.Fatal("expected risk state killed after /api/risk/kill")
	}

	rec = doJSON(t, handler, "POST", "/api/risk/rearm", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("rearm status = %d, want 200", rec.Code)
	}
	if st.Risk.Status().IsKilled {
		t.Fatal("expected risk state rearmed")
	}

	rec = doJSON(t, handler, "GET", "/api/risk/status", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d, want 200", rec.Code)
	}
}

func TestTickTriggersTradeEndToEnd(t *testing.T) {
	t.Parallel()
	handler, st := newTestServer("")

	plan := map[string]any{
		"symbol":      "XAUUSD",
		"direction":   "BUY",
		"entry_zone":  map[string]float64{"low": 67000, "high": 67050},
		"take_profit": 67200,
		"stop_loss":   66950,
		"lot_size":    0.1,
	}
	rec := doJSON(t, handler, "POST", "/api/brain/strategy", plan, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("install failed: %d %s", rec.Code, rec.Body.String())
	}

	// Two probe ticks below the zone, then the first in-zone tick: the tick
	// buffer already holds it when confirmation runs, so its dwell is 2 and
	// it triggers.
	ticks := []map[string]any{
		{"symbol": "XAUUSD", "bid": 66980, "ask": 66982},
		{"symbol": "XAUUSD", "bid": 66995, "ask": 66997},
		{"symbol": "XAUUSD", "bid": 67010, "ask": 67012},
	}
	var last *httptest.ResponseRecorder
	for _, tk := range ticks {
		last = doJSON(t, handler, "POST", "/api/mt5/tick", tk, "")
		if last.Code != http.StatusOK {
			t.Fatalf("tick status = %d, want 200, body=%s", last.Code, last.Body.String())
		}
	}

	var resp map[string]any
	if err := json.Unmarshal(last.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["action"] != "TRADE_TRIGGERED" {
		t.Fatalf("expected last tick to trigger a trade, got %+v", resp)
	}
	if st.ActivePlan() != nil {
		t.Fatal("expected plan consumed after trigger")
	}
	if st.Position() == nil {
		t.Fatal("expected position installed after successful mock fill")
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	t.Parallel()
	handler, _ := newTestServer("")

	rec := doJSON(t, handler, "GET", "/api/snapshot", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot status = %d, want 200", rec.Code)
	}
}
