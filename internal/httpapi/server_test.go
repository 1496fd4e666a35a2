package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"ringkeep/internal/logger"
	"ringkeep/internal/ring"
)

func newTestState(t *testing.T) *ring.State {
	t.Helper()
	state := ring.New(logger.NopLogger{}, 3)
	id, err := ring.GenID("127.0.0.1:7946")
	if err != nil {
		t.Fatalf("gen id: %v", err)
	}
	state.SetIdentity(id, "127.0.0.1:7946", "127.0.0.1:7947")
	state.InsertNode(id)
	return state
}

func TestHandleHealthzReportsJoinState(t *testing.T) {
	state := newTestState(t)
	srv := NewServer(state, prometheus.NewRegistry())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	if body["id"] != string(state.MyID()) {
		t.Errorf("expected id %q, got %v", state.MyID(), body["id"])
	}
}

func TestHandleMembershipReturnsCurrentView(t *testing.T) {
	state := newTestState(t)
	other, err := ring.GenID("127.0.0.1:7950")
	if err != nil {
		t.Fatalf("gen id: %v", err)
	}
	state.InsertNode(other)
	now, _ := ring.Now()
	if err := state.RecalculateNeighbors(now); err != nil {
		t.Fatalf("recalc: %v", err)
	}

	srv := NewServer(state, prometheus.NewRegistry())
	req := httptest.NewRequest(http.MethodGet, "/membership", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Membership   []string `json:"membership"`
		Successors   []string `json:"successors"`
		Predecessors []string `json:"predecessors"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Membership) != 2 {
		t.Fatalf("expected 2 members, got %d: %v", len(body.Membership), body.Membership)
	}
	if len(body.Successors) != 1 || len(body.Predecessors) != 1 {
		t.Fatalf("expected one successor and one predecessor for a 2-node ring, got %v / %v", body.Successors, body.Predecessors)
	}
}

func TestHandleMetricsServesPrometheusFormat(t *testing.T) {
	state := newTestState(t)
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "ringkeep_test_counter", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	srv := NewServer(state, reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !contains(rec.Body.String(), "ringkeep_test_counter") {
		t.Errorf("expected scrape body to include registered counter, got: %s", rec.Body.String())
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
