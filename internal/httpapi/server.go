// Package httpapi is the node's debug/observability HTTP surface
// (§11.4): health, Prometheus scrape, and a read-only membership
// snapshot, mounted on a chi router the way the corpus's HTTP servers do.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"ringkeep/internal/ring"
)

// StateReader is the subset of ring.State the debug endpoints read.
type StateReader interface {
	MyID() ring.NodeId
	IsJoined() bool
	Membership() []ring.NodeId
	Successors() []ring.NodeId
	Predecessors() []ring.NodeId
}

// Server is the node's debug/metrics HTTP server.
type Server struct {
	state    StateReader
	registry *prometheus.Registry
}

// NewServer builds a Server over state, scraping reg for /metrics.
func NewServer(state StateReader, reg *prometheus.Registry) *Server {
	return &Server{state: state, registry: reg}
}

// Handler returns the chi router with every route mounted, wrapped in
// otelhttp server instrumentation so each request produces a span.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/membership", s.handleMembership)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return otelhttp.NewHandler(r, "ringkeep.httpapi")
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"joined": s.state.IsJoined(),
		"id":     string(s.state.MyID()),
	})
}

func (s *Server) handleMembership(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"id":           string(s.state.MyID()),
		"joined":       s.state.IsJoined(),
		"membership":   idsToStrings(s.state.Membership()),
		"successors":   idsToStrings(s.state.Successors()),
		"predecessors": idsToStrings(s.state.Predecessors()),
	})
}

func idsToStrings(ids []ring.NodeId) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
