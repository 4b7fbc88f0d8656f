// Package http exposes a read-only diagnostics surface over HTTP: the
// current supervisor diagnostics, a Mermaid rendering of the task
// graph, and Prometheus metrics. The server never commands the
// supervisor; control stays with the process that owns the tick loop.
package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kinetral/sequitur/internal/presentation/graphviz"
	"github.com/kinetral/sequitur/pkg/domain"
)

// Introspector is the slice of the supervisor the server reads from.
type Introspector interface {
	Diagnostics() domain.Diagnostics
}

// Server serves diagnostics for one supervisor.
type Server struct {
	intro    Introspector
	states   []domain.State
	entries  []string
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

type Option func(*Server)

// WithGraph attaches the task graph so GET /graph can render it.
func WithGraph(states []domain.State, entries []string) Option {
	return func(s *Server) {
		s.states = states
		s.entries = entries
	}
}

// WithMetrics attaches a Prometheus gatherer served at GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler builds the HTTP handler for a supervisor.
func NewHandler(intro Introspector, opts ...Option) http.Handler {
	s := &Server{
		intro:  intro,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.getHealth)
	r.Get("/status", s.getStatus)
	r.Get("/graph", s.getGraph)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// getStatus returns the diagnostics snapshot as JSON.
func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	diag := s.intro.Diagnostics()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(diag); err != nil {
		s.logger.Error("status response encode failed", "error", err)
	}
}

// getGraph returns the task graph as Mermaid text, with the current
// state highlighted when the supervisor is running.
func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	if len(s.states) == 0 {
		http.Error(w, "no graph attached", http.StatusNotFound)
		return
	}

	var overlay *graphviz.Overlay
	diag := s.intro.Diagnostics()
	if diag.CurrentState != "" {
		overlay = &graphviz.Overlay{CurrentState: diag.CurrentState}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graphviz.GenerateMermaid(s.states, s.entries, overlay))
}
