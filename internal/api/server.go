// Package api exposes the daemon's operational surface: health, Prometheus
// metrics, and a websocket feed of round-lifecycle events for dashboards.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/newsline-bot/editor-engine/internal/app/supervisor"
)

// StatsProvider is the subset of supervisor.Supervisor the API surfaces.
type StatsProvider interface {
	Stats() []supervisor.Stats
}

// Server is the daemon's HTTP API: health, metrics, and round events.
type Server struct {
	supervisor StatsProvider
	events     *EventHub
	logger     zerolog.Logger
}

// NewServer builds a Server. supervisor may be nil before the daemon starts
// its components (e.g. in a migrate-only invocation) — /healthz still
// answers, /api/stats reports an empty task list.
func NewServer(sup StatsProvider, logger zerolog.Logger) *Server {
	return &Server{supervisor: sup, events: NewEventHub(logger), logger: logger.With().Str("component", "api").Logger()}
}

// Events returns the round-event hub so callers (e.g. Planner via a thin
// adapter) can broadcast round lifecycle transitions to connected clients.
func (s *Server) Events() *EventHub { return s.events }

// Handler returns the chi router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/rounds/stream", s.events.HandleStream)
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var stats []supervisor.Stats
	if s.supervisor != nil {
		stats = s.supervisor.Stats()
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
