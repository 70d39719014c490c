package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MOYARU/driftwatch/internal/config"
	"github.com/MOYARU/driftwatch/internal/digest"
	"github.com/MOYARU/driftwatch/internal/pipeline"
	"github.com/MOYARU/driftwatch/internal/probe"
	"github.com/MOYARU/driftwatch/internal/schedule"
	"github.com/MOYARU/driftwatch/internal/store"
)

// Server wires the HTTP surface over the store and the scan pipeline.
type Server struct {
	store     *store.Store
	pipeline  *pipeline.Pipeline
	scheduler *schedule.Scheduler
	digests   *digest.Dispatcher
	policy    config.Policy

	// Normalizes and rejects target URLs before anything probes them.
	vet func(string) (string, error)
}

func New(s *store.Store, p *pipeline.Pipeline, sched *schedule.Scheduler, d *digest.Dispatcher, policy config.Policy) *Server {
	return &Server{store: s, pipeline: p, scheduler: sched, digests: d, policy: policy, vet: probe.VetTarget}
}

// Router mounts every route under /api/v1.
func (s *Server) Router() chi.Router {
	scans := &scansAPI{store: s.store, pipeline: s.pipeline, scheduler: s.scheduler, digests: s.digests, vet: s.vet}
	targets := &targetsAPI{store: s.store, vet: s.vet}
	alerts := &alertsAPI{store: s.store}
	prefs := &prefsAPI{store: s.store, defaultCooldownHours: s.policy.DefaultCooldownHours}

	r := chi.NewRouter()
	r.Use(withObservability)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/scans", scans.submit)
		r.Post("/scheduler/run", scans.runScheduler)
		r.Post("/digests/run", scans.runDigests)

		r.Get("/targets", targets.list)
		r.Post("/targets", targets.create)
		r.Get("/targets/{targetID}/assessments", targets.assessments)
		r.Get("/targets/{targetID}/assessments/latest", targets.latest)

		r.Get("/users/{userID}/alerts", alerts.list)
		r.Post("/alerts/{alertID}/read", alerts.read)
		r.Post("/alerts/{alertID}/dismiss", alerts.dismiss)

		r.Get("/users/{userID}/preferences/{type}", prefs.getPreference)
		r.Put("/users/{userID}/preferences/{type}", prefs.putPreference)
		r.Get("/users/{userID}/settings", prefs.getSettings)
		r.Put("/users/{userID}/settings", prefs.putSettings)
	})
	return r
}

// withObservability tags each request with a correlation id, recovers
// panics into a clean 500, and logs one line per request.
func withObservability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)
		start := time.Now()

		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Str("request", requestID).Interface("panic", rec).Msg("handler panicked")
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)

		log.Info().
			Str("request", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request served")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// uintParam parses a positive numeric path parameter.
func uintParam(r *http.Request, name string) (uint, bool) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 32)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}
