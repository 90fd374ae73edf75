// SPDX-License-Identifier: MIT

// Package api is the daemon's HTTP surface: pass triggering, status,
// the last reconciliation report and the usual operational endpoints.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sportarr/sportarr/internal/jobs"
	"github.com/sportarr/sportarr/internal/log"
	"github.com/sportarr/sportarr/internal/patterns"
)

// Server wires the HTTP routes to the pass runner.
type Server struct {
	runner   *jobs.Runner
	provider *patterns.Provider
	logger   zerolog.Logger
}

func NewServer(runner *jobs.Runner, provider *patterns.Provider) *Server {
	return &Server{
		runner:   runner,
		provider: provider,
		logger:   log.WithComponent("api"),
	}
}

// Router builds the chi router with the standard middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.requestID)
	r.Use(s.accessLog)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Pass triggering is expensive; throttle it harder than the
		// read-only endpoints.
		r.With(rateLimit(10, time.Minute)).Post("/run", s.handleRun)
		r.With(rateLimit(120, time.Minute)).Group(func(r chi.Router) {
			r.Get("/status", s.handleStatus)
			r.Get("/report", s.handleReport)
			r.Post("/patterns/invalidate", s.handleInvalidate)
		})
	})
	return r
}

func rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded"}`))
		}),
	)
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(log.ContextWithRequestID(r.Context(), id)))
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger := log.WithContext(r.Context(), s.logger)
		logger.Info().
			Str("event", "http.request").
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request handled")
	})
}

// handleRun triggers a generation pass. The pass runs synchronously so
// the response carries its result; a concurrent trigger gets 409.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	status, err := s.runner.Run(r.Context())
	switch {
	case errors.Is(err, jobs.ErrPassInFlight):
		writeError(w, http.StatusConflict, "pass already in flight")
	case err != nil:
		// The status still describes how far the pass got.
		writeJSON(w, http.StatusBadGateway, status)
	default:
		writeJSON(w, http.StatusOK, status)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"running":   s.runner.Running(),
		"last_pass": s.runner.LastStatus(),
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	last := s.runner.LastStatus()
	if last == nil {
		writeError(w, http.StatusNotFound, "no pass has run yet")
		return
	}
	writeJSON(w, http.StatusOK, last.Reconcile)
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	s.provider.Invalidate()
	counts, err := s.provider.Warm(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
