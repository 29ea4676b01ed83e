// SPDX-License-Identifier: MIT

// Package api provides the thin HTTP surface over the cache core: the act
// lookup endpoint, admin operations behind TOTP, and operational probes.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tourdata/actcache/internal/model"
	"github.com/tourdata/actcache/internal/store"
)

// ActService is the core read path consumed by the HTTP layer.
type ActService interface {
	FetchMany(ctx context.Context, ids []string) ([]model.Act, error)
	Healthy() bool
}

// Config carries the HTTP-layer knobs.
type Config struct {
	// AdminTOTPSecret guards the admin routes; empty disables them.
	AdminTOTPSecret string

	// RequestsPerMinute caps public API calls per client IP.
	RequestsPerMinute int
}

// Server wires the router over the core components.
type Server struct {
	cfg     Config
	service ActService
	store   store.Store
}

// New creates the HTTP server shell.
func New(cfg Config, svc ActService, st store.Store) *Server {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	return &Server{cfg: cfg, service: svc, store: st}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(httprate.LimitByIP(s.cfg.RequestsPerMinute, time.Minute))
		r.Get("/acts/{ids}", s.handleActs)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.adminAuth)
			r.Delete("/cache", s.handleClearCache)
			r.Get("/errors", s.handleRecentErrors)
			r.Post("/evict", s.handleEvict)
			r.Get("/stamps", s.handleStamps)
			r.Get("/uncovered", s.handleUncovered)
		})
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports readiness: the cache-health hint plus a live probe
// when the hint says unhealthy.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.service.Healthy() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.store.Probe(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "cache unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Serve starts the HTTP server and shuts it down when ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
