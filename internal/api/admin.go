// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/pquerna/otp/totp"

	"github.com/tourdata/actcache/internal/log"
	"github.com/tourdata/actcache/internal/model"
)

// adminCodeHeader carries the one-time code for admin requests.
const adminCodeHeader = "X-Admin-Code"

// adminAuth validates the TOTP code on every admin request. With no secret
// configured the admin surface is closed entirely.
func (s *Server) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.WithComponentFromContext(r.Context(), "api")
		if s.cfg.AdminTOTPSecret == "" {
			writeUnauthorized(w)
			return
		}
		code := r.Header.Get(adminCodeHeader)
		if code == "" || !totp.Validate(code, s.cfg.AdminTOTPSecret) {
			logger.Warn().
				Str("event", "admin.auth_failed").
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Msg("admin authentication rejected")
			writeUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, errorBody{Message: "cache clear failed"})
		return
	}
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().
		Str("event", "admin.cache_cleared").
		Msg("cache cleared by admin")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleRecentErrors(w http.ResponseWriter, r *http.Request) {
	errs, err := s.store.RecentErrors(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, errorBody{Message: "could not read error journal"})
		return
	}
	if errs == nil {
		errs = []model.UpdateError{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.UpdateError{"errors": errs})
}

func (s *Server) handleEvict(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.EvictInactive(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, errorBody{Message: "eviction failed"})
		return
	}
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().
		Str("event", "admin.evicted").
		Int("count", count).
		Msg("inactive acts evicted by admin")
	writeJSON(w, http.StatusOK, map[string]int{"evicted": count})
}

// handleStamps lists every cached act with its updatedAt stamp; useful for
// judging cache freshness without pulling full records.
func (s *Server) handleStamps(w http.ResponseWriter, r *http.Request) {
	stamps, err := s.store.ListWithUpdatedAt(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, errorBody{Message: "listing failed"})
		return
	}
	if stamps == nil {
		stamps = []model.ActStamp{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.ActStamp{"acts": stamps})
}

// handleUncovered lists cached acts with no Bandsintown relation; useful
// for spotting acts that will never get event data.
func (s *Server) handleUncovered(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.ListWithoutBandsintown(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, errorBody{Message: "listing failed"})
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"ids": ids})
}
