// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tourdata/actcache/internal/log"
	"github.com/tourdata/actcache/internal/model"
	"github.com/tourdata/actcache/internal/musicbrainz"
	"github.com/tourdata/actcache/internal/service"
)

// maxIDsPerRequest caps one lookup; anything larger is a malformed request.
const maxIDsPerRequest = 50

type actsResponse struct {
	Acts []model.Act `json:"acts"`
}

// handleActs serves GET /api/acts/{ids} where ids is one or more
// comma-separated MusicBrainz ids.
func (s *Server) handleActs(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	ids, ok := parseIDs(chi.URLParam(r, "ids"))
	if !ok {
		writeServiceError(w, http.StatusBadRequest, service.ErrInvalidRequest)
		return
	}

	acts, err := s.service.FetchMany(r.Context(), ids)
	if err != nil {
		s.writeFetchError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, actsResponse{Acts: acts})
}

func (s *Server) writeFetchError(w http.ResponseWriter, logger zerologLogger, err error) {
	var notCached *service.NotCachedError
	var svcErr *service.Error
	switch {
	case errors.As(err, &notCached):
		writeError(w, http.StatusNotFound, errorBody{
			Message:      notCached.Error(),
			MissingCount: &notCached.Missing,
			CachedCount:  &notCached.Cached,
		})
	case errors.As(err, &svcErr):
		status := http.StatusServiceUnavailable
		if svcErr == service.ErrInvalidRequest {
			status = http.StatusBadRequest
		}
		writeServiceError(w, status, svcErr)
	case errors.Is(err, musicbrainz.ErrNotFound):
		writeError(w, http.StatusNotFound, errorBody{Message: "act not found upstream"})
	default:
		// Inline single-miss enrichment failed; the upstream cause is
		// part of the contract.
		logger.Warn().Err(err).Str("event", "api.fetch_failed").Msg("act fetch failed")
		writeError(w, http.StatusBadGateway, errorBody{Message: err.Error()})
	}
}

// parseIDs splits and validates the comma-separated id list. MusicBrainz
// ids are UUIDs; anything else rejects the whole request.
func parseIDs(raw string) ([]string, bool) {
	parts := strings.Split(raw, ",")
	if len(parts) == 0 || len(parts) > maxIDsPerRequest {
		return nil, false
	}
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		id := strings.TrimSpace(p)
		if _, err := uuid.Parse(id); err != nil {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}
