// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tourdata/actcache/internal/service"
)

// zerologLogger keeps handler signatures readable.
type zerologLogger = zerolog.Logger

// errorBody is the stable client-visible error block.
type errorBody struct {
	Message      string `json:"message"`
	MissingCount *int   `json:"missingCount,omitempty"`
	CachedCount  *int   `json:"cachedCount,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the error block wrapper.
func writeError(w http.ResponseWriter, code int, body errorBody) {
	writeJSON(w, code, map[string]errorBody{"error": body})
}

// writeServiceError writes a tokenised service error without leaking
// internals.
func writeServiceError(w http.ResponseWriter, code int, err *service.Error) {
	writeError(w, code, errorBody{Message: err.Error()})
}

// writeUnauthorized writes a 401 Unauthorized response.
func writeUnauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, errorBody{Message: "unauthorized"})
}
