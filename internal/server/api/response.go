// Package api provides the HTTP handlers for facecloud's settings, status
// and viewport endpoints.
package api

import (
	"encoding/json"
	"net/http"
)

// maxBodyBytes caps request bodies; settings patches are tiny.
const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
