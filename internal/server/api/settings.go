package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ayusman/facecloud/internal/config"
)

// SettingsHandler serves the live settings table.
//
//	GET  /api/settings         current settings
//	PUT  /api/settings         partial JSON patch, returns the result
//	POST /api/settings/reset   restore startup settings
//	GET  /api/settings/schema  slider ranges and keys
type SettingsHandler struct {
	store *config.Store
}

// NewSettingsHandler creates a SettingsHandler over store.
func NewSettingsHandler(store *config.Store) *SettingsHandler {
	return &SettingsHandler{store: store}
}

type schemaResponse struct {
	Keys   []string                `json:"keys"`
	Ranges map[string]config.Range `json:"ranges"`
}

// ServeHTTP routes settings requests.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/settings")
	path = strings.Trim(path, "/")

	switch path {
	case "":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, h.store.Snapshot())
		case http.MethodPut, http.MethodPatch:
			h.patch(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "reset":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, h.store.Reset())
	case "schema":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, schemaResponse{Keys: config.Keys(), Ranges: config.Ranges()})
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *SettingsHandler) patch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}

	next, err := h.store.Patch(body)
	if err != nil {
		if errors.Is(err, config.ErrUnknownKey) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid settings: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, next)
}
