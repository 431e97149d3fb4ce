package api

import (
	"encoding/json"
	"net/http"
)

// ViewportHandler accepts POST /api/viewport with the presentation surface
// size so the projection matches the renderer's aspect ratio.
type ViewportHandler struct {
	resize func(width, height int) bool
}

// NewViewportHandler creates a ViewportHandler. resize reports false for
// sizes it rejects.
func NewViewportHandler(resize func(width, height int) bool) *ViewportHandler {
	return &ViewportHandler{resize: resize}
}

type viewportRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ServeHTTP applies a viewport update.
func (h *ViewportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req viewportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !h.resize(req.Width, req.Height) {
		writeError(w, http.StatusBadRequest, "Width and height must be positive")
		return
	}
	writeJSON(w, http.StatusOK, req)
}
