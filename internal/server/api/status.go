package api

import "net/http"

// StatusHandler serves GET /api/status from a report function.
type StatusHandler struct {
	report func() any
}

// NewStatusHandler creates a StatusHandler. report is called once per request.
func NewStatusHandler(report func() any) *StatusHandler {
	return &StatusHandler{report: report}
}

// ServeHTTP writes the current status.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.report())
}
