// Package server exposes facecloud over HTTP: the frame websocket the
// renderer draws from, the settings API, status, viewport updates and the
// camera preview.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/facecloud/internal/config"
	"github.com/ayusman/facecloud/internal/server/api"
)

// Config holds the server configuration. Nil fields disable their routes.
type Config struct {
	StaticDir string
	Settings  *config.Store
	Frames    *Hub
	Preview   PreviewSource
	Status    func() any
	Resize    func(width, height int) bool
}

// Server is the HTTP front of a facecloud process.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Settings != nil {
		settings := api.NewSettingsHandler(s.config.Settings)
		s.mux.Handle("/api/settings", settings)
		s.mux.Handle("/api/settings/", settings)
	}
	if s.config.Status != nil {
		s.mux.Handle("/api/status", api.NewStatusHandler(s.config.Status))
	}
	if s.config.Resize != nil {
		s.mux.Handle("/api/viewport", api.NewViewportHandler(s.config.Resize))
	}
	if s.config.Frames != nil {
		s.mux.Handle("/api/frames", s.config.Frames)
	}
	if s.config.Preview != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Preview))
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
