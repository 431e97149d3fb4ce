package server

import (
	"fmt"
	"net/http"
	"time"
)

// PreviewSource provides the most recent camera frame as JPEG together with
// a sequence number that changes whenever a new frame is available.
type PreviewSource interface {
	LatestJPEG() (data []byte, seq uint64)
}

// StreamHandler serves the camera preview as MJPEG. It never touches the
// camera itself; it re-sends whatever the pipeline last encoded.
type StreamHandler struct {
	source   PreviewSource
	interval time.Duration
}

// NewStreamHandler creates a StreamHandler polling source at about 15 FPS.
func NewStreamHandler(source PreviewSource) *StreamHandler {
	return &StreamHandler{source: source, interval: 66 * time.Millisecond}
}

// ServeHTTP streams MJPEG frames to the client until it disconnects.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last uint64
	for {
		if data, seq := h.source.LatestJPEG(); seq != last && len(data) > 0 {
			last = seq
			if err := writePart(w, data); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writePart(w http.ResponseWriter, data []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(data)); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\r\n")
	return err
}
