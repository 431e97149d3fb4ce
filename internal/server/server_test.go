package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/facecloud/internal/config"
	"github.com/gorilla/websocket"
)

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var response map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_OptionalRoutes(t *testing.T) {
	t.Run("unconfigured routes are not found", func(t *testing.T) {
		s := New(Config{})
		for _, path := range []string{"/api/settings", "/api/status", "/api/viewport", "/api/frames", "/api/stream"} {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusNotFound {
				t.Errorf("%s: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
			}
		}
	})

	t.Run("settings and status are mounted", func(t *testing.T) {
		s := New(Config{
			Settings: config.NewStore(config.Defaults()),
			Status:   func() any { return map[string]string{"state": "running"} },
		})

		for _, path := range []string{"/api/settings", "/api/settings/schema", "/api/status"} {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("%s: expected status %d, got %d", path, http.StatusOK, rec.Code)
			}
		}
	})

	t.Run("viewport forwards to resize", func(t *testing.T) {
		var gotW, gotH int
		s := New(Config{Resize: func(w, h int) bool { gotW, gotH = w, h; return true }})

		req := httptest.NewRequest(http.MethodPost, "/api/viewport", strings.NewReader(`{"width":800,"height":600}`))
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
		}
		if gotW != 800 || gotH != 600 {
			t.Errorf("resize got %dx%d, want 800x600", gotW, gotH)
		}
	})
}

func TestServer_StaticFiles(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte("<html>cloud</html>"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	s := New(Config{StaticDir: tmpDir})

	req := httptest.NewRequest(http.MethodGet, "/index.html", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "cloud") {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestHub_BroadcastsFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping websocket test in short mode")
	}

	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	ts := httptest.NewServer(New(Config{Frames: hub}))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/frames"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	frame := []byte(`{"seq":1}`)
	if !hub.Broadcast(frame) {
		t.Fatal("Broadcast() = false on an empty queue")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(msg, frame) {
		t.Errorf("got %s, want %s", msg, frame)
	}
}

func TestHub_StopDisconnects(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping websocket test in short mode")
	}

	hub := NewHub()
	go hub.Run()

	ts := httptest.NewServer(hub)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Stop()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the connection to close after Stop")
	}
}

func TestHub_BroadcastWhenQueueFull(t *testing.T) {
	hub := NewHub() // not running, so nothing drains the queue
	for i := 0; i < broadcastQueue; i++ {
		if !hub.Broadcast([]byte("x")) {
			t.Fatalf("Broadcast %d rejected before the queue filled", i)
		}
	}
	if hub.Broadcast([]byte("x")) {
		t.Error("Broadcast should report false when the queue is full")
	}
}

type fakePreview struct {
	mu   sync.Mutex
	data []byte
	seq  uint64
}

func (f *fakePreview) LatestJPEG() ([]byte, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data, f.seq
}

func TestStreamHandler(t *testing.T) {
	t.Run("writes multipart frames until the client leaves", func(t *testing.T) {
		source := &fakePreview{data: []byte{0xff, 0xd8, 0xff, 0xd9}, seq: 1}
		h := NewStreamHandler(source)
		h.interval = 5 * time.Millisecond

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
			t.Errorf("unexpected Content-Type %q", ct)
		}
		body := rec.Body.String()
		if n := strings.Count(body, "--frame"); n != 1 {
			t.Errorf("expected one part for an unchanged frame, got %d", n)
		}
		if !strings.Contains(body, "Content-Length: 4") {
			t.Errorf("missing part header in %q", body)
		}
	})

	t.Run("skips empty source", func(t *testing.T) {
		h := NewStreamHandler(&fakePreview{})
		h.interval = 5 * time.Millisecond

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		if rec.Body.Len() != 0 {
			t.Errorf("expected no parts, got %q", rec.Body.String())
		}
	})

	t.Run("rejects POST", func(t *testing.T) {
		h := NewStreamHandler(&fakePreview{})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stream", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}
