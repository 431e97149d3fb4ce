package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/facecloud/internal/capture"
	"github.com/ayusman/facecloud/internal/config"
	"github.com/ayusman/facecloud/internal/detector"
	"github.com/ayusman/facecloud/internal/game"
	"github.com/ayusman/facecloud/internal/session"
)

type fakeBroadcaster struct {
	mu     sync.Mutex
	frames [][]byte
}

func (f *fakeBroadcaster) Broadcast(msg []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, msg)
	return true
}

func (f *fakeBroadcaster) ClientCount() int { return 1 }

func (f *fakeBroadcaster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func testConfig() Config {
	cfg := session.DefaultConfig()
	cfg.Seed = 1
	return Config{
		Settings:  config.NewStore(config.Defaults()),
		Session:   cfg,
		RenderFPS: 100,
	}
}

func TestApp_Pipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pipeline test in short mode")
	}

	det := detector.NewMockDetector()
	det.SetFace(detector.NeutralFace())
	frames := &fakeBroadcaster{}

	cfg := testConfig()
	cfg.Camera = capture.NewMockCamera(64, 48, 30, 0)
	cfg.Detector = det
	cfg.Frames = frames

	a := New(cfg)
	if a.State() != StateIdle {
		t.Errorf("initial state = %s, want idle", a.State())
	}

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, "accepted detections", func() bool { return a.Session().Stats().Accepted >= 3 })
	waitFor(t, "broadcast frames", func() bool { return frames.count() > 0 })
	waitFor(t, "preview frame", func() bool { data, _ := a.LatestJPEG(); return len(data) > 0 })

	st := a.Status()
	if st.State != StateRunning {
		t.Errorf("state = %s, want running", st.State)
	}
	if !st.Signals.HeadTracked {
		t.Error("head should be tracked with a face in view")
	}
	if st.Clients != 1 {
		t.Errorf("clients = %d, want 1", st.Clients)
	}

	a.Stop()
	if a.State() != StateStopped {
		t.Errorf("state after Stop = %s, want stopped", a.State())
	}
	if err := a.Start(context.Background()); err == nil {
		t.Error("Start after Stop should fail")
	}
}

func TestApp_AcquisitionFailure(t *testing.T) {
	t.Run("camera open error", func(t *testing.T) {
		cam := capture.NewMockCamera(64, 48, 30, 0)
		cam.SetOpenError(errors.New("device busy"))

		cfg := testConfig()
		cfg.Camera = cam
		cfg.Detector = detector.NewMockDetector()
		a := New(cfg)
		defer a.Stop()

		err := a.Start(context.Background())
		if !errors.Is(err, ErrAcquisition) {
			t.Fatalf("Start() error = %v, want ErrAcquisition", err)
		}
		st := a.Status()
		if st.State != StateFailed {
			t.Errorf("state = %s, want failed", st.State)
		}
		if st.Error == "" {
			t.Error("status should carry the failure message")
		}

		// The loop never starts, so the session does not advance.
		time.Sleep(50 * time.Millisecond)
		if ticks := a.Session().Stats().Ticks; ticks != 0 {
			t.Errorf("session ticked %d times after a failed start", ticks)
		}
		if targets := a.Session().Score(); targets != 0 {
			t.Errorf("score = %d, want 0", targets)
		}
	})

	t.Run("start can be retried", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping pipeline test in short mode")
		}
		cam := capture.NewMockCamera(64, 48, 30, 0)
		cam.SetOpenError(errors.New("device busy"))

		cfg := testConfig()
		cfg.Camera = cam
		cfg.Detector = detector.NewMockDetector()
		a := New(cfg)
		defer a.Stop()

		if err := a.Start(context.Background()); !errors.Is(err, ErrAcquisition) {
			t.Fatalf("first Start() error = %v, want ErrAcquisition", err)
		}
		cam.SetOpenError(nil)
		if err := a.Start(context.Background()); err != nil {
			t.Fatalf("second Start() error = %v", err)
		}
		if a.State() != StateRunning {
			t.Errorf("state = %s, want running", a.State())
		}
		waitFor(t, "ticks", func() bool { return a.Session().Stats().Ticks > 0 })
	})

	t.Run("no detector", func(t *testing.T) {
		cfg := testConfig()
		cfg.Camera = capture.NewMockCamera(64, 48, 30, 0)
		a := New(cfg)
		defer a.Stop()

		if err := a.Start(context.Background()); !errors.Is(err, ErrAcquisition) {
			t.Errorf("Start() error = %v, want ErrAcquisition", err)
		}
	})

	t.Run("camera runs dry", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping pipeline test in short mode")
		}
		cfg := testConfig()
		cfg.Camera = capture.NewMockCamera(64, 48, 200, 5)
		cfg.Detector = detector.NewMockDetector()
		a := New(cfg)
		defer a.Stop()

		if err := a.Start(context.Background()); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		waitFor(t, "failed state", func() bool { return a.State() == StateFailed })
		if !errors.Is(a.Err(), ErrAcquisition) {
			t.Errorf("Err() = %v, want ErrAcquisition", a.Err())
		}

		// Failure ends the tick loop as well.
		time.Sleep(50 * time.Millisecond)
		before := a.Session().Stats().Ticks
		time.Sleep(100 * time.Millisecond)
		if after := a.Session().Stats().Ticks; after != before {
			t.Errorf("session kept ticking after failure: %d -> %d", before, after)
		}
	})
}

func TestApp_HandleCollect(t *testing.T) {
	a := New(testConfig())
	var reported int
	a.OnScore(func(score int) { reported = score })

	a.handleCollect(game.Collected{ID: "x", Score: 30})

	if got := a.score.Load(); got != 30 {
		t.Errorf("score = %d, want 30", got)
	}
	if reported != 30 {
		t.Errorf("OnScore saw %d, want 30", reported)
	}

	a.ResetGame()
	if got := a.score.Load(); got != 0 {
		t.Errorf("score after ResetGame = %d, want 0", got)
	}
}

func TestApp_Resize(t *testing.T) {
	a := New(testConfig())
	if !a.Resize(640, 640) {
		t.Fatal("Resize() = false for a valid size")
	}
	if w, h := a.Session().Viewport(); w != 640 || h != 640 {
		t.Errorf("viewport = %dx%d, want 640x640", w, h)
	}
}

func TestRateMeter(t *testing.T) {
	var r rateMeter
	start := time.Unix(0, 0)
	for i := 0; i <= 30; i++ {
		r.mark(start.Add(time.Duration(i) * time.Second / 30))
	}
	if got := r.Rate(); got < 29 || got > 32 {
		t.Errorf("Rate() = %f, want about 30", got)
	}
}

func TestMailbox(t *testing.T) {
	var m mailbox
	if m.get() != nil {
		t.Fatal("empty mailbox should return nil")
	}
	m.put(&detector.Detection{TimestampMs: 1})
	m.put(&detector.Detection{TimestampMs: 2})
	if got := m.get(); got.TimestampMs != 2 {
		t.Errorf("mailbox kept timestamp %d, want the latest (2)", got.TimestampMs)
	}
}
