package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ayusman/facecloud/internal/capture"
	"github.com/ayusman/facecloud/internal/detector"
	"gocv.io/x/gocv"
)

// mailbox holds the most recent completed detection. The capture loop
// overwrites it; the tick loop reads it every tick and the session discards
// detections it has already seen.
type mailbox struct {
	mu  sync.Mutex
	det *detector.Detection
}

func (m *mailbox) put(det *detector.Detection) {
	m.mu.Lock()
	m.det = det
	m.mu.Unlock()
}

func (m *mailbox) get() *detector.Detection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.det
}

type preview struct {
	mu   sync.Mutex
	data []byte
	seq  uint64
}

func (p *preview) put(data []byte) {
	p.mu.Lock()
	p.data = data
	p.seq++
	p.mu.Unlock()
}

func (p *preview) get() ([]byte, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data, p.seq
}

// rateMeter estimates events per second over one-second windows.
type rateMeter struct {
	mu     sync.Mutex
	start  time.Time
	count  int
	latest float64
}

func (r *rateMeter) mark(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.start.IsZero() {
		r.start = now
	}
	r.count++
	if elapsed := now.Sub(r.start); elapsed >= time.Second {
		r.latest = float64(r.count) / elapsed.Seconds()
		r.start = now
		r.count = 0
	}
}

func (r *rateMeter) Rate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest
}

// runTicks advances the session at the render rate and broadcasts each frame.
func (a *App) runTicks(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(time.Second / time.Duration(a.config.RenderFPS))
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			a.tick(now.Sub(start))
			a.tickRate.mark(now)
		}
	}
}

func (a *App) tick(elapsed time.Duration) {
	frame := a.session.Tick(elapsed, a.mailbox.get())
	if a.config.Frames == nil || a.config.Frames.ClientCount() == 0 {
		return
	}
	data, err := frame.JSON()
	if err != nil {
		log.Printf("Error encoding frame: %v", err)
		return
	}
	a.config.Frames.Broadcast(data)
}

// runCapture reads camera frames and runs detection on them.
//
// While the motion gate is open every frame is detected. Once the scene has
// been still for MotionHoldFrames the loop drops to IdleDetectFPS so a quiet
// room costs little, and the first changed frame brings it back.
func (a *App) runCapture(ctx context.Context) {
	defer a.wg.Done()

	fps := a.config.Camera.FPS()
	if fps <= 0 {
		fps = capture.DefaultConfig().FPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	idleInterval := time.Second / IdleDetectFPS
	var lastDetect time.Time
	active := true
	failures := 0
	frames := 0

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			frame, err := a.config.Camera.ReadFrame()
			if err != nil {
				failures++
				if failures >= MaxReadFailures {
					a.fail(fmt.Errorf("%w: camera stopped delivering frames: %w", ErrAcquisition, err))
					a.halt()
					return
				}
				continue
			}
			failures = 0
			frames++

			if frames%PreviewEvery == 0 {
				a.encodePreview(frame.Mat)
			}

			open := a.gate.Observe(frame.Mat)
			if open != active {
				active = open
				if active {
					log.Println("Motion detected, detecting every frame")
				} else {
					log.Printf("Scene still, detecting at %d FPS", IdleDetectFPS)
				}
			}

			if !active && now.Sub(lastDetect) < idleInterval {
				frame.Close()
				continue
			}

			det, err := a.config.Detector.Detect(frame.Mat, frame.TimestampMs)
			frame.Close()
			lastDetect = now
			if err != nil {
				log.Printf("Error detecting landmarks: %v", err)
				continue
			}
			a.mailbox.put(det)
			a.detectRate.mark(now)
		}
	}
}

func (a *App) encodePreview(mat *gocv.Mat) {
	if mat == nil || mat.Empty() {
		return
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *mat)
	if err != nil {
		log.Printf("Error encoding preview: %v", err)
		return
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	a.preview.put(data)
}
