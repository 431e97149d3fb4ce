// Package app wires the camera, landmark detector and animation session into
// a running facecloud process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/facecloud/internal/capture"
	"github.com/ayusman/facecloud/internal/config"
	"github.com/ayusman/facecloud/internal/detector"
	"github.com/ayusman/facecloud/internal/game"
	"github.com/ayusman/facecloud/internal/gesture"
	"github.com/ayusman/facecloud/internal/hook"
	"github.com/ayusman/facecloud/internal/session"
	"github.com/ayusman/facecloud/internal/sound"
)

// ErrAcquisition is wrapped by every error that stops landmark acquisition:
// the camera could not be opened, the detector could not be started, or
// frames stopped arriving.
var ErrAcquisition = errors.New("landmark acquisition failed")

// Pipeline timing constants.
const (
	// RenderFPS is the default tick rate of the animation.
	RenderFPS = 60
	// IdleDetectFPS is the detection rate while the motion gate is closed.
	IdleDetectFPS = 5
	// MotionThreshold is the percentage of changed pixels that opens the gate.
	MotionThreshold = 1.0
	// MotionHoldFrames keeps the gate open for this many still frames (~2s at 15 FPS).
	MotionHoldFrames = 30
	// PreviewEvery encodes one preview JPEG per this many captured frames.
	PreviewEvery = 2
	// MaxReadFailures consecutive failed reads mark acquisition as failed.
	MaxReadFailures = 30
)

// State is the lifecycle state of landmark acquisition.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateFailed   State = "failed"
	StateStopped  State = "stopped"
)

// Broadcaster receives every encoded frame. server.Hub implements it.
type Broadcaster interface {
	Broadcast(msg []byte) bool
	ClientCount() int
}

// Config holds configuration options for the application.
type Config struct {
	Settings  *config.Store
	Session   session.Config
	Camera    capture.Camera
	Detector  detector.Detector
	Frames    Broadcaster
	Hooks     *hook.Manager
	Chime     *sound.Chime
	RenderFPS int
}

// Status is the snapshot served by /api/status.
type Status struct {
	State     State         `json:"state"`
	Error     string        `json:"error,omitempty"`
	Score     int           `json:"score"`
	FPS       float64       `json:"fps"`
	DetectFPS float64       `json:"detect_fps"`
	Clients   int           `json:"clients"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	Stats     session.Stats `json:"stats"`
	Signals   Signals       `json:"signals"`
}

// Signals are the current gesture flags.
type Signals struct {
	MouthOpen   bool `json:"mouth_open"`
	Smiling     bool `json:"smiling"`
	Pinching    bool `json:"pinching"`
	HeadTracked bool `json:"head_tracked"`
}

// App is the running application: one session fed by one camera.
type App struct {
	config   Config
	session  *session.Session
	gate     *capture.MotionGate
	dispatch *hook.Dispatcher

	mu      sync.RWMutex
	state   State
	lastErr error
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mailbox mailbox
	preview preview
	score   atomic.Int64
	onScore func(int)

	tickRate   rateMeter
	detectRate rateMeter
}

// New creates a new App. The session is created immediately so the server
// can serve settings and frames before acquisition starts.
func New(cfg Config) *App {
	if cfg.Settings == nil {
		cfg.Settings = config.NewStore(config.Defaults())
	}
	if cfg.RenderFPS <= 0 {
		cfg.RenderFPS = RenderFPS
	}

	a := &App{
		config:  cfg,
		session: session.New(cfg.Settings, cfg.Session),
		gate:    capture.NewMotionGate(MotionThreshold, MotionHoldFrames),
		state:   StateIdle,
	}

	if cfg.Hooks != nil {
		a.dispatch = hook.NewDispatcher(cfg.Hooks, hook.NewExecutor(5*time.Second), hook.DefaultQueueSize)
	}

	a.session.OnEvent = a.handleEvent
	a.session.OnCollect = a.handleCollect
	return a
}

// handleEvent runs on the tick goroutine with the session locked.
func (a *App) handleEvent(e gesture.Event) {
	log.Printf("gesture: %s", e)
	if a.dispatch != nil {
		a.dispatch.Fire(hook.Event(e), int(a.score.Load()))
	}
}

func (a *App) handleCollect(c game.Collected) {
	a.score.Store(int64(c.Score))
	a.mu.RLock()
	onScore := a.onScore
	a.mu.RUnlock()
	if onScore != nil {
		onScore(c.Score)
	}
	if a.config.Chime != nil {
		a.config.Chime.Play(c.Score)
	}
	if a.dispatch != nil {
		a.dispatch.Fire(hook.EventCollect, c.Score)
	}
}

// Start opens the camera and starts the capture and tick loops. When
// acquisition fails neither loop starts: the error wraps ErrAcquisition, the
// state becomes StateFailed and the session stays untouched. Start may be
// called again after a failure.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.cancel != nil {
		a.mu.Unlock()
		return nil
	}
	if a.state == StateStopped {
		a.mu.Unlock()
		return errors.New("app: cannot restart after Stop")
	}
	a.state = StateStarting
	a.lastErr = nil
	a.mu.Unlock()

	if err := a.acquire(); err != nil {
		a.fail(err)
		return err
	}

	a.mu.Lock()
	ctx, a.cancel = context.WithCancel(ctx)
	a.mu.Unlock()

	if a.dispatch != nil {
		a.dispatch.Start(ctx)
	}

	a.wg.Add(2)
	go a.runTicks(ctx)
	go a.runCapture(ctx)

	a.setState(StateRunning)
	log.Println("Acquisition started")
	return nil
}

// halt ends both loops after acquisition has failed mid-run. Resources are
// released by Stop.
func (a *App) halt() {
	a.mu.RLock()
	cancel := a.cancel
	a.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

func (a *App) acquire() error {
	if a.config.Camera == nil {
		return fmt.Errorf("%w: no camera configured", ErrAcquisition)
	}
	if err := a.config.Camera.Open(); err != nil {
		return fmt.Errorf("%w: open camera: %w", ErrAcquisition, err)
	}
	if a.config.Detector == nil {
		a.config.Camera.Close()
		return fmt.Errorf("%w: no landmark detector", ErrAcquisition)
	}
	return nil
}

// Stop halts both loops and releases the camera, detector and hooks.
func (a *App) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	a.wg.Wait()

	if a.dispatch != nil {
		a.dispatch.Stop()
	}
	if a.config.Camera != nil {
		if err := a.config.Camera.Close(); err != nil {
			log.Printf("Error closing camera: %v", err)
		}
	}
	if a.config.Detector != nil {
		if err := a.config.Detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}
	a.gate.Close()

	a.setState(StateStopped)
	log.Println("Pipeline stopped")
}

func (a *App) setState(s State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateFailed || s == StateStopped {
		a.state = s
	}
}

func (a *App) fail(err error) {
	a.mu.Lock()
	a.state = StateFailed
	a.lastErr = err
	a.mu.Unlock()
	log.Printf("Acquisition failed: %v", err)
}

// State returns the acquisition state.
func (a *App) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Err returns the error that put acquisition into StateFailed, if any.
func (a *App) Err() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastErr
}

// Status reports the pipeline state for /api/status.
func (a *App) Status() Status {
	st := Status{
		State:     a.State(),
		Score:     a.session.Score(),
		FPS:       a.tickRate.Rate(),
		DetectFPS: a.detectRate.Rate(),
		Stats:     a.session.Stats(),
	}
	if err := a.Err(); err != nil {
		st.Error = err.Error()
	}
	if a.config.Frames != nil {
		st.Clients = a.config.Frames.ClientCount()
	}
	st.Width, st.Height = a.session.Viewport()

	gs := a.session.State()
	st.Signals = Signals{
		MouthOpen:   gs.IsMouthOpen,
		Smiling:     gs.IsSmiling,
		Pinching:    gs.IsPinching,
		HeadTracked: gs.HeadTracked,
	}
	return st
}

// OnScore registers fn to receive the score after every collection.
func (a *App) OnScore(fn func(score int)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onScore = fn
}

// ResetGame clears the collectibles and the score.
func (a *App) ResetGame() {
	a.session.ResetGame()
	a.score.Store(0)
}

// Session returns the animation session.
func (a *App) Session() *session.Session {
	return a.session
}

// Settings returns the live settings store.
func (a *App) Settings() *config.Store {
	return a.config.Settings
}

// Resize forwards a viewport change to the session.
func (a *App) Resize(width, height int) bool {
	return a.session.Resize(width, height)
}

// LatestJPEG returns the last encoded camera frame for the MJPEG preview.
func (a *App) LatestJPEG() ([]byte, uint64) {
	return a.preview.get()
}
