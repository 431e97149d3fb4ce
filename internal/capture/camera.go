// Package capture reads webcam frames through GoCV and stamps each one with
// a strictly increasing timestamp for the landmark detector.
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
var ErrCameraNotOpen = errors.New("camera is not open")

// Config holds camera settings.
type Config struct {
	DeviceID int
	Width    int
	Height   int
	FPS      int
}

// DefaultConfig returns the 1280x720 user-facing camera setup.
func DefaultConfig() Config {
	return Config{
		DeviceID: 0,
		Width:    1280,
		Height:   720,
		FPS:      30,
	}
}

// Frame is one captured image. The caller owns Mat and must Close it.
type Frame struct {
	Mat         *gocv.Mat
	TimestampMs int64
	Width       int
	Height      int
}

// Close releases the frame's image.
func (f *Frame) Close() {
	if f != nil && f.Mat != nil {
		f.Mat.Close()
		f.Mat = nil
	}
}

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*Frame, error)
	FPS() int
	IsOpen() bool
}

// Clock stamps frames relative to when the camera was opened. Timestamps
// never repeat: a frame read within the same millisecond as the previous
// one is pushed forward by one.
type Clock struct {
	start time.Time
	last  int64
	now   func() time.Time
}

// NewClock starts a clock at the current time.
func NewClock() *Clock {
	return newClockAt(time.Now)
}

func newClockAt(now func() time.Time) *Clock {
	return &Clock{start: now(), last: -1, now: now}
}

// Next returns the next frame timestamp in milliseconds.
func (c *Clock) Next() int64 {
	ts := c.now().Sub(c.start).Milliseconds()
	if ts <= c.last {
		ts = c.last + 1
	}
	c.last = ts
	return ts
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	config  Config
	capture *gocv.VideoCapture
	clock   *Clock
	mu      sync.Mutex
	running bool
}

// NewCamera creates a Camera for the configured device.
func NewCamera(config Config) Camera {
	if config.FPS <= 0 {
		config.FPS = DefaultConfig().FPS
	}
	return &cameraImpl{config: config}
}

// Open opens the camera and requests the configured resolution and rate.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.config.DeviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.config.DeviceID, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open camera %d: device unavailable", c.config.DeviceID)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.config.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.config.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.config.FPS))

	c.capture = capture
	c.clock = NewClock()
	c.running = true

	return nil
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame blocks for the next frame from the camera.
func (c *cameraImpl) ReadFrame() (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from camera")
	}
	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}

	return &Frame{
		Mat:         &mat,
		TimestampMs: c.clock.Next(),
		Width:       mat.Cols(),
		Height:      mat.Rows(),
	}, nil
}

// FPS returns the requested capture rate.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config.FPS
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
