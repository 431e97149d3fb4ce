package capture

import (
	"errors"
	"image/color"
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera produces solid-color frames with timestamps spaced exactly one
// frame interval apart, for tests and for running without a webcam.
type MockCamera struct {
	mu      sync.Mutex
	width   int
	height  int
	fps     int
	fill    color.RGBA
	index   int64
	limit   int64
	running bool
	openErr error
}

// NewMockCamera creates a mock camera. A limit of 0 produces frames forever.
func NewMockCamera(width, height, fps int, limit int) *MockCamera {
	if fps <= 0 {
		fps = DefaultConfig().FPS
	}
	return &MockCamera{
		width:  width,
		height: height,
		fps:    fps,
		fill:   color.RGBA{R: 32, G: 32, B: 32, A: 255},
		limit:  int64(limit),
	}
}

// SetOpenError makes Open fail with err.
func (c *MockCamera) SetOpenError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr = err
}

// SetFill changes the color of subsequent frames.
func (c *MockCamera) SetFill(fill color.RGBA) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fill = fill
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openErr != nil {
		return c.openErr
	}
	c.running = true
	c.index = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

func (c *MockCamera) ReadFrame() (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}
	if c.limit > 0 && c.index >= c.limit {
		return nil, errors.New("no more frames")
	}

	mat := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(c.fill.B), float64(c.fill.G), float64(c.fill.R), 0),
		c.height, c.width, gocv.MatTypeCV8UC3,
	)
	ts := c.index * 1000 / int64(c.fps)
	c.index++

	return &Frame{Mat: &mat, TimestampMs: ts, Width: c.width, Height: c.height}, nil
}

func (c *MockCamera) FPS() int { return c.fps }

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
