package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	// GaussianBlurSize is the blur kernel applied before differencing.
	GaussianBlurSize = 21
	// DiffThreshold is the per-pixel intensity change that counts as motion.
	DiffThreshold = 25
)

// MotionGate decides how often frames are worth sending to the detector.
// While the scene moves it stays open; after HoldFrames still frames it
// closes and the pipeline falls back to its idle detection rate.
type MotionGate struct {
	mu sync.Mutex

	threshold  float64 // percent of pixels that must change
	holdFrames int

	prevGray    gocv.Mat
	initialized bool
	still       int
	lastChange  float64
}

// NewMotionGate creates a gate. threshold is the percentage of changed pixels
// that counts as motion; holdFrames is how many still frames keep it open.
func NewMotionGate(threshold float64, holdFrames int) *MotionGate {
	return &MotionGate{
		threshold:  threshold,
		holdFrames: holdFrames,
		prevGray:   gocv.NewMat(),
	}
}

// Observe feeds a frame and reports whether the gate is open. The first
// frame always opens it so a fresh session detects immediately.
func (g *MotionGate) Observe(frame *gocv.Mat) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if frame == nil || frame.Empty() {
		return g.open()
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: GaussianBlurSize, Y: GaussianBlurSize}, 0, 0, gocv.BorderDefault)

	if !g.initialized || blurred.Rows() != g.prevGray.Rows() || blurred.Cols() != g.prevGray.Cols() {
		blurred.CopyTo(&g.prevGray)
		g.initialized = true
		g.still = 0
		g.lastChange = 0
		return true
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, g.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, DiffThreshold, 255, gocv.ThresholdBinary)

	total := thresh.Rows() * thresh.Cols()
	g.lastChange = float64(gocv.CountNonZero(thresh)) / float64(total) * 100
	blurred.CopyTo(&g.prevGray)

	if g.lastChange > g.threshold {
		g.still = 0
	} else {
		g.still++
	}
	return g.open()
}

func (g *MotionGate) open() bool {
	return g.still <= g.holdFrames
}

// LastChange returns the changed-pixel percentage of the last observed frame.
func (g *MotionGate) LastChange() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastChange
}

// Reset forgets the baseline frame; the next frame reopens the gate.
func (g *MotionGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initialized = false
	g.still = 0
	g.lastChange = 0
}

// Close releases the baseline frame.
func (g *MotionGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prevGray.Close()
	g.prevGray = gocv.NewMat()
	g.initialized = false
}
