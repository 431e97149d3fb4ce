package detector

import "gocv.io/x/gocv"

// Detector defines the interface for face and hand landmark detection.
type Detector interface {
	// Detect analyzes a video frame captured at timestampMs and returns the
	// face and hand landmarks found in it. A frame with nothing in it yields
	// an empty Detection, not an error.
	Detect(frame *gocv.Mat, timestampMs int64) (*Detection, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for landmark detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// IdleTimeoutSec stops the detection service after this many seconds
	// without a request. It is restarted on the next Detect call.
	IdleTimeoutSec int
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        MaxHands,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		IdleTimeoutSec:  30,
	}
}
