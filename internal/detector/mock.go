package detector

import (
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	face  []Point3D
	hands [][]Point3D
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFace sets the face that will be returned by Detect. Nil means no face.
func (m *MockDetector) SetFace(face []Point3D) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.face = face
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands ...[]Point3D) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured landmarks or error.
func (m *MockDetector) Detect(frame *gocv.Mat, timestampMs int64) (*Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &Detection{
		Face:        m.face,
		Hands:       m.hands,
		TimestampMs: timestampMs,
	}, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// syntheticFace lays out a full face topology as a sunflower disc around
// (cx, cy) so every index holds a plausible point.
func syntheticFace(cx, cy float64) []Point3D {
	const radius = 0.18
	golden := math.Pi * (3 - math.Sqrt(5))

	face := make([]Point3D, FaceLandmarkCount)
	for i := range face {
		r := radius * math.Sqrt(float64(i)/FaceLandmarkCount)
		a := float64(i) * golden
		face[i] = Point3D{
			X: cx + r*math.Cos(a)*0.8,
			Y: cy + r*math.Sin(a),
			Z: -0.05 * (1 - r/radius),
		}
	}
	return face
}

// NeutralFace returns a centered face with a closed, relaxed mouth.
func NeutralFace() []Point3D {
	face := syntheticFace(0.5, 0.5)
	face[NoseTip] = Point3D{X: 0.50, Y: 0.48, Z: -0.08}
	face[UpperLip] = Point3D{X: 0.50, Y: 0.60, Z: -0.03}
	face[LowerLip] = Point3D{X: 0.50, Y: 0.62, Z: -0.03}
	face[MouthLeft] = Point3D{X: 0.45, Y: 0.61, Z: -0.02}
	face[MouthRight] = Point3D{X: 0.55, Y: 0.61, Z: -0.02}
	return face
}

// OpenMouthFace returns a face whose lips are 0.07 apart.
func OpenMouthFace() []Point3D {
	face := syntheticFace(0.5, 0.4)
	face[NoseTip] = Point3D{X: 0.50, Y: 0.33, Z: -0.08}
	face[UpperLip] = Point3D{X: 0.50, Y: 0.40, Z: 0}
	face[LowerLip] = Point3D{X: 0.50, Y: 0.47, Z: 0}
	// Wide as well, so smile detection has to yield to mouth-open.
	face[MouthLeft] = Point3D{X: 0.40, Y: 0.435, Z: -0.02}
	face[MouthRight] = Point3D{X: 0.60, Y: 0.435, Z: -0.02}
	return face
}

// SmilingFace returns a face with a wide, closed mouth.
func SmilingFace() []Point3D {
	face := NeutralFace()
	face[MouthLeft] = Point3D{X: 0.41, Y: 0.60, Z: -0.02}
	face[MouthRight] = Point3D{X: 0.59, Y: 0.60, Z: -0.02}
	return face
}

// OpenPalmHand returns a right hand with all fingers extended.
func OpenPalmHand() []Point3D {
	hand := make([]Point3D, HandLandmarkCount)

	hand[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	hand[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	hand[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	hand[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	hand[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	hand[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	hand[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	hand[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	hand[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	hand[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	hand[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	hand[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	hand[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	hand[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	hand[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	hand[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	hand[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	hand[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	hand[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	hand[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	hand[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return hand
}

// PinchingHand returns a hand with thumb and index tips 0.02 apart around
// the frame center.
func PinchingHand() []Point3D {
	hand := OpenPalmHand()
	hand[ThumbIP] = Point3D{X: 0.49, Y: 0.55, Z: 0.0}
	hand[ThumbTip] = Point3D{X: 0.50, Y: 0.50, Z: 0.0}
	hand[IndexDIP] = Point3D{X: 0.53, Y: 0.46, Z: 0.0}
	hand[IndexTip] = Point3D{X: 0.52, Y: 0.50, Z: 0.0}
	return hand
}
