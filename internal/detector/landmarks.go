// Package detector provides the landmark source: face and hand detection
// interfaces, topology constants and the MediaPipe-backed implementation.
package detector

import "math"

// Face topology (MediaPipe face mesh with refined irises).
const (
	NoseTip           = 1
	UpperLip          = 13
	LowerLip          = 14
	MouthLeft         = 61
	MouthRight        = 291
	FaceLandmarkCount = 478
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist             = 0
	ThumbCMC          = 1
	ThumbMCP          = 2
	ThumbIP           = 3
	ThumbTip          = 4
	IndexMCP          = 5
	IndexPIP          = 6
	IndexDIP          = 7
	IndexTip          = 8
	MiddleMCP         = 9
	MiddlePIP         = 10
	MiddleDIP         = 11
	MiddleTip         = 12
	RingMCP           = 13
	RingPIP           = 14
	RingDIP           = 15
	RingTip           = 16
	PinkyMCP          = 17
	PinkyPIP          = 18
	PinkyDIP          = 19
	PinkyTip          = 20
	HandLandmarkCount = 21
)

// MaxHands is the number of hands the rest of the system has buffers for.
const MaxHands = 2

// Point3D is a normalized landmark. X and Y are fractions of the camera
// frame in [0,1]; Z is relative depth, more negative is closer to the camera.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Detection is the result of one detector call. Face is empty when no face
// was found; Hands holds zero or more hands, in detector order.
type Detection struct {
	Face        []Point3D   `json:"face"`
	Hands       [][]Point3D `json:"hands"`
	TimestampMs int64       `json:"timestamp"`
}

// HasFace reports whether the detection contains a face.
func (d *Detection) HasFace() bool {
	return d != nil && len(d.Face) > 0
}

// PrimaryHand returns the first detected hand, or nil.
func (d *Detection) PrimaryHand() []Point3D {
	if d == nil || len(d.Hands) == 0 {
		return nil
	}
	return d.Hands[0]
}

// Distance2D returns the Euclidean distance between a and b in the image
// plane, ignoring depth.
func Distance2D(a, b Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// At returns points[i] and true, or the zero point and false when the list
// is too short. Detector output can be shorter than its topology.
func At(points []Point3D, i int) (Point3D, bool) {
	if i < 0 || i >= len(points) {
		return Point3D{}, false
	}
	return points[i], true
}
