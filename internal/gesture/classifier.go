// Package gesture derives interaction signals (mouth open, smile, pinch,
// head position, auto-center offset) from raw face and hand landmarks.
package gesture

import (
	"github.com/ayusman/facecloud/internal/detector"
	"github.com/ayusman/facecloud/internal/scene"
	"gonum.org/v1/gonum/spatial/r3"
)

// Event names a gesture that just started.
type Event string

const (
	// EventMouthOpen fires when the mouth opens past the threshold.
	EventMouthOpen Event = "mouth_open"
	// EventSmile fires when a smile starts.
	EventSmile Event = "smile"
	// EventPinch fires when thumb and index tips close.
	EventPinch Event = "pinch"
)

// Params holds the thresholds and gains the classifier reads each update.
type Params struct {
	MouthThreshold float64 // lip gap above which the mouth is open
	SmileThreshold float64 // mouth-corner width above which the face smiles
	PinchThreshold float64 // thumb-index gap below which the hand pinches

	AutoCenter     bool
	CenteringSpeed float64 // fraction of the remaining offset covered per update
	GainX          float64
	GainY          float64
}

// DefaultParams returns the classifier defaults. The negative gains move the
// cloud against the nose displacement so the subject stays centered.
func DefaultParams() Params {
	return Params{
		MouthThreshold: 0.05,
		SmileThreshold: 0.14,
		PinchThreshold: 0.05,
		AutoCenter:     true,
		CenteringSpeed: 0.05,
		GainX:          -4.5,
		GainY:          -3.5,
	}
}

// State is the interaction state after one classifier update.
type State struct {
	IsMouthOpen bool
	IsSmiling   bool
	IsPinching  bool

	MouthOpenness float64
	SmileWidth    float64
	PinchDistance float64

	// PinchPosition is only meaningful while IsPinching; otherwise it holds
	// the last pinch location.
	PinchPosition r3.Vec
	HeadPosition  r3.Vec
	HeadTracked   bool

	AutoCenterOffset r3.Vec

	// Events lists gestures that started in this update.
	Events []Event
}

// Classifier turns landmark lists into State, carrying only the pinch
// position and the smoothed auto-center offset between updates.
type Classifier struct {
	state   State
	OnEvent func(Event)
}

// NewClassifier creates a Classifier with a zero offset.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// State returns the result of the last update.
func (c *Classifier) State() State {
	return c.state
}

// Reset clears all carried state.
func (c *Classifier) Reset() {
	c.state = State{}
}

// Update classifies one detection. A nil face or empty hand list is a normal
// absence, not an error. Lists too short for a gesture's indices disable that
// gesture for this update.
func (c *Classifier) Update(face []detector.Point3D, hands [][]detector.Point3D, p Params, proj scene.Projection) State {
	prev := c.state
	next := State{
		PinchPosition:    prev.PinchPosition,
		HeadPosition:     prev.HeadPosition,
		AutoCenterOffset: prev.AutoCenterOffset,
	}

	upper, okU := detector.At(face, detector.UpperLip)
	lower, okL := detector.At(face, detector.LowerLip)
	if okU && okL {
		next.MouthOpenness = detector.Distance2D(upper, lower)
		next.IsMouthOpen = next.MouthOpenness > p.MouthThreshold
	}

	left, okLeft := detector.At(face, detector.MouthLeft)
	right, okRight := detector.At(face, detector.MouthRight)
	if okLeft && okRight {
		next.SmileWidth = detector.Distance2D(left, right)
		next.IsSmiling = next.SmileWidth > p.SmileThreshold && !next.IsMouthOpen
	}

	if len(hands) > 0 {
		hand := hands[0]
		thumb, okT := detector.At(hand, detector.ThumbTip)
		index, okI := detector.At(hand, detector.IndexTip)
		if okT && okI {
			next.PinchDistance = detector.Distance2D(thumb, index)
			next.IsPinching = next.PinchDistance < p.PinchThreshold
			if next.IsPinching {
				next.PinchPosition = proj.Project(thumb)
			}
		}
	}

	if nose, ok := detector.At(face, detector.NoseTip); ok {
		next.HeadPosition = proj.Project(nose)
		next.HeadTracked = true

		var target r3.Vec
		if p.AutoCenter {
			target = r3.Vec{X: (0.5 - nose.X) * p.GainX, Y: (0.5 - nose.Y) * p.GainY}
		}
		next.AutoCenterOffset = StepOffset(prev.AutoCenterOffset, target, p.CenteringSpeed)
	}

	if next.IsMouthOpen && !prev.IsMouthOpen {
		next.Events = append(next.Events, EventMouthOpen)
	}
	if next.IsSmiling && !prev.IsSmiling {
		next.Events = append(next.Events, EventSmile)
	}
	if next.IsPinching && !prev.IsPinching {
		next.Events = append(next.Events, EventPinch)
	}

	c.state = next
	if c.OnEvent != nil {
		for _, e := range next.Events {
			c.OnEvent(e)
		}
	}
	return next
}

// StepOffset moves offset toward target by speed, limited to [0, 1].
func StepOffset(offset, target r3.Vec, speed float64) r3.Vec {
	if !(speed > 0) {
		return offset
	}
	if speed > 1 {
		speed = 1
	}
	return r3.Add(offset, r3.Scale(speed, r3.Sub(target, offset)))
}

// ControlPoints returns the positions that can collect targets this update,
// in render space (auto-center offset applied): the head when tracked and the
// pinch point while pinching.
func (s State) ControlPoints() []r3.Vec {
	var points []r3.Vec
	if s.HeadTracked {
		points = append(points, r3.Add(s.HeadPosition, s.AutoCenterOffset))
	}
	if s.IsPinching {
		points = append(points, r3.Add(s.PinchPosition, s.AutoCenterOffset))
	}
	return points
}
