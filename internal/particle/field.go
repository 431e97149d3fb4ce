package particle

import (
	"math"

	"github.com/ayusman/facecloud/internal/detector"
	"github.com/ayusman/facecloud/internal/scene"
	"gonum.org/v1/gonum/spatial/r3"
)

// Tuning holds the field constants that are not exposed as live settings.
type Tuning struct {
	LayerSpacing   float64 // depth between adjacent layers
	LipNoise       float64 // base amplitude for a face's leading landmarks
	MouthNoise     float64 // amplitude while the mouth is open
	SmileNoise     float64 // amplitude while smiling
	OuterNoiseGain float64 // per-layer amplitude gain

	SmileLift float64
	SmileSway float64

	TrailCore       int // layers below this form the depth-stacked core
	OrbitRate       float64
	OrbitPhase      float64
	OrbitRadiusStep float64
	TrailJitter     float64
	TrailLag        float64 // per-layer slowdown of the smoothing rate

	CaptureRadius float64 // planar pinch capture radius, strict
	PinchPull     float64 // blend toward the pinch point for captured slots

	HiddenDepth float64 // z used for layers hidden in 2D mode
}

// DefaultTuning returns the field constants the cloud ships with.
func DefaultTuning() Tuning {
	return Tuning{
		LayerSpacing:   0.15,
		LipNoise:       0.005,
		MouthNoise:     0.08,
		SmileNoise:     0.04,
		OuterNoiseGain: 0.5,

		SmileLift: 0.2,
		SmileSway: 0.02,

		TrailCore:       2,
		OrbitRate:       3,
		OrbitPhase:      0.6,
		OrbitRadiusStep: 0.03,
		TrailJitter:     0.01,
		TrailLag:        0.35,

		CaptureRadius: 2.0,
		PinchPull:     0.15,

		HiddenDepth: 1000,
	}
}

// Gestures is the slice of interaction state the field reacts to.
type Gestures struct {
	MouthOpen     bool
	Smiling       bool
	Pinching      bool
	PinchPosition r3.Vec // scene space, without the auto-center offset
	Offset        r3.Vec // auto-center offset; only X and Y are used
}

// Input is everything a field evaluation reads besides the landmarks.
type Input struct {
	Time       float64 // seconds since session start
	Rate       float64 // global smoothing rate
	BaseNoise  float64
	Volumetric bool
	Trail      bool
	Projection scene.Projection
	Gestures   Gestures
}

// Field computes per-slot targets and smoothing rates.
type Field struct {
	Tuning Tuning
}

// NewField creates a Field with the given constants.
func NewField(t Tuning) *Field {
	return &Field{Tuning: t}
}

// Target returns the target position and smoothing rate of slot (i, l) for a
// system of the given kind and layer count.
func (f *Field) Target(kind Kind, layers int, lm detector.Point3D, i, l int, in Input) (r3.Vec, float64) {
	tu := f.Tuning
	t := in.Time
	rate := in.Rate

	target := in.Projection.Project(lm)

	trailing := in.Trail && kind.Trails()
	trail := trailing && l >= tu.TrailCore
	if !trail {
		// With trails on, only the core layers stack in depth, centered on
		// the landmark.
		span := layers
		if trailing {
			span = min(layers, tu.TrailCore)
		}
		target.Z += float64(l-span/2) * tu.LayerSpacing
	}

	amp := in.BaseNoise
	switch {
	case in.Gestures.MouthOpen:
		amp = tu.MouthNoise
	case in.Gestures.Smiling:
		amp = tu.SmileNoise
	case i < kind.QuietLandmarks():
		amp = tu.LipNoise
	}
	amp *= 1 + float64(l)*tu.OuterNoiseGain

	phase := float64(i + l)
	target.X += math.Sin(t*2+phase) * amp
	target.Y += math.Cos(t*3+phase) * amp

	if in.Gestures.Smiling && kind.Smiles() {
		target.Y += tu.SmileLift
		target.X += math.Sin(t*5+float64(i)) * tu.SmileSway
	}

	if trail {
		ring := float64(l - tu.TrailCore + 1)
		angle := t*tu.OrbitRate + float64(l)*tu.OrbitPhase
		radius := ring * tu.OrbitRadiusStep
		target.X += math.Cos(angle)*radius + math.Sin(float64(i)*12.9898+float64(l)*78.233)*tu.TrailJitter
		target.Y += math.Sin(angle)*radius + math.Cos(float64(i)*4.1414+float64(l)*3.7)*tu.TrailJitter
		// Lag is applied above MinRate so deeper rings keep slowing down
		// instead of flattening at the floor.
		rate = ClampRate(rate)
		rate = MinRate + (rate-MinRate)/(1+ring*tu.TrailLag)
	}

	if in.Gestures.Pinching && scene.PlanarDistance(target, in.Gestures.PinchPosition) < tu.CaptureRadius {
		target = r3.Add(target, r3.Scale(tu.PinchPull, r3.Sub(in.Gestures.PinchPosition, target)))
	}

	target.X += in.Gestures.Offset.X
	target.Y += in.Gestures.Offset.Y

	if !in.Volumetric && l > 0 {
		target.Z = tu.HiddenDepth
		rate = 1
	}

	return target, ClampRate(rate)
}

// Apply evaluates and integrates every slot of the received landmarks. Only
// the first min(len(landmarks), sys.Landmarks()) landmarks are written; the
// rest keep their previous positions. It returns the number of landmarks
// updated.
func (f *Field) Apply(sys *System, landmarks []detector.Point3D, in Input) int {
	n := min(len(landmarks), sys.Landmarks())
	layers := sys.Layers()

	for i := 0; i < n; i++ {
		for l := 0; l < layers; l++ {
			target, rate := f.Target(sys.Kind, layers, landmarks[i], i, l, in)
			pos := sys.At(i, l)
			Integrate(&pos, target, rate)
			sys.Set(i, l, pos)
		}
	}
	return n
}
