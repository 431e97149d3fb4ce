// Package particle holds the per-entity particle buffers and the per-tick
// target field that animates them toward the tracked landmarks.
package particle

import (
	"math/rand/v2"

	"github.com/ayusman/facecloud/internal/config"
)

// Kind is the tracked entity a System follows.
type Kind int

const (
	KindFace Kind = iota
	KindHand
)

// String returns the kind name used in frames and logs.
func (k Kind) String() string {
	switch k {
	case KindFace:
		return "face"
	case KindHand:
		return "hand"
	default:
		return "unknown"
	}
}

// Smiles reports whether the smile deformation applies to this kind.
func (k Kind) Smiles() bool { return k == KindFace }

// Trails reports whether this kind can use the orbital trail layers.
func (k Kind) Trails() bool { return k == KindHand }

// QuietLandmarks is how many leading landmarks get the reduced lip noise.
// Only faces have them.
func (k Kind) QuietLandmarks() int {
	if k == KindFace {
		return 20
	}
	return 0
}

// ScatterExtent is the half-width of the cube new buffers are scattered in.
const ScatterExtent = 25.0

// System is one entity's particle cloud. The position buffer is allocated
// once and mutated in place; its length never changes.
type System struct {
	Kind  Kind
	Color config.Color
	Size  float64

	landmarks int
	layers    int
	positions []float32
}

// NewSystem allocates landmarkCount*layerCount particles scattered uniformly
// in a wide cube so the first frames read as the cloud coalescing. Counts
// below one are raised to one. A nil rng uses the global source.
func NewSystem(kind Kind, landmarkCount, layerCount int, color config.Color, rng *rand.Rand) *System {
	landmarkCount = max(landmarkCount, 1)
	layerCount = max(layerCount, 1)

	float := rand.Float64
	if rng != nil {
		float = rng.Float64
	}

	positions := make([]float32, landmarkCount*layerCount*3)
	for i := range positions {
		positions[i] = float32((float()*2 - 1) * ScatterExtent)
	}

	return &System{
		Kind:      kind,
		Color:     color,
		Size:      config.Defaults().ParticleSize,
		landmarks: landmarkCount,
		layers:    layerCount,
		positions: positions,
	}
}

// Landmarks returns the landmark topology size the buffer was allocated for.
func (s *System) Landmarks() int { return s.landmarks }

// Layers returns the number of depth layers per landmark.
func (s *System) Layers() int { return s.layers }

// Len returns the number of particles.
func (s *System) Len() int { return s.landmarks * s.layers }

// Offset returns the index of the X scalar of slot (landmark, layer).
func (s *System) Offset(landmark, layer int) int {
	return (landmark*s.layers + layer) * 3
}

// Positions exposes the flat xyz buffer. Callers must not change its length.
func (s *System) Positions() []float32 {
	return s.positions
}

// At returns the position of slot (landmark, layer).
func (s *System) At(landmark, layer int) [3]float32 {
	o := s.Offset(landmark, layer)
	return [3]float32{s.positions[o], s.positions[o+1], s.positions[o+2]}
}

// Set overwrites the position of slot (landmark, layer).
func (s *System) Set(landmark, layer int, p [3]float32) {
	o := s.Offset(landmark, layer)
	s.positions[o], s.positions[o+1], s.positions[o+2] = p[0], p[1], p[2]
}
