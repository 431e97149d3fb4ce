// Package scene maps normalized camera landmarks into the 3D scene space
// the particle clouds and the game overlay live in.
package scene

import (
	"github.com/ayusman/facecloud/internal/detector"
	"gonum.org/v1/gonum/spatial/r3"
)

// Projection constants. The spreads are the scene-space extent of the full
// camera frame; X is further scaled by the viewport aspect ratio.
const (
	BaseSpreadX = 9.0
	BaseSpreadY = 7.0
	DepthScale  = 5.0
)

// DefaultAspect is used until the presentation layer reports its size.
const DefaultAspect = 16.0 / 9.0

// Projection converts landmarks to scene space for one viewport.
type Projection struct {
	SpreadX    float64
	SpreadY    float64
	DepthScale float64
}

// NewProjection returns the projection for a viewport of the given aspect
// ratio (width / height). Non-positive aspects fall back to DefaultAspect.
func NewProjection(aspect float64) Projection {
	if !(aspect > 0) {
		aspect = DefaultAspect
	}
	return Projection{
		SpreadX:    BaseSpreadX * aspect,
		SpreadY:    BaseSpreadY,
		DepthScale: DepthScale,
	}
}

// Project maps a landmark into scene space. X is negated: combined with the
// mirrored camera view, the user's right hand moves the right side of the cloud.
func (p Projection) Project(lm detector.Point3D) r3.Vec {
	return r3.Vec{
		X: (lm.X - 0.5) * -p.SpreadX,
		Y: -(lm.Y - 0.5) * p.SpreadY,
		Z: -lm.Z * p.DepthScale,
	}
}

// Aspect returns width/height, or DefaultAspect when either is not positive.
func Aspect(width, height int) float64 {
	if width <= 0 || height <= 0 {
		return DefaultAspect
	}
	return float64(width) / float64(height)
}

// PlanarDistance is the distance between a and b ignoring Z.
func PlanarDistance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Vec{X: a.X - b.X, Y: a.Y - b.Y})
}
