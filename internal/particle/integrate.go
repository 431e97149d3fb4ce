package particle

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// MinRate is the smallest smoothing rate the integrator accepts. Zero would
// freeze the cloud.
const MinRate = 0.01

// ClampRate limits rate to [MinRate, 1]. NaN maps to MinRate.
func ClampRate(rate float64) float64 {
	if math.IsNaN(rate) || rate < MinRate {
		return MinRate
	}
	if rate > 1 {
		return 1
	}
	return rate
}

// Lerp is one first-order filter step from pos toward target. rate must
// already be clamped.
func Lerp(pos, target, rate float64) float64 {
	return pos + (target-pos)*rate
}

// Integrate moves pos toward target by the clamped rate on every axis. It never
// overshoots, and pos == target is a fixed point.
func Integrate(pos *[3]float32, target r3.Vec, rate float64) {
	rate = ClampRate(rate)
	pos[0] = float32(Lerp(float64(pos[0]), target.X, rate))
	pos[1] = float32(Lerp(float64(pos[1]), target.Y, rate))
	pos[2] = float32(Lerp(float64(pos[2]), target.Z, rate))
}
