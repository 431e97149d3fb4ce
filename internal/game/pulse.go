package game

import (
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Pulse is a scheduled glow spike: Peak until ExpiresAt, then an eased
// release back to Baseline. Scheduling a new pulse replaces the old one, so
// the last hit always decides when the glow settles.
type Pulse struct {
	Peak      float64
	Baseline  float64
	ExpiresAt time.Duration
	Release   time.Duration
	Active    bool
}

// Value returns the glow at now and whether the pulse still controls it.
// Once it reports false the caller should use its live baseline.
func (p Pulse) Value(now time.Duration) (float64, bool) {
	if !p.Active {
		return 0, false
	}
	if now < p.ExpiresAt {
		return p.Peak, true
	}

	elapsed := now - p.ExpiresAt
	if p.Release <= 0 || elapsed >= p.Release {
		return p.Baseline, false
	}

	tween := gween.New(float32(p.Peak), float32(p.Baseline), float32(p.Release.Seconds()), ease.OutQuad)
	v, _ := tween.Set(float32(elapsed.Seconds()))
	return float64(v), true
}
