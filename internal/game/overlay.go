// Package game runs the catch-the-star overlay: collectibles spawn in front
// of the camera, spin, and are collected by the head or a pinch.
package game

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// Config holds the overlay parameters.
type Config struct {
	MaxTargets int
	SpawnRate  float64 // expected spawns per second while under the cap
	SpawnMin   r3.Vec  // spawn box corners
	SpawnMax   r3.Vec
	Spin       r3.Vec // rotation added per tick, radians

	HitRadius float64 // strict: a target exactly this far away is not collected
	Reward    int

	PulsePeak    float64
	PulseHold    time.Duration
	PulseRelease time.Duration
}

// DefaultConfig returns the default overlay configuration.
func DefaultConfig() Config {
	return Config{
		MaxTargets: 6,
		SpawnRate:  2,
		SpawnMin:   r3.Vec{X: -3, Y: -2, Z: -1},
		SpawnMax:   r3.Vec{X: 3, Y: 2, Z: 1},
		Spin:       r3.Vec{X: 0.01, Y: 0.02},

		HitRadius: 0.6,
		Reward:    10,

		PulsePeak:    3,
		PulseHold:    200 * time.Millisecond,
		PulseRelease: 150 * time.Millisecond,
	}
}

// Collectible is one target in the scene.
type Collectible struct {
	ID       string
	Position r3.Vec
	Rotation r3.Vec
}

// Collected describes a collectible removed by a control point.
type Collected struct {
	ID       string
	Position r3.Vec
	At       time.Duration
	Score    int // score after this collection
}

// Overlay owns the active collectibles, the score and the glow pulse.
type Overlay struct {
	config  Config
	rng     *rand.Rand
	targets []*Collectible
	score   int
	pulse   Pulse

	lastTick time.Duration
	ticked   bool

	OnCollect func(Collected)
}

// NewOverlay creates an Overlay. A nil rng uses a time-seeded source.
func NewOverlay(config Config, rng *rand.Rand) *Overlay {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return &Overlay{
		config: config,
		rng:    rng,
	}
}

// Update runs one tick: maybe spawn, spin every target, then collect the
// targets within reach of the control points. baseline is the glow strength
// a pulse scheduled this tick releases back to.
func (o *Overlay) Update(now time.Duration, controls []r3.Vec, baseline float64) []Collected {
	var dt time.Duration
	if o.ticked && now > o.lastTick {
		dt = now - o.lastTick
	}
	o.lastTick = now
	o.ticked = true

	if len(o.targets) < o.config.MaxTargets {
		p := math.Min(1, o.config.SpawnRate*dt.Seconds())
		if o.rng.Float64() < p {
			o.spawn()
		}
	}

	for _, c := range o.targets {
		c.Rotation = r3.Add(c.Rotation, o.config.Spin)
	}

	return o.Collide(now, controls, baseline)
}

// Add places a collectible at pos. It returns nil when the overlay is full.
func (o *Overlay) Add(pos r3.Vec) *Collectible {
	if len(o.targets) >= o.config.MaxTargets {
		return nil
	}
	c := &Collectible{ID: uuid.New().String(), Position: pos}
	o.targets = append(o.targets, c)
	return c
}

func (o *Overlay) spawn() {
	lo, hi := o.config.SpawnMin, o.config.SpawnMax
	o.Add(r3.Vec{
		X: lo.X + o.rng.Float64()*(hi.X-lo.X),
		Y: lo.Y + o.rng.Float64()*(hi.Y-lo.Y),
		Z: lo.Z + o.rng.Float64()*(hi.Z-lo.Z),
	})
}

// Collide removes every collectible strictly closer than HitRadius to any
// control point. Each removal adds Reward to the score; any removal
// schedules a fresh glow pulse.
func (o *Overlay) Collide(now time.Duration, controls []r3.Vec, baseline float64) []Collected {
	if len(controls) == 0 || len(o.targets) == 0 {
		return nil
	}

	var hits []Collected
	kept := o.targets[:0]
	for _, c := range o.targets {
		if !o.reached(c.Position, controls) {
			kept = append(kept, c)
			continue
		}
		o.score += o.config.Reward
		hits = append(hits, Collected{ID: c.ID, Position: c.Position, At: now, Score: o.score})
	}
	clear(o.targets[len(kept):])
	o.targets = kept

	if len(hits) > 0 {
		o.pulse = Pulse{
			Peak:      o.config.PulsePeak,
			Baseline:  baseline,
			ExpiresAt: now + o.config.PulseHold,
			Release:   o.config.PulseRelease,
			Active:    true,
		}
	}
	if o.OnCollect != nil {
		for _, h := range hits {
			o.OnCollect(h)
		}
	}
	return hits
}

func (o *Overlay) reached(pos r3.Vec, controls []r3.Vec) bool {
	for _, p := range controls {
		if r3.Norm(r3.Sub(pos, p)) < o.config.HitRadius {
			return true
		}
	}
	return false
}

// Glow returns the glow strength at now: the pulse while one is active,
// otherwise baseline.
func (o *Overlay) Glow(now time.Duration, baseline float64) float64 {
	if v, ok := o.pulse.Value(now); ok {
		return v
	}
	return baseline
}

// Pulse returns the currently scheduled pulse.
func (o *Overlay) Pulse() Pulse {
	return o.pulse
}

// Score returns the points collected so far.
func (o *Overlay) Score() int {
	return o.score
}

// Targets returns a copy of the active collectibles.
func (o *Overlay) Targets() []Collectible {
	out := make([]Collectible, len(o.targets))
	for i, c := range o.targets {
		out[i] = *c
	}
	return out
}

// Reset removes every collectible and zeroes the score.
func (o *Overlay) Reset() {
	o.targets = nil
	o.score = 0
	o.pulse = Pulse{}
}
