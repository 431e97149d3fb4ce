// Package session owns one run of the animation core. Tick is the only entry
// point that advances it: classify, evaluate, integrate, then run the game
// overlay, all against the caller's clock.
package session

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ayusman/facecloud/internal/config"
	"github.com/ayusman/facecloud/internal/detector"
	"github.com/ayusman/facecloud/internal/game"
	"github.com/ayusman/facecloud/internal/gesture"
	"github.com/ayusman/facecloud/internal/particle"
	"github.com/ayusman/facecloud/internal/scene"
)

// ColorRate is how far a cloud's color moves toward its gesture color per
// accepted detection.
const ColorRate = 0.2

// Config holds the parameters fixed for the lifetime of a session.
type Config struct {
	Tuning particle.Tuning
	Game   game.Config
	Gains  gesture.Params // only GainX and GainY are used; the rest come from settings
	Seed   uint64
	Width  int
	Height int
}

// DefaultConfig returns the default session configuration for a 1280x720 viewport.
func DefaultConfig() Config {
	return Config{
		Tuning: particle.DefaultTuning(),
		Game:   game.DefaultConfig(),
		Gains:  gesture.DefaultParams(),
		Seed:   uint64(time.Now().UnixNano()),
		Width:  1280,
		Height: 720,
	}
}

// Stats counts detections by outcome.
type Stats struct {
	Ticks    uint64 `json:"ticks"`
	Accepted uint64 `json:"accepted"`
	Stale    uint64 `json:"stale"`
}

// Session is the single owner of the particle systems, interaction state and
// overlay. Its methods are safe to call from multiple goroutines; ticks are
// serialized.
type Session struct {
	mu sync.Mutex

	store      *config.Store
	config     Config
	classifier *gesture.Classifier
	field      *particle.Field
	overlay    *game.Overlay

	face  *particle.System
	hands [detector.MaxHands]*particle.System

	faceSeen bool
	handSeen [detector.MaxHands]bool

	width, height int
	projection    scene.Projection

	lastTimestamp int64
	hasTimestamp  bool
	stats         Stats
	seq           uint64

	// OnEvent receives gesture edges; OnCollect receives collections. Both
	// run on the ticking goroutine and must not block.
	OnEvent   func(gesture.Event)
	OnCollect func(game.Collected)
}

// New creates a session. Buffer sizes are taken from the store's settings at
// this moment and stay fixed for the session.
func New(store *config.Store, cfg Config) *Session {
	settings := store.Snapshot()
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	s := &Session{
		store:      store,
		config:     cfg,
		classifier: gesture.NewClassifier(),
		field:      particle.NewField(cfg.Tuning),
		overlay:    game.NewOverlay(cfg.Game, rng),
		face:       particle.NewSystem(particle.KindFace, detector.FaceLandmarkCount, settings.FaceLayers, settings.FaceColor, rng),
	}
	for h := range s.hands {
		s.hands[h] = particle.NewSystem(particle.KindHand, detector.HandLandmarkCount, settings.HandLayers, settings.HandColor, rng)
	}
	s.resize(cfg.Width, cfg.Height)

	s.classifier.OnEvent = func(e gesture.Event) {
		if s.OnEvent != nil {
			s.OnEvent(e)
		}
	}
	s.overlay.OnCollect = func(c game.Collected) {
		if s.OnCollect != nil {
			s.OnCollect(c)
		}
	}
	return s
}

// Tick advances the session to now. det is the latest completed detection or
// nil; it is processed only if its timestamp is newer than the last one
// accepted, so a detection delivered twice animates once. The overlay runs on
// every tick.
func (s *Session) Tick(now time.Duration, det *detector.Detection) *Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Ticks++
	settings := s.store.Snapshot()

	fresh := false
	if det != nil {
		if s.hasTimestamp && det.TimestampMs <= s.lastTimestamp {
			s.stats.Stale++
		} else {
			s.lastTimestamp = det.TimestampMs
			s.hasTimestamp = true
			s.stats.Accepted++
			fresh = true
			s.animate(now, det, settings)
		}
	}

	s.face.Size = settings.ParticleSize
	for _, h := range s.hands {
		h.Size = settings.ParticleSize
	}

	state := s.classifier.State()
	s.overlay.Update(now, state.ControlPoints(), settings.GlowStrength)

	s.seq++
	return s.frame(now, fresh, settings)
}

func (s *Session) animate(now time.Duration, det *detector.Detection, settings config.Settings) {
	params := gesture.Params{
		MouthThreshold: settings.MouthThreshold,
		SmileThreshold: settings.SmileThreshold,
		PinchThreshold: settings.PinchThreshold,
		AutoCenter:     settings.AutoCenter,
		CenteringSpeed: settings.AutoCenterSpeed,
		GainX:          s.config.Gains.GainX,
		GainY:          s.config.Gains.GainY,
	}
	state := s.classifier.Update(det.Face, det.Hands, params, s.projection)

	in := particle.Input{
		Time:       now.Seconds(),
		Rate:       settings.SmoothingRate,
		BaseNoise:  settings.BaseNoise,
		Volumetric: settings.Volumetric,
		Trail:      settings.HandTrail,
		Projection: s.projection,
		Gestures: particle.Gestures{
			MouthOpen:     state.IsMouthOpen,
			Smiling:       state.IsSmiling,
			Pinching:      state.IsPinching,
			PinchPosition: state.PinchPosition,
			Offset:        state.AutoCenterOffset,
		},
	}

	s.faceSeen = det.HasFace()
	if s.faceSeen {
		target := settings.FaceColor
		switch {
		case state.IsMouthOpen:
			target = settings.ShockColor
		case state.IsSmiling:
			target = settings.SmileColor
		}
		s.face.Color = s.face.Color.Lerp(target, ColorRate)
		s.field.Apply(s.face, det.Face, in)
	}

	for h, sys := range s.hands {
		s.handSeen[h] = h < len(det.Hands) && len(det.Hands[h]) > 0
		if !s.handSeen[h] {
			continue
		}
		sys.Color = sys.Color.Lerp(settings.HandColor, ColorRate)
		s.field.Apply(sys, det.Hands[h], in)
	}
}

// Resize updates the viewport used by the projection. Non-positive sizes are
// ignored and reported as false.
func (s *Session) Resize(width, height int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if width <= 0 || height <= 0 {
		return false
	}
	s.resize(width, height)
	return true
}

func (s *Session) resize(width, height int) {
	s.width, s.height = width, height
	s.projection = scene.NewProjection(scene.Aspect(width, height))
}

// Viewport returns the current viewport size.
func (s *Session) Viewport() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Projection returns the projection for the current viewport.
func (s *Session) Projection() scene.Projection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projection
}

// State returns the interaction state from the last accepted detection.
func (s *Session) State() gesture.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.classifier.State()
}

// Score returns the game score.
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay.Score()
}

// Stats returns detection counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// ResetGame clears collectibles and score.
func (s *Session) ResetGame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlay.Reset()
}

// Face returns the face particle system. Callers must not use it concurrently
// with Tick.
func (s *Session) Face() *particle.System {
	return s.face
}

// Hand returns the particle system for hand h, or nil if out of range.
// Callers must not use it concurrently with Tick.
func (s *Session) Hand(h int) *particle.System {
	if h < 0 || h >= len(s.hands) {
		return nil
	}
	return s.hands[h]
}
