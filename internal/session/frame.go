package session

import (
	"encoding/json"
	"time"

	"github.com/ayusman/facecloud/internal/config"
	"github.com/ayusman/facecloud/internal/particle"
	"gonum.org/v1/gonum/spatial/r3"
)

// Frame is what the presentation layer draws for one tick. Position slices
// are copies; a Frame stays valid after later ticks.
type Frame struct {
	Seq          uint64   `json:"seq"`
	Time         float64  `json:"time"`
	Fresh        bool     `json:"fresh"`
	Viewport     Viewport `json:"viewport"`
	Clouds       []Cloud  `json:"clouds"`
	Glow         Glow     `json:"glow"`
	Score        int      `json:"score"`
	Signals      Signals  `json:"signals"`
	Collectibles []Target `json:"collectibles"`
}

// Viewport is the presentation surface size.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Cloud is one particle system's render state.
type Cloud struct {
	Kind      string       `json:"kind"`
	Index     int          `json:"index"`
	Tracked   bool         `json:"tracked"`
	Color     config.Color `json:"color"`
	Size      float64      `json:"size"`
	Layers    int          `json:"layers"`
	Positions []float32    `json:"positions"`
}

// Glow holds the bloom post-effect parameters.
type Glow struct {
	Strength  float64 `json:"strength"`
	Radius    float64 `json:"radius"`
	Threshold float64 `json:"threshold"`
}

// Signals mirrors the interaction state for overlays and debugging.
type Signals struct {
	MouthOpen   bool       `json:"mouth_open"`
	Smiling     bool       `json:"smiling"`
	Pinching    bool       `json:"pinching"`
	HeadTracked bool       `json:"head_tracked"`
	Head        [3]float64 `json:"head"`
	Pinch       [3]float64 `json:"pinch"`
	Offset      [3]float64 `json:"offset"`
}

// Target is a collectible as drawn.
type Target struct {
	ID       string     `json:"id"`
	Position [3]float64 `json:"position"`
	Rotation [3]float64 `json:"rotation"`
}

func vec3(v r3.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func cloud(sys *particle.System, index int, tracked bool) Cloud {
	return Cloud{
		Kind:      sys.Kind.String(),
		Index:     index,
		Tracked:   tracked,
		Color:     sys.Color,
		Size:      sys.Size,
		Layers:    sys.Layers(),
		Positions: append([]float32(nil), sys.Positions()...),
	}
}

func (s *Session) frame(now time.Duration, fresh bool, settings config.Settings) *Frame {
	state := s.classifier.State()

	f := &Frame{
		Seq:      s.seq,
		Time:     now.Seconds(),
		Fresh:    fresh,
		Viewport: Viewport{Width: s.width, Height: s.height},
		Glow: Glow{
			Strength:  s.overlay.Glow(now, settings.GlowStrength),
			Radius:    settings.GlowRadius,
			Threshold: settings.GlowThreshold,
		},
		Score: s.overlay.Score(),
		Signals: Signals{
			MouthOpen:   state.IsMouthOpen,
			Smiling:     state.IsSmiling,
			Pinching:    state.IsPinching,
			HeadTracked: state.HeadTracked,
			Head:        vec3(state.HeadPosition),
			Pinch:       vec3(state.PinchPosition),
			Offset:      vec3(state.AutoCenterOffset),
		},
	}

	f.Clouds = append(f.Clouds, cloud(s.face, 0, s.faceSeen))
	for h, sys := range s.hands {
		f.Clouds = append(f.Clouds, cloud(sys, h, s.handSeen[h]))
	}

	for _, c := range s.overlay.Targets() {
		f.Collectibles = append(f.Collectibles, Target{
			ID:       c.ID,
			Position: vec3(c.Position),
			Rotation: vec3(c.Rotation),
		})
	}
	return f
}

// JSON encodes the frame for the wire.
func (f *Frame) JSON() ([]byte, error) {
	return json.Marshal(f)
}
