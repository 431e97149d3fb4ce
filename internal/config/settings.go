// Package config holds the live-tunable settings table for facecloud:
// defaults, slider ranges, clamping and a concurrency-safe store.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"sort"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ErrUnknownKey is returned when a settings patch names a key that does not exist.
var ErrUnknownKey = errors.New("unknown settings key")

// Color is an RGB color that reads and writes as a "#rrggbb" hex string.
type Color struct {
	colorful.Color
}

// MustHex parses a hex color and panics if it is malformed. For constants.
func MustHex(s string) Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(fmt.Sprintf("config: bad color %q: %v", s, err))
	}
	return Color{c}
}

// MarshalJSON implements json.Marshaler.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex())
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("color must be a hex string: %w", err)
	}
	parsed, err := colorful.Hex(s)
	if err != nil {
		return fmt.Errorf("color %q: %w", s, err)
	}
	c.Color = parsed
	return nil
}

// Lerp moves c toward target by t (0..1).
func (c Color) Lerp(target Color, t float64) Color {
	return Color{c.BlendRgb(target.Color, t).Clamped()}
}

// Brand colors.
var (
	ThemeColor = MustHex("#d4f842")
	GoldColor  = MustHex("#ffd700")
	ShockColor = MustHex("#ffffff")
)

// Settings is the flat table of user-tunable parameters. Every field is read
// each tick; none of them is persisted.
type Settings struct {
	// Rendering
	ParticleSize  float64 `json:"particle_size"`
	GlowStrength  float64 `json:"glow_strength"`
	GlowRadius    float64 `json:"glow_radius"`
	GlowThreshold float64 `json:"glow_threshold"`
	FaceColor     Color   `json:"face_color"`
	HandColor     Color   `json:"hand_color"`
	SmileColor    Color   `json:"smile_color"`
	ShockColor    Color   `json:"shock_color"`

	// Motion
	SmoothingRate float64 `json:"smoothing_rate"`
	BaseNoise     float64 `json:"base_noise"`

	// Gesture thresholds (normalized image units)
	MouthThreshold float64 `json:"mouth_threshold"`
	SmileThreshold float64 `json:"smile_threshold"`
	PinchThreshold float64 `json:"pinch_threshold"`

	// Volume and framing
	Volumetric      bool    `json:"volumetric"`
	HandTrail       bool    `json:"hand_trail"`
	AutoCenter      bool    `json:"auto_center"`
	AutoCenterSpeed float64 `json:"auto_center_speed"`

	// Buffer layout, applied when the session is created.
	FaceLayers int `json:"face_layers"`
	HandLayers int `json:"hand_layers"`
}

// Defaults returns the settings a session starts with and Reset restores.
func Defaults() Settings {
	return Settings{
		ParticleSize:  0.045,
		GlowStrength:  0.7,
		GlowRadius:    0.4,
		GlowThreshold: 0.1,
		FaceColor:     ThemeColor,
		HandColor:     ThemeColor,
		SmileColor:    GoldColor,
		ShockColor:    ShockColor,

		SmoothingRate: 0.3,
		BaseNoise:     0.01,

		MouthThreshold: 0.05,
		SmileThreshold: 0.14,
		PinchThreshold: 0.05,

		Volumetric:      true,
		HandTrail:       true,
		AutoCenter:      true,
		AutoCenterSpeed: 0.05,

		FaceLayers: 3,
		HandLayers: 12,
	}
}

// Range is the inclusive slider range of a numeric setting.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Clamp limits v to the range. NaN maps to Min.
func (r Range) Clamp(v float64) float64 {
	if math.IsNaN(v) || v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

var ranges = map[string]Range{
	"particle_size":     {0.01, 0.15},
	"glow_strength":     {0, 2.5},
	"glow_radius":       {0, 1},
	"glow_threshold":    {0, 1},
	"smoothing_rate":    {0.05, 0.5},
	"base_noise":        {0, 0.1},
	"mouth_threshold":   {0.01, 0.15},
	"smile_threshold":   {0.05, 0.6},
	"pinch_threshold":   {0.01, 0.15},
	"auto_center_speed": {0.01, 1},
	"face_layers":       {1, 3},
	"hand_layers":       {1, 20},
}

// Ranges returns a copy of the numeric slider ranges keyed by JSON name.
func Ranges() map[string]Range {
	out := make(map[string]Range, len(ranges))
	for k, v := range ranges {
		out[k] = v
	}
	return out
}

var (
	settingsKeys = jsonKeys(reflect.TypeOf(Settings{}))
	knownKeys    = keySet(settingsKeys)
)

// jsonKeys lists the JSON names of t's exported fields, sorted.
func jsonKeys(t reflect.Type) []string {
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = f.Name
		}
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys
}

func keySet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// Keys returns every settings key, sorted.
func Keys() []string {
	return slices.Clone(settingsKeys)
}

// Clamp returns a copy of s with every numeric field forced into its range.
func (s Settings) Clamp() Settings {
	s.ParticleSize = ranges["particle_size"].Clamp(s.ParticleSize)
	s.GlowStrength = ranges["glow_strength"].Clamp(s.GlowStrength)
	s.GlowRadius = ranges["glow_radius"].Clamp(s.GlowRadius)
	s.GlowThreshold = ranges["glow_threshold"].Clamp(s.GlowThreshold)
	s.SmoothingRate = ranges["smoothing_rate"].Clamp(s.SmoothingRate)
	s.BaseNoise = ranges["base_noise"].Clamp(s.BaseNoise)
	s.MouthThreshold = ranges["mouth_threshold"].Clamp(s.MouthThreshold)
	s.SmileThreshold = ranges["smile_threshold"].Clamp(s.SmileThreshold)
	s.PinchThreshold = ranges["pinch_threshold"].Clamp(s.PinchThreshold)
	s.AutoCenterSpeed = ranges["auto_center_speed"].Clamp(s.AutoCenterSpeed)
	s.FaceLayers = int(ranges["face_layers"].Clamp(float64(s.FaceLayers)))
	s.HandLayers = int(ranges["hand_layers"].Clamp(float64(s.HandLayers)))
	return s
}

// Apply decodes a partial JSON object onto a copy of s and clamps the result.
// Keys absent from patch keep their current values. Unknown keys are rejected
// so typos do not silently do nothing.
func (s Settings) Apply(patch []byte) (Settings, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return s, fmt.Errorf("decode settings: %w", err)
	}

	for k := range fields {
		if !knownKeys[k] {
			return s, fmt.Errorf("%w: %q", ErrUnknownKey, k)
		}
	}

	next := s
	if err := json.Unmarshal(patch, &next); err != nil {
		return s, fmt.Errorf("decode settings: %w", err)
	}
	return next.Clamp(), nil
}
