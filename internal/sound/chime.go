// Package sound plays the collect chime through the system speaker.
package sound

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

// Config holds chime parameters.
type Config struct {
	Frequency float64 // base pitch in Hz
	Duration  time.Duration
	Volume    float64 // linear gain, 0 mutes
}

// DefaultConfig returns a short, quiet A5 chime.
func DefaultConfig() Config {
	return Config{
		Frequency: 880,
		Duration:  120 * time.Millisecond,
		Volume:    0.4,
	}
}

// Chime mixes collect sounds into the speaker. Until Init succeeds every
// Play is a no-op, so a machine without audio runs silently.
type Chime struct {
	mu          sync.Mutex
	config      Config
	mixer       *beep.Mixer
	initialized bool
}

// NewChime creates a chime; call Init to open the speaker.
func NewChime(config Config) *Chime {
	return &Chime{
		config: config,
		mixer:  &beep.Mixer{},
	}
}

// Init opens the speaker.
func (c *Chime) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(50*time.Millisecond)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(c.mixer)
	c.initialized = true
	return nil
}

// Play queues one chime. Higher scores ring slightly higher, up to a fifth
// above the base pitch.
func (c *Chime) Play(score int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return
	}

	freq := c.config.Frequency * (1 + 0.5*math.Min(float64(score)/200, 1))
	tone, err := Tone(sampleRate, freq, c.config.Duration, c.config.Volume)
	if err != nil {
		return
	}
	speaker.Lock()
	c.mixer.Add(tone)
	speaker.Unlock()
}

// Close silences pending chimes.
func (c *Chime) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return
	}
	speaker.Lock()
	c.mixer.Clear()
	speaker.Unlock()
	c.initialized = false
}

// Tone builds a sine burst of the given length that fades out linearly.
func Tone(rate beep.SampleRate, freq float64, duration time.Duration, volume float64) (beep.Streamer, error) {
	sine, err := generators.SineTone(rate, freq)
	if err != nil {
		return nil, fmt.Errorf("sine tone: %w", err)
	}

	total := rate.N(duration)
	shaped := &fade{streamer: beep.Take(total, sine), total: total}

	if volume <= 0 {
		return &effects.Volume{Streamer: shaped, Base: 2, Silent: true}, nil
	}
	return &effects.Volume{Streamer: shaped, Base: 2, Volume: math.Log2(volume)}, nil
}

// fade scales samples from full volume down to zero over total samples.
type fade struct {
	streamer beep.Streamer
	position int
	total    int
}

func (f *fade) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = f.streamer.Stream(samples)
	for i := 0; i < n; i++ {
		vol := 1 - float64(f.position)/float64(f.total)
		samples[i][0] *= vol
		samples[i][1] *= vol
		f.position++
	}
	return n, ok
}

func (f *fade) Err() error { return f.streamer.Err() }
